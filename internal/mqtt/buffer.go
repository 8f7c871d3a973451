package mqtt

import (
	"log/slog"
	"sort"
)

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages published while the broker is unreachable.
// Band events queue in order up to capacity, dropping the oldest. A retained
// message only matters as the latest value of its topic, so each topic keeps
// one. Not safe for concurrent use; RealPublisher guards it with its mutex.
type outbox struct {
	capacity int
	events   []bufferedMsg
	retained map[string]bufferedMsg
	dropped  int
	log      *slog.Logger
}

func newOutbox(capacity int, logger *slog.Logger) *outbox {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &outbox{
		capacity: capacity,
		retained: make(map[string]bufferedMsg),
		log:      logger,
	}
}

func (o *outbox) push(msg bufferedMsg) {
	if msg.retained {
		o.retained[msg.topic] = msg
		return
	}
	if len(o.events) == o.capacity {
		if o.dropped == 0 {
			o.log.Warn("mqtt_outbox_full", "capacity", o.capacity)
		}
		o.dropped++
		o.events = append(o.events[:0], o.events[1:]...)
	}
	o.events = append(o.events, msg)
}

// drainAll empties the outbox: queued events oldest first, then the retained
// messages ordered by topic.
func (o *outbox) drainAll() []bufferedMsg {
	if o.len() == 0 {
		return nil
	}
	out := make([]bufferedMsg, 0, o.len())
	out = append(out, o.events...)

	topics := make([]string, 0, len(o.retained))
	for topic := range o.retained {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	for _, topic := range topics {
		out = append(out, o.retained[topic])
	}

	if o.dropped > 0 {
		o.log.Warn("mqtt_outbox_drained", "dropped", o.dropped)
	}
	o.events = nil
	o.retained = make(map[string]bufferedMsg)
	o.dropped = 0
	return out
}

func (o *outbox) len() int {
	return len(o.events) + len(o.retained)
}
