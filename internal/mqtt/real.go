package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/zone5/internal/monitor"
	"github.com/sweeney/zone5/internal/syncer"
)

// DefaultBufferSize is the number of band events kept while the broker is unreachable.
const DefaultBufferSize = 256

// Config configures a RealPublisher.
type Config struct {
	Broker     string
	ClientID   string
	BufferSize int
	Logger     *slog.Logger
	// OnConnectionChange is called with true on every (re)connect and false on loss.
	OnConnectionChange func(connected bool)
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	log    *slog.Logger
	notify func(bool)

	mu  sync.Mutex
	buf *outbox
}

// NewRealPublisher creates a publisher connected to the given broker.
// A broker that is not reachable within the connect timeout is not fatal:
// paho keeps retrying in the background and messages are buffered meanwhile.
func NewRealPublisher(cfg Config) (*RealPublisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker not configured")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "zone5"
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p := &RealPublisher{
		log:    logger.With("component", "mqtt"),
		notify: cfg.OnConnectionChange,
		buf:    newOutbox(cfg.BufferSize, logger),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		p.log.Warn("broker not reachable yet, buffering", "broker", cfg.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func (p *RealPublisher) onConnect(paho.Client) {
	p.log.Info("connected")
	if p.notify != nil {
		p.notify(true)
	}
	// Handlers run on paho's goroutine; waiting on tokens here would block it.
	go p.replay()
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.log.Warn("connection lost", "error", err)
	if p.notify != nil {
		p.notify(false)
	}
}

func (p *RealPublisher) replay() {
	p.mu.Lock()
	msgs := p.buf.drainAll()
	p.mu.Unlock()
	if len(msgs) == 0 {
		return
	}

	p.log.Info("replaying buffered messages", "count", len(msgs))
	for i, m := range msgs {
		if err := p.send(m); err != nil {
			p.log.Warn("replay failed, rebuffering", "error", err, "remaining", len(msgs)-i)
			p.mu.Lock()
			for _, rest := range msgs[i:] {
				p.buf.push(rest)
			}
			p.mu.Unlock()
			return
		}
	}
}

// IsConnected reports whether the client currently holds an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buf.push(msg)
		p.mu.Unlock()
		return nil
	}
	return p.send(msg)
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.topic, err)
	}
	return nil
}

// Publish sends a band transition to the MQTT broker.
func (p *RealPublisher) Publish(event monitor.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(bufferedMsg{topic: TopicBand, payload: payload})
}

// PublishSync sends a committed sync summary. Retained so late subscribers
// see the latest totals.
func (p *RealPublisher) PublishSync(event syncer.Event) error {
	payload, err := FormatSyncPayload(event)
	if err != nil {
		return fmt.Errorf("format sync payload: %w", err)
	}
	return p.publish(bufferedMsg{topic: TopicSync, payload: payload, qos: 1, retained: true})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if n := p.Buffered(); n > 0 {
		p.log.Warn("closing with undelivered messages", "count", n)
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
