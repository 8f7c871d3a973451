package mqtt

import (
	"testing"
)

func bandMsg(i int) bufferedMsg {
	return bufferedMsg{topic: TopicBand, payload: []byte{byte(i)}}
}

func TestOutboxEmptyDrain(t *testing.T) {
	o := newOutbox(10, nil)
	if got := o.drainAll(); got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
}

func TestOutboxEventsInOrder(t *testing.T) {
	o := newOutbox(10, nil)
	for i := 0; i < 5; i++ {
		o.push(bandMsg(i))
	}

	got := o.drainAll()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := 0; i < 5; i++ {
		if got[i].payload[0] != byte(i) {
			t.Errorf("item %d: expected payload %d, got %d", i, i, got[i].payload[0])
		}
	}
	if got := o.drainAll(); got != nil {
		t.Errorf("expected nil from second drain, got %d items", len(got))
	}
}

func TestOutboxOverflowDropsOldest(t *testing.T) {
	capacity := 5
	o := newOutbox(capacity, nil)

	// 0..7 pushed, 3..7 kept
	for i := 0; i < capacity+3; i++ {
		o.push(bandMsg(i))
	}
	if o.dropped != 3 {
		t.Errorf("expected 3 dropped, got %d", o.dropped)
	}

	got := o.drainAll()
	if len(got) != capacity {
		t.Fatalf("expected %d items, got %d", capacity, len(got))
	}
	for i := 0; i < capacity; i++ {
		if want := byte(i + 3); got[i].payload[0] != want {
			t.Errorf("item %d: expected payload %d, got %d", i, want, got[i].payload[0])
		}
	}
	if o.dropped != 0 {
		t.Errorf("drain must reset dropped count, got %d", o.dropped)
	}
}

func TestOutboxKeepsLatestRetainedPerTopic(t *testing.T) {
	o := newOutbox(2, nil)
	for i := 0; i < 4; i++ {
		o.push(bufferedMsg{topic: TopicSync, payload: []byte{byte(i)}, qos: 1, retained: true})
	}
	o.push(bufferedMsg{topic: TopicSystem, payload: []byte("hb"), qos: 1, retained: true})
	o.push(bandMsg(9))

	if o.len() != 3 {
		t.Fatalf("expected len 3, got %d", o.len())
	}
	if o.dropped != 0 {
		t.Errorf("retained messages never count as dropped, got %d", o.dropped)
	}

	got := o.drainAll()
	if len(got) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got))
	}
	if got[0].topic != TopicBand {
		t.Errorf("events replay first, got %s", got[0].topic)
	}
	if got[1].topic != TopicSync || got[1].payload[0] != 3 {
		t.Errorf("expected latest sync message, got %s %v", got[1].topic, got[1].payload)
	}
	if got[2].topic != TopicSystem || !got[2].retained || got[2].qos != 1 {
		t.Errorf("system message: got %+v", got[2])
	}
}

func TestOutboxRetainedDoesNotUseCapacity(t *testing.T) {
	o := newOutbox(1, nil)
	o.push(bufferedMsg{topic: TopicSystem, payload: []byte("x"), retained: true})
	o.push(bandMsg(1))
	if o.dropped != 0 {
		t.Errorf("expected no drops, got %d", o.dropped)
	}
	if o.len() != 2 {
		t.Errorf("expected len 2, got %d", o.len())
	}
}

func TestOutboxMultipleCycles(t *testing.T) {
	o := newOutbox(5, nil)
	for i := 0; i < 3; i++ {
		o.push(bandMsg(i))
	}
	if got := o.drainAll(); len(got) != 3 {
		t.Fatalf("cycle 1: expected 3 items, got %d", len(got))
	}

	o.push(bufferedMsg{topic: TopicSync, payload: []byte("a"), retained: true})
	for i := 10; i < 14; i++ {
		o.push(bandMsg(i))
	}
	got := o.drainAll()
	if len(got) != 5 {
		t.Fatalf("cycle 2: expected 5 items, got %d", len(got))
	}
	for i := 0; i < 4; i++ {
		if want := byte(10 + i); got[i].payload[0] != want {
			t.Errorf("cycle 2 item %d: expected %d, got %d", i, want, got[i].payload[0])
		}
	}
	if o.len() != 0 {
		t.Errorf("expected empty outbox, got %d", o.len())
	}
}
