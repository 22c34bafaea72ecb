package mqtt

import (
	"testing"
)

func TestOutboxEmptyDrain(t *testing.T) {
	o := newOutbox(10)
	if got := o.drain(); got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
}

func TestOutboxQueueOrder(t *testing.T) {
	o := newOutbox(10)
	for i := 0; i < 5; i++ {
		o.add(queuedMsg{topic: TopicRecords, payload: []byte{byte(i)}})
	}

	got := o.drain()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := 0; i < 5; i++ {
		if got[i].payload[0] != byte(i) {
			t.Errorf("item %d: expected payload %d, got %d", i, i, got[i].payload[0])
		}
	}

	if got := o.drain(); got != nil {
		t.Errorf("expected nil from second drain, got %d items", len(got))
	}
}

func TestOutboxOverflowDropsOldest(t *testing.T) {
	capacity := 5
	o := newOutbox(capacity)

	// 0..7 queued, the most recent 5 (3..7) survive
	for i := 0; i < capacity+3; i++ {
		o.add(queuedMsg{topic: TopicRecords, payload: []byte{byte(i)}})
	}

	got := o.drain()
	if len(got) != capacity {
		t.Fatalf("expected %d items, got %d", capacity, len(got))
	}
	for i := 0; i < capacity; i++ {
		if want := byte(i + 3); got[i].payload[0] != want {
			t.Errorf("item %d: expected payload %d, got %d", i, want, got[i].payload[0])
		}
	}
	if o.overflow {
		t.Error("drain should reset the overflow flag")
	}
}

func TestOutboxRetainedKeepsNewest(t *testing.T) {
	o := newOutbox(10)
	o.add(queuedMsg{topic: TopicSafe, payload: []byte("1"), qos: 1, retained: true})
	o.add(queuedMsg{topic: TopicRecords, payload: []byte("a")})
	o.add(queuedMsg{topic: TopicSystem, payload: []byte("startup"), qos: 1, retained: true})
	o.add(queuedMsg{topic: TopicSafe, payload: []byte("0"), qos: 1, retained: true})

	if o.pending() != 3 {
		t.Fatalf("pending = %d, want 3", o.pending())
	}

	got := o.drain()
	if len(got) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got))
	}
	if got[0].topic != TopicRecords {
		t.Errorf("queued messages come first, got %s", got[0].topic)
	}
	if got[1].topic != TopicSafe || string(got[1].payload) != "0" {
		t.Errorf("safe flag: got %s=%s, want newest value 0", got[1].topic, got[1].payload)
	}
	if got[2].topic != TopicSystem || !got[2].retained || got[2].qos != 1 {
		t.Errorf("system message = %+v", got[2])
	}
}

func TestOutboxMultipleCycles(t *testing.T) {
	o := newOutbox(5)

	for i := 0; i < 3; i++ {
		o.add(queuedMsg{topic: TopicRecords, payload: []byte{byte(i)}})
	}
	if got := o.drain(); len(got) != 3 {
		t.Fatalf("cycle 1: expected 3 items, got %d", len(got))
	}

	o.add(queuedMsg{topic: TopicSafe, payload: []byte("1"), retained: true})
	for i := 10; i < 14; i++ {
		o.add(queuedMsg{topic: TopicRecords, payload: []byte{byte(i)}})
	}
	got := o.drain()
	if len(got) != 5 {
		t.Fatalf("cycle 2: expected 5 items, got %d", len(got))
	}
	for i, msg := range got[:4] {
		if want := byte(10 + i); msg.payload[0] != want {
			t.Errorf("cycle 2 item %d: expected %d, got %d", i, want, msg.payload[0])
		}
	}
	if o.pending() != 0 {
		t.Errorf("expected empty outbox, pending %d", o.pending())
	}
}
