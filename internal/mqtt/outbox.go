package mqtt

import "log/slog"

// queuedMsg is a serialized MQTT message awaiting delivery.
type queuedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages produced while the broker is unreachable.
//
// Non-retained messages (records, heartbeats) queue in a fixed-capacity FIFO
// that drops the oldest entry when full. Retained messages describe current
// state, so only the newest one per topic is kept; replaying an old safe flag
// would briefly advertise a stale verdict.
//
// Not safe for concurrent use: caller must synchronize.
type outbox struct {
	queue    []queuedMsg
	capacity int
	head     int // next write position
	count    int
	overflow bool // true if any message was dropped since last drain

	latest map[string]queuedMsg
	topics []string // retained topics in first-seen order
}

func newOutbox(capacity int) *outbox {
	return &outbox{
		queue:    make([]queuedMsg, capacity),
		capacity: capacity,
		latest:   make(map[string]queuedMsg),
	}
}

func (o *outbox) add(msg queuedMsg) {
	if msg.retained {
		if _, ok := o.latest[msg.topic]; !ok {
			o.topics = append(o.topics, msg.topic)
		}
		o.latest[msg.topic] = msg
		return
	}

	if o.count == o.capacity {
		if !o.overflow {
			slog.Warn("mqtt: outbox full, dropping oldest", "capacity", o.capacity)
			o.overflow = true
		}
		// head already points at the oldest entry
		o.queue[o.head] = msg
		o.head = (o.head + 1) % o.capacity
		return
	}
	o.queue[o.head] = msg
	o.head = (o.head + 1) % o.capacity
	o.count++
}

// drain empties the outbox: queued messages oldest first, then the newest
// retained message of every topic.
func (o *outbox) drain() []queuedMsg {
	if o.pending() == 0 {
		return nil
	}

	result := make([]queuedMsg, 0, o.pending())
	start := (o.head - o.count + o.capacity) % o.capacity
	for i := 0; i < o.count; i++ {
		result = append(result, o.queue[(start+i)%o.capacity])
	}
	for _, topic := range o.topics {
		result = append(result, o.latest[topic])
	}

	o.count = 0
	o.head = 0
	o.overflow = false
	o.latest = make(map[string]queuedMsg)
	o.topics = nil
	return result
}

func (o *outbox) pending() int {
	return o.count + len(o.latest)
}
