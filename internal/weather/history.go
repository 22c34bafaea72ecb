package weather

import (
	"sync"
	"time"
)

// DefaultHistorySize holds a little over an hour of 10 s poll cycles.
const DefaultHistorySize = 400

// History is a bounded, time-ordered buffer of records. When full the oldest
// record is overwritten.
type History struct {
	mu       sync.RWMutex
	buf      []Record
	capacity int
	head     int // next write position
	count    int
}

// NewHistory creates a History holding at most capacity records.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{
		buf:      make([]Record, capacity),
		capacity: capacity,
	}
}

// Append adds rec as the newest entry.
func (h *History) Append(rec Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf[h.head] = rec
	h.head = (h.head + 1) % h.capacity
	if h.count < h.capacity {
		h.count++
	}
}

// Len returns the number of stored records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Latest returns the newest record.
func (h *History) Latest() (Record, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return Record{}, false
	}
	return h.buf[(h.head-1+h.capacity)%h.capacity], true
}

// Since returns records captured at or after t, oldest first.
func (h *History) Since(t time.Time) []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []Record
	start := (h.head - h.count + h.capacity) % h.capacity
	for i := 0; i < h.count; i++ {
		rec := h.buf[(start+i)%h.capacity]
		if !rec.Reading.Time.Before(t) {
			out = append(out, rec)
		}
	}
	return out
}

// Readings extracts the readings from records, oldest first.
func Readings(recs []Record) []Reading {
	out := make([]Reading, len(recs))
	for i, r := range recs {
		out[i] = r.Reading
	}
	return out
}
