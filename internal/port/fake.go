package port

import (
	"errors"
	"sync"
)

// FakePort is a test double that answers written commands with scripted responses.
type FakePort struct {
	mu sync.Mutex

	// Respond maps a written command to the bytes the device sends back.
	// Returning "" simulates a silent device.
	Respond func(cmd string) string

	// Written records every command in order.
	Written []string

	// Stale, if set, is placed in the input buffer before the next write
	// and must be discarded by ResetInputBuffer.
	Stale string

	// Resets counts ResetInputBuffer calls.
	Resets int

	// WriteError, if set, is returned by Write.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool

	pending []byte
}

// NewFakePort creates a FakePort answering with respond.
func NewFakePort(respond func(cmd string) string) *FakePort {
	return &FakePort{Respond: respond}
}

// Write records cmd and queues the scripted response.
func (f *FakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Closed {
		return 0, errors.New("port closed")
	}
	if f.WriteError != nil {
		return 0, f.WriteError
	}
	cmd := string(p)
	f.Written = append(f.Written, cmd)
	if f.Respond != nil {
		f.pending = append(f.pending, f.Respond(cmd)...)
	}
	return len(p), nil
}

// Read drains the queued response. Returns 0 once empty, like a read timeout.
func (f *FakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

// ResetInputBuffer discards queued input, including any Stale bytes.
func (f *FakePort) ResetInputBuffer() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Resets++
	f.pending = nil
	f.Stale = ""
	return nil
}

// InjectStale queues bytes as if the device had sent them unprompted.
func (f *FakePort) InjectStale(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Stale = s
	f.pending = append(f.pending, s...)
}

// Close marks the port as closed.
func (f *FakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Closed = true
	return nil
}

// Commands returns a copy of the written commands.
func (f *FakePort) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.Written))
	copy(out, f.Written)
	return out
}
