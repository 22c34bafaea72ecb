package gpio

// FakeInterlock is a test double that records every level written.
type FakeInterlock struct {
	// Levels contains every value passed to Set, in order.
	Levels []bool

	// SetError, if set, will be returned by Set.
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeInterlock creates a FakeInterlock.
func NewFakeInterlock() *FakeInterlock {
	return &FakeInterlock{}
}

// Set records the level.
func (f *FakeInterlock) Set(safe bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Levels = append(f.Levels, safe)
	return nil
}

// Safe reports the last level written; false before any Set and after Close.
func (f *FakeInterlock) Safe() bool {
	if f.Closed || len(f.Levels) == 0 {
		return false
	}
	return f.Levels[len(f.Levels)-1]
}

// Close drives the line low and marks the fake as closed.
func (f *FakeInterlock) Close() error {
	f.Levels = append(f.Levels, false)
	f.Closed = true
	return nil
}
