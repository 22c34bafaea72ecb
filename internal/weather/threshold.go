package weather

import (
	"errors"
	"fmt"
)

// Band is one labeled sub-range of a field's legal values.
// A single-bound band matches on equality; a two-bound band matches lo < v <= hi.
type Band struct {
	Label  string
	bounds []Value
}

// NewBand validates bounds and returns a band. Exactly one or two bounds are
// allowed; a two-bound band must be numeric with lo <= hi.
func NewBand(label string, bounds ...Value) (Band, error) {
	if label == "" {
		return Band{}, errors.New("band label is empty")
	}
	switch len(bounds) {
	case 1:
	case 2:
		lo, okLo := bounds[0].Float()
		hi, okHi := bounds[1].Float()
		if !okLo || !okHi {
			return Band{}, fmt.Errorf("band %q: range bounds must be numeric", label)
		}
		if lo > hi {
			return Band{}, fmt.Errorf("band %q: lower bound %v above upper bound %v", label, lo, hi)
		}
	default:
		return Band{}, fmt.Errorf("band %q: threshold values should be 1 or 2 numbers, got %d", label, len(bounds))
	}
	return Band{Label: label, bounds: append([]Value(nil), bounds...)}, nil
}

// MustBand is NewBand that panics on error. For tests and static defaults.
func MustBand(label string, bounds ...Value) Band {
	b, err := NewBand(label, bounds...)
	if err != nil {
		panic(err)
	}
	return b
}

// Bounds returns a copy of the band's bounds.
func (b Band) Bounds() []Value {
	return append([]Value(nil), b.bounds...)
}

// Match reports whether v falls in the band.
func (b Band) Match(v Value) bool {
	if len(b.bounds) == 1 {
		return b.bounds[0] == v
	}
	f, ok := v.Float()
	if !ok {
		return false
	}
	lo, _ := b.bounds[0].Float()
	hi, _ := b.bounds[1].Float()
	return f > lo && f <= hi
}

// Table maps a field name to its bands in declared order.
type Table map[string][]Band

// Classify returns the label of the first band matching v, or LabelInvalid.
func Classify(v Value, bands []Band) string {
	for _, b := range bands {
		if b.Match(v) {
			return b.Label
		}
	}
	return LabelInvalid
}
