//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealInterlock drives the interlock line on actual hardware.
type RealInterlock struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealInterlock requests pin on chip as an output, initially low.
func NewRealInterlock(chip string, pin int) (*RealInterlock, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := c.RequestLine(pin, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("dome-weather"))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request interlock pin %d: %w", pin, err)
	}

	return &RealInterlock{chip: c, line: line}, nil
}

// Set drives the line high for safe, low otherwise.
func (r *RealInterlock) Set(safe bool) error {
	if err := r.line.SetValue(level(safe)); err != nil {
		return fmt.Errorf("set interlock: %w", err)
	}
	return nil
}

// Close drives the line low, then returns the pin to an input with pull-down
// (the Pi boot default) so the dome controller sees "unsafe" while we are down.
func (r *RealInterlock) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive interlock low: %w", err))
		}
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure interlock pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close interlock pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	return errors.Join(errs...)
}
