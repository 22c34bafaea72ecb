// Package gpio drives the dome safety interlock output.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
//
// The line is fail-closed: it is driven low (unsafe) when opened, when the
// daemon cannot decide and when it shuts down.
package gpio

// Interlock is a single output line telling the dome controller whether it
// may stay open.
type Interlock interface {
	// Set drives the line high for safe, low otherwise.
	Set(safe bool) error

	// Close drives the line low and releases GPIO resources.
	Close() error
}

// DefaultPin is the interlock output (BCM numbering).
const DefaultPin = 26

// DefaultChip is the GPIO character device on a Raspberry Pi.
const DefaultChip = "gpiochip0"

func level(safe bool) int {
	if safe {
		return 1
	}
	return 0
}
