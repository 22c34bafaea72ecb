// Package port provides the serial line used to talk to the cloud sensor.
// The real implementation uses go.bug.st/serial.
// The fake implementation allows testing without hardware.
package port

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Port is an exclusively owned serial line.
type Port interface {
	Write(p []byte) (int, error)

	// Read returns whatever bytes are available, or 0 once the line has
	// been silent for the configured read timeout.
	Read(p []byte) (int, error)

	// ResetInputBuffer discards unread input.
	ResetInputBuffer() error

	Close() error
}

// Defaults for the AAG CloudWatcher RS232 interface.
const (
	DefaultBaudRate    = 9600
	DefaultReadTimeout = 100 * time.Millisecond
)

// Open opens the serial device at path, 8N1.
func Open(path string, baud int) (Port, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// Reads must not block past the silence window; Send relies on it.
	if err := p.SetReadTimeout(DefaultReadTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return p, nil
}
