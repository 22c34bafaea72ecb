// Package mqtt publishes weather records and lifecycle events to a broker.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/dome-weather/internal/weather"
)

// Topics.
const (
	// TopicRecords receives every classified record.
	TopicRecords = "observatory/weather/records"
	// TopicSafe holds the retained aggregate safe flag, "1" or "0".
	TopicSafe = "observatory/weather/safe"
	// TopicSystem receives lifecycle events.
	TopicSystem = "observatory/weather/system"
)

// Publisher publishes records to MQTT.
type Publisher interface {
	// Publish sends a record and the current safe flag.
	// Returns error if publishing fails (should not crash the process).
	Publish(rec weather.Record) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// SafePayload is the retained body of TopicSafe.
func SafePayload(safe bool) []byte {
	if safe {
		return []byte("1")
	}
	return []byte("0")
}
