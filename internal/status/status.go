// Package status provides a thread-safe status tracker for the dome-weather daemon.
// It is read by the HTTP handlers and by the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/dome-weather/internal/heater"
	"github.com/sweeney/dome-weather/internal/weather"
)

// Device identifies the connected sensor. This is a local copy to avoid
// importing internal/aag from status.
type Device struct {
	Name     string
	Firmware string
	Serial   string
	Port     string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs        int64
	HeartbeatMs   int64
	SafetyDelayMs int64
	Broker        string
	HTTPPort      string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type: safe to use after the lock is released.
type Snapshot struct {
	Latest        *weather.Record
	Heater        heater.State
	Device        Device
	Cycles        int
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether at least one record has been classified.
func (s Snapshot) Ready() bool {
	return s.Latest != nil
}

// Safe reports the latest aggregate verdict; false before the first record.
func (s Snapshot) Safe() bool {
	return s.Latest != nil && s.Latest.Verdict.Safe
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Record stores the latest classified record and heater state.
// Called from runLoop once per cycle.
func (t *Tracker) Record(rec weather.Record, hs heater.State) {
	t.mu.Lock()
	t.snap.Latest = &rec
	t.snap.Heater = hs
	t.snap.Cycles++
	t.mu.Unlock()
}

// SetDevice sets the sensor identity.
func (t *Tracker) SetDevice(d Device) {
	t.mu.Lock()
	t.snap.Device = d
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
