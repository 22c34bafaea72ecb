package status

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/sweeney/dome-weather/internal/weather"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string          `json:"event,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Safe          bool            `json:"safe"`
	Ready         bool            `json:"ready"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartTime     string          `json:"start_time"`
	Timestamp     string          `json:"timestamp"`
	Cycles        int             `json:"cycles"`
	Device        DeviceJSON      `json:"device"`
	MQTT          MQTTStatus      `json:"mqtt"`
	Heater        HeaterJSON      `json:"heater"`
	Reading       *ReadingJSON    `json:"reading,omitempty"`
	Conditions    []ConditionJSON `json:"conditions"`
	Config        ConfigJSON      `json:"config"`
}

// DeviceJSON identifies the sensor.
type DeviceJSON struct {
	Name     string `json:"name"`
	Firmware string `json:"firmware"`
	Serial   string `json:"serial"`
	Port     string `json:"port"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// HeaterJSON is the rain sensor heater state.
type HeaterJSON struct {
	Mode         string  `json:"mode"`
	Duty         float64 `json:"duty"`
	Target       float64 `json:"target"`
	ImpulseStart string  `json:"impulse_start,omitempty"`
}

// ReadingJSON is the latest reading.
type ReadingJSON struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	Values    map[string]any `json:"values"`
}

// ConditionJSON is one safety category.
type ConditionJSON struct {
	Kind  string `json:"kind"`
	Label string `json:"label"`
	Safe  bool   `json:"safe"`
	Value string `json:"value,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs        int64  `json:"poll_ms"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	SafetyDelayMs int64  `json:"safety_delay_ms"`
	Broker        string `json:"broker"`
	HTTPPort      string `json:"http_port"`
}

func buildInner(snap Snapshot) StatusInner {
	mode := string(snap.Heater.Mode)
	if mode == "" {
		mode = "UNKNOWN"
	}
	inner := StatusInner{
		Safe:          snap.Safe(),
		Ready:         snap.Ready(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Cycles:        snap.Cycles,
		Device: DeviceJSON{
			Name:     snap.Device.Name,
			Firmware: snap.Device.Firmware,
			Serial:   snap.Device.Serial,
			Port:     snap.Device.Port,
		},
		MQTT:   MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Heater: HeaterJSON{Mode: mode, Duty: snap.Heater.Duty, Target: snap.Heater.Target},
		Config: ConfigJSON{
			PollMs:        snap.Config.PollMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			SafetyDelayMs: snap.Config.SafetyDelayMs,
			Broker:        snap.Config.Broker,
			HTTPPort:      snap.Config.HTTPPort,
		},
		Conditions: []ConditionJSON{},
	}
	if !snap.Heater.ImpulseStart.IsZero() {
		inner.Heater.ImpulseStart = snap.Heater.ImpulseStart.UTC().Format(time.RFC3339)
	}

	if rec := snap.Latest; rec != nil {
		values := make(map[string]any, len(rec.Reading.Values))
		for k, v := range rec.Reading.Values {
			values[k] = v.Any()
		}
		inner.Reading = &ReadingJSON{
			ID:        rec.ID,
			Timestamp: rec.Reading.Time.UTC().Format(time.RFC3339),
			Values:    values,
		}
		for _, c := range rec.Verdict.Conditions {
			inner.Conditions = append(inner.Conditions, conditionJSON(c))
		}
	}
	return inner
}

func conditionJSON(c weather.Condition) ConditionJSON {
	cj := ConditionJSON{Kind: string(c.Kind), Label: c.Label, Safe: c.Safe}
	if c.Value != nil {
		cj.Value = c.Value.String()
	}
	return cj
}

// SortedFields returns the latest reading's field names in order, for display.
func (s Snapshot) SortedFields() []string {
	if s.Latest == nil {
		return nil
	}
	fields := make([]string, 0, len(s.Latest.Reading.Values))
	for k := range s.Latest.Reading.Values {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
