// Package weather contains the pure safety-decision logic shared by every weather source.
// This package has NO external dependencies (no serial, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package weather

import (
	"strconv"
	"time"
)

// Reading field names. External collaborators (MQTT, storage) rely on these.
const (
	FieldSkyTemperature        = "sky_temperature"
	FieldAmbientTemperature    = "ambient_temperature"
	FieldSkyAmbient            = "sky_ambient"
	FieldInternalVoltage       = "internal_voltage"
	FieldLDRResistance         = "ldr_resistance"
	FieldRainSensorTemperature = "rain_sensor_temperature"
	FieldRainFrequency         = "rain_frequency"
	FieldPWM                   = "pwm_value"
	FieldError1                = "error_1"
	FieldError2                = "error_2"
	FieldError3                = "error_3"
	FieldError4                = "error_4"
	FieldWindSpeed             = "wind_speed"
	FieldSwitch                = "switch_status"
)

// Value is a numeric or categorical field value.
type Value struct {
	num  float64
	text string
	cat  bool
}

// Number returns a numeric Value.
func Number(f float64) Value { return Value{num: f} }

// Text returns a categorical Value.
func Text(s string) Value { return Value{text: s, cat: true} }

// Float returns the numeric value and whether v is numeric.
func (v Value) Float() (float64, bool) {
	return v.num, !v.cat
}

// IsText reports whether v is categorical.
func (v Value) IsText() bool { return v.cat }

// Any returns v as a float64 or string, for serialization.
func (v Value) Any() any {
	if v.cat {
		return v.text
	}
	return v.num
}

func (v Value) String() string {
	if v.cat {
		return v.text
	}
	return strconv.FormatFloat(v.num, 'f', -1, 64)
}

// Reading is one poll cycle's worth of field values from a single source.
// It is not modified after Capture returns.
type Reading struct {
	Source string
	Time   time.Time
	Values map[string]Value
}

// NewReading creates an empty reading captured at t.
func NewReading(source string, t time.Time) Reading {
	return Reading{Source: source, Time: t, Values: make(map[string]Value)}
}

// Set stores a numeric field.
func (r Reading) Set(field string, f float64) {
	r.Values[field] = Number(f)
}

// SetText stores a categorical field.
func (r Reading) SetText(field, s string) {
	r.Values[field] = Text(s)
}

// Get returns the field value if present.
func (r Reading) Get(field string) (Value, bool) {
	v, ok := r.Values[field]
	return v, ok
}

// Float returns a numeric field if present.
func (r Reading) Float(field string) (float64, bool) {
	v, ok := r.Values[field]
	if !ok {
		return 0, false
	}
	return v.Float()
}

// Condition is the classification of one safety category.
type Condition struct {
	Kind  Kind
	Label string
	Safe  bool
	// Value is the category input that was classified, if any.
	Value *Value
}

// Verdict is the outcome of one safety evaluation.
type Verdict struct {
	Conditions []Condition
	Safe       bool
}

// Condition returns the condition for kind, if evaluated.
func (v Verdict) Condition(kind Kind) (Condition, bool) {
	for _, c := range v.Conditions {
		if c.Kind == kind {
			return c, true
		}
	}
	return Condition{}, false
}

// Record is a reading together with the verdict computed for it.
type Record struct {
	ID      string
	Reading Reading
	Verdict Verdict
}

// Labels that are not band labels.
const (
	LabelInvalid = "Invalid"
	LabelUnknown = "Unknown"
)
