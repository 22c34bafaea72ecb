// Package station runs one control cycle for a weather source: acquire a
// reading, classify it over the safety window, record it and drive the
// rain sensor heater.
package station

import (
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/dome-weather/internal/heater"
	"github.com/sweeney/dome-weather/internal/metrics"
	"github.com/sweeney/dome-weather/internal/weather"
)

// Source acquires one reading. aag.Device implements it.
type Source interface {
	Capture(now time.Time) weather.Reading
}

// Heater runs one control step over recent records.
type Heater interface {
	Cycle(recent []weather.Record, now time.Time) error
	State() heater.State
}

// Station owns the history and the per-device state of one sensor.
// Cycle must not be called concurrently.
type Station struct {
	source       Source
	engine       *weather.Engine
	history      *weather.History
	heater       Heater
	safetyDelay  time.Duration
	impulseCycle time.Duration
	newID        func() string
}

// Options configure a Station.
type Options struct {
	SafetyDelay  time.Duration
	ImpulseCycle time.Duration
	// NewID generates record IDs; defaults to random UUIDs.
	NewID func() string
}

// New creates a Station. h may be nil for sources without a heater.
func New(src Source, engine *weather.Engine, history *weather.History, h Heater, o Options) *Station {
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return &Station{
		source:       src,
		engine:       engine,
		history:      history,
		heater:       h,
		safetyDelay:  o.SafetyDelay,
		impulseCycle: o.ImpulseCycle,
		newID:        o.NewID,
	}
}

// History returns the record history.
func (s *Station) History() *weather.History { return s.history }

// Cycle captures, classifies and records one reading, then runs the heater.
// It returns the record that was appended to the history.
// A skipped or failed heater step is logged by the heater and does not
// affect the record.
func (s *Station) Cycle(now time.Time) weather.Record {
	start := time.Now()
	reading := s.source.Capture(now)
	metrics.CaptureDuration.Observe(time.Since(start).Seconds())

	rec := s.Classify(reading)
	s.history.Append(rec)

	if s.heater != nil {
		_ = s.heater.Cycle(s.history.Since(now.Add(-s.impulseCycle)), now)
	}
	return rec
}

// Classify evaluates reading against the safety window ending at it,
// without recording it.
func (s *Station) Classify(reading weather.Reading) weather.Record {
	window := weather.Readings(s.history.Since(reading.Time.Add(-s.safetyDelay)))
	window = append(window, reading)
	return weather.Record{
		ID:      s.newID(),
		Reading: reading,
		Verdict: s.engine.Evaluate(window),
	}
}

// HeaterState returns the heater snapshot, or the zero State without a heater.
func (s *Station) HeaterState() heater.State {
	if s.heater == nil {
		return heater.State{}
	}
	return s.heater.State()
}
