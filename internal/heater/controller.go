// Package heater keeps the rain sensor above ambient so dew and frost do not
// read as rain. Normal mode runs a PID loop against an ambient-dependent
// target; impulse mode heats hard for a short while when rain persists.
package heater

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sweeney/dome-weather/internal/metrics"
	"github.com/sweeney/dome-weather/internal/weather"
)

// Mode is the controller state.
type Mode string

const (
	ModeNormal  Mode = "normal"
	ModeImpulse Mode = "impulse"
)

// minRainHistory is the number of rain verdicts needed before impulse heating.
const minRainHistory = 4

// ErrSkipped is returned when the latest reading lacks a required field.
var ErrSkipped = errors.New("heater: cycle skipped")

// DutySetter commits a heater duty in percent and returns the confirmed value.
type DutySetter interface {
	SetPWM(percent float64) (float64, error)
}

// Settings are the heater constants.
type Settings struct {
	LowTemp   float64 // ambient below which LowDelta applies
	LowDelta  float64
	HighTemp  float64 // ambient above which HighDelta applies
	HighDelta float64
	MinPower  float64 // lower PID output limit

	ImpulseTemp     float64 // target offset above ambient while impulse heating
	ImpulseDuration time.Duration
	ImpulseCycle    time.Duration // rain history window

	Kp, Ki, Kd float64
	PIDMaxAge  time.Duration
}

// DefaultSettings returns the values recommended in the heater algorithm note.
func DefaultSettings() Settings {
	return Settings{
		LowTemp:         0,
		LowDelta:        6,
		HighTemp:        20,
		HighDelta:       4,
		MinPower:        10,
		ImpulseTemp:     10,
		ImpulseDuration: 60 * time.Second,
		ImpulseCycle:    600 * time.Second,
		Kp:              3.0,
		Ki:              0.02,
		Kd:              200.0,
		PIDMaxAge:       300 * time.Second,
	}
}

// Validate reports inconsistent settings.
func (s Settings) Validate() error {
	if s.HighTemp < s.LowTemp {
		return fmt.Errorf("high_temp %.1f below low_temp %.1f", s.HighTemp, s.LowTemp)
	}
	if s.MinPower < 0 || s.MinPower > 100 {
		return fmt.Errorf("min_power %.1f outside [0, 100]", s.MinPower)
	}
	if s.ImpulseDuration <= 0 || s.ImpulseCycle <= 0 {
		return fmt.Errorf("impulse duration and cycle must be positive")
	}
	return nil
}

// State is a snapshot of the controller for status reporting.
type State struct {
	Mode         Mode      `json:"mode"`
	ImpulseStart time.Time `json:"impulse_start,omitempty"`
	Target       float64   `json:"target"`
	Duty         float64   `json:"duty"`
	DutyKnown    bool      `json:"duty_known"`
	LastCycle    time.Time `json:"last_cycle,omitempty"`
}

// Controller owns the heater state of one device. Cycle must be called from
// a single goroutine; State may be read concurrently.
type Controller struct {
	settings Settings
	setter   DutySetter
	pid      *PID

	mu           sync.RWMutex
	mode         Mode
	impulseStart time.Time
	target       float64
	duty         float64
	dutyKnown    bool
	lastCycle    time.Time
}

// NewController creates a controller in Normal mode.
func NewController(s Settings, setter DutySetter) *Controller {
	return &Controller{
		settings: s,
		setter:   setter,
		pid:      NewPID(s.Kp, s.Ki, s.Kd, s.MinPower, 100, s.PIDMaxAge),
		mode:     ModeNormal,
	}
}

// Settings returns the controller constants.
func (c *Controller) Settings() Settings { return c.settings }

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{
		Mode:         c.mode,
		ImpulseStart: c.impulseStart,
		Target:       c.target,
		Duty:         c.duty,
		DutyKnown:    c.dutyKnown,
		LastCycle:    c.lastCycle,
	}
}

// Cycle runs one control step. recent holds the records of the last
// ImpulseCycle, oldest first; the last one is the current reading.
func (c *Controller) Cycle(recent []weather.Record, now time.Time) error {
	if len(recent) == 0 {
		metrics.HeaterCycles.WithLabelValues("skipped").Inc()
		slog.Warn("heater: no readings, skipping cycle")
		return fmt.Errorf("no readings: %w", ErrSkipped)
	}
	latest := recent[len(recent)-1].Reading

	ambient, ok := latest.Float(weather.FieldAmbientTemperature)
	if !ok {
		metrics.HeaterCycles.WithLabelValues("skipped").Inc()
		slog.Warn("heater: no ambient temperature, cannot determine pwm")
		return fmt.Errorf("missing %s: %w", weather.FieldAmbientTemperature, ErrSkipped)
	}
	sensor, ok := latest.Float(weather.FieldRainSensorTemperature)
	if !ok {
		metrics.HeaterCycles.WithLabelValues("skipped").Inc()
		slog.Warn("heater: no rain sensor temperature, cannot determine pwm")
		return fmt.Errorf("missing %s: %w", weather.FieldRainSensorTemperature, ErrSkipped)
	}
	if pwm, ok := latest.Float(weather.FieldPWM); ok {
		c.mu.Lock()
		c.duty, c.dutyKnown = pwm, true
		c.mu.Unlock()
	}

	mode := c.transition(rainPersistent(recent), now)

	var target, duty float64
	switch mode {
	case ModeImpulse:
		target = ambient + c.settings.ImpulseTemp
		if sensor < target {
			duty = 100
		} else {
			// Without a known duty the stairs start from the floor.
			st := c.State()
			base := st.Duty
			if !st.DutyKnown {
				base = c.settings.MinPower
			}
			duty = base + StepDelta(sensor-target)
		}
		slog.Debug("heater: impulse", "target", target, "sensor", sensor, "duty", duty)
	default:
		target = ambient + c.settings.TargetDelta(ambient)
		duty = c.pid.Recalculate(sensor, target, now)
		slog.Debug("heater: pid",
			"target", target, "sensor", sensor, "duty", duty,
			"interval", c.pid.LastInterval,
			"p", c.pid.Kp*c.pid.P, "i", c.pid.Ki*c.pid.I, "d", c.pid.Kd*c.pid.D,
			"samples", c.pid.Samples())
	}

	c.mu.Lock()
	c.target = target
	c.lastCycle = now
	c.mu.Unlock()

	if _, err := c.SetDuty(duty); err != nil {
		metrics.HeaterCycles.WithLabelValues("commit_failed").Inc()
		return err
	}
	metrics.HeaterCycles.WithLabelValues(string(mode)).Inc()
	return nil
}

// transition applies the Normal/Impulse rules and returns the new mode.
func (c *Controller) transition(persistent bool, now time.Time) Mode {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.mode {
	case ModeImpulse:
		elapsed := now.Sub(c.impulseStart)
		switch {
		case !persistent:
			slog.Debug("heater: rain cleared, ending impulse heating")
			c.mode = ModeNormal
		case elapsed > c.settings.ImpulseDuration:
			slog.Debug("heater: impulse heating finished", "elapsed", elapsed)
			c.mode = ModeNormal
		}
	default:
		if persistent {
			slog.Info("heater: consistent rain in history, starting impulse heating")
			c.mode = ModeImpulse
			c.impulseStart = now
		}
	}
	if c.mode == ModeNormal {
		c.impulseStart = time.Time{}
	}
	metrics.HeaterImpulse.Set(metrics.Bool(c.mode == ModeImpulse))
	return c.mode
}

// rainPersistent reports whether at least minRainHistory records carry a
// rain verdict and none of them is safe.
func rainPersistent(recent []weather.Record) bool {
	n := 0
	for _, rec := range recent {
		cond, ok := rec.Verdict.Condition(weather.KindRain)
		if !ok {
			continue
		}
		if cond.Safe {
			return false
		}
		n++
	}
	return n >= minRainHistory
}

// SetDuty clamps percent to [0, 100] and commits it. On failure the device
// keeps its previous duty.
func (c *Controller) SetDuty(percent float64) (float64, error) {
	percent = min(max(percent, 0), 100)
	got, err := c.setter.SetPWM(percent)
	if err != nil {
		slog.Warn("heater: failed to set pwm", "percent", percent, "error", err)
		return 0, fmt.Errorf("heater: set duty: %w", err)
	}
	c.mu.Lock()
	c.duty, c.dutyKnown = got, true
	c.mu.Unlock()
	metrics.HeaterDuty.Set(got)
	return got, nil
}
