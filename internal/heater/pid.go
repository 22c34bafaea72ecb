package heater

import "time"

type pidSample struct {
	at   time.Time
	area float64 // error * seconds
}

// PID is a proportional-integral-derivative loop whose integral and
// derivative terms scale with the real time between calls.
// The integral only covers samples younger than MaxAge.
type PID struct {
	Kp, Ki, Kd float64
	Min, Max   float64
	MaxAge     time.Duration

	history []pidSample
	prevErr float64
	last    time.Time

	// Terms from the last Recalculate, for logging.
	P, I, D      float64
	LastInterval time.Duration
}

// NewPID returns a loop with output clamped to [min, max].
func NewPID(kp, ki, kd, min, max float64, maxAge time.Duration) *PID {
	return &PID{Kp: kp, Ki: ki, Kd: kd, Min: min, Max: max, MaxAge: maxAge}
}

// Recalculate returns the new output for measured against setpoint at now.
// The first call has no interval and only the proportional term acts.
func (p *PID) Recalculate(measured, setpoint float64, now time.Time) float64 {
	err := setpoint - measured

	var dt float64
	if !p.last.IsZero() {
		dt = now.Sub(p.last).Seconds()
	}
	p.LastInterval = time.Duration(dt * float64(time.Second))

	if dt > 0 {
		p.history = append(p.history, pidSample{at: now, area: err * dt})
	}
	p.trim(now)

	p.P = err
	p.I = 0
	for _, s := range p.history {
		p.I += s.area
	}
	p.D = 0
	if dt > 0 {
		p.D = (err - p.prevErr) / dt
	}

	out := p.Kp*p.P + p.Ki*p.I + p.Kd*p.D
	if out > p.Max || out < p.Min {
		// Saturated: do not let the integral wind up.
		if dt > 0 && len(p.history) > 0 {
			p.history = p.history[:len(p.history)-1]
		}
		out = min(max(out, p.Min), p.Max)
	}

	p.prevErr = err
	p.last = now
	return out
}

func (p *PID) trim(now time.Time) {
	if p.MaxAge <= 0 {
		return
	}
	cutoff := now.Add(-p.MaxAge)
	i := 0
	for i < len(p.history) && p.history[i].at.Before(cutoff) {
		i++
	}
	p.history = p.history[i:]
}

// Samples returns the number of integral samples held.
func (p *PID) Samples() int { return len(p.history) }
