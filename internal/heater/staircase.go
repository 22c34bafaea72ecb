package heater

import "math"

// step is one stair of the impulse-mode duty adjustment.
type step struct {
	above float64 // |deltaT| must exceed this
	duty  float64 // duty change before scaling
}

// Largest magnitude first, so each deltaT lands on its own stair.
var stairs = []step{
	{8, 40},
	{4, 20},
	{3, 10},
	{2, 6},
	{1, 4},
	{0.5, 2},
	{0.3, 1},
}

const stairScale = 0.5

// StepDelta returns the duty change for deltaT = sensor - target.
// A sensor hotter than target lowers the duty. Scaled steps are truncated
// toward zero, so the smallest stair is a no-op.
func StepDelta(deltaT float64) float64 {
	for _, s := range stairs {
		switch {
		case deltaT > s.above:
			return -math.Trunc(s.duty * stairScale)
		case deltaT < -s.above:
			return math.Trunc(s.duty * stairScale)
		}
	}
	return 0
}

// TargetDelta interpolates how far above ambient the rain sensor should be
// held. Outside [LowTemp, HighTemp] the nearest delta applies.
func (s Settings) TargetDelta(ambient float64) float64 {
	switch {
	case ambient < s.LowTemp:
		return s.LowDelta
	case ambient > s.HighTemp:
		return s.HighDelta
	case s.HighTemp == s.LowTemp:
		return s.LowDelta
	}
	frac := (ambient - s.LowTemp) / (s.HighTemp - s.LowTemp)
	return s.LowDelta + frac*(s.HighDelta-s.LowDelta)
}
