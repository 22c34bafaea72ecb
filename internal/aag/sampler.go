package aag

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
)

// Electrical constants from Rs232_Comms_v100.pdf.
const (
	zenerConstant = 3.0
	ldrPullup     = 56.0 // kOhm
	rainPullup    = 1.0
	rainResAt25   = 1.0
	rainBeta      = 3450.0
	absoluteZero  = 273.15

	adcFullScale = 1023.0
)

var errADCRange = errors.New("adc value out of range")

// Converter turns the captured groups of one successful query into a
// physical value.
type Converter func(groups []string) (float64, error)

// Field returns a converter applying conv to the i-th captured group.
func Field(i int, conv func(raw float64) (float64, error)) Converter {
	return func(groups []string) (float64, error) {
		if i >= len(groups) {
			return 0, fmt.Errorf("group %d missing", i)
		}
		raw, err := strconv.ParseFloat(groups[i], 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", groups[i], err)
		}
		v, err := conv(raw)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("raw %v: non-finite result", raw)
		}
		return v, nil
	}
}

// Centi converts hundredths of a degree to degrees Celsius.
func Centi(raw float64) (float64, error) { return raw / 100, nil }

// Unscaled passes the raw value through.
func Unscaled(raw float64) (float64, error) { return raw, nil }

// InternalVoltage converts the zener reference ADC count to volts.
func InternalVoltage(raw float64) (float64, error) {
	if raw <= 0 {
		return 0, errADCRange
	}
	return adcFullScale * zenerConstant / raw, nil
}

// LDRResistance converts the light-dependent resistor ADC count to kOhm.
func LDRResistance(raw float64) (float64, error) {
	if raw <= 0 || raw >= adcFullScale {
		return 0, errADCRange
	}
	return ldrPullup / ((adcFullScale / raw) - 1), nil
}

// RainSensorTemperature converts the rain sensor NTC ADC count to Celsius.
func RainSensorTemperature(raw float64) (float64, error) {
	if raw <= 0 || raw >= adcFullScale {
		return 0, errADCRange
	}
	r := math.Log((rainPullup / ((adcFullScale / raw) - 1)) / rainResAt25)
	return 1/((r/rainBeta)+(1/(absoluteZero+25))) - absoluteZero, nil
}

// PWMPercent converts a 10-bit duty value to percent.
func PWMPercent(raw float64) (float64, error) { return raw * 100 / adcFullScale, nil }

// SampleMedian queries id n times and returns the median of the converted
// samples, provided at least n-1 of them succeeded.
func (c *Client) SampleMedian(id CommandID, n int, convert Converter) (float64, bool) {
	out := c.sampleMedians(id, n, n-1, convert)
	return out[0].value, out[0].ok
}

type sample struct {
	value float64
	ok    bool
}

// sampleMedians issues n queries and applies each converter independently to
// every response, so one bad field does not discard its siblings.
func (c *Client) sampleMedians(id CommandID, n, minOK int, converts ...Converter) []sample {
	if minOK < 1 {
		minOK = 1
	}
	values := make([][]float64, len(converts))
	for i := 0; i < n; i++ {
		groups := c.Query(id, DefaultMaxAttempts)
		if groups == nil {
			continue
		}
		for j, conv := range converts {
			v, err := conv(groups)
			if err != nil {
				slog.Debug("aag: discarding sample", "cmd", string(id), "error", err)
				continue
			}
			values[j] = append(values[j], v)
		}
	}

	out := make([]sample, len(converts))
	for j, vs := range values {
		if len(vs) < minOK {
			slog.Warn("aag: not enough samples", "cmd", string(id), "field", j, "got", len(vs), "want", minOK)
			continue
		}
		out[j] = sample{value: median(vs), ok: true}
	}
	return out
}

// median of a non-empty slice; even counts average the middle pair.
func median(vs []float64) float64 {
	s := append([]float64(nil), vs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}
