package aag

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/dome-weather/internal/weather"
)

// Switch states reported by CmdSwitchStatus.
const (
	SwitchOpen    = "OPEN"
	SwitchClosed  = "CLOSED"
	SwitchUnknown = "UNKNOWN"
)

const (
	switchAttempts = 3
	// pwmTolerance is the allowed gap, in percent, between requested and echoed duty.
	pwmTolerance = 5.0
	// DefaultSetPWMAttempts bounds the set-and-verify loop in SetPWM.
	DefaultSetPWMAttempts = 5
	// DefaultSetPWMBackoff is the pause between set-PWM retries.
	DefaultSetPWMBackoff = 2 * time.Second
	// minWindSamples is the number of good anemometer samples required.
	minWindSamples = 3
)

// ErrPWMNotConfirmed is returned when the device never echoed the requested duty.
var ErrPWMNotConfirmed = errors.New("aag: pwm value not confirmed")

// SampleCounts sets how many queries are medianed per field each cycle.
type SampleCounts struct {
	Sky     int
	Ambient int
	Values  int
	Rain    int
	Wind    int
}

// DefaultSampleCounts returns the per-field sample counts used in the field.
func DefaultSampleCounts() SampleCounts {
	return SampleCounts{Sky: 9, Ambient: 5, Values: 5, Rain: 5, Wind: 3}
}

// Identity describes the connected unit. Empty fields were not reported.
type Identity struct {
	Name     string
	Firmware string
	Serial   string
}

// Values are the three analogue channels reported by CmdValues.
type Values struct {
	InternalVoltage       float64
	InternalVoltageOK     bool
	LDRResistance         float64
	LDRResistanceOK       bool
	RainSensorTemperature float64
	RainSensorOK          bool
}

// Device is one CloudWatcher unit: the sampling layer on top of Client.
type Device struct {
	client   *Client
	counts   SampleCounts
	identity Identity

	setAttempts int
	setBackoff  time.Duration
}

// NewDevice wraps c with the given sample counts.
func NewDevice(c *Client, counts SampleCounts) *Device {
	return &Device{
		client:      c,
		counts:      counts,
		setAttempts: DefaultSetPWMAttempts,
		setBackoff:  DefaultSetPWMBackoff,
	}
}

// Client returns the underlying protocol client.
func (d *Device) Client() *Client { return d.client }

// Identify asks the unit for its name, firmware version and serial number.
// Missing answers are logged; the device stays usable.
func (d *Device) Identify() Identity {
	var id Identity
	if g := d.client.Query(CmdName, DefaultMaxAttempts); g != nil {
		id.Name = strings.TrimSpace(g[0])
		slog.Info("aag: device name", "name", id.Name)
	} else {
		slog.Warn("aag: failed to get device name")
	}
	if g := d.client.Query(CmdFirmware, DefaultMaxAttempts); g != nil {
		id.Firmware = g[0]
		slog.Info("aag: firmware version", "firmware", id.Firmware)
	} else {
		slog.Warn("aag: failed to get firmware version")
	}
	if g := d.client.Query(CmdSerialNumber, DefaultMaxAttempts); g != nil {
		id.Serial = g[0]
		slog.Info("aag: serial number", "serial", id.Serial)
	} else {
		slog.Warn("aag: failed to get serial number")
	}
	d.identity = id
	return id
}

// Identity returns the result of the last Identify call.
func (d *Device) Identity() Identity { return d.identity }

// SkyTemperature returns the sky IR temperature in Celsius.
func (d *Device) SkyTemperature() (float64, bool) {
	return d.client.SampleMedian(CmdSkyTemperature, d.counts.Sky, Field(0, Centi))
}

// AmbientTemperature returns the sensor temperature in Celsius.
func (d *Device) AmbientTemperature() (float64, bool) {
	return d.client.SampleMedian(CmdAmbientTemp, d.counts.Ambient, Field(0, Centi))
}

// Values returns internal voltage, LDR resistance and rain sensor
// temperature. Each field is medianed on its own.
func (d *Device) Values() Values {
	n := d.counts.Values
	s := d.client.sampleMedians(CmdValues, n, n-1,
		Field(0, InternalVoltage),
		Field(1, LDRResistance),
		Field(2, RainSensorTemperature),
	)
	return Values{
		InternalVoltage:       s[0].value,
		InternalVoltageOK:     s[0].ok,
		LDRResistance:         s[1].value,
		LDRResistanceOK:       s[1].ok,
		RainSensorTemperature: s[2].value,
		RainSensorOK:          s[2].ok,
	}
}

// RainFrequency returns the capacitive rain sensor frequency.
func (d *Device) RainFrequency() (float64, bool) {
	return d.client.SampleMedian(CmdRainFrequency, d.counts.Rain, Field(0, Unscaled))
}

// PWM returns the current heater duty in percent.
func (d *Device) PWM() (float64, bool) {
	g := d.client.Query(CmdGetPWM, DefaultMaxAttempts)
	if g == nil {
		slog.Debug("aag: failed to read pwm value")
		return 0, false
	}
	pct, err := Field(0, PWMPercent)(g)
	if err != nil {
		slog.Debug("aag: bad pwm value", "error", err)
		return 0, false
	}
	return pct, true
}

// SetPWM commands the heater duty and verifies the echo.
func (d *Device) SetPWM(percent float64) (float64, error) {
	percent = math.Max(0, math.Min(100, percent))
	digital := int(adcFullScale * percent / 100)

	for attempt := 1; attempt <= d.setAttempts; attempt++ {
		g := d.client.QueryArg(CmdSetPWM, digital, DefaultMaxAttempts)
		if g != nil {
			echo, err := Field(0, PWMPercent)(g)
			if err == nil && math.Abs(echo-percent) <= pwmTolerance {
				slog.Debug("aag: pwm set", "percent", echo, "attempt", attempt)
				return echo, nil
			}
			slog.Debug("aag: pwm echo mismatch", "want", percent, "got", g[0], "attempt", attempt)
		}
		if attempt < d.setAttempts {
			d.client.sleep(d.setBackoff)
		}
	}
	return 0, fmt.Errorf("set %.1f%% after %d attempts: %w", percent, d.setAttempts, ErrPWMNotConfirmed)
}

// Errors returns the four internal error counters.
func (d *Device) Errors() ([4]int, bool) {
	var out [4]int
	g := d.client.Query(CmdErrors, DefaultMaxAttempts)
	if g == nil {
		return out, false
	}
	for i := range out {
		n, err := strconv.Atoi(g[i])
		if err != nil {
			slog.Debug("aag: bad error counter", "index", i+1, "value", g[i])
			return out, false
		}
		out[i] = n
	}
	return out, true
}

// Switch returns SwitchOpen, SwitchClosed or SwitchUnknown.
func (d *Device) Switch() string {
	g := d.client.Query(CmdSwitchStatus, switchAttempts)
	if g == nil {
		return SwitchUnknown
	}
	switch g[0] {
	case "X":
		return SwitchOpen
	case "Y":
		return SwitchClosed
	}
	return SwitchUnknown
}

// AnemometerEnabled reports whether the unit has a wind sensor fitted.
func (d *Device) AnemometerEnabled() bool {
	g := d.client.Query(CmdAnemometerEnabled, DefaultMaxAttempts)
	if g == nil {
		return false
	}
	v, err := strconv.ParseFloat(g[0], 64)
	return err == nil && v != 0
}

// WindSpeed returns the median anemometer reading in km/h. It needs an
// anemometer and at least three good samples.
func (d *Device) WindSpeed() (float64, bool) {
	if !d.AnemometerEnabled() {
		slog.Debug("aag: anemometer not enabled")
		return 0, false
	}
	s := d.client.sampleMedians(CmdWindSpeed, d.counts.Wind, minWindSamples, Field(0, Unscaled))
	return s[0].value, s[0].ok
}

// Capture runs one full acquisition and returns the reading stamped now.
// Fields that could not be read are absent.
func (d *Device) Capture(now time.Time) weather.Reading {
	source := d.identity.Name
	if source == "" {
		source = "aag"
	}
	r := weather.NewReading(source, now)

	sky, skyOK := d.SkyTemperature()
	if skyOK {
		r.Set(weather.FieldSkyTemperature, sky)
	}
	ambient, ambientOK := d.AmbientTemperature()
	if ambientOK {
		r.Set(weather.FieldAmbientTemperature, ambient)
	}
	if skyOK && ambientOK {
		r.Set(weather.FieldSkyAmbient, sky-ambient)
	}

	v := d.Values()
	if v.InternalVoltageOK {
		r.Set(weather.FieldInternalVoltage, v.InternalVoltage)
	}
	if v.LDRResistanceOK {
		r.Set(weather.FieldLDRResistance, v.LDRResistance)
	}
	if v.RainSensorOK {
		r.Set(weather.FieldRainSensorTemperature, v.RainSensorTemperature)
	}

	if f, ok := d.RainFrequency(); ok {
		r.Set(weather.FieldRainFrequency, f)
	}
	if p, ok := d.PWM(); ok {
		r.Set(weather.FieldPWM, p)
	}
	if errs, ok := d.Errors(); ok {
		fields := [4]string{weather.FieldError1, weather.FieldError2, weather.FieldError3, weather.FieldError4}
		for i, n := range errs {
			r.Set(fields[i], float64(n))
		}
	}
	if w, ok := d.WindSpeed(); ok {
		r.Set(weather.FieldWindSpeed, w)
	}
	r.SetText(weather.FieldSwitch, d.Switch())

	return r
}
