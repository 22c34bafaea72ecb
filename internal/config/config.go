// Package config loads the domain configuration: safety thresholds and
// categories, heater constants and sampling parameters.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sweeney/dome-weather/internal/aag"
	"github.com/sweeney/dome-weather/internal/heater"
	"github.com/sweeney/dome-weather/internal/weather"
)

// EnvPrefix is prepended to environment overrides, e.g. DOME_SAFETY_DELAY.
const EnvPrefix = "DOME"

// DefaultSafetyDelay is how far back the safety window reaches.
const DefaultSafetyDelay = 15 * time.Minute

// Config is the validated configuration.
type Config struct {
	SafetyDelay time.Duration
	HistorySize int
	Samples     aag.SampleCounts
	Heater      heater.Settings
	Thresholds  weather.Table
	Categories  []weather.Category
}

type rawBand struct {
	Label string `mapstructure:"label"`
	Band  []any  `mapstructure:"band"`
}

type rawCategory struct {
	Kind        string        `mapstructure:"kind"`
	Field       string        `mapstructure:"field"`
	SafeLabel   string        `mapstructure:"safe_label"`
	WindAverage time.Duration `mapstructure:"wind_average"`
}

type rawConfig struct {
	SafetyDelay time.Duration `mapstructure:"safety_delay"`
	HistorySize int           `mapstructure:"history_size"`
	Samples     struct {
		Sky     int `mapstructure:"sky"`
		Ambient int `mapstructure:"ambient"`
		Values  int `mapstructure:"values"`
		Rain    int `mapstructure:"rain"`
		Wind    int `mapstructure:"wind"`
	} `mapstructure:"samples"`
	Heater struct {
		LowTemp         float64       `mapstructure:"low_temp"`
		LowDelta        float64       `mapstructure:"low_delta"`
		HighTemp        float64       `mapstructure:"high_temp"`
		HighDelta       float64       `mapstructure:"high_delta"`
		MinPower        float64       `mapstructure:"min_power"`
		ImpulseTemp     float64       `mapstructure:"impulse_temp"`
		ImpulseDuration time.Duration `mapstructure:"impulse_duration"`
		ImpulseCycle    time.Duration `mapstructure:"impulse_cycle"`
		Kp              float64       `mapstructure:"kp"`
		Ki              float64       `mapstructure:"ki"`
		Kd              float64       `mapstructure:"kd"`
		PIDMaxAge       time.Duration `mapstructure:"pid_max_age"`
	} `mapstructure:"heater"`
	Thresholds map[string][]rawBand `mapstructure:"thresholds"`
	Categories []rawCategory        `mapstructure:"categories"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("safety_delay", DefaultSafetyDelay)
	v.SetDefault("history_size", weather.DefaultHistorySize)

	s := aag.DefaultSampleCounts()
	v.SetDefault("samples.sky", s.Sky)
	v.SetDefault("samples.ambient", s.Ambient)
	v.SetDefault("samples.values", s.Values)
	v.SetDefault("samples.rain", s.Rain)
	v.SetDefault("samples.wind", s.Wind)

	h := heater.DefaultSettings()
	v.SetDefault("heater.low_temp", h.LowTemp)
	v.SetDefault("heater.low_delta", h.LowDelta)
	v.SetDefault("heater.high_temp", h.HighTemp)
	v.SetDefault("heater.high_delta", h.HighDelta)
	v.SetDefault("heater.min_power", h.MinPower)
	v.SetDefault("heater.impulse_temp", h.ImpulseTemp)
	v.SetDefault("heater.impulse_duration", h.ImpulseDuration)
	v.SetDefault("heater.impulse_cycle", h.ImpulseCycle)
	v.SetDefault("heater.kp", h.Kp)
	v.SetDefault("heater.ki", h.Ki)
	v.SetDefault("heater.kd", h.Kd)
	v.SetDefault("heater.pid_max_age", h.PIDMaxAge)
}

// Load reads the YAML file at path, applies DOME_* environment overrides and
// validates the result. An empty path yields the defaults.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return raw.build()
}

// Default returns the built-in configuration.
func Default() Config {
	cfg, err := Load("")
	if err != nil {
		panic(err)
	}
	return cfg
}

func (r rawConfig) build() (Config, error) {
	cfg := Config{
		SafetyDelay: r.SafetyDelay,
		HistorySize: r.HistorySize,
		Samples: aag.SampleCounts{
			Sky:     r.Samples.Sky,
			Ambient: r.Samples.Ambient,
			Values:  r.Samples.Values,
			Rain:    r.Samples.Rain,
			Wind:    r.Samples.Wind,
		},
		Heater: heater.Settings{
			LowTemp:         r.Heater.LowTemp,
			LowDelta:        r.Heater.LowDelta,
			HighTemp:        r.Heater.HighTemp,
			HighDelta:       r.Heater.HighDelta,
			MinPower:        r.Heater.MinPower,
			ImpulseTemp:     r.Heater.ImpulseTemp,
			ImpulseDuration: r.Heater.ImpulseDuration,
			ImpulseCycle:    r.Heater.ImpulseCycle,
			Kp:              r.Heater.Kp,
			Ki:              r.Heater.Ki,
			Kd:              r.Heater.Kd,
			PIDMaxAge:       r.Heater.PIDMaxAge,
		},
	}

	if cfg.SafetyDelay <= 0 {
		return Config{}, fmt.Errorf("config: safety_delay must be positive, got %s", cfg.SafetyDelay)
	}
	if cfg.HistorySize <= 0 {
		return Config{}, fmt.Errorf("config: history_size must be positive, got %d", cfg.HistorySize)
	}
	s := cfg.Samples
	if s.Sky < 1 || s.Ambient < 1 || s.Values < 1 || s.Rain < 1 || s.Wind < 1 {
		return Config{}, fmt.Errorf("config: sample counts must be at least 1, got %+v", s)
	}
	if err := cfg.Heater.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: heater: %w", err)
	}

	var err error
	if len(r.Thresholds) == 0 {
		cfg.Thresholds = DefaultThresholds()
	} else if cfg.Thresholds, err = buildTable(r.Thresholds); err != nil {
		return Config{}, err
	}

	if len(r.Categories) == 0 {
		cfg.Categories = weather.DefaultCategories()
	} else if cfg.Categories, err = buildCategories(r.Categories); err != nil {
		return Config{}, err
	}

	for _, c := range cfg.Categories {
		if len(cfg.Thresholds[c.Field]) == 0 {
			return Config{}, fmt.Errorf("config: category %s: no thresholds for field %q", c.Kind, c.Field)
		}
	}
	return cfg, nil
}

func buildTable(raw map[string][]rawBand) (weather.Table, error) {
	table := make(weather.Table, len(raw))
	for field, bands := range raw {
		for i, rb := range bands {
			bounds := make([]weather.Value, 0, len(rb.Band))
			for _, b := range rb.Band {
				v, err := toValue(b)
				if err != nil {
					return nil, fmt.Errorf("config: thresholds.%s[%d]: %w", field, i, err)
				}
				bounds = append(bounds, v)
			}
			band, err := weather.NewBand(rb.Label, bounds...)
			if err != nil {
				return nil, fmt.Errorf("config: thresholds.%s[%d]: %w", field, i, err)
			}
			table[field] = append(table[field], band)
		}
	}
	return table, nil
}

var errBoundType = errors.New("band bound must be a number or a string")

func toValue(b any) (weather.Value, error) {
	switch x := b.(type) {
	case int:
		return weather.Number(float64(x)), nil
	case int64:
		return weather.Number(float64(x)), nil
	case float64:
		return weather.Number(x), nil
	case string:
		return weather.Text(x), nil
	}
	return weather.Value{}, fmt.Errorf("%w, got %T", errBoundType, b)
}

func buildCategories(raw []rawCategory) ([]weather.Category, error) {
	out := make([]weather.Category, 0, len(raw))
	for i, rc := range raw {
		kind, err := weather.ParseKind(rc.Kind)
		if err != nil {
			return nil, fmt.Errorf("config: categories[%d]: %w", i, err)
		}
		if rc.Field == "" || rc.SafeLabel == "" {
			return nil, fmt.Errorf("config: categories[%d]: field and safe_label are required", i)
		}
		if rc.WindAverage < 0 {
			return nil, fmt.Errorf("config: categories[%d]: negative wind_average", i)
		}
		out = append(out, weather.Category{
			Kind:        kind,
			Field:       rc.Field,
			SafeLabel:   rc.SafeLabel,
			WindAverage: rc.WindAverage,
		})
	}
	return out, nil
}

// DefaultThresholds returns bands suited to a CloudWatcher without local tuning.
func DefaultThresholds() weather.Table {
	n := weather.Number
	return weather.Table{
		weather.FieldSkyAmbient: {
			weather.MustBand("Clear", n(-100), n(-25)),
			weather.MustBand("Cloudy", n(-25), n(-15)),
			weather.MustBand("Very cloudy", n(-15), n(100)),
		},
		weather.FieldWindSpeed: {
			weather.MustBand("Calm", n(-1), n(20)),
			weather.MustBand("Windy", n(20), n(40)),
			weather.MustBand("Very windy", n(40), n(200)),
		},
		weather.FieldRainFrequency: {
			weather.MustBand("Rain", n(-1), n(1700)),
			weather.MustBand("Wet", n(1700), n(2100)),
			weather.MustBand("Dry", n(2100), n(10000)),
		},
	}
}
