package weather

import (
	"fmt"
	"time"
)

// Kind identifies a safety category.
type Kind string

const (
	KindRain    Kind = "rain"
	KindWetness Kind = "wetness"
	KindWind    Kind = "wind"
	KindGust    Kind = "gust"
	KindSky     Kind = "sky"
)

// DefaultWindAverage is the trailing window used to smooth wind speed.
const DefaultWindAverage = 120 * time.Second

// Category decides one safety condition from a window of readings.
// Field names the reading field whose bands classify it; SafeLabel is the
// only label considered safe.
type Category struct {
	Kind      Kind
	Field     string
	SafeLabel string

	// WindAverage overrides DefaultWindAverage for KindWind.
	WindAverage time.Duration
}

// DefaultCategories returns the categories used for the AAG cloud sensor.
func DefaultCategories() []Category {
	return []Category{
		{Kind: KindSky, Field: FieldSkyAmbient, SafeLabel: "Clear"},
		{Kind: KindWind, Field: FieldWindSpeed, SafeLabel: "Calm"},
		{Kind: KindGust, Field: FieldWindSpeed, SafeLabel: "Calm"},
		{Kind: KindRain, Field: FieldRainFrequency, SafeLabel: "Dry"},
	}
}

// ParseKind validates a category name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindRain, KindWetness, KindWind, KindGust, KindSky:
		return k, nil
	}
	return "", fmt.Errorf("unknown safety category %q", s)
}

// input derives the value to classify from window, oldest first.
// The last entry is the current reading.
func (c Category) input(window []Reading) (Value, bool) {
	if len(window) == 0 {
		return Value{}, false
	}
	switch c.Kind {
	case KindRain, KindWetness:
		return window[len(window)-1].Get(c.Field)
	case KindSky, KindGust:
		return maxOf(window, c.Field)
	case KindWind:
		avg := c.WindAverage
		if avg <= 0 {
			avg = DefaultWindAverage
		}
		return maxMovingAverage(window, c.Field, avg)
	}
	return Value{}, false
}

// Classify resolves the category's label and safety. A missing input is
// Unknown and unsafe; an unmatched one is Invalid and unsafe.
// The current reading must carry the field even for window-derived
// categories: older readings never stand in for a failed measurement.
func (c Category) Classify(window []Reading, table Table) Condition {
	if len(window) == 0 {
		return Condition{Kind: c.Kind, Label: LabelUnknown}
	}
	if _, ok := window[len(window)-1].Get(c.Field); !ok {
		return Condition{Kind: c.Kind, Label: LabelUnknown}
	}
	v, ok := c.input(window)
	if !ok {
		return Condition{Kind: c.Kind, Label: LabelUnknown}
	}
	label := Classify(v, table[c.Field])
	return Condition{
		Kind:  c.Kind,
		Label: label,
		Safe:  label == c.SafeLabel,
		Value: &v,
	}
}

func maxOf(window []Reading, field string) (Value, bool) {
	var best float64
	found := false
	for _, r := range window {
		f, ok := r.Float(field)
		if !ok {
			continue
		}
		if !found || f > best {
			best = f
			found = true
		}
	}
	return Number(best), found
}

// maxMovingAverage returns the largest trailing average of field, where each
// average covers readings in (t-span, t] for every reading time t.
func maxMovingAverage(window []Reading, field string, span time.Duration) (Value, bool) {
	type point struct {
		t time.Time
		v float64
	}
	var pts []point
	for _, r := range window {
		if f, ok := r.Float(field); ok {
			pts = append(pts, point{r.Time, f})
		}
	}
	if len(pts) == 0 {
		return Value{}, false
	}

	var best float64
	for i, p := range pts {
		var sum float64
		n := 0
		for j := i; j >= 0 && p.t.Sub(pts[j].t) < span; j-- {
			sum += pts[j].v
			n++
		}
		if avg := sum / float64(n); i == 0 || avg > best {
			best = avg
		}
	}
	return Number(best), true
}
