package weather

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func testTable() Table {
	return Table{
		FieldSkyAmbient: skyBands(),
		FieldWindSpeed: {
			MustBand("Calm", Number(-1), Number(20)),
			MustBand("Windy", Number(20), Number(40)),
			MustBand("Very windy", Number(40), Number(200)),
		},
		FieldRainFrequency: {
			MustBand("Rain", Number(-1), Number(1700)),
			MustBand("Wet", Number(1700), Number(2100)),
			MustBand("Dry", Number(2100), Number(10000)),
		},
	}
}

func reading(at time.Time, fields map[string]float64) Reading {
	r := NewReading("test", at)
	for k, v := range fields {
		r.Set(k, v)
	}
	return r
}

func TestEvaluateAllSafe(t *testing.T) {
	e := NewEngine(testTable(), DefaultCategories())
	r := reading(t0, map[string]float64{
		FieldSkyAmbient:    -35,
		FieldWindSpeed:     5,
		FieldRainFrequency: 2500,
	})

	v := e.Evaluate([]Reading{r})
	if !v.Safe {
		t.Fatalf("expected safe, got %+v", v.Conditions)
	}
	if len(v.Conditions) != 4 {
		t.Fatalf("expected 4 conditions, got %d", len(v.Conditions))
	}
	for _, c := range v.Conditions {
		if !c.Safe {
			t.Errorf("%s: expected safe, got %q", c.Kind, c.Label)
		}
	}
}

func TestEvaluateOneUnsafeCategory(t *testing.T) {
	// cloud safe, wind safe, gust unsafe, rain safe
	cats := []Category{
		{Kind: KindSky, Field: FieldSkyAmbient, SafeLabel: "Clear"},
		{Kind: KindWind, Field: FieldWindSpeed, SafeLabel: "Calm", WindAverage: 10 * time.Minute},
		{Kind: KindGust, Field: FieldWindSpeed, SafeLabel: "Calm"},
		{Kind: KindRain, Field: FieldRainFrequency, SafeLabel: "Dry"},
	}
	e := NewEngine(testTable(), cats)

	window := []Reading{
		reading(t0, map[string]float64{FieldSkyAmbient: -35, FieldWindSpeed: 2, FieldRainFrequency: 2500}),
		reading(t0.Add(10*time.Second), map[string]float64{FieldSkyAmbient: -35, FieldWindSpeed: 25, FieldRainFrequency: 2500}),
		reading(t0.Add(20*time.Second), map[string]float64{FieldSkyAmbient: -35, FieldWindSpeed: 2, FieldRainFrequency: 2500}),
		reading(t0.Add(30*time.Second), map[string]float64{FieldSkyAmbient: -35, FieldWindSpeed: 2, FieldRainFrequency: 2500}),
	}

	v := e.Evaluate(window)
	if v.Safe {
		t.Fatal("expected unsafe overall")
	}

	want := map[Kind]bool{KindSky: true, KindWind: true, KindGust: false, KindRain: true}
	for kind, safe := range want {
		c, ok := v.Condition(kind)
		if !ok {
			t.Fatalf("missing condition %s", kind)
		}
		if c.Safe != safe {
			t.Errorf("%s: safe=%v, want %v (label %q)", kind, c.Safe, safe, c.Label)
		}
	}
	if c, _ := v.Condition(KindGust); c.Label != "Windy" {
		t.Errorf("gust label: got %q, want Windy", c.Label)
	}
}

func TestEvaluateMissingFieldIsUnknown(t *testing.T) {
	e := NewEngine(testTable(), DefaultCategories())
	// No wind speed at all (device without anemometer)
	r := reading(t0, map[string]float64{FieldSkyAmbient: -35, FieldRainFrequency: 2500})

	v := e.Evaluate([]Reading{r})
	if v.Safe {
		t.Error("missing wind data must be unsafe")
	}
	c, _ := v.Condition(KindWind)
	if c.Label != LabelUnknown || c.Safe {
		t.Errorf("wind: got %q safe=%v, want Unknown/false", c.Label, c.Safe)
	}
	if c.Value != nil {
		t.Error("expected no value for Unknown condition")
	}
	c, _ = v.Condition(KindGust)
	if c.Label != LabelUnknown {
		t.Errorf("gust: got %q, want Unknown", c.Label)
	}
}

func TestEvaluateCurrentReadingMissingWindowedField(t *testing.T) {
	e := NewEngine(testTable(), DefaultCategories())
	// An earlier clear, calm reading must not cover for a current reading
	// whose sky and wind queries failed.
	window := []Reading{
		reading(t0, map[string]float64{FieldSkyAmbient: -35, FieldWindSpeed: 5, FieldRainFrequency: 2500}),
		reading(t0.Add(10*time.Minute), map[string]float64{FieldRainFrequency: 2500}),
	}

	v := e.Evaluate(window)
	if v.Safe {
		t.Fatal("expected unsafe overall")
	}
	for _, kind := range []Kind{KindSky, KindWind, KindGust} {
		c, _ := v.Condition(kind)
		if c.Label != LabelUnknown || c.Safe {
			t.Errorf("%s: got %q safe=%v, want Unknown/false", kind, c.Label, c.Safe)
		}
		if c.Value != nil {
			t.Errorf("%s: expected no value", kind)
		}
	}
	if c, _ := v.Condition(KindRain); c.Label != "Dry" || !c.Safe {
		t.Errorf("rain: got %q safe=%v, want Dry/true", c.Label, c.Safe)
	}
}

func TestEvaluateOutOfBandIsInvalid(t *testing.T) {
	e := NewEngine(testTable(), DefaultCategories())
	r := reading(t0, map[string]float64{FieldSkyAmbient: -35, FieldWindSpeed: 5, FieldRainFrequency: 50000})

	v := e.Evaluate([]Reading{r})
	c, _ := v.Condition(KindRain)
	if c.Label != LabelInvalid || c.Safe {
		t.Errorf("rain: got %q safe=%v, want Invalid/false", c.Label, c.Safe)
	}
	if v.Safe {
		t.Error("expected unsafe overall")
	}
}

func TestEvaluateEmptyWindow(t *testing.T) {
	e := NewEngine(testTable(), DefaultCategories())
	v := e.Evaluate(nil)
	if v.Safe {
		t.Error("empty window must be unsafe")
	}
	for _, c := range v.Conditions {
		if c.Label != LabelUnknown {
			t.Errorf("%s: got %q, want Unknown", c.Kind, c.Label)
		}
	}
}

func TestEvaluateNoCategoriesIsUnsafe(t *testing.T) {
	e := NewEngine(testTable(), nil)
	if e.Evaluate([]Reading{reading(t0, nil)}).Safe {
		t.Error("no categories must not be safe")
	}
}

func TestRainUsesLatestReading(t *testing.T) {
	e := NewEngine(testTable(), []Category{{Kind: KindRain, Field: FieldRainFrequency, SafeLabel: "Dry"}})
	window := []Reading{
		reading(t0, map[string]float64{FieldRainFrequency: 1000}),
		reading(t0.Add(10*time.Second), map[string]float64{FieldRainFrequency: 2500}),
	}

	if !e.Evaluate(window).Safe {
		t.Error("latest dry reading should be safe")
	}
}

func TestSkyUsesWindowMaximum(t *testing.T) {
	e := NewEngine(testTable(), []Category{{Kind: KindSky, Field: FieldSkyAmbient, SafeLabel: "Clear"}})
	window := []Reading{
		reading(t0, map[string]float64{FieldSkyAmbient: -10}),
		reading(t0.Add(10*time.Second), map[string]float64{FieldSkyAmbient: -35}),
	}

	v := e.Evaluate(window)
	c, _ := v.Condition(KindSky)
	if c.Label != "Very cloudy" {
		t.Errorf("got %q, want Very cloudy (cloudiest in window)", c.Label)
	}
}

func TestWindMovingAverage(t *testing.T) {
	cat := Category{Kind: KindWind, Field: FieldWindSpeed, SafeLabel: "Calm", WindAverage: 30 * time.Second}
	window := []Reading{
		reading(t0, map[string]float64{FieldWindSpeed: 30}),
		reading(t0.Add(10*time.Second), map[string]float64{FieldWindSpeed: 0}),
		reading(t0.Add(20*time.Second), map[string]float64{FieldWindSpeed: 0}),
		reading(t0.Add(40*time.Second), map[string]float64{FieldWindSpeed: 0}),
	}

	v, ok := cat.input(window)
	if !ok {
		t.Fatal("expected a value")
	}
	// Averages: 30, 15, 10, 0 → max 30 (first point alone)
	if f, _ := v.Float(); f != 30 {
		t.Errorf("got %v, want 30", f)
	}

	// A single gusty sample gets smoothed once preceded by calm ones.
	window = []Reading{
		reading(t0, map[string]float64{FieldWindSpeed: 0}),
		reading(t0.Add(10*time.Second), map[string]float64{FieldWindSpeed: 0}),
		reading(t0.Add(20*time.Second), map[string]float64{FieldWindSpeed: 30}),
	}
	v, _ = cat.input(window)
	if f, _ := v.Float(); f != 10 {
		t.Errorf("got %v, want 10", f)
	}
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"rain", "wetness", "wind", "gust", "sky"} {
		if _, err := ParseKind(s); err != nil {
			t.Errorf("ParseKind(%q): %v", s, err)
		}
	}
	if _, err := ParseKind("hail"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
