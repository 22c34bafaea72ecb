package weather

import "testing"

func skyBands() []Band {
	return []Band{
		MustBand("Clear", Number(-100), Number(-25)),
		MustBand("Cloudy", Number(-25), Number(-15)),
		MustBand("Very cloudy", Number(-15), Number(100)),
	}
}

func TestClassifyRangeBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{"inside first band", -30, "Clear"},
		{"upper bound included", -25, "Clear"},
		{"lower bound excluded", -100, LabelInvalid},
		{"just above shared bound", -24.99, "Cloudy"},
		{"upper bound of middle band", -15, "Cloudy"},
		{"last band", 5, "Very cloudy"},
		{"above every band", 150, LabelInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(Number(tt.value), skyBands()); got != tt.want {
				t.Errorf("Classify(%v): got %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	bands := []Band{
		MustBand("Windy", Number(10), Number(50)),
		MustBand("Calm", Number(0), Number(40)),
	}
	if got := Classify(Number(20), bands); got != "Windy" {
		t.Errorf("overlapping bands: got %q, want Windy (declared first)", got)
	}

	bands[0], bands[1] = bands[1], bands[0]
	if got := Classify(Number(20), bands); got != "Calm" {
		t.Errorf("overlapping bands reversed: got %q, want Calm", got)
	}
}

func TestClassifySingleValueBand(t *testing.T) {
	bands := []Band{
		MustBand("No rain", Number(0)),
		MustBand("Rain", Number(1)),
		MustBand("No data", Number(-1)),
	}

	if got := Classify(Number(0), bands); got != "No rain" {
		t.Errorf("got %q, want No rain", got)
	}
	if got := Classify(Number(-1), bands); got != "No data" {
		t.Errorf("got %q, want No data", got)
	}
	if got := Classify(Number(0.5), bands); got != LabelInvalid {
		t.Errorf("got %q, want Invalid", got)
	}
}

func TestClassifyTextBand(t *testing.T) {
	bands := []Band{
		MustBand("Dry", Text("NOT_RAINING")),
		MustBand("Rain", Text("RAINING")),
	}

	if got := Classify(Text("RAINING"), bands); got != "Rain" {
		t.Errorf("got %q, want Rain", got)
	}
	if got := Classify(Number(1), bands); got != LabelInvalid {
		t.Errorf("numeric against text band: got %q, want Invalid", got)
	}
	range_ := []Band{MustBand("Calm", Number(0), Number(10))}
	if got := Classify(Text("5"), range_); got != LabelInvalid {
		t.Errorf("text against range band: got %q, want Invalid", got)
	}
}

func TestClassifyNoBands(t *testing.T) {
	if got := Classify(Number(1), nil); got != LabelInvalid {
		t.Errorf("got %q, want Invalid", got)
	}
}

func TestNewBandErrors(t *testing.T) {
	tests := []struct {
		name   string
		label  string
		bounds []Value
	}{
		{"no bounds", "Calm", nil},
		{"three bounds", "Calm", []Value{Number(0), Number(1), Number(2)}},
		{"inverted range", "Calm", []Value{Number(5), Number(1)}},
		{"text range", "Calm", []Value{Text("a"), Number(1)}},
		{"empty label", "", []Value{Number(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewBand(tt.label, tt.bounds...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBandBoundsIsCopy(t *testing.T) {
	b := MustBand("Calm", Number(0), Number(10))
	bounds := b.Bounds()
	bounds[0] = Number(100)

	if !b.Match(Number(5)) {
		t.Error("mutating Bounds() result changed the band")
	}
}
