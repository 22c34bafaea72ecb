package weather

import (
	"encoding/json"
	"testing"
)

func TestFormatRecord(t *testing.T) {
	r := NewReading("CloudWatcher", t0)
	r.Set(FieldSkyAmbient, -31.5)
	r.SetText(FieldSwitch, "OPEN")
	sky := Number(-31.5)
	rec := Record{
		ID:      "abc",
		Reading: r,
		Verdict: Verdict{
			Safe: false,
			Conditions: []Condition{
				{Kind: KindSky, Label: "Clear", Safe: true, Value: &sky},
				{Kind: KindRain, Label: LabelUnknown, Safe: false},
			},
		},
	}

	data, err := FormatRecord(rec)
	if err != nil {
		t.Fatalf("FormatRecord: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	w := raw["weather"]
	if w["timestamp"] != "2026-01-01T12:00:00Z" || w["safe"] != false || w["id"] != "abc" {
		t.Errorf("payload = %s", data)
	}
	values := w["values"].(map[string]any)
	if values[FieldSwitch] != "OPEN" || values[FieldSkyAmbient] != -31.5 {
		t.Errorf("values = %v", values)
	}

	back, err := ParseRecord(data)
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if back.ID != "abc" || !back.Reading.Time.Equal(t0) || back.Verdict.Safe {
		t.Errorf("parsed = %+v", back)
	}
	if v, _ := back.Reading.Get(FieldSwitch); v.String() != "OPEN" {
		t.Errorf("switch = %v", v)
	}
	c, ok := back.Verdict.Condition(KindSky)
	if !ok || c.Value == nil || c.Value.String() != "-31.5" {
		t.Errorf("sky condition = %+v", c)
	}
	if c, _ := back.Verdict.Condition(KindRain); c.Value != nil {
		t.Errorf("rain condition value = %v, want nil", c.Value)
	}
}

func TestParseRecord_Invalid(t *testing.T) {
	for _, in := range []string{`not json`, `{"weather":{"timestamp":"yesterday"}}`, `{"weather":{"timestamp":"2026-01-01T00:00:00Z","values":{"x":true}}}`} {
		if _, err := ParseRecord([]byte(in)); err == nil {
			t.Errorf("ParseRecord(%s): expected error", in)
		}
	}
}
