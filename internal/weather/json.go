package weather

import (
	"encoding/json"
	"fmt"
	"time"
)

// Payload is the JSON envelope for a record, shared by MQTT, storage and HTTP.
type Payload struct {
	Weather RecordPayload `json:"weather"`
}

// RecordPayload contains the record details.
type RecordPayload struct {
	ID         string             `json:"id"`
	Source     string             `json:"source"`
	Timestamp  string             `json:"timestamp"`
	Safe       bool               `json:"safe"`
	Values     map[string]any     `json:"values"`
	Conditions []ConditionPayload `json:"conditions"`
}

// ConditionPayload is one classified category.
type ConditionPayload struct {
	Kind  string `json:"kind"`
	Label string `json:"label"`
	Safe  bool   `json:"safe"`
	Value any    `json:"value,omitempty"`
}

// NewPayload converts rec to its JSON form.
func NewPayload(rec Record) Payload {
	values := make(map[string]any, len(rec.Reading.Values))
	for k, v := range rec.Reading.Values {
		values[k] = v.Any()
	}
	conds := make([]ConditionPayload, 0, len(rec.Verdict.Conditions))
	for _, c := range rec.Verdict.Conditions {
		cp := ConditionPayload{Kind: string(c.Kind), Label: c.Label, Safe: c.Safe}
		if c.Value != nil {
			cp.Value = c.Value.Any()
		}
		conds = append(conds, cp)
	}
	return Payload{
		Weather: RecordPayload{
			ID:         rec.ID,
			Source:     rec.Reading.Source,
			Timestamp:  rec.Reading.Time.UTC().Format(time.RFC3339),
			Safe:       rec.Verdict.Safe,
			Values:     values,
			Conditions: conds,
		},
	}
}

// FormatRecord returns the JSON payload for rec.
func FormatRecord(rec Record) ([]byte, error) {
	return json.Marshal(NewPayload(rec))
}

// ParseRecord decodes a payload produced by FormatRecord.
// Timestamps are second precision.
func ParseRecord(data []byte) (Record, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	w := p.Weather
	at, err := time.Parse(time.RFC3339, w.Timestamp)
	if err != nil {
		return Record{}, fmt.Errorf("decode record timestamp: %w", err)
	}

	r := NewReading(w.Source, at)
	for k, v := range w.Values {
		val, err := anyValue(v)
		if err != nil {
			return Record{}, fmt.Errorf("decode field %s: %w", k, err)
		}
		r.Values[k] = val
	}

	verdict := Verdict{Safe: w.Safe}
	for _, cp := range w.Conditions {
		c := Condition{Kind: Kind(cp.Kind), Label: cp.Label, Safe: cp.Safe}
		if cp.Value != nil {
			val, err := anyValue(cp.Value)
			if err != nil {
				return Record{}, fmt.Errorf("decode condition %s: %w", cp.Kind, err)
			}
			c.Value = &val
		}
		verdict.Conditions = append(verdict.Conditions, c)
	}
	return Record{ID: w.ID, Reading: r, Verdict: verdict}, nil
}

func anyValue(v any) (Value, error) {
	switch x := v.(type) {
	case float64:
		return Number(x), nil
	case string:
		return Text(x), nil
	}
	return Value{}, fmt.Errorf("unsupported value %T", v)
}
