package metrics

import (
	"math"
	"sync"

	"github.com/sweeney/dome-weather/internal/weather"
)

var (
	seenMu sync.Mutex
	seen   = map[string]bool{}
)

// ObserveRecord updates the field and safety gauges from rec. A field seen
// before but missing from rec reads NaN rather than its last value.
func ObserveRecord(rec weather.Record) {
	seenMu.Lock()
	defer seenMu.Unlock()

	present := make(map[string]bool, len(rec.Reading.Values))
	for field, v := range rec.Reading.Values {
		if f, ok := v.Float(); ok {
			FieldValue.WithLabelValues(field).Set(f)
			present[field] = true
			seen[field] = true
		}
	}
	for field := range seen {
		if !present[field] {
			FieldValue.WithLabelValues(field).Set(math.NaN())
		}
	}
	for _, c := range rec.Verdict.Conditions {
		ConditionSafe.WithLabelValues(string(c.Kind)).Set(Bool(c.Safe))
	}
	Safe.Set(Bool(rec.Verdict.Safe))
}
