// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueryAttempts counts protocol attempts by command and outcome.
	QueryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aag_query_attempts_total",
			Help: "Serial protocol attempts by command and outcome",
		},
		[]string{"command", "outcome"},
	)

	// QueryFailures counts queries that exhausted their attempts.
	QueryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aag_query_failures_total",
			Help: "Serial protocol queries that exhausted all attempts",
		},
		[]string{"command"},
	)

	// CaptureDuration is the wall time of one acquisition.
	CaptureDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "weather_capture_duration_seconds",
			Help:    "Time taken to acquire one reading",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	// FieldValue is the latest value of each numeric reading field.
	FieldValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "weather_field_value",
			Help: "Latest value of each numeric reading field",
		},
		[]string{"field"},
	)

	// ConditionSafe is 1 when the category's latest condition is safe.
	ConditionSafe = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "weather_condition_safe",
			Help: "1 if the safety category is currently safe",
		},
		[]string{"category"},
	)

	// Safe is 1 when the aggregate verdict is safe.
	Safe = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weather_safe",
			Help: "1 if all safety categories are safe",
		},
	)

	// HeaterDuty is the last committed heater duty in percent.
	HeaterDuty = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "heater_duty_percent",
			Help: "Last committed rain sensor heater duty",
		},
	)

	// HeaterImpulse is 1 while impulse heating is active.
	HeaterImpulse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "heater_impulse_active",
			Help: "1 while impulse heating is active",
		},
	)

	// HeaterCycles counts control cycles by outcome.
	HeaterCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heater_cycles_total",
			Help: "Heater control cycles by outcome",
		},
		[]string{"outcome"},
	)

	// SinkErrors counts failed writes per sink.
	SinkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sink_errors_total",
			Help: "Failed record deliveries by sink",
		},
		[]string{"sink"},
	)
)

// Bool converts a flag to a gauge value.
func Bool(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
