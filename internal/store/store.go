// Package store persists weather records: a SQLite history table and a Redis
// "latest record" cache for other observatory processes.
package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sweeney/dome-weather/internal/metrics"
	"github.com/sweeney/dome-weather/internal/weather"
)

// Sink receives every classified record.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	// Save stores rec. Errors are reported, never fatal.
	Save(ctx context.Context, rec weather.Record) error
	Close() error
}

// DefaultSaveTimeout bounds one Save call so a slow sink cannot stall the poll loop.
const DefaultSaveTimeout = 5 * time.Second

// Fanout delivers records to several sinks in turn.
type Fanout struct {
	sinks   []Sink
	timeout time.Duration
}

// NewFanout returns a Fanout over sinks.
func NewFanout(timeout time.Duration, sinks ...Sink) *Fanout {
	if timeout <= 0 {
		timeout = DefaultSaveTimeout
	}
	return &Fanout{sinks: sinks, timeout: timeout}
}

// Save hands rec to every sink. Failures are logged and counted; the
// number of failed sinks is returned.
func (f *Fanout) Save(ctx context.Context, rec weather.Record) int {
	failed := 0
	for _, s := range f.sinks {
		sctx, cancel := context.WithTimeout(ctx, f.timeout)
		err := s.Save(sctx, rec)
		cancel()
		if err != nil {
			failed++
			metrics.SinkErrors.WithLabelValues(s.Name()).Inc()
			slog.Error("store: save failed", "sink", s.Name(), "id", rec.ID, "error", err)
		}
	}
	return failed
}

// Close closes every sink and joins their errors.
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of sinks.
func (f *Fanout) Len() int { return len(f.sinks) }
