// Package web provides an HTTP status server for the dome-weather daemon.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/dome-weather/internal/status"
	"github.com/sweeney/dome-weather/internal/weather"
)

// DefaultHistoryWindow is served by /history.json without a ?since parameter.
const DefaultHistoryWindow = time.Hour

// History is the read side of the record history.
type History interface {
	Since(t time.Time) []weather.Record
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	history    History
	now        func() time.Time
}

// New creates a Server that reads state from the given tracker and history.
func New(addr string, tracker *status.Tracker, history History) *Server {
	s := &Server{tracker: tracker, history: history, now: time.Now}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Get("/", s.handleIndex)
	r.Get("/index.html", s.handleIndex)
	r.Get("/index.json", s.handleJSON)
	r.Get("/safe", s.handleSafe)
	r.Get("/history.json", s.handleHistory)
	r.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("web: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		slog.Error("web: render index", "error", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleSafe answers 200 SAFE or 503 UNSAFE for simple dome scripts.
func (s *Server) handleSafe(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.tracker.Snapshot().Safe() {
		w.Write([]byte("SAFE\n"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write([]byte("UNSAFE\n"))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	window := DefaultHistoryWindow
	if q := r.URL.Query().Get("since"); q != "" {
		d, err := time.ParseDuration(q)
		if err != nil || d <= 0 {
			http.Error(w, "since must be a positive duration, e.g. 15m", http.StatusBadRequest)
			return
		}
		window = d
	}

	recs := s.history.Since(s.now().Add(-window))
	out := make([]weather.RecordPayload, 0, len(recs))
	for _, rec := range recs {
		out = append(out, weather.NewPayload(rec).Weather)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Records []weather.RecordPayload `json:"records"`
	}{out})
}
