package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/weather-stats-etl/internal/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WeatherReader serves the read-only query endpoints.
type WeatherReader interface {
	ListObservations(ctx context.Context, f domain.ObservationFilter, page, size int) ([]domain.Observation, error)
	ListYearlyStats(ctx context.Context, year *int, page, size int) ([]domain.YearlyStat, error)
}

// PageSizes fixes how many rows each listing endpoint returns per page.
type PageSizes struct {
	Observations int
	Stats        int
}

// Server exposes the weather query API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	reader     WeatherReader
	pages      PageSizes
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /api/weather, /api/weather/stats,
// /healthz, /readyz, and /metrics routes.
func NewServer(addr string, reader WeatherReader, ready sharedobs.ReadinessChecker, pages PageSizes, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		reader: reader,
		pages:  pages,
		logger: logger,
	}

	mux.HandleFunc("GET /api/weather", s.handleObservations)
	mux.HandleFunc("GET /api/weather/stats", s.handleStats)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
