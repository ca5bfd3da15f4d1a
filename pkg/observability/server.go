package observability

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthStatus is the /health response body.
type HealthStatus struct {
	Status   string         `json:"status"`
	Document string         `json:"document,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// HealthChecker reports liveness for the /health endpoint.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// Server exposes Prometheus metrics and a health check over HTTP. It is
// optional; nothing else in the pipeline depends on it running.
type Server struct {
	addr   string
	health HealthChecker
	logger *slog.Logger
	server *http.Server
}

// NewServer builds a server on addr. health may be nil, in which case
// /health always reports up.
func NewServer(addr string, health HealthChecker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:   addr,
		health: health,
		logger: logger,
	}
}

// Start begins serving in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := HealthStatus{Status: "up"}
		if s.health != nil {
			status = s.health.Check(r.Context())
		}
		w.Header().Set("Content-Type", "application/json")
		if status.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(status)
	})

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	s.logger.Info("observability server starting", "addr", s.addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("observability server failed", "error", err)
		}
	}()

	return nil
}

// Stop shuts the server down, draining in-flight requests until ctx
// expires.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
