package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/security-risk-etl/internal/domain"
)

// ReportSource returns the most recent assessment, if any.
type ReportSource interface {
	Latest() (domain.Report, bool)
}

// Server exposes health, readiness, metrics and assessment HTTP endpoints.
type Server struct {
	httpServer *http.Server
	reports    ReportSource
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, /report
// and /areas/{key} routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, reports ReportSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		reports: reports,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /report", s.handleReport)
	mux.HandleFunc("GET /areas/{key}", s.handleArea)

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

// handleReport serves the latest report. The optional level query parameter
// keeps only areas at that risk level.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, ok := s.reports.Latest()
	if !ok {
		s.writeError(w, http.StatusServiceUnavailable, "no assessment available yet")
		return
	}

	if level := r.URL.Query().Get("level"); level != "" {
		want := domain.RiskLevel(level)
		if !slices.Contains(domain.Levels, want) {
			s.writeError(w, http.StatusBadRequest, "unknown level "+level)
			return
		}
		areas := make([]domain.AreaReport, 0, len(report.Areas))
		for _, a := range report.Areas {
			if a.Level == want {
				areas = append(areas, a)
			}
		}
		report.Areas = areas
	}

	writeJSON(s.logger, w, http.StatusOK, report)
}

func (s *Server) handleArea(w http.ResponseWriter, r *http.Request) {
	report, ok := s.reports.Latest()
	if !ok {
		s.writeError(w, http.StatusServiceUnavailable, "no assessment available yet")
		return
	}

	key := r.PathValue("key")
	for _, a := range report.Areas {
		if a.Key == key {
			writeJSON(s.logger, w, http.StatusOK, a)
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "area not found: "+key)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(s.logger, w, status, map[string]string{"error": msg})
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("write response failed", "error", err)
	}
}
