package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/careverify/clinic-trust-engine/internal/infrastructure/config"
)

// Server is the HTTP front end of the scoring engine.
type Server struct {
	cfg     config.ServerConfig
	handler *Handler
	logger  *slog.Logger
	httpSrv *http.Server
}

func NewServer(cfg config.ServerConfig, handler *Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, handler: handler, logger: logger}

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handler.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/v1/assessments", s.handler.handleAssess)
	mux.HandleFunc("POST /api/v1/assessments/batch", s.handler.handleAssessBatch)
	mux.HandleFunc("GET /api/v1/assessments/{id}", s.handler.handleGetAssessment)
	mux.HandleFunc("GET /api/v1/clinics/{name}/assessments", s.handler.handleAssessmentHistory)
	mux.HandleFunc("POST /api/v1/behavior/classify", s.handler.handleClassifyBehavior)
	mux.HandleFunc("POST /api/v1/model/reload", s.handler.handleReload)

	limiter := rate.NewLimiter(
		rate.Limit(s.cfg.RateLimit.RequestsPerSecond),
		s.cfg.RateLimit.BurstSize,
	)

	return chain(mux,
		recoveryMiddleware,
		requestIDMiddleware,
		s.loggingMiddleware,
		metricsMiddleware,
		rateLimitMiddleware(limiter),
	)
}

// Start blocks serving until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpSrv.Shutdown(ctx)
}
