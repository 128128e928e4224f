// Package server exposes the visibility extraction over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/klauspost/compress/gzhttp"

	"github.com/agbru/dftcalc/internal/config"
	"github.com/agbru/dftcalc/internal/dft"
	apperrors "github.com/agbru/dftcalc/internal/errors"
	"github.com/agbru/dftcalc/internal/logging"
	"github.com/agbru/dftcalc/internal/service"
)

// Server is the dftcalc HTTP API. It wraps an http.Server with the
// middleware chain and a graceful shutdown on SIGINT/SIGTERM.
type Server struct {
	factory        dft.BackendFactory
	service        service.Service
	cfg            config.AppConfig
	httpServer     *http.Server
	logger         logging.Logger
	shutdownSignal chan os.Signal
	rateLimiter    *RateLimiter
	securityConfig SecurityConfig
	metrics        *Metrics
	timeouts       Timeouts
	cacheSize      int
}

// NewServer creates a server serving the backends of factory on cfg.Port.
//
// Routes:
//   - POST /extract   run one backend over a JSON or MessagePack workload
//   - GET  /backends  list the registered backends
//   - GET  /health    liveness probe
//   - GET  /metrics   Prometheus metrics
func NewServer(factory dft.BackendFactory, cfg config.AppConfig, opts ...Option) *Server {
	s := &Server{
		factory:        factory,
		cfg:            cfg,
		logger:         logging.NewLogger(os.Stdout, "server"),
		shutdownSignal: make(chan os.Signal, 1),
		securityConfig: DefaultSecurityConfig(),
		metrics:        NewMetrics(),
		timeouts:       DefaultServerTimeouts(),
		cacheSize:      DefaultResultCacheSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.service == nil {
		s.service = service.NewExtractionService(s.factory, s.cfg, s.securityConfig.MaxWork,
			service.WithResultCache(s.cacheSize))
	}
	if s.rateLimiter == nil {
		s.rateLimiter = NewRateLimiter(DefaultRateLimiterConfig())
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/extract", s.wrapWithMiddleware(gzhttp.GzipHandler(http.HandlerFunc(s.handleExtract))))
	mux.HandleFunc("/backends", s.wrapWithMiddleware(gzhttp.GzipHandler(http.HandlerFunc(s.handleBackends))))
	mux.HandleFunc("/health", s.wrapWithMiddleware(s.handleHealth))
	mux.HandleFunc("/metrics", s.wrapWithMiddleware(s.handleMetrics))

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  s.timeouts.ReadTimeout,
		WriteTimeout: s.timeouts.WriteTimeout,
		IdleTimeout:  s.timeouts.IdleTimeout,
	}
	if z, ok := s.logger.(*logging.ZerologAdapter); ok {
		s.httpServer.ErrorLog = z.StdLogger()
	}

	return s
}

// Handler returns the routed handler with its middleware, for embedding or
// for httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// wrapWithMiddleware applies Security -> RateLimit -> Logging -> Metrics.
func (s *Server) wrapWithMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	wrapped := s.metricsMiddleware(handler)
	wrapped = s.loggingMiddleware(wrapped)
	wrapped = RateLimitMiddleware(s.rateLimiter, wrapped)
	wrapped = SecurityMiddleware(s.securityConfig, wrapped)
	return wrapped
}

// Start listens on the configured port until a shutdown signal arrives,
// then drains in-flight requests within ShutdownTimeout.
func (s *Server) Start() error {
	signal.Notify(s.shutdownSignal, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(s.shutdownSignal)
	defer s.rateLimiter.Stop()

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("starting server",
			logging.String("addr", s.httpServer.Addr),
			logging.String("default_backend", string(s.service.DefaultBackend())),
			logging.Int("backends", len(s.service.Backends())),
			logging.String("max_work", formatWork(s.securityConfig.MaxWork)),
			logging.Int("result_cache", s.cacheSize),
		)
		s.logger.Info("endpoints: POST /extract, GET /backends, GET /health, GET /metrics")

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-s.shutdownSignal:
		s.logger.Info("shutdown signal received, draining requests")
	case err := <-errCh:
		return apperrors.NewServerError("server failed to start", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeouts.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return apperrors.NewServerError("failed to gracefully shutdown server", err)
	}

	s.logger.Info("server stopped gracefully")
	return nil
}
