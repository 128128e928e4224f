package server

import (
	"time"

	"github.com/agbru/dftcalc/internal/logging"
	"github.com/agbru/dftcalc/internal/service"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger replaces the default stdout logger. A nil logger is ignored.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithService injects the extraction service, typically a mock in tests.
func WithService(svc service.Service) Option {
	return func(s *Server) {
		if svc != nil {
			s.service = svc
		}
	}
}

// WithTimeouts overrides DefaultServerTimeouts.
func WithTimeouts(timeouts Timeouts) Option {
	return func(s *Server) {
		s.timeouts = timeouts
	}
}

// WithRateLimiter replaces the default per-client rate limiter.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) {
		s.rateLimiter = rl
	}
}

// WithSecurityConfig replaces DefaultSecurityConfig.
func WithSecurityConfig(config SecurityConfig) Option {
	return func(s *Server) {
		s.securityConfig = config
	}
}

// WithMaxWork bounds the number of source-visibility pairs per request.
// It only applies to the service built by NewServer, not to one injected
// with WithService.
func WithMaxWork(maxWork int64) Option {
	return func(s *Server) {
		s.securityConfig.MaxWork = maxWork
	}
}

// Timeouts holds the HTTP server deadlines.
type Timeouts struct {
	// RequestTimeout bounds one extraction.
	RequestTimeout time.Duration
	// ShutdownTimeout bounds the graceful drain.
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// DefaultServerTimeouts returns the production deadlines.
func DefaultServerTimeouts() Timeouts {
	return Timeouts{
		RequestTimeout:  5 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    10 * time.Minute,
		IdleTimeout:     2 * time.Minute,
	}
}

// DefaultResultCacheSize is the number of extraction results the server
// keeps for repeated requests.
const DefaultResultCacheSize = 32

// WithResultCacheSize sets how many results the built-in service caches.
// 0 disables the cache. Like WithMaxWork it is ignored with WithService.
func WithResultCacheSize(size int) Option {
	return func(s *Server) {
		s.cacheSize = size
	}
}
