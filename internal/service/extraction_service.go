// Package service holds the request-level extraction logic shared by the
// HTTP server: backend selection, workload limits and option assembly.
package service

//go:generate mockgen -source=extraction_service.go -destination=mocks/mock_service.go -package=mocks

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/agbru/dftcalc/internal/config"
	"github.com/agbru/dftcalc/internal/dft"
)

var (
	// ErrWorkloadTooLarge is returned when sources × visibilities exceeds
	// the configured limit.
	ErrWorkloadTooLarge = errors.New("workload exceeds the maximum number of source-visibility pairs")
)

// Request is one extraction to perform.
type Request struct {
	// Backend is a backend identifier or alias. Empty selects the default.
	Backend      string
	ForceZeroW   bool
	Sources      []dft.Source
	Visibilities []dft.Visibility
}

// Result is the outcome of a successful Request.
type Result struct {
	Backend  dft.BackendID
	Output   []dft.Complex
	Duration time.Duration
	// Cached reports that Output was served from the result cache.
	Cached bool
}

// Service defines the extraction operations exposed to transports.
type Service interface {
	// Extract runs one backend over the request and returns one value per
	// visibility, in request order.
	Extract(ctx context.Context, req Request) (Result, error)

	// Backends lists the registered backend identifiers.
	Backends() []dft.BackendID

	// DefaultBackend is the backend used when a request names none.
	DefaultBackend() dft.BackendID
}

// ExtractionService implements Service over a dft.BackendFactory.
type ExtractionService struct {
	factory dft.BackendFactory
	config  config.AppConfig
	maxWork int64
	cache   *lru.Cache[uint64, cacheEntry]
}

var _ Service = (*ExtractionService)(nil)

// NewExtractionService creates a service. maxWork bounds the number of
// source-visibility pairs of a request; 0 disables the limit.
func NewExtractionService(factory dft.BackendFactory, cfg config.AppConfig, maxWork int64, opts ...Option) *ExtractionService {
	s := &ExtractionService{
		factory: factory,
		config:  cfg,
		maxWork: maxWork,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultBackend returns the configured backend, or the sequential one when
// the configuration selects the comparison mode.
func (s *ExtractionService) DefaultBackend() dft.BackendID {
	if s.config.Backend == "" || s.config.RunsAllBackends() {
		return dft.Sequential
	}
	if id, err := dft.ParseBackendID(s.config.Backend); err == nil {
		return id
	}
	return dft.Sequential
}

// Backends returns the identifiers known to the factory.
func (s *ExtractionService) Backends() []dft.BackendID {
	return s.factory.List()
}

// Extract validates the workload size, resolves the backend and runs it
// with the configured tuning options. The request may only strengthen
// ForceZeroW, never clear it.
func (s *ExtractionService) Extract(ctx context.Context, req Request) (Result, error) {
	if s.maxWork > 0 && int64(len(req.Sources))*int64(len(req.Visibilities)) > s.maxWork {
		return Result{}, ErrWorkloadTooLarge
	}

	id := s.DefaultBackend()
	if req.Backend != "" {
		parsed, err := dft.ParseBackendID(req.Backend)
		if err != nil {
			return Result{}, err
		}
		id = parsed
	}

	extractor, err := s.factory.Get(id)
	if err != nil {
		return Result{}, err
	}

	opts := s.config.ToExtractionOptions()
	opts.ForceZeroWTerm = opts.ForceZeroWTerm || req.ForceZeroW

	var key uint64
	if s.cache != nil {
		key = requestDigest(id, opts.ForceZeroWTerm, req.Sources, req.Visibilities)
		if output, ok := s.cached(key, id, opts.ForceZeroWTerm, req); ok {
			return Result{Backend: id, Output: output, Cached: true}, nil
		}
	}

	output := make([]dft.Complex, len(req.Visibilities))
	start := time.Now()
	if err := extractor.Extract(ctx, nil, 0, opts, req.Sources, req.Visibilities, output); err != nil {
		return Result{}, err
	}
	elapsed := time.Since(start)
	s.store(key, id, opts.ForceZeroWTerm, req, output)
	return Result{Backend: id, Output: output, Duration: elapsed}, nil
}
