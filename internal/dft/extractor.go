package dft

//go:generate mockgen -source=extractor.go -destination=mocks/mock_extractor.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/agbru/dftcalc/internal/errors"
)

var (
	extractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dft_extractions_total",
			Help: "The total number of visibility extractions processed",
		},
		[]string{"backend", "status"},
	)
	extractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dft_extraction_duration_seconds",
			Help: "The duration of visibility extractions in seconds",
		},
		[]string{"backend"},
	)
)

// Extractor is the public face of one execution backend. It is the
// abstraction the dispatcher, the orchestration layer and the HTTP server
// use; every implementation must write the same values into output for the
// same inputs, up to floating-point summation order.
type Extractor interface {
	// Extract computes one Complex per visibility into output. output must
	// have exactly len(visibilities) elements; sources and visibilities are
	// only read. Progress is sent without blocking to progressChan when it is
	// non-nil.
	Extract(ctx context.Context, progressChan chan<- ProgressUpdate, extractorIndex int, opts Options, sources []Source, visibilities []Visibility, output []Complex) error

	// Name returns the backend identifier.
	Name() string
}

// coreBackend is the strategy implemented by each backend.
type coreBackend interface {
	ExtractCore(ctx context.Context, reporter ProgressReporter, opts Options, sources []Source, visibilities []Visibility, output []Complex) error
	Name() string
}

// BackendExtractor decorates a coreBackend with buffer validation, tracing,
// metrics, logging and progress fan-out.
type BackendExtractor struct {
	core coreBackend
}

// NewExtractor wraps core. It panics if core is nil.
func NewExtractor(core coreBackend) Extractor {
	if core == nil {
		panic("dft: the `coreBackend` implementation cannot be nil")
	}
	return &BackendExtractor{core: core}
}

// Name returns the wrapped backend's identifier.
func (e *BackendExtractor) Name() string {
	return e.core.Name()
}

// Extract adapts progressChan into an observer and runs the extraction.
func (e *BackendExtractor) Extract(ctx context.Context, progressChan chan<- ProgressUpdate, extractorIndex int, opts Options, sources []Source, visibilities []Visibility, output []Complex) error {
	subject := NewProgressSubject()
	if progressChan != nil {
		subject.Register(NewChannelObserver(progressChan))
	}
	return e.ExtractWithObservers(ctx, subject, extractorIndex, opts, sources, visibilities, output)
}

// ExtractWithObservers runs the extraction reporting progress to every
// observer registered on subject. A nil subject discards progress.
//
// The output length is checked before the backend runs so that no backend
// ever sees an undersized buffer. Any backend error is returned as an
// apperrors.ExtractionError.
func (e *BackendExtractor) ExtractWithObservers(ctx context.Context, subject *ProgressSubject, extractorIndex int, opts Options, sources []Source, visibilities []Visibility, output []Complex) (err error) {
	name := e.core.Name()
	ctx, span := otel.Tracer("dft").Start(ctx, "Extract", trace.WithAttributes(
		attribute.String("dft.backend", name),
		attribute.Int("dft.sources", len(sources)),
		attribute.Int("dft.visibilities", len(visibilities)),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		extractionsTotal.WithLabelValues(name, status).Inc()
		extractionDuration.WithLabelValues(name).Observe(duration)

		log.Debug().
			Str("backend", name).
			Int("sources", len(sources)).
			Int("visibilities", len(visibilities)).
			Float64("duration", duration).
			Str("status", status).
			Msg("extraction completed")
	}()

	if len(output) != len(visibilities) {
		return apperrors.NewValidationError("output",
			fmt.Sprintf("length %d does not match %d visibilities", len(output), len(visibilities)), len(output))
	}

	reporter := ProgressReporter(noopReporter)
	if subject != nil {
		reporter = subject.AsProgressReporter(extractorIndex)
	}

	if len(visibilities) == 0 {
		reporter(1.0)
		return nil
	}

	if err = e.core.ExtractCore(ctx, reporter, opts, sources, visibilities, output); err != nil {
		var extractionErr apperrors.ExtractionError
		if !errors.As(err, &extractionErr) {
			err = apperrors.NewExtractionError(name, -1, err)
		}
		return err
	}
	reporter(1.0)
	return nil
}

// Extract is the backend dispatcher: it selects exactly one backend by id
// from factory and runs it over the caller-owned arrays. The number of
// visibilities is len(visibilities).
func Extract(ctx context.Context, factory BackendFactory, id BackendID, opts Options, sources []Source, visibilities []Visibility, output []Complex) error {
	extractor, err := factory.Get(id)
	if err != nil {
		return err
	}
	return extractor.Extract(ctx, nil, 0, opts, sources, visibilities, output)
}
