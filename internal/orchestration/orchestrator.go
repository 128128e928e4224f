// Package orchestration runs one or more extraction backends over the same
// workload and checks that they agree.
package orchestration

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/agbru/dftcalc/internal/cli"
	"github.com/agbru/dftcalc/internal/config"
	"github.com/agbru/dftcalc/internal/dft"
	apperrors "github.com/agbru/dftcalc/internal/errors"
	"github.com/agbru/dftcalc/internal/ui"
)

// EquivalenceTolerance is the relative tolerance within which two backends
// are considered to produce the same visibility.
const EquivalenceTolerance = 1e-9

// ProgressBufferMultiplier sizes the progress channel per extractor so that
// backends rarely drop updates while the UI redraws.
const ProgressBufferMultiplier = 5

// ProgressLogThreshold is the progress step between two debug log lines of
// the same backend.
const ProgressLogThreshold = 0.25

// observableExtractor is implemented by the built-in backends, which report
// progress to a shared subject instead of a bare channel.
type observableExtractor interface {
	ExtractWithObservers(ctx context.Context, subject *dft.ProgressSubject, extractorIndex int, opts dft.Options, sources []dft.Source, visibilities []dft.Visibility, output []dft.Complex) error
}

// ExtractionResult is the outcome of one backend run.
type ExtractionResult struct {
	Name string
	// Output holds one value per visibility. It is nil when Err is set.
	Output   []dft.Complex
	Duration time.Duration
	Err      error
}

// ExecuteExtractions runs every extractor concurrently, each into its own
// output buffer, while progress is rendered to out. Built-in backends also
// feed the dft_extraction_progress gauge and the debug log. Results are returned in
// the order of extractors. A failing backend does not stop the others.
func ExecuteExtractions(ctx context.Context, extractors []dft.Extractor, cfg config.AppConfig, sources []dft.Source, visibilities []dft.Visibility, out io.Writer) []ExtractionResult {
	g, ctx := errgroup.WithContext(ctx)
	results := make([]ExtractionResult, len(extractors))
	progressChan := make(chan dft.ProgressUpdate, len(extractors)*ProgressBufferMultiplier)
	opts := cfg.ToExtractionOptions()

	metrics := dft.NewMetricsObserver()
	metrics.ResetMetrics()
	subject := dft.NewProgressSubject()
	subject.Register(dft.NewChannelObserver(progressChan))
	subject.Register(metrics)
	subject.Register(dft.NewLoggingObserver(log.Logger, ProgressLogThreshold))

	var displayWg sync.WaitGroup
	displayWg.Add(1)
	go cli.DisplayProgress(&displayWg, progressChan, len(extractors), out)

	for i, e := range extractors {
		g.Go(func() error {
			output := make([]dft.Complex, len(visibilities))
			start := time.Now()
			var err error
			if oe, ok := e.(observableExtractor); ok {
				err = oe.ExtractWithObservers(ctx, subject, i, opts, sources, visibilities, output)
			} else {
				err = e.Extract(ctx, progressChan, i, opts, sources, visibilities, output)
			}
			if err != nil {
				output = nil
			}
			results[i] = ExtractionResult{Name: e.Name(), Output: output, Duration: time.Since(start), Err: err}
			return nil
		})
	}

	_ = g.Wait()
	close(progressChan)
	displayWg.Wait()

	return results
}

// ReferenceResult returns the result every other backend is compared
// against: the sequential backend when it succeeded, otherwise the fastest
// successful one. It returns nil when every backend failed.
func ReferenceResult(results []ExtractionResult) *ExtractionResult {
	var best *ExtractionResult
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			continue
		}
		if r.Name == string(dft.Sequential) {
			return r
		}
		if best == nil || r.Duration < best.Duration {
			best = r
		}
	}
	return best
}

// RelativeDifference returns |a-b| / max(1, |a|, |b|). Two NaNs are equal;
// a NaN against a number is infinitely different.
func RelativeDifference(a, b float64) float64 {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN || bNaN:
		return math.Inf(1)
	case a == b:
		return 0
	}
	return math.Abs(a-b) / math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// MaxRelativeDifference compares two outputs component-wise. Outputs of
// different lengths are infinitely different.
func MaxRelativeDifference(a, b []dft.Complex) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var worst float64
	for i := range a {
		worst = math.Max(worst, RelativeDifference(a[i].Real, b[i].Real))
		worst = math.Max(worst, RelativeDifference(a[i].Imaginary, b[i].Imaginary))
	}
	return worst
}

// Consistent reports whether every successful result agrees with the
// reference within EquivalenceTolerance. It is false when nothing succeeded.
func Consistent(results []ExtractionResult) bool {
	ref := ReferenceResult(results)
	if ref == nil {
		return false
	}
	for _, r := range results {
		if r.Err == nil && MaxRelativeDifference(ref.Output, r.Output) > EquivalenceTolerance {
			return false
		}
	}
	return true
}

// AnalyzeComparisonResults prints a table of every backend, sorted with
// successes first then by duration, and returns the exit code of the run:
// ExitErrorMismatch when the successful backends disagree, the first
// error's code when any backend failed, ExitSuccess otherwise.
func AnalyzeComparisonResults(results []ExtractionResult, out io.Writer) int {
	ref := ReferenceResult(results)
	var refOutput []dft.Complex
	refName := ""
	if ref != nil {
		refOutput, refName = ref.Output, ref.Name
	}

	sorted := make([]ExtractionResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		if (sorted[i].Err == nil) != (sorted[j].Err == nil) {
			return sorted[i].Err == nil
		}
		return sorted[i].Duration < sorted[j].Duration
	})

	var firstError error
	mismatch := false

	fmt.Fprintf(out, "\n--- Comparison Summary ---\n")
	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	theme := ui.GetCurrentTheme()
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
		theme.Header("Backend"), theme.Header("Duration"), theme.Header("Max rel. diff"), theme.Header("Status"))

	for _, res := range sorted {
		var status, diff string
		switch {
		case res.Err != nil:
			status = theme.Status(false, fmt.Sprintf("❌ Failure (%v)", res.Err))
			diff = "-"
			if firstError == nil {
				firstError = res.Err
			}
		case res.Name == refName:
			status = theme.Status(true, "✅ Reference")
			diff = "0"
		default:
			d := MaxRelativeDifference(refOutput, res.Output)
			diff = fmt.Sprintf("%.3g", d)
			if d > EquivalenceTolerance {
				mismatch = true
				status = theme.Status(false, "⚠ Mismatch")
			} else {
				status = theme.Status(true, "✅ Success")
			}
		}
		duration := cli.FormatExecutionDuration(res.Duration)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			theme.Backend(res.Name), theme.Duration(duration), diff, status)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(out, "Warning: failed to flush tabwriter: %v\n", err)
	}

	if ref == nil {
		fmt.Fprintf(out, "\nGlobal Status: Failure. No backend could complete the extraction.\n")
		return apperrors.HandleExtractionError(firstError, 0, out, cli.CLIColorProvider{})
	}
	if mismatch {
		fmt.Fprintf(out, "\nGlobal Status: CRITICAL ERROR! Backends disagree beyond a relative tolerance of %g.\n", EquivalenceTolerance)
		return apperrors.ExitErrorMismatch
	}
	if firstError != nil {
		fmt.Fprintf(out, "\nGlobal Status: Failure. At least one backend failed; the others agree with %s.\n", refName)
		return apperrors.HandleExtractionError(firstError, 0, out, cli.CLIColorProvider{})
	}
	fmt.Fprintf(out, "\nGlobal Status: Success. All backends agree with %s.\n", refName)
	return apperrors.ExitSuccess
}
