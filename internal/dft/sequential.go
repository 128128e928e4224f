package dft

import "context"

// progressSteps is the number of progress reports a backend aims to emit
// over a full extraction.
const progressSteps = 100

// SequentialBackend evaluates every visibility in index order on the calling
// goroutine. It is the reference the other backends are compared against.
type SequentialBackend struct{}

// Name returns "sequential".
func (b *SequentialBackend) Name() string {
	return string(Sequential)
}

// ExtractCore walks visibilities in order. Cancellation is checked between
// progress steps, so a canceled context may leave output partly written.
func (b *SequentialBackend) ExtractCore(ctx context.Context, reporter ProgressReporter, opts Options, sources []Source, visibilities []Visibility, output []Complex) error {
	total := len(visibilities)
	step := max(total/progressSteps, 1)

	for start := 0; start < total; start += step {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+step, total)
		extractRange(sources, visibilities, output, start, end, opts.ForceZeroWTerm)
		reporter(fraction(end, total))
	}
	return nil
}
