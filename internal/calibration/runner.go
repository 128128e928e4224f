package calibration

import (
	"context"
	"fmt"
	"time"

	"github.com/agbru/dftcalc/internal/config"
	"github.com/agbru/dftcalc/internal/dataio"
	"github.com/agbru/dftcalc/internal/dft"
)

const (
	// CalibrationSources is the source count of the calibration workload.
	CalibrationSources = 64
	// CalibrationVisibilities is the visibility count of the calibration
	// workload.
	CalibrationVisibilities = 16384
	// calibrationSeed makes every calibration measure the same workload.
	calibrationSeed = 42
)

// noDuration marks a sweep in which no trial succeeded.
const noDuration = time.Duration(1<<63 - 1)

// workload is the synthetic input every trial extracts.
type workload struct {
	sources      []dft.Source
	visibilities []dft.Visibility
	output       []dft.Complex
}

// newWorkload synthesizes numSources sources and numVisibilities
// visibilities on the default grid.
func newWorkload(numSources, numVisibilities int) (*workload, error) {
	params := dataio.ParamsForGrid(config.DefaultGridSize, config.DefaultCellSize)
	synth := dataio.NewSynthesizer(calibrationSeed)
	vis, err := synth.Visibilities(numVisibilities, params)
	if err != nil {
		return nil, fmt.Errorf("calibration workload: %w", err)
	}
	return &workload{
		sources:      synth.Sources(numSources, params),
		visibilities: vis,
		output:       make([]dft.Complex, numVisibilities),
	}, nil
}

// trialResult is the timing of one candidate value.
type trialResult struct {
	Value    int
	Duration time.Duration
	Err      error
}

// calibrationRunner times extractions of one workload under a per-trial
// deadline.
type calibrationRunner struct {
	ctx      context.Context
	perTrial time.Duration
	work     *workload
}

// newCalibrationRunner gives each trial a sixth of timeout, and at least
// two seconds.
func newCalibrationRunner(ctx context.Context, timeout time.Duration, work *workload) *calibrationRunner {
	perTrial := max(timeout/6, 2*time.Second)
	return &calibrationRunner{ctx: ctx, perTrial: perTrial, work: work}
}

func (r *calibrationRunner) runTrial(extractor dft.Extractor, opts dft.Options) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(r.ctx, r.perTrial)
	defer cancel()
	start := time.Now()
	err := extractor.Extract(ctx, nil, 0, opts, r.work.sources, r.work.visibilities, r.work.output)
	return time.Since(start), err
}

// sweep runs one trial per candidate, with apply setting the candidate on
// a copy of base, and returns every trial plus the fastest candidate. When
// every trial fails the fastest duration is noDuration and fallback is
// returned.
func (r *calibrationRunner) sweep(extractor dft.Extractor, base dft.Options, candidates []int, apply func(*dft.Options, int), fallback int) ([]trialResult, int, time.Duration) {
	results := make([]trialResult, 0, len(candidates))
	best, bestDur := fallback, noDuration
	for _, cand := range candidates {
		if r.ctx.Err() != nil {
			break
		}
		opts := base
		apply(&opts, cand)
		dur, err := r.runTrial(extractor, opts)
		results = append(results, trialResult{Value: cand, Duration: dur, Err: err})
		if err == nil && dur < bestDur {
			best, bestDur = cand, dur
		}
	}
	return results, best, bestDur
}

func (r *calibrationRunner) findBestNumBlocks(extractor dft.Extractor, candidates []int, fallback int) ([]trialResult, int, time.Duration) {
	return r.sweep(extractor, dft.Options{}, candidates, func(o *dft.Options, v int) { o.NumBlocks = v }, fallback)
}

func (r *calibrationRunner) findBestChunkSize(extractor dft.Extractor, candidates []int, fallback int) ([]trialResult, int, time.Duration) {
	return r.sweep(extractor, dft.Options{}, candidates, func(o *dft.Options, v int) { o.ChunkSize = v }, fallback)
}
