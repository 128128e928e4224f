package calibration

import (
	"context"
	"time"

	"github.com/agbru/dftcalc/internal/dft"
)

const (
	// MicroBenchSources and MicroBenchVisibilities size the quick workload.
	MicroBenchSources      = 8
	MicroBenchVisibilities = 4096

	// MicroBenchTimeout bounds the whole quick calibration.
	MicroBenchTimeout = 500 * time.Millisecond
	// MicroBenchPerTrialTimeout bounds one trial.
	MicroBenchPerTrialTimeout = 100 * time.Millisecond
)

// MicroBenchmark is a reduced calibration meant to run at startup.
type MicroBenchmark struct {
	Sources      int
	Visibilities int
	Timeout      time.Duration
	PerTrial     time.Duration
}

// ThresholdResults holds the geometry estimated by a MicroBenchmark.
type ThresholdResults struct {
	NumBlocks int
	// ChunkSize is measured at the benchmark's visibility count.
	ChunkSize    int
	Visibilities int
	// Confidence is the fraction of trials that completed, from 0 to 1.
	Confidence float64
	Duration   time.Duration
}

// NewMicroBenchmark returns a benchmark with the default sizes.
func NewMicroBenchmark() *MicroBenchmark {
	return &MicroBenchmark{
		Sources:      MicroBenchSources,
		Visibilities: MicroBenchVisibilities,
		Timeout:      MicroBenchTimeout,
		PerTrial:     MicroBenchPerTrialTimeout,
	}
}

// RunQuick sweeps the quick block counts on the accelerator backend and
// the quick chunk sizes on the task-scheduled backend of factory. Missing
// backends keep their estimates and lower the confidence.
func (mb *MicroBenchmark) RunQuick(ctx context.Context, factory dft.BackendFactory) (ThresholdResults, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, mb.Timeout)
	defer cancel()

	work, err := newWorkload(mb.Sources, mb.Visibilities)
	if err != nil {
		return ThresholdResults{}, err
	}
	runner := &calibrationRunner{ctx: ctx, perTrial: mb.PerTrial, work: work}

	res := ThresholdResults{
		NumBlocks:    EstimateOptimalNumBlocks(),
		ChunkSize:    EstimateOptimalChunkSize(mb.Visibilities),
		Visibilities: mb.Visibilities,
	}

	blockCandidates := GenerateQuickBlockCounts()
	chunkCandidates := GenerateQuickChunkSizes(mb.Visibilities)
	total := len(blockCandidates) + len(chunkCandidates)
	succeeded := 0

	if acc, err := factory.Get(dft.Accelerator); err == nil {
		trials, best, _ := runner.findBestNumBlocks(acc, blockCandidates, res.NumBlocks)
		res.NumBlocks = best
		succeeded += countSuccesses(trials)
	}
	if ts, err := factory.Get(dft.TaskScheduled); err == nil {
		trials, best, _ := runner.findBestChunkSize(ts, chunkCandidates, res.ChunkSize)
		res.ChunkSize = best
		succeeded += countSuccesses(trials)
	}

	if total > 0 {
		res.Confidence = float64(succeeded) / float64(total)
	}
	res.Duration = time.Since(start)
	return res, nil
}

func countSuccesses(trials []trialResult) int {
	n := 0
	for _, t := range trials {
		if t.Err == nil {
			n++
		}
	}
	return n
}

// QuickCalibrate runs the default MicroBenchmark.
func QuickCalibrate(ctx context.Context, factory dft.BackendFactory) (ThresholdResults, error) {
	return NewMicroBenchmark().RunQuick(ctx, factory)
}
