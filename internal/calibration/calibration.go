package calibration

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/agbru/dftcalc/internal/cli"
	"github.com/agbru/dftcalc/internal/config"
	"github.com/agbru/dftcalc/internal/dft"
	apperrors "github.com/agbru/dftcalc/internal/errors"
)

// CalibrationOptions configures RunCalibrationWithOptions.
type CalibrationOptions struct {
	// ProfilePath is the profile to read or write; empty uses the default.
	ProfilePath string
	SaveProfile bool
	// LoadProfile returns early when a valid profile already exists.
	LoadProfile bool
	// Timeout bounds the whole run; per-trial deadlines derive from it.
	Timeout time.Duration
}

// RunCalibration sweeps every block count and chunk size on the
// calibration workload, prints the measurements and saves the winners to
// the default profile. It returns a process exit code.
func RunCalibration(ctx context.Context, out io.Writer, factory dft.BackendFactory) int {
	return RunCalibrationWithOptions(ctx, out, factory, CalibrationOptions{SaveProfile: true})
}

// RunCalibrationWithOptions is RunCalibration with explicit options.
func RunCalibrationWithOptions(ctx context.Context, out io.Writer, factory dft.BackendFactory, opts CalibrationOptions) int {
	fmt.Fprintf(out, "--- Calibration Mode: Finding the Optimal Launch Geometry ---\n")

	if opts.LoadProfile {
		if profile, ok := LoadCachedCalibration(opts.ProfilePath); ok {
			fmt.Fprintf(out, "%sLoaded existing calibration profile from %s%s\n",
				cli.ColorGreen(), resolveProfilePath(opts.ProfilePath), cli.ColorReset())
			fmt.Fprintf(out, "Profile: %s\n", profile)
			return apperrors.ExitSuccess
		}
	}

	acc, accErr := factory.Get(dft.Accelerator)
	ts, tsErr := factory.Get(dft.TaskScheduled)
	if accErr != nil && tsErr != nil {
		fmt.Fprintf(out, "%sCritical error: calibration needs the accelerator or task_scheduled backend.%s\n",
			cli.ColorRed(), cli.ColorReset())
		return apperrors.ExitErrorGeneric
	}

	work, err := newWorkload(CalibrationSources, CalibrationVisibilities)
	if err != nil {
		fmt.Fprintf(out, "%sCalibration failed: %v%s\n", cli.ColorRed(), err, cli.ColorReset())
		return apperrors.ExitErrorGeneric
	}
	fmt.Fprintf(out, "%sWorkload: %d sources × %d visibilities on %d CPU cores%s\n",
		cli.ColorCyan(), CalibrationSources, CalibrationVisibilities, runtime.NumCPU(), cli.ColorReset())

	start := time.Now()
	runner := newCalibrationRunner(ctx, opts.Timeout, work)
	bestBlocks, bestBlocksDur := EstimateOptimalNumBlocks(), noDuration
	bestChunk, bestChunkDur := EstimateOptimalChunkSize(CalibrationVisibilities), noDuration

	if accErr == nil {
		var trials []trialResult
		trials, bestBlocks, bestBlocksDur = runner.findBestNumBlocks(acc, GenerateBlockCounts(), bestBlocks)
		printCalibrationResults(out, "Accelerator blocks", trials, bestBlocks)
	}
	if tsErr == nil {
		var trials []trialResult
		trials, bestChunk, bestChunkDur = runner.findBestChunkSize(ts, GenerateChunkSizes(CalibrationVisibilities), bestChunk)
		printCalibrationResults(out, "Task chunk size", trials, bestChunk)
	}

	if err := ctx.Err(); err != nil {
		fmt.Fprintf(out, "\n%sCalibration interrupted.%s\n", cli.ColorYellow(), cli.ColorReset())
		return apperrors.HandleExtractionError(err, time.Since(start), out, cli.CLIColorProvider{})
	}
	if bestBlocksDur == noDuration && bestChunkDur == noDuration {
		fmt.Fprintf(out, "\n%sCalibration failed: no valid results obtained.%s\n", cli.ColorRed(), cli.ColorReset())
		return apperrors.ExitErrorGeneric
	}

	fmt.Fprintf(out, "\n%s✅ Recommendation for this machine: %s-blocks %d -chunk-size %d%s (at %d visibilities)\n",
		cli.ColorGreen(), cli.ColorYellow(), bestBlocks, bestChunk, cli.ColorReset(), CalibrationVisibilities)

	if opts.SaveProfile {
		profile := NewProfile()
		profile.OptimalNumBlocks = bestBlocks
		profile.OptimalChunkSize = bestChunk
		profile.CalibrationSources = CalibrationSources
		profile.CalibrationVisibilities = CalibrationVisibilities
		profile.CalibrationTime = time.Since(start).Round(time.Millisecond).String()
		saveCalibrationProfile(profile, opts.ProfilePath, out)
	}
	return apperrors.ExitSuccess
}

// AutoCalibrate returns the cached profile when one is valid for this
// machine, and otherwise measures a new one with QuickCalibrate and saves
// it to cfg.CalibrationProfile. It reports false when nothing usable was
// measured.
func AutoCalibrate(ctx context.Context, cfg config.AppConfig, out io.Writer, factory dft.BackendFactory) (*CalibrationProfile, bool) {
	if profile, ok := LoadCachedCalibration(cfg.CalibrationProfile); ok {
		fmt.Fprintf(out, "%sUsing cached calibration%s: blocks=%s%d%s, chunk=%s%d%s @ %d visibilities\n",
			cli.ColorGreen(), cli.ColorReset(),
			cli.ColorYellow(), profile.OptimalNumBlocks, cli.ColorReset(),
			cli.ColorYellow(), profile.OptimalChunkSize, cli.ColorReset(),
			profile.CalibrationVisibilities)
		return profile, true
	}

	res, err := QuickCalibrate(ctx, factory)
	if err != nil || res.Confidence < 0.5 {
		return nil, false
	}

	profile := NewProfile()
	profile.OptimalNumBlocks = res.NumBlocks
	profile.OptimalChunkSize = res.ChunkSize
	profile.CalibrationSources = MicroBenchSources
	profile.CalibrationVisibilities = res.Visibilities
	profile.CalibrationTime = res.Duration.Round(time.Millisecond).String()

	fmt.Fprintf(out, "%sQuick calibration%s (%v): blocks=%s%d%s, chunk=%s%d%s (confidence: %.0f%%)\n",
		cli.ColorGreen(), cli.ColorReset(), res.Duration.Round(time.Millisecond),
		cli.ColorYellow(), res.NumBlocks, cli.ColorReset(),
		cli.ColorYellow(), res.ChunkSize, cli.ColorReset(),
		res.Confidence*100)

	saveCalibrationProfile(profile, cfg.CalibrationProfile, out)
	return profile, true
}

// LoadCachedCalibration returns the profile at path when it is valid for
// this machine and younger than MaxProfileAge.
func LoadCachedCalibration(path string) (*CalibrationProfile, bool) {
	profile, err := LoadProfile(path)
	if err != nil || !profile.IsValid() || profile.IsStale(MaxProfileAge) {
		return nil, false
	}
	return profile, true
}

// ApplyProfile fills the launch geometry of cfg that was left automatic:
// NumBlocks when it is 0 or dft.DefaultNumBlocks, and ChunkSize when it is
// 0, scaled to numVisibilities. A nil profile returns cfg unchanged.
func ApplyProfile(cfg config.AppConfig, profile *CalibrationProfile, numVisibilities int) config.AppConfig {
	if profile == nil {
		return cfg
	}
	if (cfg.NumBlocks == 0 || cfg.NumBlocks == dft.DefaultNumBlocks) && profile.OptimalNumBlocks > 0 {
		cfg.NumBlocks = profile.OptimalNumBlocks
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = profile.ChunkSizeFor(numVisibilities)
	}
	return cfg
}

func saveCalibrationProfile(profile *CalibrationProfile, path string, out io.Writer) {
	if err := profile.SaveProfile(path); err != nil {
		fmt.Fprintf(out, "%sWarning: could not save calibration profile: %v%s\n",
			cli.ColorYellow(), err, cli.ColorReset())
		return
	}
	fmt.Fprintf(out, "%sCalibration profile saved to %s%s\n",
		cli.ColorGreen(), resolveProfilePath(path), cli.ColorReset())
}
