package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/agbru/dftcalc/internal/config"
	"github.com/agbru/dftcalc/internal/dft"
)

// GetExtractorsToRun resolves the configured run mode into extractors. In
// "all" mode every registered backend is returned in sorted order; otherwise
// the single named backend, or nil if it is not registered.
func GetExtractorsToRun(cfg config.AppConfig, factory dft.BackendFactory) []dft.Extractor {
	if cfg.RunsAllBackends() {
		ids := factory.List()
		extractors := make([]dft.Extractor, 0, len(ids))
		for _, id := range ids {
			if e, err := factory.Get(id); err == nil {
				extractors = append(extractors, e)
			}
		}
		return extractors
	}
	id, err := dft.ParseBackendID(cfg.Backend)
	if err != nil {
		return nil
	}
	if e, err := factory.Get(id); err == nil {
		return []dft.Extractor{e}
	}
	return nil
}

// PrintExecutionConfig prints the workload, the instrument and the
// execution environment.
func PrintExecutionConfig(cfg config.AppConfig, numSources, numVisibilities int, out io.Writer) {
	opts := cfg.ToExtractionOptions()
	timeout := "none"
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout.String()
	}

	fmt.Fprintf(out, "--- Execution Configuration ---\n")
	fmt.Fprintf(out, "Extracting %s%s%s visibilities from %s%s%s sources (timeout: %s%s%s).\n",
		ColorMagenta(), formatCount(numVisibilities), ColorReset(),
		ColorMagenta(), formatCount(numSources), ColorReset(),
		ColorYellow(), timeout, ColorReset())
	fmt.Fprintf(out, "Instrument: grid %s%d%s, cell %s%g%s rad, frequency %s%g%s Hz, w-term %s%s%s.\n",
		ColorCyan(), cfg.GridSize, ColorReset(),
		ColorCyan(), cfg.CellSize, ColorReset(),
		ColorCyan(), cfg.FrequencyHz, ColorReset(),
		ColorCyan(), wTermLabel(opts.ForceZeroWTerm), ColorReset())
	fmt.Fprintf(out, "Environment: %s%d%s logical processors (%s), Go %s%s%s.\n",
		ColorCyan(), runtime.NumCPU(), ColorReset(), dft.HostFeatures(),
		ColorCyan(), runtime.Version(), ColorReset())
	fmt.Fprintf(out, "Tuning: blocks=%s%d%s lanes=%s%s%s chunk=%s%s%s.\n",
		ColorCyan(), opts.NumBlocks, ColorReset(),
		ColorCyan(), autoLabel(opts.LanesPerBlock), ColorReset(),
		ColorCyan(), autoLabel(opts.ChunkSize), ColorReset())
}

func wTermLabel(forceZero bool) string {
	if forceZero {
		return "ignored"
	}
	return "applied"
}

func autoLabel(v int) string {
	if v <= 0 {
		return "auto"
	}
	return fmt.Sprintf("%d", v)
}

// PrintExecutionMode announces either a single backend or a comparison run.
func PrintExecutionMode(extractors []dft.Extractor, out io.Writer) {
	var modeDesc string
	if len(extractors) > 1 {
		modeDesc = fmt.Sprintf("Parallel comparison of %d backends", len(extractors))
	} else {
		modeDesc = fmt.Sprintf("Single extraction with the %s%s%s backend",
			ColorGreen(), extractors[0].Name(), ColorReset())
	}
	fmt.Fprintf(out, "Execution mode: %s.\n", modeDesc)
	fmt.Fprintf(out, "\n--- Starting Execution ---\n")
}
