package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/agbru/dftcalc/internal/calibration"
	"github.com/agbru/dftcalc/internal/cli"
	"github.com/agbru/dftcalc/internal/config"
	"github.com/agbru/dftcalc/internal/dataio"
	"github.com/agbru/dftcalc/internal/dft"
	apperrors "github.com/agbru/dftcalc/internal/errors"
	"github.com/agbru/dftcalc/internal/logging"
	"github.com/agbru/dftcalc/internal/orchestration"
	"github.com/agbru/dftcalc/internal/server"
	"github.com/agbru/dftcalc/internal/ui"
)

// ErrNoBackend is returned when the configured backend is not registered
// in the factory.
var ErrNoBackend = errors.New("no backend available for the configured mode")

// Application is one dftcalc invocation: a parsed configuration, the
// backends it may run and the cached launch geometry.
type Application struct {
	Config config.AppConfig
	// Factory resolves backend identifiers to extractors.
	Factory dft.BackendFactory
	// Profile is the calibration profile applied once the workload size is
	// known. It is nil when none was cached.
	Profile *calibration.CalibrationProfile
	// ErrWriter receives diagnostics and the log stream.
	ErrWriter io.Writer
	Logger    logging.Logger
}

// New parses args (args[0] is the program name) into an Application bound
// to the global backend factory. It returns flag.ErrHelp, wrapped, when
// help was requested; see IsHelpError.
func New(args []string, errWriter io.Writer) (*Application, error) {
	return NewWithFactory(args, errWriter, dft.GlobalFactory())
}

// NewWithFactory is New with an explicit backend factory.
func NewWithFactory(args []string, errWriter io.Writer, factory dft.BackendFactory) (*Application, error) {
	programName := "dftcalc"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, errWriter, factory.List())
	if err != nil {
		return nil, err
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	a := &Application{
		Config:    cfg,
		Factory:   factory,
		ErrWriter: errWriter,
		Logger:    logging.NewLogger(errWriter, "app").Level(level),
	}
	if profile, ok := calibration.LoadCachedCalibration(cfg.CalibrationProfile); ok {
		a.Profile = profile
	}
	return a, nil
}

// Run dispatches to the mode selected by the configuration and returns the
// process exit code.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	if a.Config.Completion != "" {
		return a.runCompletion(out)
	}

	ui.InitTheme(a.Config.NoColor)

	switch {
	case a.Config.DumpConfig:
		return a.runDumpConfig(out)
	case a.Config.ServerMode:
		return a.runServer()
	case a.Config.Calibrate:
		return a.runCalibration(ctx, out)
	}

	a.runAutoCalibrationIfEnabled(ctx, out)
	return a.runCalculate(ctx, out)
}

func (a *Application) runCompletion(out io.Writer) int {
	ids := a.Factory.List()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	if err := cli.GenerateCompletion(out, a.Config.Completion, names); err != nil {
		fmt.Fprintf(a.ErrWriter, "Error generating completion: %v\n", err)
		return apperrors.ExitErrorConfig
	}
	return apperrors.ExitSuccess
}

func (a *Application) runDumpConfig(out io.Writer) int {
	data, err := config.Marshal(a.Config)
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "Error rendering configuration: %v\n", err)
		return apperrors.ExitErrorGeneric
	}
	_, _ = out.Write(data)
	return apperrors.ExitSuccess
}

func (a *Application) runServer() int {
	// Requests are logged at info level, which stays visible in server mode
	// unless logging is turned off.
	level, _ := logging.ParseLevel(a.Config.LogLevel)
	if level != zerolog.Disabled {
		level = min(level, zerolog.InfoLevel)
	}
	logger := logging.NewLogger(a.ErrWriter, "server").Level(level)
	srv := server.NewServer(a.Factory, a.Config, server.WithLogger(logger))
	if err := srv.Start(); err != nil {
		fmt.Fprintf(a.ErrWriter, "Server error: %v\n", err)
		return apperrors.ExitErrorGeneric
	}
	return apperrors.ExitSuccess
}

func (a *Application) runCalibration(ctx context.Context, out io.Writer) int {
	ctx, cancel := SetupSignals(ctx)
	defer cancel()
	return calibration.RunCalibrationWithOptions(ctx, out, a.Factory, calibration.CalibrationOptions{
		ProfilePath: a.Config.CalibrationProfile,
		SaveProfile: true,
		Timeout:     a.Config.Timeout,
	})
}

// runAutoCalibrationIfEnabled replaces the cached profile with the one
// AutoCalibrate returns. A failed calibration keeps the current profile.
func (a *Application) runAutoCalibrationIfEnabled(ctx context.Context, out io.Writer) {
	if !a.Config.AutoCalibrate {
		return
	}
	if profile, ok := calibration.AutoCalibrate(ctx, a.Config, a.infoWriter(out), a.Factory); ok {
		a.Profile = profile
		return
	}
	a.Logger.Warn("auto-calibration produced no usable profile")
}

// infoWriter returns out, or io.Discard when the output must stay
// machine-readable or minimal.
func (a *Application) infoWriter(out io.Writer) io.Writer {
	if a.Config.JSONOutput || a.Config.Quiet {
		return io.Discard
	}
	return out
}

// loadWorkload reads or synthesizes the sources and visibilities. Empty
// inputs are reported as an apperrors.InputError so that no backend is
// invoked without work.
func (a *Application) loadWorkload() ([]dft.Source, []dft.Visibility, error) {
	cfg := a.Config
	params := dataio.ParamsForGrid(cfg.GridSize, cfg.CellSize)
	params.Gaussian = cfg.GaussianDistribution
	synth := dataio.NewSynthesizer(cfg.Seed)

	var sources []dft.Source
	if cfg.SyntheticSources {
		sources = synth.Sources(cfg.NumSources, params)
	} else {
		var err error
		if sources, err = dataio.LoadSourcesFile(cfg.SourcesFile, cfg.CellSize); err != nil {
			return nil, nil, err
		}
	}

	var visibilities []dft.Visibility
	if cfg.SyntheticVisibilities {
		var err error
		if visibilities, err = synth.Visibilities(cfg.NumVisibilities, params); err != nil {
			return nil, nil, apperrors.NewInputError("", err)
		}
	} else {
		var err error
		if visibilities, err = dataio.LoadVisibilitiesFile(cfg.VisibilitiesFile, cfg.FrequencyHz); err != nil {
			return nil, nil, err
		}
	}

	switch {
	case len(sources) == 0:
		return nil, nil, apperrors.NewInputError(inputPath(cfg.SyntheticSources, cfg.SourcesFile), errors.New("no sources available"))
	case len(visibilities) == 0:
		return nil, nil, apperrors.NewInputError(inputPath(cfg.SyntheticVisibilities, cfg.VisibilitiesFile), errors.New("no visibilities available"))
	}
	return sources, visibilities, nil
}

func inputPath(synthetic bool, path string) string {
	if synthetic {
		return ""
	}
	return path
}

// runCalculate loads the workload, runs the selected backends and reports
// the reference result.
func (a *Application) runCalculate(ctx context.Context, out io.Writer) int {
	ctx, lifecycle := SetupLifecycle(ctx, a.Config.Timeout)
	defer lifecycle.Cleanup()

	sources, visibilities, err := a.loadWorkload()
	if err != nil {
		return apperrors.HandleExtractionError(err, 0, out, cli.CLIColorProvider{})
	}

	cfg := calibration.ApplyProfile(a.Config, a.Profile, len(visibilities))
	extractors := cli.GetExtractorsToRun(cfg, a.Factory)
	if len(extractors) == 0 {
		fmt.Fprintf(a.ErrWriter, "Error: %v: %s\n", ErrNoBackend, cfg.Backend)
		return apperrors.ExitErrorConfig
	}

	info := a.infoWriter(out)
	if info != io.Discard {
		cli.PrintExecutionConfig(cfg, len(sources), len(visibilities), out)
		cli.PrintExecutionMode(extractors, out)
	}

	a.Logger.Debug("extraction started",
		logging.String("backend", cfg.Backend),
		logging.Int("sources", len(sources)),
		logging.Int("visibilities", len(visibilities)),
		logging.Int("blocks", cfg.NumBlocks),
		logging.Int("chunk_size", cfg.ChunkSize))

	results := orchestration.ExecuteExtractions(ctx, extractors, cfg, sources, visibilities, info)
	for _, r := range results {
		if r.Err != nil {
			a.Logger.Error("extraction failed", r.Err, logging.String("backend", r.Name), logging.Duration("duration", r.Duration))
			continue
		}
		a.Logger.Debug("extraction finished", logging.String("backend", r.Name), logging.Duration("duration", r.Duration))
	}

	return a.reportResults(results, len(sources), visibilities, out)
}

// reportResults prints the comparison table when several backends ran,
// then the reference result in the configured output mode, and finally the
// comparison against a saved output when one was requested.
func (a *Application) reportResults(results []orchestration.ExtractionResult, numSources int, visibilities []dft.Visibility, out io.Writer) int {
	exitCode := apperrors.ExitSuccess
	if len(results) > 1 {
		exitCode = orchestration.AnalyzeComparisonResults(results, a.infoWriter(out))
	}

	ref := orchestration.ReferenceResult(results)
	if ref == nil {
		if len(results) == 1 {
			return apperrors.HandleExtractionError(results[0].Err, results[0].Duration, out, cli.CLIColorProvider{})
		}
		if a.Config.JSONOutput {
			if err := printJSONResults(results, numSources, out); err != nil {
				fmt.Fprintf(a.ErrWriter, "Error encoding results: %v\n", err)
			}
		}
		return exitCode
	}

	outputCfg := cli.OutputConfig{
		OutputFile:  a.Config.OutputFile,
		FrequencyHz: a.Config.FrequencyHz,
		Quiet:       a.Config.Quiet,
		JSON:        a.Config.JSONOutput,
		Preview:     a.Config.Preview,
	}

	if a.Config.JSONOutput && len(results) > 1 {
		if err := cli.WriteOutputFile(visibilities, ref.Output, outputCfg); err != nil {
			fmt.Fprintf(a.ErrWriter, "Error saving result: %v\n", err)
			return apperrors.ExitErrorGeneric
		}
		if err := printJSONResults(results, numSources, out); err != nil {
			fmt.Fprintf(a.ErrWriter, "Error encoding results: %v\n", err)
			return apperrors.ExitErrorGeneric
		}
	} else if err := cli.DisplayResultWithConfig(out, ref.Name, numSources, visibilities, ref.Output, ref.Duration, outputCfg); err != nil {
		fmt.Fprintf(a.ErrWriter, "Error saving result: %v\n", err)
		return apperrors.ExitErrorGeneric
	}

	if a.Config.CompareWith != "" {
		if code := a.compareWithSaved(visibilities, ref.Output, out); code != apperrors.ExitSuccess {
			return code
		}
	}
	return exitCode
}

// compareWithSaved diffs the extraction against the file named by
// CompareWith. Rows over dataio.DefaultRowTolerance are a mismatch.
func (a *Application) compareWithSaved(visibilities []dft.Visibility, output []dft.Complex, out io.Writer) int {
	saved, err := dataio.LoadRecordsFile(a.Config.CompareWith, a.Config.FrequencyHz)
	if err != nil {
		return apperrors.HandleExtractionError(err, 0, out, cli.CLIColorProvider{})
	}
	current := make([]dataio.VisibilityRecord, len(visibilities))
	for i := range visibilities {
		current[i] = dataio.VisibilityRecord{Visibility: visibilities[i], Brightness: output[i], Intensity: 1.0}
	}

	report, err := dataio.CompareRecords(current, saved, dataio.DefaultRowTolerance)
	if err != nil {
		fmt.Fprintf(out, "%sComparison with %s failed: %v%s\n", cli.ColorRed(), a.Config.CompareWith, err, cli.ColorReset())
		return apperrors.ExitErrorMismatch
	}

	info := a.infoWriter(out)
	fmt.Fprintf(info, "\n--- Comparison with %s ---\n", a.Config.CompareWith)
	fmt.Fprintf(info, "Rows: %d, total |diff|: %g, max |diff|: %g\n", report.Rows, report.TotalAbsDiff, report.MaxAbsDiff)
	if !report.Within() {
		fmt.Fprintf(info, "%s%d rows differ by more than %g (first: row %d).%s\n",
			cli.ColorRed(), len(report.RowsOverTolerance), dataio.DefaultRowTolerance, report.RowsOverTolerance[0], cli.ColorReset())
		return apperrors.ExitErrorMismatch
	}
	fmt.Fprintf(info, "%sAll rows within %g.%s\n", cli.ColorGreen(), dataio.DefaultRowTolerance, cli.ColorReset())
	return apperrors.ExitSuccess
}

// IsHelpError reports whether err stems from -h or -help.
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}

// printJSONResults writes one cli.ExtractionReport per backend as a JSON
// array.
func printJSONResults(results []orchestration.ExtractionResult, numSources int, out io.Writer) error {
	reports := make([]cli.ExtractionReport, len(results))
	for i, res := range results {
		if res.Err != nil {
			reports[i] = cli.ExtractionReport{
				Backend:    res.Name,
				Sources:    numSources,
				DurationMS: float64(res.Duration.Microseconds()) / 1000,
				Error:      res.Err.Error(),
			}
			continue
		}
		reports[i] = cli.NewExtractionReport(res.Name, numSources, res.Output, res.Duration, "")
	}
	return cli.WriteJSONReports(out, reports)
}
