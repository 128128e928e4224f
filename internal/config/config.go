// Package config defines the dftcalc configuration, parses it from flags,
// environment variables and an optional YAML file, and validates it.
package config

import (
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/agbru/dftcalc/internal/dft"
	apperrors "github.com/agbru/dftcalc/internal/errors"
	"github.com/agbru/dftcalc/internal/logging"
)

// EnvPrefix is the prefix of every environment variable read by dftcalc.
const EnvPrefix = "DFT_"

// BackendAll runs every registered backend and compares them.
const BackendAll = "all"

// Default configuration values.
const (
	DefaultBackend          = BackendAll
	DefaultNumSources       = 1
	DefaultNumVisibilities  = 10000
	DefaultSourcesFile      = "data/example_sources.txt"
	DefaultVisibilitiesFile = "data/example_visibilities.txt"
	DefaultOutputFile       = "data/vis_output_test.csv"
	DefaultGridSize         = 1024
	DefaultCellSize         = 4.848136811095360e-06
	DefaultFrequencyHz      = 300e6
	DefaultSeed             = 1
	DefaultPort             = "8080"
	DefaultLogLevel         = "warn"
)

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	// Backend is a backend identifier or BackendAll.
	Backend string `yaml:"backend"`

	NumSources            int    `yaml:"num_sources"`
	NumVisibilities       int    `yaml:"num_visibilities"`
	ForceZeroW            bool   `yaml:"force_zero_w"`
	SyntheticSources      bool   `yaml:"synthetic_sources"`
	SyntheticVisibilities bool   `yaml:"synthetic_visibilities"`
	GaussianDistribution  bool   `yaml:"gaussian_distribution"`
	Seed                  uint64 `yaml:"seed"`

	SourcesFile      string `yaml:"sources_file"`
	VisibilitiesFile string `yaml:"visibilities_file"`
	OutputFile       string `yaml:"output_file"`
	// CompareWith is an optional previously saved output to diff against.
	CompareWith string `yaml:"compare_with"`

	GridSize    int     `yaml:"grid_size"`
	CellSize    float64 `yaml:"cell_size"`
	FrequencyHz float64 `yaml:"frequency_hz"`

	NumBlocks          int `yaml:"num_blocks"`
	LanesPerBlock      int `yaml:"lanes_per_block"`
	ChunkSize          int `yaml:"chunk_size"`
	CPUWorkers         int `yaml:"cpu_workers"`
	AcceleratorWorkers int `yaml:"accelerator_workers"`

	// Timeout bounds a CLI run. Zero means no limit.
	Timeout time.Duration `yaml:"timeout"`

	JSONOutput bool   `yaml:"json"`
	Quiet      bool   `yaml:"quiet"`
	Preview    bool   `yaml:"preview"`
	NoColor    bool   `yaml:"no_color"`
	LogLevel   string `yaml:"log_level"`

	ServerMode bool   `yaml:"server"`
	Port       string `yaml:"port"`

	Calibrate          bool   `yaml:"calibrate"`
	AutoCalibrate      bool   `yaml:"auto_calibrate"`
	CalibrationProfile string `yaml:"calibration_profile"`

	// ConfigFile is the YAML file the configuration was layered on.
	ConfigFile string `yaml:"-"`
	// DumpConfig prints the effective configuration as YAML and exits.
	DumpConfig bool `yaml:"-"`
	// Completion names a shell whose completion script is printed.
	Completion string `yaml:"-"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() AppConfig {
	return AppConfig{
		Backend:          DefaultBackend,
		NumSources:       DefaultNumSources,
		NumVisibilities:  DefaultNumVisibilities,
		Seed:             DefaultSeed,
		SourcesFile:      DefaultSourcesFile,
		VisibilitiesFile: DefaultVisibilitiesFile,
		OutputFile:       DefaultOutputFile,
		GridSize:         DefaultGridSize,
		CellSize:         DefaultCellSize,
		FrequencyHz:      DefaultFrequencyHz,
		NumBlocks:        dft.DefaultNumBlocks,
		Port:             DefaultPort,
		LogLevel:         DefaultLogLevel,
	}
}

// UVScale is the factor dividing synthetic visibility coordinates.
func (c AppConfig) UVScale() float64 {
	return float64(c.GridSize) * c.CellSize
}

// RunsAllBackends reports whether the comparison mode is selected.
func (c AppConfig) RunsAllBackends() bool {
	return c.Backend == BackendAll
}

// ToExtractionOptions converts the configuration to dft.Options.
func (c AppConfig) ToExtractionOptions() dft.Options {
	return dft.Options{
		ForceZeroWTerm:     c.ForceZeroW,
		NumBlocks:          c.NumBlocks,
		LanesPerBlock:      c.LanesPerBlock,
		ChunkSize:          c.ChunkSize,
		CPUWorkers:         c.CPUWorkers,
		AcceleratorWorkers: c.AcceleratorWorkers,
	}
}

// Validate checks value ranges and that Backend is BackendAll or one of
// availableBackends. It returns an apperrors.ConfigError.
func (c AppConfig) Validate(availableBackends []dft.BackendID) error {
	if c.Backend != BackendAll && !slices.Contains(availableBackends, dft.BackendID(c.Backend)) {
		names := make([]string, len(availableBackends))
		for i, id := range availableBackends {
			names[i] = string(id)
		}
		return apperrors.NewConfigError("unrecognized backend: '%s'. Valid backends are: 'all' or [%s]", c.Backend, strings.Join(names, ", "))
	}
	if c.NumSources < 0 {
		return apperrors.NewConfigError("number of sources cannot be negative: %d", c.NumSources)
	}
	if c.NumVisibilities < 0 {
		return apperrors.NewConfigError("number of visibilities cannot be negative: %d", c.NumVisibilities)
	}
	if c.GridSize <= 0 {
		return apperrors.NewConfigError("grid size must be strictly positive: %d", c.GridSize)
	}
	if c.CellSize <= 0 {
		return apperrors.NewConfigError("cell size must be strictly positive: %g", c.CellSize)
	}
	if c.FrequencyHz <= 0 {
		return apperrors.NewConfigError("frequency must be strictly positive: %g", c.FrequencyHz)
	}
	if c.NumBlocks < 0 || c.LanesPerBlock < 0 || c.ChunkSize < 0 {
		return apperrors.NewConfigError("launch geometry and chunk size cannot be negative")
	}
	if c.Timeout < 0 {
		return apperrors.NewConfigError("timeout cannot be negative: %v", c.Timeout)
	}
	if !c.SyntheticSources && c.SourcesFile == "" {
		return apperrors.NewConfigError("a sources file is required unless synthetic sources are enabled")
	}
	if !c.SyntheticVisibilities && c.VisibilitiesFile == "" {
		return apperrors.NewConfigError("a visibilities file is required unless synthetic visibilities are enabled")
	}
	if c.ServerMode && c.Port == "" {
		return apperrors.NewConfigError("server mode requires a port")
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return apperrors.NewConfigError("unknown log level: '%s'", c.LogLevel)
	}
	return nil
}

// newFlagSet binds every flag to cfg, using defaults for the default values.
func newFlagSet(programName string, errorWriter io.Writer, cfg *AppConfig, defaults AppConfig, availableBackends []dft.BackendID) *flag.FlagSet {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errorWriter)

	names := make([]string, len(availableBackends))
	for i, id := range availableBackends {
		names[i] = string(id)
	}
	backendHelp := fmt.Sprintf("Backend to run: 'all' or one of [%s] (aliases: cpu, cuda, starpu).", strings.Join(names, ", "))

	fs.StringVar(&cfg.Backend, "backend", defaults.Backend, backendHelp)
	fs.StringVar(&cfg.Backend, "mode", defaults.Backend, "Alias for -backend.")
	fs.IntVar(&cfg.NumSources, "sources", defaults.NumSources, "Number of synthetic sources.")
	fs.IntVar(&cfg.NumVisibilities, "visibilities", defaults.NumVisibilities, "Number of synthetic visibilities.")
	fs.BoolVar(&cfg.ForceZeroW, "force-zero-w", defaults.ForceZeroW, "Ignore the visibility w coordinate.")
	fs.BoolVar(&cfg.SyntheticSources, "synthetic-sources", defaults.SyntheticSources, "Generate random sources instead of reading a file.")
	fs.BoolVar(&cfg.SyntheticVisibilities, "synthetic-visibilities", defaults.SyntheticVisibilities, "Generate random visibilities instead of reading a file.")
	fs.BoolVar(&cfg.GaussianDistribution, "gaussian", defaults.GaussianDistribution, "Scale synthetic visibility coordinates by a normal sample.")
	fs.Uint64Var(&cfg.Seed, "seed", defaults.Seed, "Seed of the synthetic data generator.")
	fs.StringVar(&cfg.SourcesFile, "sources-file", defaults.SourcesFile, "Sources input file.")
	fs.StringVar(&cfg.VisibilitiesFile, "visibilities-file", defaults.VisibilitiesFile, "Visibilities input file.")
	fs.StringVar(&cfg.OutputFile, "output", defaults.OutputFile, "Destination of the extracted visibilities (empty to skip).")
	fs.StringVar(&cfg.OutputFile, "o", defaults.OutputFile, "Output file (shorthand).")
	fs.StringVar(&cfg.CompareWith, "compare-with", defaults.CompareWith, "Previously saved output to compare the result against.")
	fs.IntVar(&cfg.GridSize, "grid-size", defaults.GridSize, "Fourier domain grid dimension.")
	fs.Float64Var(&cfg.CellSize, "cell-size", defaults.CellSize, "Grid cell size in radians.")
	fs.Float64Var(&cfg.FrequencyHz, "frequency", defaults.FrequencyHz, "Observation frequency in Hz.")
	fs.IntVar(&cfg.NumBlocks, "blocks", defaults.NumBlocks, "Accelerator blocks per launch.")
	fs.IntVar(&cfg.LanesPerBlock, "lanes", defaults.LanesPerBlock, "Accelerator lanes per block (0 = derived from the workload).")
	fs.IntVar(&cfg.ChunkSize, "chunk-size", defaults.ChunkSize, "Visibilities per task-scheduled work unit (0 = adaptive).")
	fs.IntVar(&cfg.CPUWorkers, "cpu-workers", defaults.CPUWorkers, "Task-scheduler CPU workers (0 = NumCPU, negative disables).")
	fs.IntVar(&cfg.AcceleratorWorkers, "accelerator-workers", defaults.AcceleratorWorkers, "Task-scheduler accelerator workers (0 = 1, negative disables).")
	fs.DurationVar(&cfg.Timeout, "timeout", defaults.Timeout, "Maximum run time (0 = unlimited).")
	fs.BoolVar(&cfg.JSONOutput, "json", defaults.JSONOutput, "Print the run summary as JSON.")
	fs.BoolVar(&cfg.Quiet, "quiet", defaults.Quiet, "Quiet mode - minimal output for scripts.")
	fs.BoolVar(&cfg.Quiet, "q", defaults.Quiet, "Quiet mode (shorthand).")
	fs.BoolVar(&cfg.Preview, "preview", defaults.Preview, "Print the first extracted visibilities.")
	fs.BoolVar(&cfg.NoColor, "no-color", defaults.NoColor, "Disable colored output (also respects NO_COLOR env var).")
	fs.StringVar(&cfg.LogLevel, "log-level", defaults.LogLevel, "Log level: debug, info, warn, error, off.")
	fs.BoolVar(&cfg.ServerMode, "server", defaults.ServerMode, "Start in HTTP server mode.")
	fs.StringVar(&cfg.Port, "port", defaults.Port, "Port to listen on in server mode.")
	fs.BoolVar(&cfg.Calibrate, "calibrate", defaults.Calibrate, "Benchmark chunk sizes and lane counts and save a profile.")
	fs.BoolVar(&cfg.AutoCalibrate, "auto-calibrate", defaults.AutoCalibrate, "Apply a saved or estimated calibration profile at startup.")
	fs.StringVar(&cfg.CalibrationProfile, "calibration-profile", defaults.CalibrationProfile, "Calibration profile path (default: ~/.dftcalc_calibration.json).")
	fs.StringVar(&cfg.ConfigFile, "config", defaults.ConfigFile, "YAML configuration file.")
	fs.BoolVar(&cfg.DumpConfig, "dump-config", false, "Print the effective configuration as YAML and exit.")
	fs.StringVar(&cfg.Completion, "completion", "", "Print a completion script for bash, zsh or fish and exit.")

	setCustomUsage(fs)
	return fs
}

// ParseConfig builds the configuration with the priority
// flags > environment > YAML file > defaults, then validates it.
//
// The arguments are parsed twice: the first pass only discovers the -config
// path; the second binds the flags over defaults already layered with the
// file and the environment, so explicit flags always win.
func ParseConfig(programName string, args []string, errorWriter io.Writer, availableBackends []dft.BackendID) (AppConfig, error) {
	var probe AppConfig
	if err := newFlagSet(programName, errorWriter, &probe, DefaultConfig(), availableBackends).Parse(args); err != nil {
		return AppConfig{}, err
	}

	base := DefaultConfig()
	configFile := probe.ConfigFile
	if configFile == "" {
		configFile = getEnvString("CONFIG", "")
	}
	if configFile != "" {
		loaded, err := LoadFile(configFile, base)
		if err != nil {
			fmt.Fprintln(errorWriter, "Configuration error:", err)
			return AppConfig{}, err
		}
		base = loaded
		base.ConfigFile = configFile
	}
	applyEnvOverrides(&base)

	var config AppConfig
	fs := newFlagSet(programName, errorWriter, &config, base, availableBackends)
	if err := fs.Parse(args); err != nil {
		return AppConfig{}, err
	}

	config.Backend = normalizeBackend(config.Backend)

	if err := config.Validate(availableBackends); err != nil {
		fmt.Fprintln(errorWriter, "Configuration error:", err)
		fs.Usage()
		return AppConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// normalizeBackend maps aliases and letter case onto canonical names.
// Empty input is returned unchanged so that Validate reports it.
func normalizeBackend(name string) string {
	if strings.EqualFold(strings.TrimSpace(name), BackendAll) {
		return BackendAll
	}
	id, err := dft.ParseBackendID(name)
	if err != nil {
		return name
	}
	return string(id)
}
