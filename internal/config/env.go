package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// getEnvString returns EnvPrefix+key, or defaultVal when unset or empty.
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns EnvPrefix+key parsed as int, or defaultVal when unset
// or invalid.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvUint64(key string, defaultVal uint64) uint64 {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if parsed, err := strconv.ParseUint(val, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvFloat64(key string, defaultVal float64) float64 {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// getEnvBool accepts true/1/yes and false/0/no, case-insensitively.
func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// applyEnvOverrides replaces fields of config with the matching DFT_*
// environment variables. Explicit flags are bound afterwards and win.
//
// Supported variables: DFT_BACKEND, DFT_SOURCES, DFT_VISIBILITIES,
// DFT_FORCE_ZERO_W, DFT_SYNTHETIC_SOURCES, DFT_SYNTHETIC_VISIBILITIES,
// DFT_GAUSSIAN, DFT_SEED, DFT_SOURCES_FILE, DFT_VISIBILITIES_FILE,
// DFT_OUTPUT, DFT_COMPARE_WITH, DFT_GRID_SIZE, DFT_CELL_SIZE,
// DFT_FREQUENCY, DFT_BLOCKS, DFT_LANES, DFT_CHUNK_SIZE, DFT_CPU_WORKERS,
// DFT_ACCELERATOR_WORKERS, DFT_TIMEOUT, DFT_JSON, DFT_QUIET, DFT_NO_COLOR,
// DFT_LOG_LEVEL, DFT_SERVER, DFT_PORT, DFT_CALIBRATE, DFT_AUTO_CALIBRATE,
// DFT_CALIBRATION_PROFILE and DFT_CONFIG (read by ParseConfig).
func applyEnvOverrides(config *AppConfig) {
	applyWorkloadOverrides(config)
	applyPathOverrides(config)
	applyTuningOverrides(config)
	applyPresentationOverrides(config)
}

func applyWorkloadOverrides(config *AppConfig) {
	config.Backend = getEnvString("BACKEND", config.Backend)
	config.NumSources = getEnvInt("SOURCES", config.NumSources)
	config.NumVisibilities = getEnvInt("VISIBILITIES", config.NumVisibilities)
	config.ForceZeroW = getEnvBool("FORCE_ZERO_W", config.ForceZeroW)
	config.SyntheticSources = getEnvBool("SYNTHETIC_SOURCES", config.SyntheticSources)
	config.SyntheticVisibilities = getEnvBool("SYNTHETIC_VISIBILITIES", config.SyntheticVisibilities)
	config.GaussianDistribution = getEnvBool("GAUSSIAN", config.GaussianDistribution)
	config.Seed = getEnvUint64("SEED", config.Seed)
	config.GridSize = getEnvInt("GRID_SIZE", config.GridSize)
	config.CellSize = getEnvFloat64("CELL_SIZE", config.CellSize)
	config.FrequencyHz = getEnvFloat64("FREQUENCY", config.FrequencyHz)
}

func applyPathOverrides(config *AppConfig) {
	config.SourcesFile = getEnvString("SOURCES_FILE", config.SourcesFile)
	config.VisibilitiesFile = getEnvString("VISIBILITIES_FILE", config.VisibilitiesFile)
	config.OutputFile = getEnvString("OUTPUT", config.OutputFile)
	config.CompareWith = getEnvString("COMPARE_WITH", config.CompareWith)
	config.CalibrationProfile = getEnvString("CALIBRATION_PROFILE", config.CalibrationProfile)
}

func applyTuningOverrides(config *AppConfig) {
	config.NumBlocks = getEnvInt("BLOCKS", config.NumBlocks)
	config.LanesPerBlock = getEnvInt("LANES", config.LanesPerBlock)
	config.ChunkSize = getEnvInt("CHUNK_SIZE", config.ChunkSize)
	config.CPUWorkers = getEnvInt("CPU_WORKERS", config.CPUWorkers)
	config.AcceleratorWorkers = getEnvInt("ACCELERATOR_WORKERS", config.AcceleratorWorkers)
	config.Timeout = getEnvDuration("TIMEOUT", config.Timeout)
	config.Calibrate = getEnvBool("CALIBRATE", config.Calibrate)
	config.AutoCalibrate = getEnvBool("AUTO_CALIBRATE", config.AutoCalibrate)
}

func applyPresentationOverrides(config *AppConfig) {
	config.JSONOutput = getEnvBool("JSON", config.JSONOutput)
	config.Quiet = getEnvBool("QUIET", config.Quiet)
	config.Preview = getEnvBool("PREVIEW", config.Preview)
	config.NoColor = getEnvBool("NO_COLOR", config.NoColor)
	config.LogLevel = getEnvString("LOG_LEVEL", config.LogLevel)
	config.ServerMode = getEnvBool("SERVER", config.ServerMode)
	config.Port = getEnvString("PORT", config.Port)
}
