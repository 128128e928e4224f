// Package calibration tunes the launch geometry of the parallel backends
// for the current machine and persists the result as a JSON profile.
package calibration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/agbru/dftcalc/internal/dft"
)

// CalibrationProfile is the outcome of a calibration run together with the
// hardware it was measured on.
type CalibrationProfile struct {
	CPUModel  string `json:"cpu_model"`
	NumCPU    int    `json:"num_cpu"`
	GOARCH    string `json:"goarch"`
	GOOS      string `json:"goos"`
	GoVersion string `json:"go_version"`
	WordSize  int    `json:"word_size"`

	// OptimalNumBlocks is the fastest accelerator block count.
	OptimalNumBlocks int `json:"optimal_num_blocks"`
	// OptimalChunkSize is the fastest task-scheduled chunk size, measured
	// at CalibrationVisibilities.
	OptimalChunkSize int `json:"optimal_chunk_size"`

	CalibrationSources      int       `json:"calibration_sources"`
	CalibrationVisibilities int       `json:"calibration_visibilities"`
	CalibratedAt            time.Time `json:"calibrated_at"`
	CalibrationTime         string    `json:"calibration_time"`

	ProfileVersion int `json:"profile_version"`
}

const (
	// CurrentProfileVersion changes whenever the profile layout does.
	CurrentProfileVersion = 1

	// DefaultProfileFileName is created in the user's home directory.
	DefaultProfileFileName = ".dftcalc_calibration.json"

	// MaxProfileAge is how long a cached profile is trusted at startup.
	MaxProfileAge = 30 * 24 * time.Hour
)

// GetDefaultProfilePath returns ~/.dftcalc_calibration.json, or the bare
// file name when the home directory is unknown.
func GetDefaultProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultProfileFileName
	}
	return filepath.Join(home, DefaultProfileFileName)
}

func resolveProfilePath(path string) string {
	if path == "" {
		return GetDefaultProfilePath()
	}
	return path
}

// NewProfile returns an empty profile stamped with the current hardware.
func NewProfile() *CalibrationProfile {
	return &CalibrationProfile{
		CPUModel:       fmt.Sprintf("%s-%d-cores (%s)", runtime.GOARCH, runtime.NumCPU(), dft.HostFeatures()),
		NumCPU:         runtime.NumCPU(),
		GOARCH:         runtime.GOARCH,
		GOOS:           runtime.GOOS,
		GoVersion:      runtime.Version(),
		WordSize:       32 << (^uint(0) >> 63),
		CalibratedAt:   time.Now(),
		ProfileVersion: CurrentProfileVersion,
	}
}

// LoadProfile reads a profile. An empty path reads the default location.
func LoadProfile(path string) (*CalibrationProfile, error) {
	data, err := os.ReadFile(resolveProfilePath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var profile CalibrationProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	return &profile, nil
}

// SaveProfile writes p as indented JSON, creating the parent directory.
func (p *CalibrationProfile) SaveProfile(path string) error {
	path = resolveProfilePath(path)

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create profile directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

// IsValid reports whether p was written by this profile version on
// hardware matching the current machine, and holds usable values.
func (p *CalibrationProfile) IsValid() bool {
	if p == nil || p.ProfileVersion != CurrentProfileVersion {
		return false
	}
	if p.NumCPU != runtime.NumCPU() || p.GOARCH != runtime.GOARCH {
		return false
	}
	if p.WordSize != 32<<(^uint(0)>>63) {
		return false
	}
	return p.OptimalNumBlocks > 0 && p.OptimalChunkSize > 0
}

// IsStale reports whether p is older than maxAge.
func (p *CalibrationProfile) IsStale(maxAge time.Duration) bool {
	if p == nil {
		return true
	}
	return time.Since(p.CalibratedAt) > maxAge
}

// ChunkSizeFor scales the calibrated chunk size to numVisibilities,
// keeping the number of chunks per worker that won the calibration.
func (p *CalibrationProfile) ChunkSizeFor(numVisibilities int) int {
	if p == nil || p.OptimalChunkSize <= 0 || p.CalibrationVisibilities <= 0 {
		return 0
	}
	chunks := max(1, p.CalibrationVisibilities/p.OptimalChunkSize)
	return max(dft.DefaultMinChunkSize, (numVisibilities+chunks-1)/chunks)
}

func (p *CalibrationProfile) String() string {
	if p == nil {
		return "<nil profile>"
	}
	return fmt.Sprintf("CalibrationProfile{CPU: %s, Blocks: %d, Chunk: %d @ %d visibilities, Calibrated: %s}",
		p.CPUModel, p.OptimalNumBlocks, p.OptimalChunkSize, p.CalibrationVisibilities,
		p.CalibratedAt.Format(time.RFC3339))
}

// ProfileExists reports whether a profile file is present at path.
func ProfileExists(path string) bool {
	_, err := os.Stat(resolveProfilePath(path))
	return err == nil
}
