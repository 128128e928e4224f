package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agbru/dftcalc/internal/dataio"
	"github.com/agbru/dftcalc/internal/dft"
)

func TestWriteOutputFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "out.txt")
	vis := []dft.Visibility{{U: 1, V: 2, W: 3}, {U: -1, V: 0.5, W: 0}}
	out := []dft.Complex{{Real: 1, Imaginary: -0.5}, {Real: 0.25, Imaginary: 0}}

	cfg := OutputConfig{OutputFile: path, FrequencyHz: dataio.SpeedOfLight}
	if err := WriteOutputFile(vis, out, cfg); err != nil {
		t.Fatalf("WriteOutputFile() error = %v", err)
	}

	records, err := dataio.LoadRecordsFile(path, dataio.SpeedOfLight)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if len(records) != 2 || records[1].Brightness.Real != 0.25 || records[0].Visibility.W != 3 {
		t.Errorf("unexpected records %+v", records)
	}
}

func TestWriteOutputFile_Disabled(t *testing.T) {
	t.Parallel()
	if err := WriteOutputFile(nil, nil, OutputConfig{}); err != nil {
		t.Errorf("empty OutputFile should be a no-op, got %v", err)
	}
}

func TestWriteJSONReport(t *testing.T) {
	t.Parallel()
	out := []dft.Complex{{Real: 3, Imaginary: 4}, {Real: 0, Imaginary: 1}}
	report := NewExtractionReport("task_scheduled", 2, out, 1500*time.Microsecond, "out.txt")

	var buf bytes.Buffer
	if err := WriteJSONReport(&buf, report); err != nil {
		t.Fatalf("WriteJSONReport() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	checks := map[string]any{
		"backend":        "task_scheduled",
		"sources":        2.0,
		"visibilities":   2.0,
		"duration_ms":    1.5,
		"peak_amplitude": 5.0,
		"output_file":    "out.txt",
	}
	for key, want := range checks {
		if decoded[key] != want {
			t.Errorf("%s = %v, want %v", key, decoded[key], want)
		}
	}
}

func TestFormatQuietResult(t *testing.T) {
	t.Parallel()
	got := FormatQuietResult([]dft.Complex{{Real: 2}}, 10*time.Millisecond)
	want := "visibilities=1 nan=0 peak=2 duration=10ms"
	if got != want {
		t.Errorf("FormatQuietResult() = %q, want %q", got, want)
	}
}

func TestDisplayResultWithConfig(t *testing.T) {
	t.Parallel()
	vis := []dft.Visibility{{U: 1}}
	out := []dft.Complex{{Real: 1}}

	tests := []struct {
		name   string
		config OutputConfig
		want   string
	}{
		{"Quiet", OutputConfig{Quiet: true}, "visibilities=1"},
		{"JSON", OutputConfig{JSON: true, Quiet: true}, `"backend": "sequential"`},
		{"Standard", OutputConfig{}, "Extraction result"},
		{"With file", OutputConfig{OutputFile: "placeholder"}, "Output saved to"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := tt.config
			if cfg.OutputFile != "" {
				cfg.OutputFile = filepath.Join(t.TempDir(), "vis.txt")
				cfg.FrequencyHz = dataio.SpeedOfLight
			}
			var buf bytes.Buffer
			if err := DisplayResultWithConfig(&buf, "sequential", 1, vis, out, time.Millisecond, cfg); err != nil {
				t.Fatalf("DisplayResultWithConfig() error = %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, buf.String())
			}
			if cfg.OutputFile != "" {
				if _, err := os.Stat(cfg.OutputFile); err != nil {
					t.Errorf("output file not written: %v", err)
				}
			}
		})
	}
}
