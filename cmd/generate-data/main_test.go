package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/agbru/dftcalc/internal/config"
	"github.com/agbru/dftcalc/internal/dataio"
)

func TestRun(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "data")
	var out bytes.Buffer
	if err := run(options{outDir: dir, numSources: 4, numVisibilities: 32, seed: 3, reference: true}, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	sources, err := dataio.LoadSourcesFile(filepath.Join(dir, "example_sources.txt"), config.DefaultCellSize)
	if err != nil || len(sources) != 4 {
		t.Fatalf("sources = %d, %v", len(sources), err)
	}
	ref, err := dataio.LoadRecordsFile(filepath.Join(dir, "reference_output.txt"), config.DefaultFrequencyHz)
	if err != nil || len(ref) != 32 {
		t.Fatalf("reference rows = %d, %v", len(ref), err)
	}
	var nonZero bool
	for _, r := range ref {
		if r.Brightness.Real != 0 || r.Brightness.Imaginary != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Error("reference output is all zeros")
	}
}
