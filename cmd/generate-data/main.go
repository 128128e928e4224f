// Command generate-data writes the example sources and visibilities files
// read by dftcalc by default, and optionally a reference output computed
// with the sequential backend for use with -compare-with.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agbru/dftcalc/internal/config"
	"github.com/agbru/dftcalc/internal/dataio"
	"github.com/agbru/dftcalc/internal/dft"
)

type options struct {
	outDir          string
	numSources      int
	numVisibilities int
	seed            uint64
	reference       bool
}

func main() {
	var opts options
	flag.StringVar(&opts.outDir, "out", "data", "Output directory")
	flag.IntVar(&opts.numSources, "sources", 16, "Number of sources")
	flag.IntVar(&opts.numVisibilities, "visibilities", config.DefaultNumVisibilities, "Number of visibilities")
	flag.Uint64Var(&opts.seed, "seed", config.DefaultSeed, "Generator seed")
	flag.BoolVar(&opts.reference, "reference", true, "Also write the sequential reference output")
	flag.Parse()

	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, out io.Writer) error {
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	params := dataio.ParamsForGrid(config.DefaultGridSize, config.DefaultCellSize)
	synth := dataio.NewSynthesizer(opts.seed)
	sources := synth.Sources(opts.numSources, params)
	visibilities, err := synth.Visibilities(opts.numVisibilities, params)
	if err != nil {
		return err
	}

	sourcesPath := filepath.Join(opts.outDir, filepath.Base(config.DefaultSourcesFile))
	if err := writeFile(sourcesPath, func(w io.Writer) error {
		return dataio.SaveSources(w, config.DefaultCellSize, sources)
	}); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %d sources to %s\n", len(sources), sourcesPath)

	// Input visibilities carry no measured brightness.
	visPath := filepath.Join(opts.outDir, filepath.Base(config.DefaultVisibilitiesFile))
	if err := dataio.SaveVisibilitiesFile(visPath, config.DefaultFrequencyHz, visibilities, make([]dft.Complex, len(visibilities))); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %d visibilities to %s\n", len(visibilities), visPath)

	if !opts.reference {
		return nil
	}

	// Extract from the files just written so the reference matches what
	// dftcalc reads, rounding included.
	sources, err = dataio.LoadSourcesFile(sourcesPath, config.DefaultCellSize)
	if err != nil {
		return err
	}
	visibilities, err = dataio.LoadVisibilitiesFile(visPath, config.DefaultFrequencyHz)
	if err != nil {
		return err
	}
	extractor, err := dft.NewDefaultFactory().Get(dft.Sequential)
	if err != nil {
		return err
	}
	output := make([]dft.Complex, len(visibilities))
	if err := extractor.Extract(context.Background(), nil, 0, dft.Options{}, sources, visibilities, output); err != nil {
		return err
	}
	refPath := filepath.Join(opts.outDir, "reference_output.txt")
	if err := dataio.SaveVisibilitiesFile(refPath, config.DefaultFrequencyHz, visibilities, output); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote the sequential reference to %s\n", refPath)
	return nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}
