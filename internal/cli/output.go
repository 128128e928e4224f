package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/agbru/dftcalc/internal/dataio"
	"github.com/agbru/dftcalc/internal/dft"
)

// OutputConfig holds configuration for result output.
type OutputConfig struct {
	// OutputFile is the visibility file to write; empty skips writing.
	OutputFile string
	// FrequencyHz converts wavelengths back to metres when writing.
	FrequencyHz float64
	// Quiet prints a single line suitable for scripts.
	Quiet bool
	// JSON prints a machine-readable ExtractionReport instead of text.
	JSON bool
	// Preview prints the first few extracted visibilities.
	Preview bool
}

// ExtractionReport is the JSON form of one extraction.
type ExtractionReport struct {
	Backend       string  `json:"backend"`
	Sources       int     `json:"sources"`
	Visibilities  int     `json:"visibilities"`
	DurationMS    float64 `json:"duration_ms"`
	NaNCount      int     `json:"nan_count"`
	PeakAmplitude float64 `json:"peak_amplitude"`
	PeakIndex     int     `json:"peak_index"`
	MeanAmplitude float64 `json:"mean_amplitude"`
	OutputFile    string  `json:"output_file,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// NewExtractionReport builds the report of one successful extraction.
func NewExtractionReport(backend string, numSources int, output []dft.Complex, duration time.Duration, outputFile string) ExtractionReport {
	s := Summarize(output)
	return ExtractionReport{
		Backend:       backend,
		Sources:       numSources,
		Visibilities:  s.Count,
		DurationMS:    float64(duration.Microseconds()) / 1000,
		NaNCount:      s.NaNCount,
		PeakAmplitude: s.PeakAmplitude,
		PeakIndex:     s.PeakIndex,
		MeanAmplitude: s.MeanAmplitude,
		OutputFile:    outputFile,
	}
}

// WriteJSONReport encodes report as indented JSON followed by a newline.
func WriteJSONReport(out io.Writer, report ExtractionReport) error {
	return writeIndentedJSON(out, report)
}

// WriteJSONReports encodes the reports of a comparison run as one array.
func WriteJSONReports(out io.Writer, reports []ExtractionReport) error {
	return writeIndentedJSON(out, reports)
}

func writeIndentedJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteOutputFile saves the extraction in the visibility file format,
// creating the parent directory if needed.
func WriteOutputFile(visibilities []dft.Visibility, output []dft.Complex, config OutputConfig) error {
	if config.OutputFile == "" {
		return nil
	}
	if dir := filepath.Dir(config.OutputFile); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := dataio.SaveVisibilitiesFile(config.OutputFile, config.FrequencyHz, visibilities, output); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// FormatQuietResult returns a one-line summary for scripts.
func FormatQuietResult(output []dft.Complex, duration time.Duration) string {
	s := Summarize(output)
	return fmt.Sprintf("visibilities=%d nan=%d peak=%g duration=%s",
		s.Count, s.NaNCount, s.PeakAmplitude, FormatExecutionDuration(duration))
}

// DisplayResultWithConfig writes the output file if requested and then
// prints the result in the mode selected by config.
func DisplayResultWithConfig(out io.Writer, backend string, numSources int, visibilities []dft.Visibility, output []dft.Complex, duration time.Duration, config OutputConfig) error {
	if err := WriteOutputFile(visibilities, output, config); err != nil {
		return err
	}

	switch {
	case config.JSON:
		return WriteJSONReport(out, NewExtractionReport(backend, numSources, output, duration, config.OutputFile))
	case config.Quiet:
		fmt.Fprintln(out, FormatQuietResult(output, duration))
	default:
		DisplayResult(out, backend, visibilities, output, duration, config.Preview)
		if config.OutputFile != "" {
			fmt.Fprintf(out, "\n%s✓ Output saved to: %s%s%s\n",
				ColorGreen(), ColorCyan(), config.OutputFile, ColorReset())
		}
	}
	return nil
}
