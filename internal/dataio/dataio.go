// Package dataio reads and writes the whitespace-separated source and
// visibility files and synthesizes random workloads.
//
// Both input formats start with a line holding the record count, followed by
// one record per line:
//
//	sources:       l m intensity
//	visibilities:  u v w real imag intensity
//
// Output files use the visibility format with the computed brightness and a
// fixed intensity of 1.0.
package dataio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/agbru/dftcalc/internal/dft"
)

// SpeedOfLight in metres per second.
const SpeedOfLight = 299792458.0

// ParseError reports a malformed input line. Line is 1-based.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// WavelengthScale returns the factor converting file coordinates to the
// units used by the kernel.
func WavelengthScale(frequencyHz float64) float64 {
	return frequencyHz / SpeedOfLight
}

// lineReader yields non-blank lines with their 1-based number.
type lineReader struct {
	scanner *bufio.Scanner
	line    int
}

func newLineReader(r io.Reader) *lineReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &lineReader{scanner: scanner}
}

func (lr *lineReader) next() ([]string, bool, error) {
	for lr.scanner.Scan() {
		lr.line++
		fields := strings.Fields(lr.scanner.Text())
		if len(fields) > 0 {
			return fields, true, nil
		}
	}
	return nil, false, lr.scanner.Err()
}

// maxPrealloc bounds the capacity reserved from a header count; larger
// files grow as their lines are read.
const maxPrealloc = 1 << 16

// readHeader parses the record count.
func (lr *lineReader) readHeader() (int, error) {
	fields, ok, err := lr.next()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &ParseError{Line: lr.line + 1, Reason: "missing record count"}
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return 0, &ParseError{Line: lr.line, Reason: fmt.Sprintf("invalid record count %q", fields[0])}
	}
	return n, nil
}

// readRecord parses the first width fields of the next line as floats.
func (lr *lineReader) readRecord(width int, dst []float64) error {
	fields, ok, err := lr.next()
	if err != nil {
		return err
	}
	if !ok {
		return &ParseError{Line: lr.line + 1, Reason: "unexpected end of file"}
	}
	if len(fields) < width {
		return &ParseError{Line: lr.line, Reason: fmt.Sprintf("expected %d values, got %d", width, len(fields))}
	}
	for i := 0; i < width; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return &ParseError{Line: lr.line, Reason: fmt.Sprintf("invalid number %q", fields[i])}
		}
		dst[i] = v
	}
	return nil
}

// LoadSources reads a sources file. l and m are multiplied by cellSize.
func LoadSources(r io.Reader, cellSize float64) ([]dft.Source, error) {
	lr := newLineReader(r)
	n, err := lr.readHeader()
	if err != nil {
		return nil, err
	}
	sources := make([]dft.Source, 0, min(n, maxPrealloc))
	var rec [3]float64
	for range n {
		if err := lr.readRecord(3, rec[:]); err != nil {
			return nil, err
		}
		sources = append(sources, dft.Source{L: rec[0] * cellSize, M: rec[1] * cellSize, Intensity: rec[2]})
	}
	return sources, nil
}

// VisibilityRecord is one row of a visibilities file.
type VisibilityRecord struct {
	Visibility dft.Visibility
	Brightness dft.Complex
	Intensity  float64
}

// LoadVisibilities reads a visibilities file. u, v and w are multiplied by
// WavelengthScale(frequencyHz). The brightness columns are returned as read.
func LoadVisibilities(r io.Reader, frequencyHz float64) ([]dft.Visibility, []dft.Complex, error) {
	records, err := LoadVisibilityRecords(r, frequencyHz)
	if err != nil {
		return nil, nil, err
	}
	visibilities := make([]dft.Visibility, len(records))
	brightness := make([]dft.Complex, len(records))
	for i, rec := range records {
		visibilities[i] = rec.Visibility
		brightness[i] = rec.Brightness
	}
	return visibilities, brightness, nil
}

// LoadVisibilityRecords reads every column of a visibilities file.
func LoadVisibilityRecords(r io.Reader, frequencyHz float64) ([]VisibilityRecord, error) {
	lr := newLineReader(r)
	n, err := lr.readHeader()
	if err != nil {
		return nil, err
	}
	scale := WavelengthScale(frequencyHz)
	records := make([]VisibilityRecord, 0, min(n, maxPrealloc))
	var rec [6]float64
	for range n {
		if err := lr.readRecord(6, rec[:]); err != nil {
			return nil, err
		}
		records = append(records, VisibilityRecord{
			Visibility: dft.Visibility{U: rec[0] * scale, V: rec[1] * scale, W: rec[2] * scale},
			Brightness: dft.Complex{Real: rec[3], Imaginary: rec[4]},
			Intensity:  rec[5],
		})
	}
	return records, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// SaveVisibilities writes visibilities with their extracted brightness.
// Coordinates are divided by WavelengthScale(frequencyHz), the inverse of
// LoadVisibilities.
func SaveVisibilities(w io.Writer, frequencyHz float64, visibilities []dft.Visibility, output []dft.Complex) error {
	if len(visibilities) != len(output) {
		return fmt.Errorf("%d visibilities but %d results", len(visibilities), len(output))
	}
	scale := WavelengthScale(frequencyHz)
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", len(visibilities))
	for i, v := range visibilities {
		fmt.Fprintf(bw, "%s %s %s %s %s 1.0\n",
			formatFloat(v.U/scale),
			formatFloat(v.V/scale),
			formatFloat(v.W/scale),
			formatFloat(output[i].Real),
			formatFloat(output[i].Imaginary))
	}
	return bw.Flush()
}

// SaveSources writes sources in the LoadSources format, dividing l and m by
// cellSize.
func SaveSources(w io.Writer, cellSize float64, sources []dft.Source) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", len(sources))
	for _, s := range sources {
		fmt.Fprintf(bw, "%s %s %s\n", formatFloat(s.L/cellSize), formatFloat(s.M/cellSize), formatFloat(s.Intensity))
	}
	return bw.Flush()
}
