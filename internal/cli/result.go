package cli

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/agbru/dftcalc/internal/dft"
)

// Summary describes an extracted visibility array.
type Summary struct {
	Count int
	// NaNCount is the number of outputs with a NaN component, produced by
	// sources outside the unit circle.
	NaNCount      int
	PeakIndex     int
	PeakAmplitude float64
	MeanAmplitude float64
}

// Summarize scans output once. NaN outputs are counted and excluded from
// the amplitude statistics. PeakIndex is -1 when no output is finite.
func Summarize(output []dft.Complex) Summary {
	s := Summary{Count: len(output), PeakIndex: -1}
	var total float64
	finite := 0
	for i, c := range output {
		if math.IsNaN(c.Real) || math.IsNaN(c.Imaginary) {
			s.NaNCount++
			continue
		}
		amp := math.Hypot(c.Real, c.Imaginary)
		total += amp
		finite++
		if s.PeakIndex < 0 || amp > s.PeakAmplitude {
			s.PeakIndex, s.PeakAmplitude = i, amp
		}
	}
	if finite > 0 {
		s.MeanAmplitude = total / float64(finite)
	}
	return s
}

// DisplayResult prints the summary of one extraction and, when preview is
// set, its first PreviewRows visibilities.
func DisplayResult(out io.Writer, backend string, visibilities []dft.Visibility, output []dft.Complex, duration time.Duration, preview bool) {
	s := Summarize(output)
	durationStr := FormatExecutionDuration(duration)

	fmt.Fprintf(out, "\n%s--- Extraction result (%s) ---%s\n", ColorBold(), backend, ColorReset())
	fmt.Fprintf(out, "Extraction time   : %s%s%s\n", ColorGreen(), durationStr, ColorReset())
	fmt.Fprintf(out, "Visibilities      : %s%s%s\n", ColorCyan(), formatCount(s.Count), ColorReset())
	if s.NaNCount > 0 {
		fmt.Fprintf(out, "NaN outputs       : %s%s%s (sources outside the unit circle?)\n",
			ColorYellow(), formatCount(s.NaNCount), ColorReset())
	}
	if s.PeakIndex >= 0 {
		fmt.Fprintf(out, "Peak amplitude    : %s%.6g%s at index %d\n", ColorCyan(), s.PeakAmplitude, ColorReset(), s.PeakIndex)
		fmt.Fprintf(out, "Mean amplitude    : %s%.6g%s\n", ColorCyan(), s.MeanAmplitude, ColorReset())
	}

	if !preview || len(output) == 0 {
		return
	}
	rows := min(PreviewRows, len(output), len(visibilities))
	fmt.Fprintf(out, "\n%s--- First %d visibilities ---%s\n", ColorBold(), rows, ColorReset())
	for i := 0; i < rows; i++ {
		v, c := visibilities[i], output[i]
		fmt.Fprintf(out, "[%d] u=%.6g v=%.6g w=%.6g -> %s%.9g %+.9gi%s\n",
			i, v.U, v.V, v.W, ColorGreen(), c.Real, c.Imaginary, ColorReset())
	}
	if len(output) > rows {
		fmt.Fprintf(out, "... %s more\n", formatCount(len(output)-rows))
	}
	if plot := AmplitudePlot(output); plot != "" {
		fmt.Fprintf(out, "\n%s\n", plot)
	}
}
