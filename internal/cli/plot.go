package cli

import (
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/agbru/dftcalc/internal/dft"
)

const (
	// PlotWidth is the number of columns of the amplitude plot.
	PlotWidth = 64
	// PlotHeight is the number of rows of the amplitude plot.
	PlotHeight = 8
)

// amplitudeSeries returns the amplitudes of the finite outputs, reduced to
// at most width points by keeping the largest amplitude of each bucket.
func amplitudeSeries(output []dft.Complex, width int) []float64 {
	amps := make([]float64, 0, len(output))
	for _, c := range output {
		if math.IsNaN(c.Real) || math.IsNaN(c.Imaginary) {
			continue
		}
		amps = append(amps, math.Hypot(c.Real, c.Imaginary))
	}
	if width <= 0 || len(amps) <= width {
		return amps
	}

	series := make([]float64, width)
	for b := range series {
		lo := b * len(amps) / width
		hi := (b + 1) * len(amps) / width
		peak := amps[lo]
		for _, a := range amps[lo+1 : hi] {
			peak = math.Max(peak, a)
		}
		series[b] = peak
	}
	return series
}

// AmplitudePlot renders |V| against visibility index. It returns "" when
// fewer than two outputs are finite.
func AmplitudePlot(output []dft.Complex) string {
	series := amplitudeSeries(output, PlotWidth)
	if len(series) < 2 {
		return ""
	}
	return asciigraph.Plot(series,
		asciigraph.Height(PlotHeight),
		asciigraph.Caption("|V| by visibility index"),
	)
}
