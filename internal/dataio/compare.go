package dataio

import (
	"fmt"
	"math"
)

// DefaultRowTolerance is the per-value absolute difference above which a
// row is reported by CompareRecords.
const DefaultRowTolerance = 1e-3

// ComparisonReport summarizes the difference between two output files.
type ComparisonReport struct {
	Rows int
	// TotalAbsDiff sums |a-b| over every column of every row.
	TotalAbsDiff float64
	// MaxAbsDiff is the largest single-column difference.
	MaxAbsDiff float64
	// RowsOverTolerance lists the 0-based rows with any column above the
	// tolerance.
	RowsOverTolerance []int
}

// Within reports whether no row exceeded the tolerance.
func (r ComparisonReport) Within() bool {
	return len(r.RowsOverTolerance) == 0
}

// CompareRecords diffs two saved outputs column by column. Both must hold
// the same number of rows. A NaN on both sides counts as equal.
func CompareRecords(a, b []VisibilityRecord, tolerance float64) (ComparisonReport, error) {
	if len(a) != len(b) {
		return ComparisonReport{}, fmt.Errorf("row count mismatch: %d vs %d", len(a), len(b))
	}
	report := ComparisonReport{Rows: len(a)}
	for i := range a {
		over := false
		for _, pair := range [][2]float64{
			{a[i].Visibility.U, b[i].Visibility.U},
			{a[i].Visibility.V, b[i].Visibility.V},
			{a[i].Visibility.W, b[i].Visibility.W},
			{a[i].Brightness.Real, b[i].Brightness.Real},
			{a[i].Brightness.Imaginary, b[i].Brightness.Imaginary},
			{a[i].Intensity, b[i].Intensity},
		} {
			d := absDiff(pair[0], pair[1])
			report.TotalAbsDiff += d
			report.MaxAbsDiff = math.Max(report.MaxAbsDiff, d)
			if d > tolerance {
				over = true
			}
		}
		if over {
			report.RowsOverTolerance = append(report.RowsOverTolerance, i)
		}
	}
	return report, nil
}

func absDiff(a, b float64) float64 {
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return 0
	case math.IsNaN(a) || math.IsNaN(b):
		return math.Inf(1)
	}
	return math.Abs(a - b)
}
