package dft

import (
	"math"
	"testing"
)

const kernelTolerance = 1e-12

func approxEqual(a, b, tol float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestComputeVisibility(t *testing.T) {
	t.Parallel()
	ic := math.Sqrt(1 - 0.25*0.25)
	tests := []struct {
		name       string
		vis        Visibility
		sources    []Source
		forceZeroW bool
		want       Complex
		exact      bool
	}{
		{
			name:    "No sources",
			vis:     Visibility{U: 10, V: -3, W: 1},
			sources: nil,
			want:    Complex{},
			exact:   true,
		},
		{
			name:    "Phase center source",
			vis:     Visibility{U: 123.4, V: -56.7, W: 8.9},
			sources: []Source{{L: 0, M: 0, Intensity: 2.5}},
			want:    Complex{Real: 2.5},
			exact:   true,
		},
		{
			name:    "Quarter turn has negative imaginary part",
			vis:     Visibility{U: 1},
			sources: []Source{{L: 0.25, M: 0, Intensity: 1}},
			want:    Complex{Real: 0, Imaginary: -1 / ic},
		},
		{
			name:    "W term rotates phase",
			vis:     Visibility{W: 1},
			sources: []Source{{L: 0.6, M: 0, Intensity: 1}},
			want: Complex{
				Real:      math.Cos(twoPi*-0.2) / 0.8,
				Imaginary: -math.Sin(twoPi*-0.2) / 0.8,
			},
		},
		{
			name:       "Force zero W ignores w",
			vis:        Visibility{W: 1},
			sources:    []Source{{L: 0.6, M: 0, Intensity: 1}},
			forceZeroW: true,
			want:       Complex{Real: 1.25},
		},
		{
			name: "Contributions sum",
			vis:  Visibility{U: 0.5, V: 0.5},
			sources: []Source{
				{L: 0, M: 0, Intensity: 1},
				{L: 0, M: 0, Intensity: 3},
			},
			want:  Complex{Real: 4},
			exact: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ComputeVisibility(tt.vis, tt.sources, tt.forceZeroW)
			if tt.exact {
				if got != tt.want {
					t.Errorf("ComputeVisibility() = %+v, want exactly %+v", got, tt.want)
				}
				return
			}
			if !approxEqual(got.Real, tt.want.Real, kernelTolerance) ||
				!approxEqual(got.Imaginary, tt.want.Imaginary, kernelTolerance) {
				t.Errorf("ComputeVisibility() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestComputeVisibility_OutsideUnitCircleIsNaN(t *testing.T) {
	t.Parallel()
	got := ComputeVisibility(Visibility{U: 1, V: 1}, []Source{
		{L: 0.1, M: 0.1, Intensity: 1},
		{L: 1, M: 1, Intensity: 1},
	}, false)
	if !math.IsNaN(got.Real) || !math.IsNaN(got.Imaginary) {
		t.Errorf("expected NaN result, got %+v", got)
	}
}

func TestExtractRange_WritesOnlyRange(t *testing.T) {
	t.Parallel()
	sources := []Source{{Intensity: 1}}
	visibilities := make([]Visibility, 6)
	sentinel := Complex{Real: -7, Imaginary: -7}
	output := []Complex{sentinel, sentinel, sentinel, sentinel, sentinel, sentinel}

	extractRange(sources, visibilities, output, 2, 4, false)

	for i, c := range output {
		inRange := i >= 2 && i < 4
		if inRange && c != (Complex{Real: 1}) {
			t.Errorf("output[%d] = %+v, want (1, 0)", i, c)
		}
		if !inRange && c != sentinel {
			t.Errorf("output[%d] was modified: %+v", i, c)
		}
	}
}

func TestComplexArithmetic(t *testing.T) {
	t.Parallel()
	c := Complex{Real: 1, Imaginary: -2}.Add(Complex{Real: 0.5, Imaginary: 4})
	if c != (Complex{Real: 1.5, Imaginary: 2}) {
		t.Errorf("Add() = %+v", c)
	}
	if s := c.Scale(2); s != (Complex{Real: 3, Imaginary: 4}) {
		t.Errorf("Scale() = %+v", s)
	}
}

func BenchmarkComputeVisibility(b *testing.B) {
	sources := make([]Source, 100)
	for i := range sources {
		sources[i] = Source{L: float64(i) * 1e-4, M: float64(i) * -1e-4, Intensity: 1}
	}
	vis := Visibility{U: 100, V: -250, W: 12}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ComputeVisibility(vis, sources, false)
	}
}
