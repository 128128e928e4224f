// Package dft computes synthetic radio-interferometer visibilities from point
// sources with a direct Fourier summation. It exposes an `Extractor`
// interface over interchangeable execution backends (sequential reference,
// data-parallel accelerator, task-scheduled heterogeneous workers) which all
// produce the same output for the same inputs, up to summation-order rounding.
package dft

// Complex is a two-field complex value. It is used both as a brightness read
// from visibility files and as the per-visibility output accumulator.
type Complex struct {
	Real      float64
	Imaginary float64
}

// Add returns c + o.
func (c Complex) Add(o Complex) Complex {
	return Complex{Real: c.Real + o.Real, Imaginary: c.Imaginary + o.Imaginary}
}

// Scale multiplies both parts of c by the real factor s.
func (c Complex) Scale(s float64) Complex {
	return Complex{Real: c.Real * s, Imaginary: c.Imaginary * s}
}

// Source is a point-like sky brightness contributor.
//
// L and M are direction cosines already scaled by the grid cell size. The
// relation L² + M² ≤ 1 is expected but never enforced; sources outside the
// unit circle produce NaN contributions.
type Source struct {
	L         float64
	M         float64
	Intensity float64
}

// Visibility is one baseline coordinate (u, v, w) at which the sky brightness
// is sampled.
type Visibility struct {
	U float64
	V float64
	W float64
}
