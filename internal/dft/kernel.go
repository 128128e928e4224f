package dft

import "math"

// twoPi is 2π, the factor applied to every phase before rotation.
const twoPi = 2.0 * math.Pi

// ComputeVisibility evaluates the direct Fourier sum of all sources at one
// visibility coordinate.
//
// For each source the contribution is
//
//	ic       = sqrt(1 - l² - m²)
//	phase    = u·l + v·m + w·(ic - 1)
//	rotator  = (cos 2π·phase, -sin 2π·phase)
//	result  += rotator · intensity / ic
//
// When forceZeroW is set the w coordinate is treated as 0. Sources with
// l² + m² > 1 make ic NaN, and the NaN is propagated into the sum on purpose.
// The accumulator starts at (0, 0), so an empty source slice yields (0, 0).
func ComputeVisibility(vis Visibility, sources []Source, forceZeroW bool) Complex {
	w := vis.W
	if forceZeroW {
		w = 0
	}

	var sum Complex
	for i := range sources {
		src := &sources[i]
		imageCorrection := math.Sqrt(1.0 - src.L*src.L - src.M*src.M)
		phase := vis.U*src.L + vis.V*src.M + w*(imageCorrection-1.0)

		sin, cos := math.Sincos(twoPi * phase)
		sum = sum.Add(Complex{Real: cos, Imaginary: -sin}.Scale(src.Intensity / imageCorrection))
	}
	return sum
}

// extractRange writes the kernel result for visibilities[start:end] into the
// matching slots of output. It never touches slots outside [start, end).
func extractRange(sources []Source, visibilities []Visibility, output []Complex, start, end int, forceZeroW bool) {
	for i := start; i < end; i++ {
		output[i] = ComputeVisibility(visibilities[i], sources, forceZeroW)
	}
}
