package dataio

import (
	"errors"
	"math"
	"math/rand/v2"

	"github.com/agbru/dftcalc/internal/dft"
)

// maxNormalAttempts bounds the rejection loop of the polar method. The
// acceptance rate is π/4, so exhausting it means the generator is broken.
const maxNormalAttempts = 64

// ErrNormalSampling is returned when no normal sample was accepted within
// maxNormalAttempts draws.
var ErrNormalSampling = errors.New("normal sampling did not converge")

// Range is a closed-open interval [Min, Max).
type Range struct {
	Min float64
	Max float64
}

// SynthesisParams describes a synthetic workload.
type SynthesisParams struct {
	CellSize float64
	UVScale  float64
	U, V, W  Range
	// Gaussian multiplies each visibility coordinate by a standard normal
	// sample, concentrating samples near the grid center.
	Gaussian bool
}

// ParamsForGrid returns the default ranges for a grid: u and v span
// ±gridSize/2 and w a tenth of v.
func ParamsForGrid(gridSize int, cellSize float64) SynthesisParams {
	half := float64(gridSize) / 2
	return SynthesisParams{
		CellSize: cellSize,
		UVScale:  float64(gridSize) * cellSize,
		U:        Range{Min: -half, Max: half},
		V:        Range{Min: -half, Max: half},
		W:        Range{Min: -half / 10, Max: half / 10},
	}
}

// Synthesizer generates reproducible random sources and visibilities.
// It is not safe for concurrent use.
type Synthesizer struct {
	rng *rand.Rand
}

// NewSynthesizer returns a generator seeded with seed.
func NewSynthesizer(seed uint64) *Synthesizer {
	return &Synthesizer{rng: rand.New(rand.NewPCG(seed, seed^0xda3e39cb94b95bdb))}
}

// uniform returns a value in [r.Min, r.Max).
func (s *Synthesizer) uniform(r Range) float64 {
	return r.Min + s.rng.Float64()*(r.Max-r.Min)
}

// normal draws a standard normal sample with the Marsaglia polar method.
func (s *Synthesizer) normal() (float64, error) {
	for range maxNormalAttempts {
		u := s.rng.Float64()*2 - 1
		v := s.rng.Float64()*2 - 1
		r := u*u + v*v
		if r > 0 && r <= 1 {
			return u * math.Sqrt(-2*math.Log(r)/r), nil
		}
	}
	return 0, ErrNormalSampling
}

// Sources returns n sources with l in p.U and m in p.V scaled by
// p.CellSize, all of intensity 1.
func (s *Synthesizer) Sources(n int, p SynthesisParams) []dft.Source {
	sources := make([]dft.Source, n)
	for i := range sources {
		sources[i] = dft.Source{
			L:         s.uniform(p.U) * p.CellSize,
			M:         s.uniform(p.V) * p.CellSize,
			Intensity: 1.0,
		}
	}
	return sources
}

// Visibilities returns n visibilities drawn from the p ranges and divided
// by p.UVScale.
func (s *Synthesizer) Visibilities(n int, p SynthesisParams) ([]dft.Visibility, error) {
	visibilities := make([]dft.Visibility, n)
	for i := range visibilities {
		gu, gv, gw := 1.0, 1.0, 1.0
		if p.Gaussian {
			var err error
			if gu, err = s.normal(); err != nil {
				return nil, err
			}
			if gv, err = s.normal(); err != nil {
				return nil, err
			}
			if gw, err = s.normal(); err != nil {
				return nil, err
			}
		}
		visibilities[i] = dft.Visibility{
			U: s.uniform(p.U) * gu / p.UVScale,
			V: s.uniform(p.V) * gv / p.UVScale,
			W: s.uniform(p.W) * gw / p.UVScale,
		}
	}
	return visibilities, nil
}
