package dataio

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestParamsForGrid(t *testing.T) {
	t.Parallel()
	p := ParamsForGrid(1024, 2)
	if p.U != (Range{-512, 512}) || p.V != (Range{-512, 512}) || p.W != (Range{-51.2, 51.2}) {
		t.Errorf("unexpected ranges %+v", p)
	}
	if p.UVScale != 2048 || p.CellSize != 2 || p.Gaussian {
		t.Errorf("unexpected params %+v", p)
	}
}

func TestSynthesizer_Deterministic(t *testing.T) {
	t.Parallel()
	p := ParamsForGrid(64, 0.01)
	p.Gaussian = true
	a, errA := NewSynthesizer(11).Visibilities(20, p)
	b, errB := NewSynthesizer(11).Visibilities(20, p)
	if errA != nil || errB != nil {
		t.Fatal(errA, errB)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("visibility %d differs for the same seed", i)
		}
	}
	c, _ := NewSynthesizer(12).Visibilities(20, p)
	if c[0] == a[0] {
		t.Error("different seeds should give different data")
	}
}

func TestSynthesizer_SourcesProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("sources stay within the scaled ranges", prop.ForAll(
		func(seed uint64, n int, grid int) bool {
			p := ParamsForGrid(grid, 1e-3)
			sources := NewSynthesizer(seed).Sources(n, p)
			if len(sources) != n {
				return false
			}
			limit := float64(grid) / 2 * 1e-3
			for _, s := range sources {
				if s.Intensity != 1 || math.Abs(s.L) > limit || math.Abs(s.M) > limit {
					return false
				}
			}
			return true
		},
		gen.UInt64(),
		gen.IntRange(0, 50),
		gen.IntRange(2, 4096),
	))

	properties.Property("uniform visibilities stay within the scaled ranges", prop.ForAll(
		func(seed uint64, n int) bool {
			p := ParamsForGrid(256, 1e-3)
			vis, err := NewSynthesizer(seed).Visibilities(n, p)
			if err != nil || len(vis) != n {
				return false
			}
			for _, v := range vis {
				if math.Abs(v.U) > 128/p.UVScale || math.Abs(v.W) > 12.8/p.UVScale {
					return false
				}
			}
			return true
		},
		gen.UInt64(),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

func TestSynthesizer_NormalMoments(t *testing.T) {
	t.Parallel()
	s := NewSynthesizer(2024)
	const n = 20000
	var sum, sumSq float64
	for range n {
		x, err := s.normal()
		if err != nil {
			t.Fatal(err)
		}
		sum += x
		sumSq += x * x
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	if math.Abs(mean) > 0.05 || math.Abs(variance-1) > 0.05 {
		t.Errorf("mean=%v variance=%v, want ~0 and ~1", mean, variance)
	}
}
