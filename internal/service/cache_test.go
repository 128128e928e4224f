package service

import (
	"context"
	"math"
	"testing"

	"github.com/golang/mock/gomock"

	"github.com/agbru/dftcalc/internal/config"
	"github.com/agbru/dftcalc/internal/dft"
	"github.com/agbru/dftcalc/internal/dft/mocks"
)

func TestExtract_ResultCache(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	extractor := mocks.NewMockExtractor(ctrl)
	// Two distinct workloads, each computed once.
	extractor.EXPECT().
		Extract(gomock.Any(), gomock.Nil(), 0, gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ chan<- dft.ProgressUpdate, _ int, _ dft.Options, _ []dft.Source, _ []dft.Visibility, out []dft.Complex) error {
			for i := range out {
				out[i] = dft.Complex{Real: float64(i), Imaginary: -1}
			}
			return nil
		}).
		Times(2)

	factory := dft.NewTestFactory(map[dft.BackendID]dft.Extractor{dft.Sequential: extractor})
	svc := NewExtractionService(factory, config.DefaultConfig(), 0, WithResultCache(4))
	req := sampleRequest("", 2, 3)

	first, err := svc.Extract(context.Background(), req)
	if err != nil || first.Cached {
		t.Fatalf("first Extract() = %+v, %v; want a computed result", first, err)
	}
	first.Output[0].Real = 99

	second, err := svc.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("second Extract() error = %v", err)
	}
	if !second.Cached {
		t.Error("repeated request was not served from the cache")
	}
	if second.Output[0].Real != 0 || second.Output[2].Real != 2 {
		t.Errorf("cached output = %+v, want the original values", second.Output)
	}

	req.ForceZeroW = true
	third, err := svc.Extract(context.Background(), req)
	if err != nil || third.Cached {
		t.Errorf("changing ForceZeroW must miss the cache, got %+v, %v", third, err)
	}
}

func TestExtract_CacheDisabled(t *testing.T) {
	t.Parallel()
	calls := 0
	factory := dft.NewTestFactory(map[dft.BackendID]dft.Extractor{
		dft.Sequential: &dft.MockExtractor{ID: "sequential", Fn: func(context.Context, []dft.Source, []dft.Visibility, []dft.Complex) error {
			calls++
			return nil
		}},
	})
	svc := NewExtractionService(factory, config.DefaultConfig(), 0, WithResultCache(0))
	req := sampleRequest("", 1, 1)
	for range 2 {
		if res, err := svc.Extract(context.Background(), req); err != nil || res.Cached {
			t.Fatalf("Extract() = %+v, %v", res, err)
		}
	}
	if calls != 2 {
		t.Errorf("backend ran %d times, want 2", calls)
	}
}

func TestRequestDigest(t *testing.T) {
	t.Parallel()
	sources := []dft.Source{{L: 0.1, M: 0.2, Intensity: 1}}
	vis := []dft.Visibility{{U: 1, V: 2, W: 3}}
	base := requestDigest(dft.Sequential, false, sources, vis)

	tests := []struct {
		name   string
		digest uint64
		same   bool
	}{
		{"Same input", requestDigest(dft.Sequential, false, sources, vis), true},
		{"Other backend", requestDigest(dft.Accelerator, false, sources, vis), false},
		{"Force zero w", requestDigest(dft.Sequential, true, sources, vis), false},
		{"Negative zero", requestDigest(dft.Sequential, false, []dft.Source{{L: 0.1, M: 0.2, Intensity: 1}}, []dft.Visibility{{U: 1, V: 2, W: math.Copysign(0, -1)}}), false},
		{"Moved split", requestDigest(dft.Sequential, false, nil, []dft.Visibility{{U: 0.1, V: 0.2, W: 1}, {U: 1, V: 2, W: 3}}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if (tt.digest == base) != tt.same {
				t.Errorf("digest equality = %v, want %v", tt.digest == base, tt.same)
			}
		})
	}
}
