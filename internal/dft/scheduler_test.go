package dft

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	apperrors "github.com/agbru/dftcalc/internal/errors"
)

func TestSplitUnits(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		n     int
		chunk int
		want  []WorkUnit
	}{
		{"Empty", 0, 10, nil},
		{"Exact", 6, 3, []WorkUnit{{0, 0, 3}, {1, 3, 6}}},
		{"Remainder", 7, 3, []WorkUnit{{0, 0, 3}, {1, 3, 6}, {2, 6, 7}}},
		{"Zero chunk means one unit", 5, 0, []WorkUnit{{0, 0, 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := SplitUnits(tt.n, tt.chunk)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitUnits() = %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("unit %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestScheduler_RunsEveryUnitOnce(t *testing.T) {
	t.Parallel()
	const n = 1000
	var hits [n]atomic.Int32
	var cpuRuns, accRuns atomic.Int32
	codelet := Codelet{
		CPU: func(_ context.Context, start, end int) error {
			cpuRuns.Add(1)
			for i := start; i < end; i++ {
				hits[i].Add(1)
			}
			return nil
		},
		Accelerator: func(ctx context.Context, dev Device, start, end int) error {
			accRuns.Add(1)
			return dev.Launch(ctx, Grid{Blocks: 2, LanesPerBlock: 4}, func(id LaneID) {
				for i := start + id.Global(); i < end; i += id.Stride() {
					hits[i].Add(1)
				}
			})
		},
	}

	s := NewScheduler(3, 2, nil)
	if err := s.Execute(context.Background(), codelet, SplitUnits(n, 13)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range hits {
		if hits[i].Load() != 1 {
			t.Fatalf("index %d processed %d times", i, hits[i].Load())
		}
	}
	if total := cpuRuns.Load() + accRuns.Load(); total != int32(len(SplitUnits(n, 13))) {
		t.Errorf("ran %d units, want %d", total, len(SplitUnits(n, 13)))
	}
}

func TestScheduler_FirstErrorStopsQueue(t *testing.T) {
	t.Parallel()
	var runs atomic.Int32
	boom := errors.New("unit failed")
	codelet := Codelet{
		CPU: func(_ context.Context, start, _ int) error {
			runs.Add(1)
			if start == 0 {
				return boom
			}
			return nil
		},
	}

	s := NewScheduler(1, 0, nil)
	err := s.Execute(context.Background(), codelet, SplitUnits(100, 10))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped failure, got %v", err)
	}
	var extractionErr apperrors.ExtractionError
	if !errors.As(err, &extractionErr) || extractionErr.Unit != 0 {
		t.Errorf("expected failure in unit 0, got %+v", extractionErr)
	}
	if runs.Load() != 1 {
		t.Errorf("a single worker should stop after the failure, ran %d units", runs.Load())
	}
}

func TestScheduler_CallerCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewScheduler(2, 0, nil)
	err := s.Execute(ctx, Codelet{CPU: func(context.Context, int, int) error { return nil }}, SplitUnits(10, 1))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestScheduler_EmptyCodelet(t *testing.T) {
	t.Parallel()
	if err := NewScheduler(1, 1, nil).Execute(context.Background(), Codelet{}, nil); err == nil {
		t.Error("expected error for empty codelet")
	}
}

func TestCPUDevice_Launch(t *testing.T) {
	t.Parallel()
	d := &CPUDevice{MaxConcurrentBlocks: 2}
	var mu sync.Mutex
	seen := make(map[int]bool)
	err := d.Launch(context.Background(), Grid{Blocks: 5, LanesPerBlock: 7}, func(id LaneID) {
		mu.Lock()
		seen[id.Global()] = true
		mu.Unlock()
		if id.Stride() != 35 {
			t.Errorf("Stride() = %d, want 35", id.Stride())
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 35 {
		t.Errorf("ran %d distinct lanes, want 35", len(seen))
	}
}

func TestCPUDevice_LaunchErrors(t *testing.T) {
	t.Parallel()
	d := NewCPUDevice()
	if err := d.Launch(context.Background(), Grid{}, func(LaneID) {}); err == nil {
		t.Error("expected error for empty grid")
	}
	err := d.Launch(context.Background(), Grid{Blocks: 2, LanesPerBlock: 2}, func(id LaneID) {
		if id.Global() == 3 {
			panic("bad lane")
		}
	})
	if err == nil {
		t.Error("expected panic to be converted into an error")
	}
	if d.Name() == "" || HostFeatures() == "" {
		t.Error("device should describe itself")
	}
}
