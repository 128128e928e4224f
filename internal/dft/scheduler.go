package dft

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	apperrors "github.com/agbru/dftcalc/internal/errors"
	"github.com/agbru/dftcalc/internal/parallel"
)

var schedulerUnitsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dft_scheduler_units_total",
		Help: "Work units processed by the task scheduler, by worker kind and outcome",
	},
	[]string{"worker_kind", "status"},
)

// Worker kinds reported in scheduler metrics and logs.
const (
	workerKindCPU         = "cpu"
	workerKindAccelerator = "accelerator"
)

// WorkUnit is a contiguous index range [Start, End) of the visibility array.
type WorkUnit struct {
	ID    int
	Start int
	End   int
}

// Codelet holds the per-worker-kind implementations of one task. Workers of
// a kind whose function is nil are not started. At least one must be set.
type Codelet struct {
	CPU         func(ctx context.Context, start, end int) error
	Accelerator func(ctx context.Context, dev Device, start, end int) error
}

// TaskRuntime executes a set of independent work units to completion.
type TaskRuntime interface {
	Execute(ctx context.Context, codelet Codelet, units []WorkUnit) error
}

// SplitUnits partitions [0, n) into contiguous units of at most chunkSize
// indices. The units are disjoint and their union is [0, n).
func SplitUnits(n, chunkSize int) []WorkUnit {
	if n <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = n
	}
	units := make([]WorkUnit, 0, (n+chunkSize-1)/chunkSize)
	for start := 0; start < n; start += chunkSize {
		units = append(units, WorkUnit{ID: len(units), Start: start, End: min(start+chunkSize, n)})
	}
	return units
}

// Scheduler is an in-process TaskRuntime. Every unit is queued up front on a
// single ready channel shared by CPU and accelerator workers, so faster
// workers take more units. The first failure is recorded and the remaining
// queued units are drained without running.
type Scheduler struct {
	CPUWorkers         int
	AcceleratorWorkers int
	Device             Device
}

// NewScheduler returns a scheduler with the given worker counts. A nil
// device selects the host CPUDevice.
func NewScheduler(cpuWorkers, acceleratorWorkers int, device Device) *Scheduler {
	if device == nil {
		device = NewCPUDevice()
	}
	return &Scheduler{
		CPUWorkers:         cpuWorkers,
		AcceleratorWorkers: acceleratorWorkers,
		Device:             device,
	}
}

// Execute runs every unit and waits for all workers to return. The returned
// error wraps the first failing unit in an apperrors.ExtractionError.
func (s *Scheduler) Execute(ctx context.Context, codelet Codelet, units []WorkUnit) error {
	if codelet.CPU == nil && codelet.Accelerator == nil {
		return fmt.Errorf("codelet has no implementation")
	}
	cpuWorkers, accWorkers := s.CPUWorkers, s.AcceleratorWorkers
	if codelet.CPU == nil {
		cpuWorkers = 0
	}
	if codelet.Accelerator == nil || s.Device == nil {
		accWorkers = 0
	}
	if cpuWorkers <= 0 && accWorkers <= 0 {
		switch {
		case codelet.CPU != nil:
			cpuWorkers = 1
		case s.Device != nil:
			accWorkers = 1
		default:
			return fmt.Errorf("no worker can run the codelet")
		}
	}

	ready := make(chan WorkUnit, len(units))
	for _, u := range units {
		ready <- u
	}
	close(ready)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		ec         parallel.ErrorCollector
		wg         sync.WaitGroup
		failedUnit WorkUnit
	)

	worker := func(kind string, workerID int) {
		defer wg.Done()
		for u := range ready {
			if ec.Failed() || runCtx.Err() != nil {
				schedulerUnitsTotal.WithLabelValues(kind, "skipped").Inc()
				continue
			}

			var err error
			if kind == workerKindAccelerator {
				err = codelet.Accelerator(runCtx, s.Device, u.Start, u.End)
			} else {
				err = codelet.CPU(runCtx, u.Start, u.End)
			}

			if err != nil {
				schedulerUnitsTotal.WithLabelValues(kind, "error").Inc()
				log.Debug().Str("worker_kind", kind).Int("worker", workerID).
					Int("unit", u.ID).Err(err).Msg("work unit failed")
				if ec.SetError(err) {
					failedUnit = u
				}
				cancel()
				continue
			}
			schedulerUnitsTotal.WithLabelValues(kind, "success").Inc()
		}
	}

	wg.Add(cpuWorkers + accWorkers)
	for i := 0; i < cpuWorkers; i++ {
		go worker(workerKindCPU, i)
	}
	for i := 0; i < accWorkers; i++ {
		go worker(workerKindAccelerator, i)
	}
	wg.Wait()

	if err := ec.Err(); err != nil {
		return apperrors.NewExtractionError(string(TaskScheduled), failedUnit.ID, err)
	}
	// Units skipped only because the caller canceled.
	return ctx.Err()
}
