package dft

import (
	"context"
	"sync/atomic"
)

// TaskScheduledBackend splits the visibility range into contiguous work
// units and hands them to a TaskRuntime. Results land in a staging buffer
// that is copied into the caller's output only when every unit succeeded,
// so a failed extraction leaves output untouched.
type TaskScheduledBackend struct {
	runtime TaskRuntime
	device  Device
}

// NewTaskScheduledBackend returns a backend executing on runtime. A nil
// runtime selects an in-process Scheduler sized from Options on each call.
func NewTaskScheduledBackend(runtime TaskRuntime) *TaskScheduledBackend {
	return &TaskScheduledBackend{runtime: runtime}
}

// WithDevice sets the device used by accelerator workers of the default
// scheduler. It has no effect when a runtime was supplied.
func (b *TaskScheduledBackend) WithDevice(device Device) *TaskScheduledBackend {
	b.device = device
	return b
}

// Name returns "task_scheduled".
func (b *TaskScheduledBackend) Name() string {
	return string(TaskScheduled)
}

func (b *TaskScheduledBackend) runtimeFor(opts Options) TaskRuntime {
	if b.runtime != nil {
		return b.runtime
	}
	return NewScheduler(opts.CPUWorkers, opts.AcceleratorWorkers, b.device)
}

// ExtractCore registers the read-only inputs and the staging buffer, submits
// one task per unit and waits for all of them.
func (b *TaskScheduledBackend) ExtractCore(ctx context.Context, reporter ProgressReporter, opts Options, sources []Source, visibilities []Visibility, output []Complex) error {
	n := len(visibilities)
	opts = normalizeOptions(opts, n)
	forceZeroW := opts.ForceZeroWTerm
	staging := make([]Complex, n)

	var done atomic.Int64
	unitDone := func(count int) {
		reporter(fraction(int(done.Add(int64(count))), n))
	}

	codelet := Codelet{
		CPU: func(ctx context.Context, start, end int) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			extractRange(sources, visibilities, staging, start, end, forceZeroW)
			unitDone(end - start)
			return nil
		},
		Accelerator: func(ctx context.Context, dev Device, start, end int) error {
			count := end - start
			blocks := min(opts.NumBlocks, count)
			grid := Grid{Blocks: blocks, LanesPerBlock: LanesForVisibilities(count, blocks)}
			err := dev.Launch(ctx, grid, func(id LaneID) {
				for i := start + id.Global(); i < end; i += id.Stride() {
					staging[i] = ComputeVisibility(visibilities[i], sources, forceZeroW)
				}
			})
			if err != nil {
				return err
			}
			unitDone(count)
			return nil
		},
	}

	if err := b.runtimeFor(opts).Execute(ctx, codelet, SplitUnits(n, opts.ChunkSize)); err != nil {
		return err
	}
	copy(output, staging)
	return nil
}
