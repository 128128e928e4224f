package dft

import (
	"context"
	"sync/atomic"
)

// AcceleratorBackend launches one lane per visibility index on a Device.
// When the grid has fewer lanes than visibilities each lane walks the
// remaining indices with a grid-stride loop, so the result never depends
// on the launch geometry.
type AcceleratorBackend struct {
	device Device
}

// NewAcceleratorBackend returns a backend launching on device. A nil device
// selects the host CPUDevice.
func NewAcceleratorBackend(device Device) *AcceleratorBackend {
	if device == nil {
		device = NewCPUDevice()
	}
	return &AcceleratorBackend{device: device}
}

// Name returns "accelerator".
func (b *AcceleratorBackend) Name() string {
	return string(Accelerator)
}

// Device returns the device kernels are launched on.
func (b *AcceleratorBackend) Device() Device {
	return b.device
}

// ExtractCore copies nothing: lanes read sources and visibilities in place
// and each lane writes only the output slots of its own indices.
func (b *AcceleratorBackend) ExtractCore(ctx context.Context, reporter ProgressReporter, opts Options, sources []Source, visibilities []Visibility, output []Complex) error {
	n := len(visibilities)
	opts = normalizeOptions(opts, n)
	grid := Grid{Blocks: opts.NumBlocks, LanesPerBlock: opts.LanesPerBlock}
	forceZeroW := opts.ForceZeroWTerm

	var blocksDone atomic.Int64
	return b.device.Launch(ctx, grid, func(id LaneID) {
		for i := id.Global(); i < n; i += id.Stride() {
			output[i] = ComputeVisibility(visibilities[i], sources, forceZeroW)
		}
		if id.Lane == id.BlockDim-1 {
			reporter(fraction(int(blocksDone.Add(1)), id.GridDim))
		}
	})
}
