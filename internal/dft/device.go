package dft

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/cpu"
)

// Grid is the launch geometry of a data-parallel kernel.
type Grid struct {
	Blocks        int
	LanesPerBlock int
}

// Size returns Blocks × LanesPerBlock, the number of lanes launched.
func (g Grid) Size() int {
	return g.Blocks * g.LanesPerBlock
}

// LaneID identifies one lane of a launch.
type LaneID struct {
	Block    int
	Lane     int
	BlockDim int
	GridDim  int
}

// Global returns the lane's index across the whole grid.
func (id LaneID) Global() int {
	return id.Block*id.BlockDim + id.Lane
}

// Stride returns the total number of lanes in the grid, the step of a
// grid-stride loop.
func (id LaneID) Stride() int {
	return id.BlockDim * id.GridDim
}

// LaneKernel is the per-lane body of a launch.
type LaneKernel func(id LaneID)

// Device executes data-parallel launches. A launch either runs every lane
// or returns an error.
type Device interface {
	Name() string
	Launch(ctx context.Context, grid Grid, kernel LaneKernel) error
}

// CPUDevice emulates an accelerator on the host. Blocks run concurrently,
// bounded by MaxConcurrentBlocks; lanes within a block run in order.
type CPUDevice struct {
	// MaxConcurrentBlocks caps the number of blocks in flight.
	// If 0, runtime.NumCPU() is used.
	MaxConcurrentBlocks int
}

// NewCPUDevice returns a host device sized to the machine.
func NewCPUDevice() *CPUDevice {
	return &CPUDevice{MaxConcurrentBlocks: runtime.NumCPU()}
}

// Name describes the device and the SIMD features of the host.
func (d *CPUDevice) Name() string {
	return "cpu (" + HostFeatures() + ")"
}

// Launch runs kernel on every lane of grid. A panic inside a lane fails the
// launch instead of crashing the process. Blocks not yet started are
// skipped once ctx is done.
func (d *CPUDevice) Launch(ctx context.Context, grid Grid, kernel LaneKernel) error {
	if grid.Blocks <= 0 || grid.LanesPerBlock <= 0 {
		return fmt.Errorf("invalid launch geometry %dx%d", grid.Blocks, grid.LanesPerBlock)
	}
	limit := d.MaxConcurrentBlocks
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for block := 0; block < grid.Blocks; block++ {
		g.Go(func() (err error) {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("block %d: kernel panic: %v", block, r)
				}
			}()
			for lane := 0; lane < grid.LanesPerBlock; lane++ {
				kernel(LaneID{
					Block:    block,
					Lane:     lane,
					BlockDim: grid.LanesPerBlock,
					GridDim:  grid.Blocks,
				})
			}
			return nil
		})
	}
	return g.Wait()
}

// HostFeatures summarizes the SIMD extensions reported for the host CPU.
func HostFeatures() string {
	var features []string
	switch {
	case cpu.X86.HasAVX512F:
		features = append(features, "AVX-512")
	case cpu.X86.HasAVX2:
		features = append(features, "AVX2")
	}
	if cpu.X86.HasFMA {
		features = append(features, "FMA")
	}
	if cpu.ARM64.HasASIMD {
		features = append(features, "NEON")
	}
	if len(features) == 0 {
		return "no SIMD"
	}
	return strings.Join(features, ", ")
}
