package dft

import "runtime"

// Default sizing hints used when the corresponding Options field is zero.
const (
	// DefaultNumBlocks is the number of accelerator blocks per launch.
	DefaultNumBlocks = 32
	// DefaultMinChunkSize is the smallest chunk the task scheduler will submit.
	// Smaller chunks spend more time in queueing than in the kernel.
	DefaultMinChunkSize = 64
	// DefaultChunksPerWorker is the target number of chunks per worker when
	// the chunk size is derived automatically.
	DefaultChunksPerWorker = 4
	// DefaultAcceleratorWorkers is the number of accelerator workers attached
	// to the task scheduler.
	DefaultAcceleratorWorkers = 1
)

// Options configures one extraction. It is passed by value and never mutated
// by a backend.
type Options struct {
	// ForceZeroWTerm makes the kernel ignore the visibility w coordinate.
	ForceZeroWTerm bool
	// NumBlocks is the accelerator block count. If 0, DefaultNumBlocks is used.
	NumBlocks int
	// LanesPerBlock is the number of accelerator lanes per block. If 0, it is
	// derived so that NumBlocks × LanesPerBlock covers every visibility.
	LanesPerBlock int
	// ChunkSize is the number of visibilities per task-scheduled work unit.
	// If 0, it is derived from the visibility and worker counts.
	ChunkSize int
	// CPUWorkers is the number of general-purpose task workers.
	// If 0, runtime.NumCPU() is used. A negative value disables CPU workers.
	CPUWorkers int
	// AcceleratorWorkers is the number of accelerator task workers.
	// If 0, DefaultAcceleratorWorkers is used. A negative value disables them.
	AcceleratorWorkers int
}

// normalizeOptions returns a copy of opts with sizing defaults filled in for
// numVisibilities visibilities.
func normalizeOptions(opts Options, numVisibilities int) Options {
	normalized := opts
	if normalized.NumBlocks <= 0 {
		normalized.NumBlocks = DefaultNumBlocks
	}
	if normalized.LanesPerBlock <= 0 {
		normalized.LanesPerBlock = LanesForVisibilities(numVisibilities, normalized.NumBlocks)
	}
	switch {
	case normalized.CPUWorkers == 0:
		normalized.CPUWorkers = runtime.NumCPU()
	case normalized.CPUWorkers < 0:
		normalized.CPUWorkers = 0
	}
	switch {
	case normalized.AcceleratorWorkers == 0:
		normalized.AcceleratorWorkers = DefaultAcceleratorWorkers
	case normalized.AcceleratorWorkers < 0:
		normalized.AcceleratorWorkers = 0
	}
	if normalized.CPUWorkers == 0 && normalized.AcceleratorWorkers == 0 {
		normalized.CPUWorkers = 1
	}
	if normalized.ChunkSize <= 0 {
		normalized.ChunkSize = ChunkSizeFor(numVisibilities, normalized.CPUWorkers+normalized.AcceleratorWorkers)
	}
	return normalized
}

// LanesForVisibilities returns the smallest lane count per block such that
// blocks × lanes ≥ numVisibilities. It returns at least 1.
func LanesForVisibilities(numVisibilities, blocks int) int {
	if blocks <= 0 {
		blocks = DefaultNumBlocks
	}
	lanes := (numVisibilities + blocks - 1) / blocks
	if lanes < 1 {
		return 1
	}
	return lanes
}

// ChunkSizeFor derives a task chunk size giving each worker about
// DefaultChunksPerWorker chunks, never below DefaultMinChunkSize.
func ChunkSizeFor(numVisibilities, workers int) int {
	if workers < 1 {
		workers = 1
	}
	targetChunks := workers * DefaultChunksPerWorker
	size := (numVisibilities + targetChunks - 1) / targetChunks
	if size < DefaultMinChunkSize {
		return DefaultMinChunkSize
	}
	return size
}
