package calibration

import (
	"runtime"
	"slices"

	"github.com/agbru/dftcalc/internal/dft"
)

// GenerateBlockCounts returns the accelerator block counts tried by a full
// calibration. Counts below the core count leave cores idle, so the list
// starts at NumCPU and grows towards many small blocks that balance better.
func GenerateBlockCounts() []int {
	return blockCounts(runtime.NumCPU(), []int{1, 2, 4, 8, 16})
}

// GenerateQuickBlockCounts is the reduced list used by auto-calibration.
func GenerateQuickBlockCounts() []int {
	return blockCounts(runtime.NumCPU(), []int{1, 4})
}

func blockCounts(numCPU int, multipliers []int) []int {
	if numCPU <= 1 {
		return []int{1}
	}
	counts := []int{dft.DefaultNumBlocks}
	for _, m := range multipliers {
		counts = append(counts, numCPU*m)
	}
	slices.Sort(counts)
	return slices.Compact(counts)
}

// GenerateChunkSizes returns the task chunk sizes tried for a workload of
// numVisibilities by a full calibration: the sizes giving each worker 1, 2,
// 4, 8, 16 and 32 chunks.
func GenerateChunkSizes(numVisibilities int) []int {
	return chunkSizes(numVisibilities, workerCount(), []int{1, 2, 4, 8, 16, 32})
}

// GenerateQuickChunkSizes is the reduced list used by auto-calibration.
func GenerateQuickChunkSizes(numVisibilities int) []int {
	return chunkSizes(numVisibilities, workerCount(), []int{2, 4, 16})
}

// workerCount is the default number of task workers.
func workerCount() int {
	return runtime.NumCPU() + dft.DefaultAcceleratorWorkers
}

func chunkSizes(numVisibilities, workers int, chunksPerWorker []int) []int {
	sizes := make([]int, 0, len(chunksPerWorker))
	for _, c := range chunksPerWorker {
		chunks := workers * c
		size := max(dft.DefaultMinChunkSize, (numVisibilities+chunks-1)/chunks)
		sizes = append(sizes, size)
	}
	slices.Sort(sizes)
	return slices.Compact(sizes)
}

// EstimateOptimalNumBlocks is the block count used when no measurement is
// available: four blocks per core.
func EstimateOptimalNumBlocks() int {
	return max(1, 4*runtime.NumCPU())
}

// EstimateOptimalChunkSize is the chunk size used when no measurement is
// available.
func EstimateOptimalChunkSize(numVisibilities int) int {
	return dft.ChunkSizeFor(numVisibilities, workerCount())
}
