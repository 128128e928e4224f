package dft

// ProgressUpdate carries the progress of one extraction. It is sent over a
// channel from the backend to the user interface.
type ProgressUpdate struct {
	// ExtractorIndex distinguishes concurrent extractions (e.g. in "all" mode).
	ExtractorIndex int
	// Value is the normalized progress, from 0.0 to 1.0.
	Value float64
}

// ProgressReporter is the callback used by backends to report the fraction of
// visibilities completed.
type ProgressReporter func(progress float64)

// noopReporter discards progress.
func noopReporter(float64) {}

// fraction returns done/total, treating an empty workload as complete.
func fraction(done, total int) float64 {
	if total <= 0 {
		return 1.0
	}
	return float64(done) / float64(total)
}
