package cli

import (
	"fmt"
	"time"
)

// maxETA caps estimates so that a stalled extraction does not print absurd
// durations.
const maxETA = 24 * time.Hour

// ProgressWithETA extends ProgressState with an exponentially smoothed rate
// of progress, from which the remaining time is estimated.
type ProgressWithETA struct {
	*ProgressState
	startTime    time.Time
	lastUpdate   time.Time
	lastProgress float64
	progressRate float64 // progress per second, smoothed
}

// NewProgressWithETA tracks numExtractors extractions starting now.
func NewProgressWithETA(numExtractors int) *ProgressWithETA {
	now := time.Now()
	return &ProgressWithETA{
		ProgressState: NewProgressState(numExtractors),
		startTime:     now,
		lastUpdate:    now,
	}
}

// UpdateWithETA records value for extractor index and returns the average
// progress together with the estimated time remaining. The estimate is 0
// until at least 100ms have elapsed and some progress was made.
func (p *ProgressWithETA) UpdateWithETA(index int, value float64) (progress float64, eta time.Duration) {
	p.Update(index, value)
	progress = p.CalculateAverage()

	now := time.Now()
	elapsed := now.Sub(p.startTime)
	if elapsed < 100*time.Millisecond || progress <= 0.001 {
		p.lastUpdate = now
		p.lastProgress = progress
		return progress, 0
	}

	if sinceUpdate := now.Sub(p.lastUpdate).Seconds(); sinceUpdate > 0.05 {
		if delta := progress - p.lastProgress; delta > 0 {
			if p.progressRate > 0 {
				p.progressRate = 0.7*p.progressRate + 0.3*(delta/sinceUpdate)
			} else {
				p.progressRate = progress / elapsed.Seconds()
			}
		}
		p.lastUpdate = now
		p.lastProgress = progress
	}

	return progress, p.remaining(progress)
}

// GetETA returns the current estimate without recording progress.
func (p *ProgressWithETA) GetETA() time.Duration {
	return p.remaining(p.CalculateAverage())
}

func (p *ProgressWithETA) remaining(progress float64) time.Duration {
	if p.progressRate <= 0 || progress >= 1.0 {
		return 0
	}
	eta := time.Duration((1.0 - progress) / p.progressRate * float64(time.Second))
	return min(eta, maxETA)
}

// FormatETA renders eta as "< 1s", "42s", "2m30s" or "1h15m". A
// non-positive eta means no estimate is available yet.
func FormatETA(eta time.Duration) string {
	switch {
	case eta <= 0:
		return "calculating..."
	case eta < time.Second:
		return "< 1s"
	case eta < time.Minute:
		return fmt.Sprintf("%ds", int(eta.Seconds()))
	case eta < time.Hour:
		minutes, seconds := int(eta.Minutes()), int(eta.Seconds())%60
		if seconds > 0 {
			return fmt.Sprintf("%dm%ds", minutes, seconds)
		}
		return fmt.Sprintf("%dm", minutes)
	}
	hours, minutes := int(eta.Hours()), int(eta.Minutes())%60
	if minutes > 0 {
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	return fmt.Sprintf("%dh", hours)
}

// FormatProgressBarWithETA renders "45.00% [████░░░░] ETA: 2m30s".
func FormatProgressBarWithETA(progress float64, eta time.Duration, width int) string {
	return fmt.Sprintf("%6.2f%% [%s] ETA: %s", progress*100, progressBar(progress, width), FormatETA(eta))
}
