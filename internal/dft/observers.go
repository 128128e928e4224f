package dft

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// ─────────────────────────────────────────────────────────────────────────────
// Channel Observer
// ─────────────────────────────────────────────────────────────────────────────

// ChannelObserver forwards progress to a channel consumed by the CLI.
type ChannelObserver struct {
	channel chan<- ProgressUpdate
}

// NewChannelObserver creates an observer sending to ch. A nil channel
// discards updates.
func NewChannelObserver(ch chan<- ProgressUpdate) *ChannelObserver {
	return &ChannelObserver{channel: ch}
}

// Update sends without blocking; when the channel is full the update is
// dropped and the UI catches up on the next one.
func (o *ChannelObserver) Update(extractorIndex int, progress float64) {
	if o.channel == nil {
		return
	}
	if progress > 1.0 {
		progress = 1.0
	}

	select {
	case o.channel <- ProgressUpdate{ExtractorIndex: extractorIndex, Value: progress}:
	default:
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Logging Observer
// ─────────────────────────────────────────────────────────────────────────────

// LoggingObserver logs progress at debug level, throttled by threshold.
type LoggingObserver struct {
	logger    zerolog.Logger
	threshold float64
	lastLog   map[int]float64
	mu        sync.Mutex
}

// NewLoggingObserver creates a logging observer. A non-positive threshold
// defaults to 10%.
func NewLoggingObserver(logger zerolog.Logger, threshold float64) *LoggingObserver {
	if threshold <= 0 {
		threshold = 0.1
	}
	return &LoggingObserver{
		logger:    logger,
		threshold: threshold,
		lastLog:   make(map[int]float64),
	}
}

// Update logs the first report, every step of at least threshold, and completion.
func (o *LoggingObserver) Update(extractorIndex int, progress float64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	lastProgress, seen := o.lastLog[extractorIndex]
	shouldLog := progress >= 1.0 ||
		!seen ||
		progress-lastProgress >= o.threshold

	if shouldLog {
		o.logger.Debug().
			Int("extractor", extractorIndex).
			Float64("progress", progress).
			Str("percent", fmt.Sprintf("%.1f%%", progress*100)).
			Msg("extraction progress")
		o.lastLog[extractorIndex] = progress
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Metrics Observer
// ─────────────────────────────────────────────────────────────────────────────

var progressGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "dft_extraction_progress",
		Help: "Current progress of visibility extractions (0.0 to 1.0)",
	},
	[]string{"extractor_index"},
)

// MetricsObserver exports progress as a Prometheus gauge.
type MetricsObserver struct {
	gauge *prometheus.GaugeVec
}

// NewMetricsObserver creates an observer backed by the shared progress gauge.
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{gauge: progressGauge}
}

// Update sets the gauge for extractorIndex.
func (o *MetricsObserver) Update(extractorIndex int, progress float64) {
	o.gauge.WithLabelValues(strconv.Itoa(extractorIndex)).Set(progress)
}

// ResetMetrics clears the gauge left by a previous batch of extractions.
func (o *MetricsObserver) ResetMetrics() {
	o.gauge.Reset()
}
