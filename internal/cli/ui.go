// Package cli renders extraction runs in the terminal: a spinner with an
// aggregated progress bar while backends run, then a summary of the
// extracted visibilities.
package cli

//go:generate mockgen -source=ui.go -destination=mocks/mock_ui.go -package=mocks

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/agbru/dftcalc/internal/dft"
	"github.com/agbru/dftcalc/internal/ui"
)

const (
	// PreviewRows is the number of extracted visibilities printed after a run.
	PreviewRows = 5
	// ProgressRefreshRate is how often the spinner suffix is redrawn.
	ProgressRefreshRate = 200 * time.Millisecond
	// ProgressBarWidth is the bar length in runes.
	ProgressBarWidth = 40
)

// FormatExecutionDuration renders d at a precision suited to its
// magnitude: "< 1µs", whole microseconds, whole milliseconds, then
// time.Duration's own format.
func FormatExecutionDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return "< 1µs"
	case d < time.Millisecond:
		return strconv.FormatInt(d.Microseconds(), 10) + "µs"
	case d < time.Second:
		return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	default:
		return d.String()
	}
}

// Theme accessors used by the summary printers. They read the theme chosen
// by ui.InitTheme at each call.
func ColorReset() string   { return ui.GetCurrentTheme().Reset }
func ColorRed() string     { return ui.GetCurrentTheme().Error }
func ColorGreen() string   { return ui.GetCurrentTheme().Success }
func ColorYellow() string  { return ui.GetCurrentTheme().Warning }
func ColorBlue() string    { return ui.GetCurrentTheme().Primary }
func ColorMagenta() string { return ui.GetCurrentTheme().Info }
func ColorCyan() string    { return ui.GetCurrentTheme().Secondary }
func ColorBold() string    { return ui.GetCurrentTheme().Bold }

// Spinner abstracts the terminal spinner so DisplayProgress can be tested
// without a real terminal.
type Spinner interface {
	Start()
	Stop()
	// UpdateSuffix sets the text displayed after the spinner glyph.
	UpdateSuffix(suffix string)
}

// realSpinner adapts *spinner.Spinner to Spinner.
type realSpinner struct {
	s *spinner.Spinner
}

func (rs *realSpinner) Start() { rs.s.Start() }

func (rs *realSpinner) Stop() { rs.s.Stop() }

func (rs *realSpinner) UpdateSuffix(suffix string) { rs.s.Suffix = suffix }

var newSpinner = func(options ...spinner.Option) Spinner {
	s := spinner.New(spinner.CharSets[11], ProgressRefreshRate, options...)
	return &realSpinner{s}
}

// ProgressState holds the last reported progress of each concurrent
// extraction. In "all" mode one bar shows their average.
type ProgressState struct {
	progresses    []float64
	numExtractors int
}

// NewProgressState tracks numExtractors extractions, all at 0.
func NewProgressState(numExtractors int) *ProgressState {
	return &ProgressState{
		progresses:    make([]float64, numExtractors),
		numExtractors: numExtractors,
	}
}

// Update records value for extractor index. Out-of-range indices are ignored.
func (ps *ProgressState) Update(index int, value float64) {
	if index >= 0 && index < len(ps.progresses) {
		ps.progresses[index] = value
	}
}

// CalculateAverage returns the mean progress, 0 when nothing is tracked.
func (ps *ProgressState) CalculateAverage() float64 {
	if ps.numExtractors == 0 {
		return 0.0
	}
	var total float64
	for _, p := range ps.progresses {
		total += p
	}
	return total / float64(ps.numExtractors)
}

// progressBar renders progress, clamped to [0, 1], as a bar of length runes.
func progressBar(progress float64, length int) string {
	progress = min(max(progress, 0.0), 1.0)
	count := int(progress * float64(length))
	var builder strings.Builder
	builder.Grow(length * 3)
	for i := 0; i < length; i++ {
		if i < count {
			builder.WriteRune('█')
		} else {
			builder.WriteRune('░')
		}
	}
	return builder.String()
}

func progressLabel(numExtractors int) string {
	if numExtractors > 1 {
		return "Avg progress"
	}
	return "Progress"
}

// DisplayProgress drives the spinner and progress bar until progressChan is
// closed, then prints a final 100% line. It is meant to run in its own
// goroutine and calls wg.Done on return.
//
// With numExtractors <= 0 the channel is drained silently.
func DisplayProgress(wg *sync.WaitGroup, progressChan <-chan dft.ProgressUpdate, numExtractors int, out io.Writer) {
	defer wg.Done()
	if numExtractors <= 0 {
		for range progressChan {
		}
		return
	}

	state := NewProgressWithETA(numExtractors)
	label := progressLabel(numExtractors)
	s := newSpinner(spinner.WithWriter(out))
	s.Start()
	spinnerStopped := false
	defer func() {
		if !spinnerStopped {
			s.Stop()
		}
	}()

	ticker := time.NewTicker(ProgressRefreshRate)
	defer ticker.Stop()

	for {
		select {
		case update, ok := <-progressChan:
			if !ok {
				s.Stop()
				spinnerStopped = true
				fmt.Fprintf(out, "%s: %s\n", label, FormatProgressBarWithETA(1.0, time.Nanosecond, ProgressBarWidth))
				return
			}
			state.UpdateWithETA(update.ExtractorIndex, update.Value)
		case <-ticker.C:
			s.UpdateSuffix(" " + label + ": " +
				FormatProgressBarWithETA(state.CalculateAverage(), state.GetETA(), ProgressBarWidth))
		}
	}
}

// formatNumberString groups the digits of a decimal integer string by
// thousands: "-1234567" becomes "-1,234,567".
func formatNumberString(s string) string {
	sign, digits := "", s
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	if len(digits) <= 3 {
		return s
	}
	head := len(digits) % 3
	if head == 0 {
		head = 3
	}
	groups := []string{digits[:head]}
	for i := head; i < len(digits); i += 3 {
		groups = append(groups, digits[i:i+3])
	}
	return sign + strings.Join(groups, ",")
}

func formatCount(n int) string {
	return formatNumberString(strconv.Itoa(n))
}
