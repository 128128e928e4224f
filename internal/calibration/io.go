package calibration

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"

	"github.com/agbru/dftcalc/internal/cli"
)

// printCalibrationResults prints one sweep as a table followed by a chart
// of the trial durations.
func printCalibrationResults(out io.Writer, title string, trials []trialResult, best int) {
	fmt.Fprintf(out, "\n--- %s ---\n", title)
	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "  %sValue%s\t%sExecution Time%s\n", cli.ColorBold(), cli.ColorReset(), cli.ColorBold(), cli.ColorReset())
	for _, res := range trials {
		durationStr := fmt.Sprintf("%sN/A (%v)%s", cli.ColorRed(), res.Err, cli.ColorReset())
		if res.Err == nil {
			durationStr = cli.FormatExecutionDuration(res.Duration)
			if res.Duration == 0 {
				durationStr = "< 1µs"
			}
		}
		highlight := ""
		if res.Value == best && res.Err == nil {
			highlight = fmt.Sprintf(" %s(Optimal)%s", cli.ColorGreen(), cli.ColorReset())
		}
		fmt.Fprintf(tw, "  %s%d%s\t%s%s%s%s\n", cli.ColorCyan(), res.Value, cli.ColorReset(),
			cli.ColorYellow(), durationStr, cli.ColorReset(), highlight)
	}
	_ = tw.Flush()

	if chart := durationChart(title, trials); chart != "" {
		fmt.Fprintf(out, "\n%s\n", chart)
	}
}

// durationChart plots the successful trial durations in milliseconds, in
// candidate order. It returns "" for fewer than two successes.
func durationChart(title string, trials []trialResult) string {
	var ms []float64
	var labels []string
	for _, t := range trials {
		if t.Err != nil {
			continue
		}
		ms = append(ms, float64(t.Duration.Microseconds())/1000)
		labels = append(labels, fmt.Sprint(t.Value))
	}
	if len(ms) < 2 {
		return ""
	}
	return asciigraph.Plot(ms,
		asciigraph.Height(6),
		asciigraph.Caption(fmt.Sprintf("%s (ms) for %s", strings.ToLower(title), strings.Join(labels, ", "))),
	)
}
