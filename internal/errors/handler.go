package apperrors

import (
	"fmt"
	"io"
	"time"
)

// ColorProvider supplies the escape codes used to highlight durations. It
// keeps this package free of any dependency on cli.
type ColorProvider interface {
	Yellow() string
	Reset() string
}

// DefaultColorProvider emits no escape codes.
type DefaultColorProvider struct{}

func (d DefaultColorProvider) Yellow() string { return "" }
func (d DefaultColorProvider) Reset() string  { return "" }

// HandleExtractionError prints a one-line status for err and returns
// ExitCode(err). A positive duration is included in the message. A nil
// colors disables styling.
func HandleExtractionError(err error, duration time.Duration, out io.Writer, colors ColorProvider) int {
	code := ExitCode(err)
	if code == ExitSuccess {
		return code
	}
	if colors == nil {
		colors = DefaultColorProvider{}
	}

	after := ""
	if duration > 0 {
		after = fmt.Sprintf(" after %s%s%s", colors.Yellow(), duration, colors.Reset())
	}

	switch code {
	case ExitErrorTimeout:
		fmt.Fprintf(out, "Status: Failure (Timeout). The execution limit was reached%s.\n", after)
	case ExitErrorCanceled:
		fmt.Fprintf(out, "%sStatus: Canceled%s.%s\n", colors.Yellow(), after, colors.Reset())
	case ExitErrorInput:
		fmt.Fprintf(out, "Status: Failure. No sources or visibilities available: %v\n", err)
	case ExitErrorConfig:
		fmt.Fprintf(out, "Status: Failure. Invalid configuration: %v\n", err)
	default:
		fmt.Fprintf(out, "Status: Failure. An unexpected error occurred%s: %v\n", after, err)
	}
	return code
}
