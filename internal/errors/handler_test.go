package apperrors

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type testColors struct{}

func (testColors) Yellow() string { return "<y>" }
func (testColors) Reset() string  { return "</y>" }

func TestHandleExtractionError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		err          error
		duration     time.Duration
		expectedCode int
		expectedText string
	}{
		{"Nil error", nil, 0, ExitSuccess, ""},
		{"Timeout", context.DeadlineExceeded, time.Second, ExitErrorTimeout, "Timeout"},
		{"Canceled", context.Canceled, 0, ExitErrorCanceled, "Canceled"},
		{"Input", NewInputError("vis.txt", errors.New("missing")), 0, ExitErrorInput, "No sources or visibilities"},
		{"Config", NewConfigError("bad backend"), 0, ExitErrorConfig, "Invalid configuration"},
		{"Wrapped extraction timeout", NewExtractionError("task_scheduled", 2, context.DeadlineExceeded), 0, ExitErrorTimeout, "Timeout"},
		{"Generic", errors.New("boom"), 0, ExitErrorGeneric, "unexpected error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			code := HandleExtractionError(tt.err, tt.duration, &buf, nil)
			if code != tt.expectedCode {
				t.Errorf("exit code = %d, want %d", code, tt.expectedCode)
			}
			if !strings.Contains(buf.String(), tt.expectedText) {
				t.Errorf("output %q does not contain %q", buf.String(), tt.expectedText)
			}
		})
	}
}

func TestHandleExtractionError_Colors(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	HandleExtractionError(context.DeadlineExceeded, 2*time.Second, &buf, testColors{})
	if !strings.Contains(buf.String(), "<y>2s</y>") {
		t.Errorf("expected colored duration, got %q", buf.String())
	}
}
