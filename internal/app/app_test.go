package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/agbru/dftcalc/internal/calibration"
	"github.com/agbru/dftcalc/internal/cli"
	"github.com/agbru/dftcalc/internal/dft"
	"github.com/agbru/dftcalc/internal/dft/mocks"
	apperrors "github.com/agbru/dftcalc/internal/errors"
	"github.com/agbru/dftcalc/internal/testutil"
)

// mockFactory registers one MockExtractor per built-in backend, each
// filling its output with the given value.
func mockFactory(results map[dft.BackendID]dft.Complex, fn func(ctx context.Context) error) *dft.TestFactory {
	extractors := make(map[dft.BackendID]dft.Extractor, len(results))
	for id, res := range results {
		m := &dft.MockExtractor{ID: string(id), Result: res}
		if fn != nil {
			m.Fn = func(ctx context.Context, _ []dft.Source, _ []dft.Visibility, _ []dft.Complex) error {
				return fn(ctx)
			}
		}
		extractors[id] = m
	}
	return dft.NewTestFactory(extractors)
}

func agreeingFactory() *dft.TestFactory {
	one := dft.Complex{Real: 1}
	return mockFactory(map[dft.BackendID]dft.Complex{
		dft.Sequential:    one,
		dft.Accelerator:   one,
		dft.TaskScheduled: one,
	}, nil)
}

// syntheticArgs returns arguments for a small synthetic run that writes
// nothing outside the test's temporary directory.
func syntheticArgs(t *testing.T, extra ...string) []string {
	t.Helper()
	args := []string{
		"dftcalc",
		"-synthetic-sources", "-synthetic-visibilities",
		"-sources", "3", "-visibilities", "16",
		"-output", "",
		"-calibration-profile", filepath.Join(t.TempDir(), "profile.json"),
	}
	return append(args, extra...)
}

func newTestApp(t *testing.T, factory dft.BackendFactory, args []string) *Application {
	t.Helper()
	var errBuf bytes.Buffer
	a, err := NewWithFactory(args, &errBuf, factory)
	if err != nil {
		t.Fatalf("NewWithFactory(%v) error = %v\n%s", args, err, errBuf.String())
	}
	return a
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("Valid args", func(t *testing.T) {
		t.Parallel()
		a := newTestApp(t, agreeingFactory(), syntheticArgs(t, "-backend", "cuda", "-seed", "7"))
		if a.Config.Backend != string(dft.Accelerator) || a.Config.Seed != 7 {
			t.Errorf("Config = %+v", a.Config)
		}
		if a.Factory == nil || a.Logger == nil {
			t.Error("Factory and Logger must be set")
		}
		if a.Profile != nil {
			t.Error("no profile should be loaded from an empty directory")
		}
	})

	t.Run("Invalid flag", func(t *testing.T) {
		t.Parallel()
		var errBuf bytes.Buffer
		a, err := NewWithFactory([]string{"dftcalc", "-invalid-flag"}, &errBuf, agreeingFactory())
		if err == nil || a != nil {
			t.Errorf("NewWithFactory() = %v, %v; want nil, error", a, err)
		}
	})

	t.Run("Help flag", func(t *testing.T) {
		t.Parallel()
		var errBuf bytes.Buffer
		_, err := NewWithFactory([]string{"dftcalc", "-h"}, &errBuf, agreeingFactory())
		if !IsHelpError(err) {
			t.Errorf("IsHelpError(%v) = false", err)
		}
		if !strings.Contains(errBuf.String(), "DFT Visibility Extractor") {
			t.Errorf("usage not printed: %q", errBuf.String())
		}
	})

	t.Run("Empty args", func(t *testing.T) {
		t.Parallel()
		var errBuf bytes.Buffer
		if _, err := NewWithFactory(nil, &errBuf, agreeingFactory()); err != nil {
			t.Errorf("NewWithFactory(nil) error = %v", err)
		}
	})

	t.Run("Cached profile", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "profile.json")
		p := calibration.NewProfile()
		p.OptimalNumBlocks, p.OptimalChunkSize = 48, 512
		p.CalibrationVisibilities = calibration.CalibrationVisibilities
		if err := p.SaveProfile(path); err != nil {
			t.Fatal(err)
		}
		a := newTestApp(t, agreeingFactory(), []string{"dftcalc", "-calibration-profile", path})
		if a.Profile == nil || a.Profile.OptimalNumBlocks != 48 {
			t.Errorf("Profile = %v", a.Profile)
		}
	})
}

func TestApplicationRun(t *testing.T) {
	t.Parallel()
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	waitForCtx := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	one, two := dft.Complex{Real: 1}, dft.Complex{Real: 2}

	tests := []struct {
		name     string
		ctx      context.Context
		factory  dft.BackendFactory
		extra    []string
		wantCode int
		wantOut  []string
	}{
		{
			name:     "Single backend",
			factory:  agreeingFactory(),
			extra:    []string{"-backend", "sequential"},
			wantCode: apperrors.ExitSuccess,
			wantOut:  []string{"Single extraction with the sequential backend", "Extraction result (sequential)"},
		},
		{
			name:     "Comparison",
			factory:  agreeingFactory(),
			wantCode: apperrors.ExitSuccess,
			wantOut:  []string{"Parallel comparison of 3 backends", "Comparison Summary", "All backends agree with sequential"},
		},
		{
			name: "Mismatch",
			factory: mockFactory(map[dft.BackendID]dft.Complex{
				dft.Sequential: one, dft.Accelerator: one, dft.TaskScheduled: two,
			}, nil),
			wantCode: apperrors.ExitErrorMismatch,
			wantOut:  []string{"Mismatch", "CRITICAL ERROR"},
		},
		{
			name: "Comparison with a failed backend",
			factory: dft.NewTestFactory(map[dft.BackendID]dft.Extractor{
				dft.Sequential:    &dft.MockExtractor{ID: "sequential", Result: one},
				dft.Accelerator:   &dft.MockExtractor{ID: "accelerator", Result: one},
				dft.TaskScheduled: &dft.MockExtractor{ID: "task_scheduled", Err: errors.New("unit 3 failed")},
			}),
			wantCode: apperrors.ExitErrorGeneric,
			wantOut:  []string{"unit 3 failed", "At least one backend failed"},
		},
		{
			name:     "Backend failure",
			factory:  mockFactory(map[dft.BackendID]dft.Complex{dft.Sequential: one}, func(context.Context) error { return errors.New("device lost") }),
			extra:    []string{"-backend", "sequential"},
			wantCode: apperrors.ExitErrorGeneric,
			wantOut:  []string{"device lost"},
		},
		{
			name:     "Timeout",
			factory:  mockFactory(map[dft.BackendID]dft.Complex{dft.Sequential: one}, waitForCtx),
			extra:    []string{"-backend", "sequential", "-timeout", "20ms"},
			wantCode: apperrors.ExitErrorTimeout,
			wantOut:  []string{"Timeout"},
		},
		{
			name:     "Canceled",
			ctx:      canceled,
			factory:  mockFactory(map[dft.BackendID]dft.Complex{dft.Sequential: one}, waitForCtx),
			extra:    []string{"-backend", "sequential"},
			wantCode: apperrors.ExitErrorCanceled,
			wantOut:  []string{"Canceled"},
		},
		{
			name:     "No visibilities",
			factory:  agreeingFactory(),
			extra:    []string{"-visibilities", "0"},
			wantCode: apperrors.ExitErrorInput,
			wantOut:  []string{"no visibilities available"},
		},
		{
			name:     "Missing sources file",
			factory:  agreeingFactory(),
			extra:    []string{"-synthetic-sources=false", "-sources-file", "does/not/exist.txt"},
			wantCode: apperrors.ExitErrorInput,
			wantOut:  []string{"does/not/exist.txt"},
		},
		{
			name:     "Quiet",
			factory:  agreeingFactory(),
			extra:    []string{"-backend", "sequential", "-q"},
			wantCode: apperrors.ExitSuccess,
			wantOut:  []string{"visibilities=16 nan=0 peak=1"},
		},
		{
			name:     "Dump config",
			factory:  agreeingFactory(),
			extra:    []string{"-backend", "task_scheduled", "-dump-config"},
			wantCode: apperrors.ExitSuccess,
			wantOut:  []string{"backend: task_scheduled", "num_visibilities: 16"},
		},
		{
			name:     "Completion",
			factory:  agreeingFactory(),
			extra:    []string{"-completion", "fish"},
			wantCode: apperrors.ExitSuccess,
			wantOut:  []string{"complete -c dftcalc"},
		},
		{
			name:     "Unsupported completion shell",
			factory:  agreeingFactory(),
			extra:    []string{"-completion", "tcsh"},
			wantCode: apperrors.ExitErrorConfig,
		},
		{
			name:     "Calibration without backends",
			factory:  mockFactory(map[dft.BackendID]dft.Complex{dft.Sequential: one}, nil),
			extra:    []string{"-calibrate"},
			wantCode: apperrors.ExitErrorGeneric,
			wantOut:  []string{"Critical error"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := tt.ctx
			if ctx == nil {
				ctx = context.Background()
			}
			a := newTestApp(t, tt.factory, syntheticArgs(t, tt.extra...))
			var out bytes.Buffer
			code := a.Run(ctx, &out)
			output := testutil.StripAnsiCodes(out.String())
			if code != tt.wantCode {
				t.Fatalf("Run() = %d, want %d\n%s", code, tt.wantCode, output)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(output, want) {
					t.Errorf("output lacks %q:\n%s", want, output)
				}
			}
		})
	}
}

func TestRun_JSONComparison(t *testing.T) {
	t.Parallel()
	factory := mockFactory(map[dft.BackendID]dft.Complex{
		dft.Sequential:  {Real: 1},
		dft.Accelerator: {Real: 1},
	}, nil)
	a := newTestApp(t, factory, syntheticArgs(t, "-json"))

	var out bytes.Buffer
	if code := a.Run(context.Background(), &out); code != apperrors.ExitSuccess {
		t.Fatalf("Run() = %d\n%s", code, out.String())
	}
	var reports []cli.ExtractionReport
	if err := json.Unmarshal(out.Bytes(), &reports); err != nil {
		t.Fatalf("output is not a JSON array of reports: %v\n%s", err, out.String())
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	for _, r := range reports {
		if r.Visibilities != 16 || r.Sources != 3 || r.PeakAmplitude != 1 || r.Error != "" {
			t.Errorf("report = %+v", r)
		}
	}
}

func TestRun_JSONComparisonFailure(t *testing.T) {
	t.Parallel()
	factory := mockFactory(map[dft.BackendID]dft.Complex{
		dft.Sequential:  {},
		dft.Accelerator: {},
	}, func(context.Context) error { return errors.New("out of memory") })
	a := newTestApp(t, factory, syntheticArgs(t, "-json"))

	var out bytes.Buffer
	if code := a.Run(context.Background(), &out); code != apperrors.ExitErrorGeneric {
		t.Fatalf("Run() = %d\n%s", code, out.String())
	}
	var reports []cli.ExtractionReport
	if err := json.Unmarshal(out.Bytes(), &reports); err != nil {
		t.Fatalf("output is not a JSON array: %v\n%s", err, out.String())
	}
	for _, r := range reports {
		if r.Error != "out of memory" {
			t.Errorf("report = %+v", r)
		}
	}
}

func TestRun_OutputAndCompare(t *testing.T) {
	t.Parallel()
	outFile := filepath.Join(t.TempDir(), "nested", "vis.txt")

	first := newTestApp(t, agreeingFactory(), syntheticArgs(t, "-backend", "sequential", "-output", outFile))
	var out bytes.Buffer
	if code := first.Run(context.Background(), &out); code != apperrors.ExitSuccess {
		t.Fatalf("first Run() = %d\n%s", code, out.String())
	}
	if !strings.Contains(testutil.StripAnsiCodes(out.String()), "Output saved to: "+outFile) {
		t.Errorf("save not reported:\n%s", out.String())
	}
	if _, err := os.Stat(outFile); err != nil {
		t.Fatalf("output file not written: %v", err)
	}

	t.Run("Same result", func(t *testing.T) {
		t.Parallel()
		a := newTestApp(t, agreeingFactory(), syntheticArgs(t, "-backend", "sequential", "-compare-with", outFile))
		var out bytes.Buffer
		if code := a.Run(context.Background(), &out); code != apperrors.ExitSuccess {
			t.Fatalf("Run() = %d\n%s", code, out.String())
		}
		if !strings.Contains(out.String(), "All rows within") {
			t.Errorf("comparison not reported:\n%s", out.String())
		}
	})

	t.Run("Different result", func(t *testing.T) {
		t.Parallel()
		factory := mockFactory(map[dft.BackendID]dft.Complex{dft.Sequential: {Real: 1, Imaginary: 0.5}}, nil)
		a := newTestApp(t, factory, syntheticArgs(t, "-backend", "sequential", "-compare-with", outFile))
		var out bytes.Buffer
		if code := a.Run(context.Background(), &out); code != apperrors.ExitErrorMismatch {
			t.Fatalf("Run() = %d, want %d\n%s", code, apperrors.ExitErrorMismatch, out.String())
		}
		if !strings.Contains(out.String(), "16 rows differ") {
			t.Errorf("mismatch not reported:\n%s", out.String())
		}
	})

	t.Run("Different size", func(t *testing.T) {
		t.Parallel()
		a := newTestApp(t, agreeingFactory(), syntheticArgs(t, "-backend", "sequential", "-visibilities", "8", "-compare-with", outFile))
		var out bytes.Buffer
		if code := a.Run(context.Background(), &out); code != apperrors.ExitErrorMismatch {
			t.Fatalf("Run() = %d\n%s", code, out.String())
		}
	})
}

func TestRun_InputFiles(t *testing.T) {
	t.Parallel()
	sources := testutil.WriteFile(t, "sources.txt", "1\n0 0 2\n")
	visibilities := testutil.WriteFile(t, "vis.txt", "2\n1 2 3 0 0 1\n-1 -2 -3 0 0 1\n")

	args := []string{
		"dftcalc", "-backend", "sequential", "-q", "-output", "",
		"-sources-file", sources, "-visibilities-file", visibilities,
		"-calibration-profile", filepath.Join(t.TempDir(), "profile.json"),
	}
	a := newTestApp(t, dft.NewDefaultFactory(), args)
	var out bytes.Buffer
	if code := a.Run(context.Background(), &out); code != apperrors.ExitSuccess {
		t.Fatalf("Run() = %d\n%s", code, out.String())
	}
	// A source at the phase center has amplitude I everywhere.
	if !strings.Contains(out.String(), "visibilities=2 nan=0 peak=2") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRun_AppliesCalibrationProfile(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	profilePath := filepath.Join(t.TempDir(), "profile.json")
	p := calibration.NewProfile()
	p.OptimalNumBlocks, p.OptimalChunkSize = 48, 1024
	p.CalibrationVisibilities = 16384
	if err := p.SaveProfile(profilePath); err != nil {
		t.Fatal(err)
	}

	var got dft.Options
	extractor := mocks.NewMockExtractor(ctrl)
	extractor.EXPECT().Name().Return(string(dft.Accelerator)).AnyTimes()
	extractor.EXPECT().
		Extract(gomock.Any(), gomock.Any(), 0, gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ chan<- dft.ProgressUpdate, _ int, opts dft.Options, _ []dft.Source, _ []dft.Visibility, _ []dft.Complex) error {
			got = opts
			return nil
		})
	factory := dft.NewTestFactory(map[dft.BackendID]dft.Extractor{dft.Accelerator: extractor})

	args := []string{
		"dftcalc", "-backend", "accelerator", "-q", "-output", "",
		"-synthetic-sources", "-synthetic-visibilities", "-visibilities", "32768",
		"-calibration-profile", profilePath,
	}
	a := newTestApp(t, factory, args)
	if code := a.Run(context.Background(), &bytes.Buffer{}); code != apperrors.ExitSuccess {
		t.Fatalf("Run() = %d", code)
	}
	if got.NumBlocks != 48 || got.ChunkSize != 2048 {
		t.Errorf("options = %+v, want 48 blocks and chunks of 2048", got)
	}
}

func TestRunAutoCalibrationIfEnabled(t *testing.T) {
	t.Parallel()

	t.Run("Disabled", func(t *testing.T) {
		t.Parallel()
		a := newTestApp(t, agreeingFactory(), syntheticArgs(t))
		var out bytes.Buffer
		a.runAutoCalibrationIfEnabled(context.Background(), &out)
		if a.Profile != nil || out.Len() != 0 {
			t.Errorf("disabled auto-calibration ran: profile=%v output=%q", a.Profile, out.String())
		}
	})

	t.Run("Failing backends keep the current profile", func(t *testing.T) {
		t.Parallel()
		factory := mockFactory(map[dft.BackendID]dft.Complex{
			dft.Accelerator:   {},
			dft.TaskScheduled: {},
		}, func(context.Context) error { return errors.New("busy") })
		a := newTestApp(t, factory, syntheticArgs(t, "-auto-calibrate"))
		a.runAutoCalibrationIfEnabled(context.Background(), &bytes.Buffer{})
		if a.Profile != nil {
			t.Errorf("Profile = %v, want nil", a.Profile)
		}
	})

	t.Run("Real backends", func(t *testing.T) {
		if testing.Short() {
			t.Skip("runs real extractions")
		}
		t.Parallel()
		a := newTestApp(t, dft.NewDefaultFactory(), syntheticArgs(t, "-auto-calibrate"))
		var out bytes.Buffer
		a.runAutoCalibrationIfEnabled(context.Background(), &out)
		if a.Profile == nil || !a.Profile.IsValid() {
			t.Errorf("Profile = %v\n%s", a.Profile, out.String())
		}
	})
}

func TestRun_RealBackendsAgree(t *testing.T) {
	if testing.Short() {
		t.Skip("runs every backend")
	}
	t.Parallel()
	a := newTestApp(t, dft.NewDefaultFactory(), syntheticArgs(t, "-sources", "16", "-visibilities", "2048", "-timeout", time.Minute.String()))
	var out bytes.Buffer
	if code := a.Run(context.Background(), &out); code != apperrors.ExitSuccess {
		t.Fatalf("Run() = %d\n%s", code, testutil.StripAnsiCodes(out.String()))
	}
}

func TestIsHelpError(t *testing.T) {
	t.Parallel()
	if IsHelpError(errors.New("other")) || IsHelpError(nil) {
		t.Error("IsHelpError matched a non-help error")
	}
}
