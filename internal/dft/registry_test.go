package dft

import (
	"context"
	"errors"
	"slices"
	"testing"
)

type constantBackend struct {
	value Complex
}

func (b *constantBackend) Name() string { return "constant" }

func (b *constantBackend) ExtractCore(_ context.Context, _ ProgressReporter, _ Options, _ []Source, _ []Visibility, output []Complex) error {
	for i := range output {
		output[i] = b.value
	}
	return nil
}

func TestDefaultFactory_List(t *testing.T) {
	t.Parallel()
	f := NewDefaultFactory()
	want := []BackendID{Accelerator, Sequential, TaskScheduled}
	if got := f.List(); !slices.Equal(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
	for _, id := range BuiltinBackends() {
		if !f.Has(id) {
			t.Errorf("Has(%q) = false", id)
		}
	}
	if f.Has("missing") {
		t.Error("Has(missing) = true")
	}
}

func TestDefaultFactory_GetCachesCreateDoesNot(t *testing.T) {
	t.Parallel()
	f := NewDefaultFactory()
	a, err := f.Get(Sequential)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := f.Get(Sequential)
	if a != b {
		t.Error("Get should return the cached instance")
	}
	c, err := f.Create(Sequential)
	if err != nil {
		t.Fatal(err)
	}
	if a == c {
		t.Error("Create should return a fresh instance")
	}
	if c.Name() != "sequential" {
		t.Errorf("Name() = %q", c.Name())
	}
}

func TestDefaultFactory_UnknownBackend(t *testing.T) {
	t.Parallel()
	f := NewDefaultFactory()
	for _, call := range []func(BackendID) (Extractor, error){f.Get, f.Create} {
		_, err := call("nope")
		var unknown *UnknownBackendError
		if !errors.As(err, &unknown) {
			t.Errorf("expected UnknownBackendError, got %v", err)
		}
	}
}

func TestDefaultFactory_RegisterCustomBackend(t *testing.T) {
	t.Parallel()
	f := NewDefaultFactory()
	if err := f.Register("constant", func() coreBackend { return &constantBackend{value: Complex{Real: 9}} }); err != nil {
		t.Fatal(err)
	}
	out := make([]Complex, 2)
	if err := Extract(context.Background(), f, "constant", Options{}, nil, make([]Visibility, 2), out); err != nil {
		t.Fatal(err)
	}
	if out[0].Real != 9 || out[1].Real != 9 {
		t.Errorf("unexpected output %+v", out)
	}

	// Re-registering replaces the cached instance.
	_ = f.Register("constant", func() coreBackend { return &constantBackend{value: Complex{Real: 1}} })
	if err := Extract(context.Background(), f, "constant", Options{}, nil, make([]Visibility, 2), out); err != nil {
		t.Fatal(err)
	}
	if out[0].Real != 1 {
		t.Errorf("re-registered backend not used: %+v", out)
	}
	if len(f.GetAll()) != 4 {
		t.Errorf("GetAll() returned %d backends, want 4", len(f.GetAll()))
	}
}

func TestDefaultFactory_RegisterRejectsInvalid(t *testing.T) {
	t.Parallel()
	f := NewDefaultFactory()
	if err := f.Register("", func() coreBackend { return &SequentialBackend{} }); err == nil {
		t.Error("expected error for empty identifier")
	}
	if err := f.Register("x", nil); err == nil {
		t.Error("expected error for nil creator")
	}
}

func TestDefaultFactory_MustGetPanics(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Error("MustGet should panic for an unknown backend")
		}
	}()
	NewDefaultFactory().MustGet("nope")
}

func TestGlobalFactory(t *testing.T) {
	t.Parallel()
	if !GlobalFactory().Has(TaskScheduled) {
		t.Error("global factory should register built-in backends")
	}
}

func TestParseBackendID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    BackendID
		wantErr bool
	}{
		{"sequential", Sequential, false},
		{"  CPU ", Sequential, false},
		{"cuda", Accelerator, false},
		{"GPU", Accelerator, false},
		{"starpu", TaskScheduled, false},
		{"task-scheduled", TaskScheduled, false},
		{"task_scheduled", TaskScheduled, false},
		{"custom", BackendID("custom"), false},
		{"", "", true},
		{"   ", "", true},
	}
	for _, tt := range tests {
		got, err := ParseBackendID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBackendID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBackendID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTestFactory(t *testing.T) {
	t.Parallel()
	mock := &MockExtractor{ID: "m", Result: Complex{Real: 2}}
	f := NewTestFactory(map[BackendID]Extractor{"m": mock})
	out := make([]Complex, 3)
	if err := Extract(context.Background(), f, "m", Options{}, nil, make([]Visibility, 3), out); err != nil {
		t.Fatal(err)
	}
	if out[2].Real != 2 {
		t.Errorf("mock result not written: %+v", out)
	}
	if _, err := f.Get("x"); err == nil {
		t.Error("expected error for unknown id")
	}
}
