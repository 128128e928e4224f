package dft

import "context"

// MockExtractor is a hand-written Extractor for tests in other packages.
// When Fn is nil it fills output with Result and returns Err.
type MockExtractor struct {
	ID     string
	Result Complex
	Err    error
	Fn     func(ctx context.Context, sources []Source, visibilities []Visibility, output []Complex) error
}

// Name returns ID, or "mock" when ID is empty.
func (m *MockExtractor) Name() string {
	if m.ID == "" {
		return "mock"
	}
	return m.ID
}

// Extract calls Fn if set; otherwise it fills output with Result and
// returns Err.
func (m *MockExtractor) Extract(ctx context.Context, progressChan chan<- ProgressUpdate, extractorIndex int, opts Options, sources []Source, visibilities []Visibility, output []Complex) error {
	if m.Fn != nil {
		return m.Fn(ctx, sources, visibilities, output)
	}
	if m.Err != nil {
		return m.Err
	}
	for i := range output {
		output[i] = m.Result
	}
	if progressChan != nil {
		progressChan <- ProgressUpdate{ExtractorIndex: extractorIndex, Value: 1.0}
	}
	return nil
}

// TestFactory is a BackendFactory over a fixed set of extractors.
type TestFactory struct {
	extractors map[BackendID]Extractor
}

// NewTestFactory returns a factory serving extractors.
func NewTestFactory(extractors map[BackendID]Extractor) *TestFactory {
	if extractors == nil {
		extractors = make(map[BackendID]Extractor)
	}
	return &TestFactory{extractors: extractors}
}

// Create returns the extractor registered under id.
func (f *TestFactory) Create(id BackendID) (Extractor, error) {
	return f.Get(id)
}

// Get returns the extractor registered under id.
func (f *TestFactory) Get(id BackendID) (Extractor, error) {
	e, ok := f.extractors[id]
	if !ok {
		return nil, &UnknownBackendError{ID: id}
	}
	return e, nil
}

// List returns the registered identifiers in no particular order.
func (f *TestFactory) List() []BackendID {
	ids := make([]BackendID, 0, len(f.extractors))
	for id := range f.extractors {
		ids = append(ids, id)
	}
	return ids
}

// Register is a no-op: extractors are fixed at construction.
func (f *TestFactory) Register(id BackendID, creator func() coreBackend) error {
	return nil
}

// GetAll returns a copy of the extractor map.
func (f *TestFactory) GetAll() map[BackendID]Extractor {
	result := make(map[BackendID]Extractor, len(f.extractors))
	for k, v := range f.extractors {
		result[k] = v
	}
	return result
}
