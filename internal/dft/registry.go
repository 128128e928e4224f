package dft

// BackendFactory cannot be mocked with mockgen because Register takes the
// unexported coreBackend type. Use DefaultFactory or TestFactory instead.

import (
	"fmt"
	"slices"
	"sync"
)

// BackendFactory creates and caches Extractor instances by identifier. It
// is the open backend registry: new strategies are added with Register
// without touching the dispatcher.
type BackendFactory interface {
	// Create returns a fresh, uncached Extractor.
	Create(id BackendID) (Extractor, error)

	// Get returns the cached Extractor for id, creating it on first use.
	Get(id BackendID) (Extractor, error)

	// List returns the registered identifiers in sorted order.
	List() []BackendID

	// Register adds or replaces a backend.
	Register(id BackendID, creator func() coreBackend) error

	// GetAll returns every registered backend.
	GetAll() map[BackendID]Extractor
}

// DefaultFactory is the thread-safe BackendFactory used by the application.
type DefaultFactory struct {
	mu         sync.RWMutex
	creators   map[BackendID]func() coreBackend
	extractors map[BackendID]Extractor
}

// NewDefaultFactory returns a factory with the three built-in backends
// registered:
//   - "sequential": one goroutine walking every visibility in order
//   - "accelerator": block/lane launch on the default Device
//   - "task_scheduled": chunked work units on a shared ready queue
func NewDefaultFactory() *DefaultFactory {
	f := &DefaultFactory{
		creators:   make(map[BackendID]func() coreBackend),
		extractors: make(map[BackendID]Extractor),
	}

	_ = f.Register(Sequential, func() coreBackend { return &SequentialBackend{} })
	_ = f.Register(Accelerator, func() coreBackend { return NewAcceleratorBackend(nil) })
	_ = f.Register(TaskScheduled, func() coreBackend { return NewTaskScheduledBackend(nil) })

	return f
}

// Register adds a backend. Registering an existing identifier replaces it
// and drops the cached instance.
func (f *DefaultFactory) Register(id BackendID, creator func() coreBackend) error {
	if id == "" {
		return fmt.Errorf("backend identifier cannot be empty")
	}
	if creator == nil {
		return fmt.Errorf("backend %q: creator cannot be nil", id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.creators[id] = creator
	delete(f.extractors, id)
	return nil
}

// Create returns a new Extractor without caching it.
func (f *DefaultFactory) Create(id BackendID) (Extractor, error) {
	f.mu.RLock()
	creator, ok := f.creators[id]
	f.mu.RUnlock()

	if !ok {
		return nil, &UnknownBackendError{ID: id}
	}
	return NewExtractor(creator()), nil
}

// Get returns the cached Extractor for id.
func (f *DefaultFactory) Get(id BackendID) (Extractor, error) {
	f.mu.RLock()
	if e, exists := f.extractors[id]; exists {
		f.mu.RUnlock()
		return e, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double-check after acquiring the write lock.
	if e, exists := f.extractors[id]; exists {
		return e, nil
	}

	creator, ok := f.creators[id]
	if !ok {
		return nil, &UnknownBackendError{ID: id}
	}

	e := NewExtractor(creator())
	f.extractors[id] = e
	return e, nil
}

// List returns the registered identifiers, sorted.
func (f *DefaultFactory) List() []BackendID {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ids := make([]BackendID, 0, len(f.creators))
	for id := range f.creators {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// GetAll initializes every registered backend and returns a copy of the
// cache.
func (f *DefaultFactory) GetAll() map[BackendID]Extractor {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, creator := range f.creators {
		if _, exists := f.extractors[id]; !exists {
			f.extractors[id] = NewExtractor(creator())
		}
	}

	result := make(map[BackendID]Extractor, len(f.extractors))
	for id, e := range f.extractors {
		result[id] = e
	}
	return result
}

// MustGet is like Get but panics when id is not registered.
func (f *DefaultFactory) MustGet(id BackendID) Extractor {
	e, err := f.Get(id)
	if err != nil {
		panic(fmt.Sprintf("dft: required backend not found: %s", id))
	}
	return e
}

// Has reports whether id is registered.
func (f *DefaultFactory) Has(id BackendID) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, exists := f.creators[id]
	return exists
}

var globalFactory = NewDefaultFactory()

// GlobalFactory returns the process-wide factory.
func GlobalFactory() *DefaultFactory {
	return globalFactory
}

// RegisterBackend registers a backend in the global factory.
func RegisterBackend(id BackendID, creator func() coreBackend) error {
	return globalFactory.Register(id, creator)
}
