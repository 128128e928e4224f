package dft

import "sync"

// ProgressObserver receives progress notifications from a running extraction.
type ProgressObserver interface {
	// Update is called with the extractor index and the normalized progress.
	Update(extractorIndex int, progress float64)
}

// ProgressSubject fans progress out to registered observers. It is safe for
// concurrent use: the accelerator and task-scheduled backends report from
// several goroutines.
type ProgressSubject struct {
	observers []ProgressObserver
	mu        sync.RWMutex
}

// NewProgressSubject creates a subject with no observers.
func NewProgressSubject() *ProgressSubject {
	return &ProgressSubject{
		observers: make([]ProgressObserver, 0),
	}
}

// Register adds an observer. Nil observers are ignored.
func (s *ProgressSubject) Register(observer ProgressObserver) {
	if observer == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observer)
}

// Notify sends an update to every observer, in registration order.
func (s *ProgressSubject) Notify(extractorIndex int, progress float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, observer := range s.observers {
		observer.Update(extractorIndex, progress)
	}
}

// AsProgressReporter binds the subject to one extractor index.
func (s *ProgressSubject) AsProgressReporter(extractorIndex int) ProgressReporter {
	return func(progress float64) {
		s.Notify(extractorIndex, progress)
	}
}
