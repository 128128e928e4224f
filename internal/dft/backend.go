package dft

import (
	"fmt"
	"strings"
)

// BackendID identifies one execution strategy. The built-in identifiers are
// the constants below; additional backends register their own identifier
// with a BackendFactory.
type BackendID string

const (
	// Sequential is the single-goroutine reference backend.
	Sequential BackendID = "sequential"
	// Accelerator is the data-parallel block/lane backend.
	Accelerator BackendID = "accelerator"
	// TaskScheduled is the dynamically scheduled heterogeneous backend.
	TaskScheduled BackendID = "task_scheduled"
)

// backendAliases maps the historical run-mode names onto backend identifiers.
var backendAliases = map[string]BackendID{
	"cpu":            Sequential,
	"cuda":           Accelerator,
	"gpu":            Accelerator,
	"starpu":         TaskScheduled,
	"task-scheduled": TaskScheduled,
	"scheduled":      TaskScheduled,
}

// BuiltinBackends returns the identifiers registered by NewDefaultFactory,
// in their canonical order.
func BuiltinBackends() []BackendID {
	return []BackendID{Sequential, Accelerator, TaskScheduled}
}

// String returns the identifier text.
func (id BackendID) String() string { return string(id) }

// ParseBackendID normalizes a run-mode string. Case and surrounding spaces
// are ignored and historical aliases ("cpu", "cuda", "starpu") are mapped to
// their backend. It does not check that the backend is registered; the
// factory reports unknown identifiers.
func ParseBackendID(s string) (BackendID, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return "", fmt.Errorf("empty backend identifier")
	}
	if alias, ok := backendAliases[name]; ok {
		return alias, nil
	}
	return BackendID(name), nil
}

// UnknownBackendError is returned when a backend identifier is not registered.
type UnknownBackendError struct {
	ID BackendID
}

func (e *UnknownBackendError) Error() string {
	return "unknown backend: " + string(e.ID)
}
