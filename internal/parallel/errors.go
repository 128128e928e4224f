// Package parallel provides utilities for concurrent operations.
package parallel

import (
	"sync"
	"sync/atomic"
)

// ErrorCollector keeps the first error reported by a group of goroutines.
// Workers can poll Failed to stop picking up new work once any sibling has
// failed.
//
// Usage:
//
//	var ec parallel.ErrorCollector
//	var wg sync.WaitGroup
//	for _, unit := range units {
//	    wg.Add(1)
//	    go func() {
//	        defer wg.Done()
//	        if ec.Failed() {
//	            return
//	        }
//	        ec.SetError(run(unit))
//	    }()
//	}
//	wg.Wait()
//	if err := ec.Err(); err != nil {
//	    return err
//	}
type ErrorCollector struct {
	once   sync.Once
	failed atomic.Bool
	err    error
}

// SetError records err if it is the first non-nil error. It reports whether
// err was the one recorded.
func (c *ErrorCollector) SetError(err error) bool {
	if err == nil {
		return false
	}
	recorded := false
	c.once.Do(func() {
		c.err = err
		c.failed.Store(true)
		recorded = true
	})
	return recorded
}

// Failed reports whether an error has been recorded. It is safe to call
// while other goroutines are still running.
func (c *ErrorCollector) Failed() bool {
	return c.failed.Load()
}

// Err returns the first recorded error, or nil. Call it after all
// goroutines have completed.
func (c *ErrorCollector) Err() error {
	return c.err
}
