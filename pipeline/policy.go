package pipeline

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/kbukum/recordbind/errors"
)

// Decision is the outcome of an ErrorPolicy.
type Decision int

const (
	// Rethrow stops the pipeline with the error as its terminal error.
	Rethrow Decision = iota
	// Suppress records the error in the captured list and skips the unit.
	Suppress
)

func (d Decision) String() string {
	if d == Suppress {
		return "suppress"
	}
	return "rethrow"
}

// ErrorPolicy decides what happens to a per-record error. Fatal errors never
// reach the policy. Policies are called from worker goroutines and must be
// safe for concurrent use.
type ErrorPolicy func(err *errors.AppError) Decision

// ThrowPolicy stops at the first per-record error.
func ThrowPolicy(*errors.AppError) Decision { return Rethrow }

// CollectPolicy captures every per-record error and keeps going.
func CollectPolicy(*errors.AppError) Decision { return Suppress }

// CollectKinds captures errors of the listed kinds and rethrows the rest.
func CollectKinds(kinds ...errors.ErrorCode) ErrorPolicy {
	return func(err *errors.AppError) Decision {
		if slices.Contains(kinds, err.Code) {
			return Suppress
		}
		return Rethrow
	}
}

// CollectUpTo captures the first n per-record errors and rethrows the next one.
func CollectUpTo(n int) ErrorPolicy {
	var seen atomic.Int64
	return func(*errors.AppError) Decision {
		if seen.Add(1) <= int64(n) {
			return Suppress
		}
		return Rethrow
	}
}

// PolicyByName maps the configuration names "throw" and "collect" to policies.
func PolicyByName(name string) (ErrorPolicy, error) {
	switch name {
	case "", "throw":
		return ThrowPolicy, nil
	case "collect":
		return CollectPolicy, nil
	default:
		return nil, errors.BadConfiguration(fmt.Sprintf("unknown error policy %q", name))
	}
}

// CapturedError is a suppressed per-record error.
type CapturedError struct {
	Index uint64
	Line  int64
	Kind  errors.ErrorCode
	Err   *errors.AppError
}

func (c CapturedError) Error() string { return c.Err.Error() }

// capturedList is the append-only, mutex-guarded list shared by all workers.
type capturedList struct {
	mu    sync.Mutex
	items []CapturedError
}

func (l *capturedList) add(c CapturedError) {
	l.mu.Lock()
	l.items = append(l.items, c)
	l.mu.Unlock()
}

// snapshot returns a copy sorted by unit index.
func (l *capturedList) snapshot() []CapturedError {
	l.mu.Lock()
	out := slices.Clone(l.items)
	l.mu.Unlock()
	slices.SortFunc(out, func(a, b CapturedError) int {
		switch {
		case a.Index < b.Index:
			return -1
		case a.Index > b.Index:
			return 1
		}
		return 0
	})
	return out
}
