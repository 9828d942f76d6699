package pipeline

import (
	stderrors "errors"
	"sync/atomic"

	"github.com/kbukum/recordbind/errors"
)

// Lifecycle misuse errors.
var (
	ErrNotPrepared     = stderrors.New("pipeline: not prepared")
	ErrAlreadyPrepared = stderrors.New("pipeline: already prepared")
	ErrCompleted       = stderrors.New("pipeline: input already completed")
	ErrResultsConsumed = stderrors.New("pipeline: results already consumed")
	ErrNoMoreResults   = stderrors.New("pipeline: no more results")
)

// Status is the outcome of one unit of work.
type Status int

const (
	// StatusSuccess means the unit produced an output.
	StatusSuccess Status = iota
	// StatusFiltered means the unit was rejected by a filter or verifier, or
	// its error was suppressed by the policy.
	StatusFiltered
	// StatusFailed means the unit produced the terminal error.
	StatusFailed
	// StatusDropped means the unit was skipped because the pipeline had already failed.
	StatusDropped
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFiltered:
		return "filtered"
	case StatusFailed:
		return "failed"
	case StatusDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Result carries the outcome of one unit back to the consumer.
type Result[T any] struct {
	Index  uint64
	Line   int64
	Status Status
	Value  T
	Err    *errors.AppError
}

// State is the lifecycle position of a pipeline. It only moves forward.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateDraining
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateShuttingDown:
		return "shutting_down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

type stateCell struct {
	v atomic.Int32
}

func (c *stateCell) load() State { return State(c.v.Load()) }

// advance moves to s if s is later than the current state.
func (c *stateCell) advance(s State) bool {
	for {
		cur := c.v.Load()
		if State(cur) >= s {
			return false
		}
		if c.v.CompareAndSwap(cur, int32(s)) {
			return true
		}
	}
}

// terminalSlot holds the first fatal error of a run. Later errors are ignored.
type terminalSlot struct {
	err  atomic.Pointer[errors.AppError]
	done chan struct{}
}

func newTerminalSlot() *terminalSlot {
	return &terminalSlot{done: make(chan struct{})}
}

// set stores err if the slot is empty and reports whether it won.
func (t *terminalSlot) set(err *errors.AppError) bool {
	if err == nil {
		return false
	}
	if t.err.CompareAndSwap(nil, err) {
		close(t.done)
		return true
	}
	return false
}

func (t *terminalSlot) load() *errors.AppError { return t.err.Load() }

// get returns the terminal error as an error interface, nil when unset.
func (t *terminalSlot) get() error {
	if e := t.err.Load(); e != nil {
		return e
	}
	return nil
}

// Stats counts unit outcomes of a run.
type Stats struct {
	Submitted uint64
	Succeeded uint64
	Filtered  uint64
	Captured  uint64
	Failed    uint64
	Dropped   uint64
}

type counters struct {
	submitted, succeeded, filtered, captured, failed, dropped atomic.Uint64
}

func (c *counters) count(s Status) {
	switch s {
	case StatusSuccess:
		c.succeeded.Add(1)
	case StatusFiltered:
		c.filtered.Add(1)
	case StatusFailed:
		c.failed.Add(1)
	case StatusDropped:
		c.dropped.Add(1)
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Submitted: c.submitted.Load(),
		Succeeded: c.succeeded.Load(),
		Filtered:  c.filtered.Load(),
		Captured:  c.captured.Load(),
		Failed:    c.failed.Load(),
		Dropped:   c.dropped.Load(),
	}
}
