package pipeline

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/recordbind/errors"
	"github.com/kbukum/recordbind/logger"
)

// Ordered runs a Stage on a bounded worker pool. Inputs are pushed with
// Submit from a single goroutine and outputs are pulled from Results, in
// submission order unless ordering is disabled.
//
// At most QueueSize+Workers units are in flight at once. A unit holds its
// slot from Submit until the consumer releases its result, so a slow consumer
// blocks the submitter instead of growing the reorder buffer.
type Ordered[I, O any] struct {
	cfg   Config
	stage Stage[I, O]
	r     *runner[I, O]
	state stateCell

	ctx        context.Context
	cancel     context.CancelFunc
	tasks      chan unit[I]
	slots      chan struct{}
	results    chan Result[O]
	terminated chan struct{}
	wg         sync.WaitGroup
	started    time.Time

	next         uint64
	completed    atomic.Bool
	completeOnce sync.Once
	consumed     atomic.Bool
}

// NewOrdered creates an ordered pipeline. Call Prepare before submitting.
func NewOrdered[I, O any](stage Stage[I, O], opts ...Option) (*Ordered[I, O], error) {
	if err := stage.validate(); err != nil {
		return nil, err
	}
	cfg := NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Logger = cfg.Logger.WithFields(logger.Fields(
		logger.FieldWorkers, cfg.Workers,
		logger.FieldOrdered, cfg.Ordered,
	))
	return &Ordered[I, O]{
		cfg:        cfg,
		stage:      stage,
		r:          newRunner(stage, &cfg),
		terminated: make(chan struct{}),
	}, nil
}

// Prepare starts the worker pool. It may be called only once.
func (o *Ordered[I, O]) Prepare(ctx context.Context) error {
	if !o.state.advance(StateRunning) {
		return ErrAlreadyPrepared
	}
	o.ctx, o.cancel = context.WithCancel(ctx)
	window := o.cfg.QueueSize + o.cfg.Workers
	o.tasks = make(chan unit[I], o.cfg.QueueSize)
	o.slots = make(chan struct{}, window)
	// results never blocks a worker: every queued result holds a slot.
	o.results = make(chan Result[O], window)
	o.started = time.Now()

	o.wg.Add(o.cfg.Workers)
	for i := 0; i < o.cfg.Workers; i++ {
		go o.work()
	}
	go o.closeWhenDone()
	go o.watch()

	o.cfg.Logger.Debug("pipeline started", logger.Fields(logger.FieldStatus, StateRunning.String()))
	return nil
}

// Submit enqueues one input and returns its sequence index. It blocks while
// the in-flight window is full. Submit must not be called concurrently.
func (o *Ordered[I, O]) Submit(ctx context.Context, in I) (uint64, error) {
	if o.state.load() == StateCreated {
		return 0, ErrNotPrepared
	}
	if o.completed.Load() {
		return 0, ErrCompleted
	}
	if err := o.r.terminal.get(); err != nil {
		return 0, err
	}

	select {
	case o.slots <- struct{}{}:
	case <-o.r.terminal.done:
		return 0, o.r.terminal.get()
	case <-o.ctx.Done():
		return 0, o.cancelled(o.ctx)
	case <-ctx.Done():
		return 0, o.cancelled(ctx)
	}
	if err := o.r.terminal.get(); err != nil {
		<-o.slots
		return 0, err
	}

	idx := o.next
	o.next++
	u := unit[I]{index: idx, line: o.stage.lineOf(in, idx), input: in}
	select {
	case o.tasks <- u:
	case <-o.ctx.Done():
		<-o.slots
		return 0, o.cancelled(o.ctx)
	case <-ctx.Done():
		<-o.slots
		return 0, o.cancelled(ctx)
	}
	o.r.stats.submitted.Add(1)
	o.r.metrics.AddInFlight(ctx, 1)
	return idx, nil
}

// Fail latches an error raised outside the workers, typically by the record
// source. It is always fatal; non-fatal errors are wrapped as SOURCE_FAILURE.
func (o *Ordered[I, O]) Fail(err error) {
	if err == nil {
		return
	}
	o.r.latch(o.ctxOrBackground(), SourceError(err))
}

// Complete signals the end of input. Units already submitted still run.
// It returns the terminal error, if one is latched.
func (o *Ordered[I, O]) Complete() error {
	if o.state.load() == StateCreated {
		return ErrNotPrepared
	}
	o.completeOnce.Do(func() {
		o.completed.Store(true)
		close(o.tasks)
		o.state.advance(StateDraining)
	})
	return o.r.terminal.get()
}

// Results returns the single-use output iterator.
func (o *Ordered[I, O]) Results() (Iterator[O], error) {
	if o.state.load() == StateCreated {
		return nil, ErrNotPrepared
	}
	if !o.consumed.CompareAndSwap(false, true) {
		return nil, ErrResultsConsumed
	}
	return &orderedIter[I, O]{o: o, pending: make(map[uint64]Result[O])}, nil
}

// Wait blocks until every worker has exited and returns the terminal error.
func (o *Ordered[I, O]) Wait() error {
	if o.state.load() == StateCreated {
		return ErrNotPrepared
	}
	<-o.terminated
	return o.r.terminal.get()
}

// Close cancels the run. Running converters observe the cancelled context.
func (o *Ordered[I, O]) Close() error {
	if o.cancel != nil {
		o.cancel()
	}
	return nil
}

// TerminalError returns the first fatal error, or nil.
func (o *Ordered[I, O]) TerminalError() error { return o.r.terminal.get() }

// CapturedErrors returns the suppressed errors ordered by sequence index.
func (o *Ordered[I, O]) CapturedErrors() []CapturedError { return o.r.captured.snapshot() }

// Stats returns unit outcome counters.
func (o *Ordered[I, O]) Stats() Stats { return o.r.stats.snapshot() }

// RunID identifies this run in logs and traces.
func (o *Ordered[I, O]) RunID() string { return o.cfg.RunID }

// State reports the lifecycle state.
func (o *Ordered[I, O]) State() State {
	s := o.state.load()
	if s < StateShuttingDown && o.r.terminal.load() != nil {
		return StateShuttingDown
	}
	return s
}

func (o *Ordered[I, O]) work() {
	defer o.wg.Done()
	for {
		select {
		case <-o.ctx.Done():
			// Queued units will never resolve; termination must carry an error.
			o.cancelled(o.ctx)
			return
		case u, ok := <-o.tasks:
			if !ok {
				return
			}
			var res Result[O]
			if o.r.terminal.load() != nil {
				res = Result[O]{Index: u.index, Line: u.line, Status: StatusDropped}
				o.r.stats.count(StatusDropped)
			} else {
				res = o.r.run(o.ctx, u)
			}
			o.results <- res
		}
	}
}

func (o *Ordered[I, O]) closeWhenDone() {
	o.wg.Wait()
	o.state.advance(StateTerminated)
	close(o.terminated)
	close(o.results)

	stats := o.r.stats.snapshot()
	fields := logger.Fields(
		logger.FieldRecords, stats.Succeeded,
		logger.FieldCaptured, stats.Captured,
	)
	for k, v := range logger.DurationFields("convert", time.Since(o.started)) {
		fields[k] = v
	}
	if err := o.r.terminal.load(); err != nil {
		fields[logger.FieldStatus] = "failed"
		fields[logger.FieldKind] = string(err.Code)
	} else {
		fields[logger.FieldStatus] = "ok"
	}
	o.cfg.Logger.Info("pipeline finished", fields)
	o.cancel()
}

// watch latches CANCELLED when the run context ends before termination.
func (o *Ordered[I, O]) watch() {
	select {
	case <-o.terminated:
	case <-o.ctx.Done():
		select {
		case <-o.terminated:
		default:
			o.cancelled(o.ctx)
		}
	}
}

func (o *Ordered[I, O]) cancelled(ctx context.Context) error {
	o.r.latch(o.ctxOrBackground(), errors.Cancelled(context.Cause(ctx)))
	return o.r.terminal.get()
}

func (o *Ordered[I, O]) ctxOrBackground() context.Context {
	if o.ctx != nil {
		return context.WithoutCancel(o.ctx)
	}
	return context.Background()
}

// SourceError classifies an error raised by an input source.
func SourceError(err error) *errors.AppError {
	if appErr, ok := errors.AsAppError(err); ok && appErr.Fatal() {
		return appErr
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Cancelled(err)
	}
	return errors.SourceFailure(err)
}

// orderedIter releases results to the consumer, reordering when required.
type orderedIter[I, O any] struct {
	o        *Ordered[I, O]
	pending  map[uint64]Result[O]
	next     uint64
	received uint64
	done     bool
	err      error
}

func (it *orderedIter[I, O]) Next(ctx context.Context) (O, bool, error) {
	var zero O
	o := it.o
	for {
		if it.done {
			return zero, false, it.err
		}
		if o.cfg.Ordered {
			if res, ok := it.pending[it.next]; ok {
				delete(it.pending, it.next)
				it.next++
				if v, ok := it.release(ctx, res); ok || it.done {
					return v, ok, it.err
				}
				continue
			}
		} else if err := o.r.terminal.get(); err != nil {
			return it.finish(err)
		}

		select {
		case res, ok := <-o.results:
			if !ok {
				err := o.r.terminal.get()
				if err == nil && it.received < o.r.stats.submitted.Load() {
					err = o.cancelled(o.ctx)
				}
				return it.finish(err)
			}
			it.received++
			if o.cfg.Ordered {
				it.pending[res.Index] = res
				continue
			}
			if v, ok := it.release(ctx, res); ok || it.done {
				return v, ok, it.err
			}
		case <-ctx.Done():
			return it.finish(o.cancelled(ctx))
		}
	}
}

// release frees the unit's slot and reports whether it carries a value.
// Failed and dropped units end the iteration with the terminal error.
func (it *orderedIter[I, O]) release(ctx context.Context, res Result[O]) (O, bool) {
	<-it.o.slots
	it.o.r.metrics.AddInFlight(ctx, -1)
	switch res.Status {
	case StatusSuccess:
		return res.Value, true
	case StatusFiltered:
	default:
		it.finish(it.o.r.terminal.get())
	}
	var zero O
	return zero, false
}

func (it *orderedIter[I, O]) finish(err error) (O, bool, error) {
	it.done = true
	it.err = err
	var zero O
	return zero, false, err
}

// Close stops the pipeline unless every result was already consumed.
func (it *orderedIter[I, O]) Close() error {
	if it.done && it.err == nil {
		return nil
	}
	return it.o.Close()
}
