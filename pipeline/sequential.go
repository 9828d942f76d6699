package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/recordbind/logger"
)

// Sequential converts inputs pulled from a source one at a time, driven by
// the consumer. A producer goroutine hands each converted value over an
// unbuffered channel and the consumer holds one value ahead, so at most two
// inputs are resident at any moment.
//
// Filter, verifier and error-policy semantics are identical to Ordered.
type Sequential[I, O any] struct {
	cfg   Config
	src   Iterator[I]
	stage Stage[I, O]
	r     *runner[I, O]
	state stateCell

	cancel    context.CancelFunc
	out       chan O
	exited    chan struct{}
	closeOnce sync.Once
	closeErr  error
	started   time.Time

	buffered bool
	value    O
}

// NewSequential creates a pull-mode pipeline over src. Call Start before use.
func NewSequential[I, O any](src Iterator[I], stage Stage[I, O], opts ...Option) (*Sequential[I, O], error) {
	if err := stage.validate(); err != nil {
		return nil, err
	}
	cfg := NewConfig(opts...)
	cfg.Logger = cfg.Logger.WithFields(logger.Fields(logger.FieldOrdered, true))
	return &Sequential[I, O]{
		cfg:    cfg,
		src:    src,
		stage:  stage,
		r:      newRunner(stage, &cfg),
		out:    make(chan O),
		exited: make(chan struct{}),
	}, nil
}

// Start launches the producer and prefetches the first value.
func (s *Sequential[I, O]) Start(ctx context.Context) error {
	if !s.state.advance(StateRunning) {
		return ErrAlreadyPrepared
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.started = time.Now()
	go s.produce(ctx)
	s.advance()
	return nil
}

// HasNext reports whether Next will return a value.
func (s *Sequential[I, O]) HasNext() bool { return s.buffered }

// Next returns the buffered value and prefetches the following one. With
// nothing buffered it returns the terminal error, or ErrNoMoreResults.
func (s *Sequential[I, O]) Next() (O, error) {
	var zero O
	if s.state.load() == StateCreated {
		return zero, ErrNotPrepared
	}
	if !s.buffered {
		if err := s.r.terminal.get(); err != nil {
			return zero, err
		}
		return zero, ErrNoMoreResults
	}
	v := s.value
	s.value = zero
	s.buffered = false
	s.advance()
	return v, nil
}

// Err returns the terminal error, or nil.
func (s *Sequential[I, O]) Err() error { return s.r.terminal.get() }

// CapturedErrors returns the suppressed errors in input order.
func (s *Sequential[I, O]) CapturedErrors() []CapturedError { return s.r.captured.snapshot() }

// Stats returns unit outcome counters.
func (s *Sequential[I, O]) Stats() Stats { return s.r.stats.snapshot() }

// RunID identifies this run in logs and traces.
func (s *Sequential[I, O]) RunID() string { return s.cfg.RunID }

// State reports the lifecycle state.
func (s *Sequential[I, O]) State() State {
	st := s.state.load()
	if st < StateShuttingDown && s.r.terminal.load() != nil {
		return StateShuttingDown
	}
	return st
}

// Close stops the producer and closes the source. It is safe to call more than once.
func (s *Sequential[I, O]) Close() error {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
			for range s.out {
			}
			<-s.exited
		}
		s.closeErr = s.src.Close()
		s.state.advance(StateTerminated)
	})
	return s.closeErr
}

// Iter adapts the pipeline to the Iterator interface.
func (s *Sequential[I, O]) Iter() Iterator[O] { return &sequentialIter[I, O]{s: s} }

func (s *Sequential[I, O]) advance() {
	v, ok := <-s.out
	if ok {
		s.value = v
		s.buffered = true
		return
	}
	s.state.advance(StateDraining)
}

func (s *Sequential[I, O]) produce(ctx context.Context) {
	defer close(s.exited)
	defer close(s.out)
	defer s.logSummary()

	var index uint64
	for {
		in, ok, err := s.src.Next(ctx)
		if err != nil {
			s.r.latch(context.WithoutCancel(ctx), SourceError(err))
			return
		}
		if !ok {
			return
		}
		s.r.stats.submitted.Add(1)
		u := unit[I]{index: index, line: s.stage.lineOf(in, index), input: in}
		index++

		res := s.r.run(ctx, u)
		switch res.Status {
		case StatusSuccess:
			select {
			case s.out <- res.Value:
			case <-ctx.Done():
				s.r.latch(context.WithoutCancel(ctx), SourceError(context.Cause(ctx)))
				return
			}
		case StatusFailed, StatusDropped:
			return
		}
	}
}

func (s *Sequential[I, O]) logSummary() {
	stats := s.r.stats.snapshot()
	fields := logger.DurationFields("iterate", time.Since(s.started))
	fields[logger.FieldRecords] = stats.Succeeded
	fields[logger.FieldCaptured] = stats.Captured
	if err := s.r.terminal.load(); err != nil {
		fields[logger.FieldStatus] = "failed"
		fields[logger.FieldKind] = string(err.Code)
	} else {
		fields[logger.FieldStatus] = "ok"
	}
	s.cfg.Logger.Debug("pull pipeline finished", fields)
}

type sequentialIter[I, O any] struct {
	s *Sequential[I, O]
}

func (it *sequentialIter[I, O]) Next(_ context.Context) (O, bool, error) {
	if !it.s.HasNext() {
		var zero O
		return zero, false, it.s.Err()
	}
	v, err := it.s.Next()
	if err != nil {
		return v, false, err
	}
	return v, true, nil
}

func (it *sequentialIter[I, O]) Close() error { return it.s.Close() }
