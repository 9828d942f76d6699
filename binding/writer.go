package binding

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kbukum/recordbind/errors"
	"github.com/kbukum/recordbind/mapping"
	"github.com/kbukum/recordbind/observability"
	"github.com/kbukum/recordbind/pipeline"
	"github.com/kbukum/recordbind/record"
)

const defaultFlushEvery = 256

// Writer renders objects of type T to a record sink through the ordered
// pipeline. With ordering enabled, rows reach the sink in input order.
type Writer[T any] struct {
	sink       record.Sink
	mapper     mapping.FieldMapper[T]
	opts       []pipeline.Option
	filter     func(T) bool
	header     *bool
	flushEvery int

	mu      sync.Mutex
	last    run
	written atomic.Int64
}

// NewWriter creates a Writer. Invalid pipeline options fail here with
// BAD_CONFIGURATION.
func NewWriter[T any](sink record.Sink, mapper mapping.FieldMapper[T], opts ...pipeline.Option) (*Writer[T], error) {
	if sink == nil {
		return nil, errors.BadConfiguration("writer has no record sink")
	}
	if mapper == nil {
		return nil, errors.BadConfiguration("writer has no field mapper")
	}
	cfg := pipeline.NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Writer[T]{sink: sink, mapper: mapper, opts: opts, flushEvery: defaultFlushEvery}, nil
}

// WithHeader forces the header row on or off. By default it is written when
// the mapper binds by name.
func (w *Writer[T]) WithHeader(on bool) *Writer[T] {
	w.header = &on
	return w
}

// FlushEvery flushes the sink after every n rows and after the last one.
func (w *Writer[T]) FlushEvery(n int) *Writer[T] {
	if n > 0 {
		w.flushEvery = n
	}
	return w
}

// Filter skips objects for which keep returns false.
func (w *Writer[T]) Filter(keep func(T) bool) *Writer[T] {
	w.filter = keep
	return w
}

// Write renders every object from objs and writes it to the sink. objs is
// closed when Write returns. Sink failures are fatal SOURCE_FAILURE errors.
func (w *Writer[T]) Write(ctx context.Context, objs pipeline.Iterator[T]) (err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanWrite)
	defer func() {
		observability.SetSpanAttribute(ctx, observability.AttrRecords, w.written.Load())
		if err != nil {
			observability.SetSpanError(ctx, err)
			observability.SetSpanAttribute(ctx, observability.AttrErrorKind, string(errors.KindOf(err)))
		}
		span.End()
	}()
	defer objs.Close()

	p, err := pipeline.NewOrdered(pipeline.Stage[T, []string]{
		Convert: pipeline.ConverterFunc[T, []string](w.mapper.ToRecord),
		Filter:  w.filter,
	}, w.opts...)
	if err != nil {
		return err
	}
	if err := p.Prepare(ctx); err != nil {
		return err
	}
	w.setRun(p)
	observability.SetSpanAttribute(ctx, observability.AttrRunID, p.RunID())

	fed := make(chan struct{})
	go func() {
		defer close(fed)
		defer p.Complete()
		for {
			obj, ok, err := objs.Next(ctx)
			if err != nil {
				p.Fail(err)
				return
			}
			if !ok {
				return
			}
			if _, err := p.Submit(ctx, obj); err != nil {
				return
			}
		}
	}()
	defer func() { <-fed }()

	results, err := p.Results()
	if err != nil {
		return err
	}
	rows := pipeline.From(results)
	if w.writeHeader() {
		header, err := w.mapper.GenerateHeader(w.mapper.CreateInstance())
		if err != nil {
			_ = results.Close()
			return err
		}
		rows = pipeline.Concat(pipeline.FromSlice([][]string{header}), rows)
	}
	rows = pipeline.Tap(rows, func(_ context.Context, row []string) error {
		if err := w.sink.Write(row); err != nil {
			return errors.SourceFailure(err).WithDetail("stage", "sink")
		}
		w.written.Add(1)
		return nil
	})

	return pipeline.ForEach(ctx, pipeline.Batch(rows, w.flushEvery, 0), func(context.Context, [][]string) error {
		if err := w.sink.Flush(); err != nil {
			return errors.SourceFailure(err).WithDetail("stage", "sink")
		}
		return nil
	})
}

// CapturedErrors returns the errors suppressed during the last Write.
func (w *Writer[T]) CapturedErrors() []pipeline.CapturedError {
	if p := w.getRun(); p != nil {
		return p.CapturedErrors()
	}
	return nil
}

// Stats reports unit outcomes of the last Write.
func (w *Writer[T]) Stats() Stats {
	s := Stats{Written: w.written.Load()}
	if p := w.getRun(); p != nil {
		s.Stats = p.Stats()
	}
	return s
}

// RunID identifies the last Write in logs and traces.
func (w *Writer[T]) RunID() string {
	if p := w.getRun(); p != nil {
		return p.RunID()
	}
	return ""
}

func (w *Writer[T]) writeHeader() bool {
	if w.header != nil {
		return *w.header
	}
	return w.mapper.BindsByName()
}

func (w *Writer[T]) setRun(p run) {
	w.mu.Lock()
	w.last = p
	w.mu.Unlock()
}

func (w *Writer[T]) getRun() run {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}
