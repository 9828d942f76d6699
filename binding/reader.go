package binding

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/recordbind/errors"
	"github.com/kbukum/recordbind/mapping"
	"github.com/kbukum/recordbind/observability"
	"github.com/kbukum/recordbind/pipeline"
	"github.com/kbukum/recordbind/record"
)

// ErrAlreadyRead is returned when a Reader is consumed a second time.
var ErrAlreadyRead = stderrors.New("binding: reader already consumed")

// Stats reports the outcome of a run.
type Stats struct {
	pipeline.Stats
	// LastLine is the line of the last record read from the source. Under the
	// throw policy it tells how far processing got before stopping.
	LastLine int64
	// Written counts rows a Writer passed to its sink, header included.
	Written int64
}

// run is the view of a pipeline a Reader or Writer reports from.
type run interface {
	CapturedErrors() []pipeline.CapturedError
	Stats() pipeline.Stats
	RunID() string
}

// Reader converts records from a source into objects of type T. A Reader is
// single-use: exactly one of Parse, Stream or Iterator may be called.
type Reader[T any] struct {
	src       *trackedSource
	mapper    mapping.FieldMapper[T]
	opts      []pipeline.Option
	filter    func(record.Record) bool
	verifiers []pipeline.Verifier[T]

	used atomic.Bool
	mu   sync.Mutex
	last run
}

// NewReader creates a Reader. Invalid pipeline options fail here with
// BAD_CONFIGURATION, before any record is read.
func NewReader[T any](src record.Source, mapper mapping.FieldMapper[T], opts ...pipeline.Option) (*Reader[T], error) {
	if src == nil {
		return nil, errors.BadConfiguration("reader has no record source")
	}
	if mapper == nil {
		return nil, errors.BadConfiguration("reader has no field mapper")
	}
	cfg := pipeline.NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Reader[T]{src: &trackedSource{Source: src}, mapper: mapper, opts: opts}, nil
}

// Filter drops raw records for which keep returns false, before conversion.
func (r *Reader[T]) Filter(keep func(record.Record) bool) *Reader[T] {
	r.filter = keep
	return r
}

// Verify adds verifiers that run on every converted object, in order.
func (r *Reader[T]) Verify(verifiers ...pipeline.Verifier[T]) *Reader[T] {
	r.verifiers = append(r.verifiers, verifiers...)
	return r
}

// Parse converts the whole input. Objects converted before a terminal error
// are returned alongside it.
func (r *Reader[T]) Parse(ctx context.Context) ([]T, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanParse)
	defer span.End()
	out, err := pipeline.Collect(ctx, pipeline.From(r.Stream(ctx)))
	r.annotate(ctx, err)
	return out, err
}

// Stream converts the input on the worker pool and yields objects lazily.
// Closing the iterator early cancels the run.
func (r *Reader[T]) Stream(ctx context.Context) pipeline.Iterator[T] {
	ctx, span := observability.StartSpan(ctx, observability.SpanStream)
	if err := r.begin(ctx); err != nil {
		endSpan(ctx, span, err)
		return pipeline.ErrorIterator[T](err)
	}
	p, err := pipeline.NewOrdered(r.stage(), r.opts...)
	if err == nil {
		err = p.Prepare(ctx)
	}
	if err != nil {
		endSpan(ctx, span, err)
		return pipeline.ErrorIterator[T](err)
	}
	r.setRun(p)
	cfg := pipeline.NewConfig(r.opts...)
	observability.SetSpanAttribute(ctx, observability.AttrRunID, p.RunID())
	observability.SetSpanAttribute(ctx, observability.AttrOrdered, cfg.Ordered)
	observability.SetSpanAttribute(ctx, observability.AttrWorkers, cfg.Workers)

	results, err := p.Results()
	if err != nil {
		_ = p.Close()
		endSpan(ctx, span, err)
		return pipeline.ErrorIterator[T](err)
	}
	it := &streamIter[T]{r: r, p: p, results: results, ctx: ctx, span: span, fed: make(chan struct{})}
	go it.feed(ctx)
	return it
}

// Iterator starts a pull-mode run: each call to Next converts at most one
// further record. The caller must Close it.
// The iterate span covers header capture and the first prefetch.
func (r *Reader[T]) Iterator(ctx context.Context) (s *pipeline.Sequential[record.Record, T], err error) {
	spanCtx, span := observability.StartSpan(ctx, observability.SpanIterate)
	defer func() {
		if err != nil {
			endSpan(spanCtx, span, err)
			return
		}
		span.End()
	}()

	if err := r.begin(spanCtx); err != nil {
		return nil, err
	}
	s, err = pipeline.NewSequential[record.Record, T](r.src, r.stage(), r.opts...)
	if err != nil {
		return nil, err
	}
	r.setRun(s)
	observability.SetSpanAttribute(spanCtx, observability.AttrRunID, s.RunID())
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// CapturedErrors returns the errors suppressed by the collect policy.
func (r *Reader[T]) CapturedErrors() []pipeline.CapturedError {
	if p := r.getRun(); p != nil {
		return p.CapturedErrors()
	}
	return nil
}

// Stats reports unit outcomes and the last source line read.
func (r *Reader[T]) Stats() Stats {
	s := Stats{LastLine: r.src.last.Load()}
	if p := r.getRun(); p != nil {
		s.Stats = p.Stats()
	}
	return s
}

// RunID identifies the current run in logs and traces, or is empty before one starts.
func (r *Reader[T]) RunID() string {
	if p := r.getRun(); p != nil {
		return p.RunID()
	}
	return ""
}

func (r *Reader[T]) begin(ctx context.Context) error {
	if !r.used.CompareAndSwap(false, true) {
		return ErrAlreadyRead
	}
	if err := r.mapper.CaptureHeader(ctx, r.src); err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return appErr
		}
		return pipeline.SourceError(err)
	}
	return nil
}

func (r *Reader[T]) stage() pipeline.Stage[record.Record, T] {
	return pipeline.Stage[record.Record, T]{
		Convert:   pipeline.ConverterFunc[record.Record, T](r.mapper.ToObject),
		Filter:    r.filter,
		Verifiers: r.verifiers,
		Line:      record.LineOf,
	}
}

func (r *Reader[T]) setRun(p run) {
	r.mu.Lock()
	r.last = p
	r.mu.Unlock()
}

func (r *Reader[T]) getRun() run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Reader[T]) annotate(ctx context.Context, err error) {
	stats := r.Stats()
	observability.SetSpanAttribute(ctx, observability.AttrRecords, stats.Succeeded)
	observability.SetSpanAttribute(ctx, observability.AttrCaptured, stats.Captured)
	if err != nil {
		observability.SetSpanError(ctx, err)
		observability.SetSpanAttribute(ctx, observability.AttrErrorKind, string(errors.KindOf(err)))
	}
}

func endSpan(ctx context.Context, span trace.Span, err error) {
	observability.SetSpanError(ctx, err)
	observability.SetSpanAttribute(ctx, observability.AttrErrorKind, string(errors.KindOf(err)))
	span.End()
}

// streamIter feeds the ordered pipeline from the source and yields its results.
type streamIter[T any] struct {
	r       *Reader[T]
	p       *pipeline.Ordered[record.Record, T]
	results pipeline.Iterator[T]
	ctx     context.Context
	span    trace.Span
	fed     chan struct{}
	once    sync.Once
	err     error
}

// feed is the single submitting goroutine.
func (it *streamIter[T]) feed(ctx context.Context) {
	defer close(it.fed)
	defer it.p.Complete()
	for {
		rec, ok, err := it.r.src.Next(ctx)
		if err != nil {
			it.p.Fail(err)
			return
		}
		if !ok {
			return
		}
		if _, err := it.p.Submit(ctx, rec); err != nil {
			return
		}
	}
}

func (it *streamIter[T]) Next(ctx context.Context) (T, bool, error) {
	v, ok, err := it.results.Next(ctx)
	if err != nil {
		it.err = err
	}
	return v, ok, err
}

// Close stops the run if it is still going, waits for the submitter and
// closes the source.
func (it *streamIter[T]) Close() error {
	var closeErr error
	it.once.Do(func() {
		_ = it.results.Close()
		<-it.fed
		closeErr = it.r.src.Close()
		it.r.annotate(it.ctx, it.err)
		it.span.End()
	})
	return closeErr
}

// trackedSource remembers the line of the last record read.
type trackedSource struct {
	record.Source
	last atomic.Int64
}

func (s *trackedSource) Next(ctx context.Context) (record.Record, bool, error) {
	rec, ok, err := s.Source.Next(ctx)
	if ok {
		s.last.Store(rec.Line)
	}
	return rec, ok, err
}
