package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/kbukum/recordbind/errors"
	"github.com/kbukum/recordbind/logger"
)

// Converter turns one input into one output. It is called from many workers
// at once and must be safe for concurrent use.
type Converter[I, O any] interface {
	Convert(ctx context.Context, in I) (O, error)
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc[I, O any] func(ctx context.Context, in I) (O, error)

func (f ConverterFunc[I, O]) Convert(ctx context.Context, in I) (O, error) { return f(ctx, in) }

// Verifier inspects a converted object. Returning (false, nil) drops the
// object silently; returning an error rejects it with that error.
type Verifier[T any] interface {
	Verify(v T) (bool, error)
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc[T any] func(v T) (bool, error)

func (f VerifierFunc[T]) Verify(v T) (bool, error) { return f(v) }

// Stage bundles the per-unit work of a pipeline.
type Stage[I, O any] struct {
	// Convert is required.
	Convert Converter[I, O]
	// Filter rejects raw inputs before conversion. Nil accepts everything.
	Filter func(in I) bool
	// Verifiers run in order on every converted object.
	Verifiers []Verifier[O]
	// Line reports the source line of an input. Nil numbers units from 1.
	Line func(in I) int64
}

func (s Stage[I, O]) validate() error {
	if s.Convert == nil {
		return errors.BadConfiguration("stage has no converter")
	}
	return nil
}

func (s Stage[I, O]) lineOf(in I, index uint64) int64 {
	if s.Line != nil {
		return s.Line(in)
	}
	return int64(index) + 1
}

// unit is one submitted input with its sequence index.
type unit[I any] struct {
	index uint64
	line  int64
	input I
}

// runner executes units for both pipeline modes so they share error semantics.
type runner[I, O any] struct {
	stage    Stage[I, O]
	policy   ErrorPolicy
	captured *capturedList
	terminal *terminalSlot
	log      *logger.Logger
	metrics  Recorder
	stats    *counters
}

func newRunner[I, O any](stage Stage[I, O], cfg *Config) *runner[I, O] {
	return &runner[I, O]{
		stage:    stage,
		policy:   cfg.Policy,
		captured: &capturedList{},
		terminal: newTerminalSlot(),
		log:      cfg.Logger,
		metrics:  cfg.recorder(),
		stats:    &counters{},
	}
}

// run executes one unit and never returns an error: failures are folded into
// the result and, when fatal or rethrown, latched in the terminal slot.
func (r *runner[I, O]) run(ctx context.Context, u unit[I]) (res Result[O]) {
	start := time.Now()
	res = Result[O]{Index: u.index, Line: u.line}
	defer func() {
		if p := recover(); p != nil {
			res = r.fail(ctx, res, errors.Internal(fmt.Errorf("panic: %v", p)))
		}
		r.stats.count(res.Status)
		r.metrics.RecordConversion(ctx, res.Status.String(), time.Since(start))
	}()

	if r.stage.Filter != nil && !r.stage.Filter(u.input) {
		res.Status = StatusFiltered
		return res
	}

	out, err := r.stage.Convert.Convert(ctx, u.input)
	if err != nil {
		return r.handle(ctx, res, normalize(err, errors.ErrCodeTypeConversion))
	}

	for _, v := range r.stage.Verifiers {
		ok, err := v.Verify(out)
		if err != nil {
			return r.handle(ctx, res, normalize(err, errors.ErrCodeConstraintViolation))
		}
		if !ok {
			res.Status = StatusFiltered
			return res
		}
	}

	res.Status = StatusSuccess
	res.Value = out
	return res
}

// handle applies the error policy to a unit error.
func (r *runner[I, O]) handle(ctx context.Context, res Result[O], err *errors.AppError) Result[O] {
	if err.Line == 0 {
		err = err.At(res.Line)
	}
	if err.Fatal() || r.policy(err) == Rethrow {
		return r.fail(ctx, res, err)
	}
	r.captured.add(CapturedError{Index: res.Index, Line: err.Line, Kind: err.Code, Err: err})
	r.stats.captured.Add(1)
	r.metrics.RecordCaptured(ctx, string(err.Code))
	if r.log.Enabled("debug") {
		r.log.Debug("record error captured", logger.Fields(
			logger.FieldLine, err.Line,
			logger.FieldIndex, res.Index,
			logger.FieldKind, string(err.Code),
			logger.FieldError, err.Error(),
		))
	}
	res.Status = StatusFiltered
	res.Err = err
	return res
}

// fail latches err as the terminal error if none is set yet.
func (r *runner[I, O]) fail(ctx context.Context, res Result[O], err *errors.AppError) Result[O] {
	if err.Line == 0 && res.Line > 0 {
		err = err.At(res.Line)
	}
	r.latch(ctx, err)
	var zero O
	res.Value = zero
	res.Status = StatusFailed
	res.Err = err
	return res
}

// latch records err as the terminal error. Only the first call wins.
func (r *runner[I, O]) latch(ctx context.Context, err *errors.AppError) bool {
	if !r.terminal.set(err) {
		return false
	}
	r.metrics.RecordTerminal(ctx, string(err.Code))
	r.log.Warn("pipeline stopped", logger.Fields(
		logger.FieldKind, string(err.Code),
		logger.FieldLine, err.Line,
		logger.FieldError, err.Error(),
	))
	return true
}

// normalize turns any error into an AppError. Plain errors get fallback as
// their kind; context errors become CANCELLED.
func normalize(err error, fallback errors.ErrorCode) *errors.AppError {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Cancelled(err)
	}
	switch fallback {
	case errors.ErrCodeConstraintViolation:
		return errors.ConstraintViolation(err.Error()).WithCause(err)
	case errors.ErrCodeTypeConversion:
		return errors.New(errors.ErrCodeTypeConversion, err.Error()).WithCause(err)
	default:
		return errors.Wrap(err)
	}
}
