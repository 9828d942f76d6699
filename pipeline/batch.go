package pipeline

import (
	"context"
	"time"
)

// Batch groups values into slices of up to size, emitting early once timeout
// has elapsed since the batch started. size=0 groups by timeout alone;
// timeout=0 groups by size alone; both zero means size=1.
//
// A source error first flushes the values already gathered. The error is
// returned by the following call and ends the batch stream, so it is never
// lost even when the source would not report it twice.
func Batch[T any](p *Pipeline[T], size int, timeout time.Duration) *Pipeline[[]T] {
	if size <= 0 && timeout <= 0 {
		size = 1
	}
	return &Pipeline[[]T]{
		create: func(ctx context.Context) Iterator[[]T] {
			return &batchIter[T]{source: p.create(ctx), size: size, timeout: timeout}
		},
	}
}

type batchIter[T any] struct {
	source  Iterator[T]
	size    int
	timeout time.Duration

	pending error
	done    bool
}

func (it *batchIter[T]) Next(ctx context.Context) ([]T, bool, error) {
	if it.pending != nil {
		err := it.pending
		it.pending, it.done = nil, true
		return nil, false, err
	}
	if it.done {
		return nil, false, nil
	}

	var deadline time.Time
	if it.timeout > 0 {
		deadline = time.Now().Add(it.timeout)
	}
	var batch []T
	if it.size > 0 {
		batch = make([]T, 0, it.size)
	}
	for it.size <= 0 || len(batch) < it.size {
		val, ok, err := it.source.Next(ctx)
		switch {
		case err != nil && len(batch) > 0:
			it.pending = err
			return batch, true, nil
		case err != nil:
			it.done = true
			return nil, false, err
		case !ok:
			it.done = true
			if len(batch) == 0 {
				return nil, false, nil
			}
			return batch, true, nil
		}
		batch = append(batch, val)
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			break
		}
	}
	return batch, true, nil
}

func (it *batchIter[T]) Close() error { return it.source.Close() }
