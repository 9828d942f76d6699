// Package pipeline converts a sequential stream of inputs into a stream of
// outputs on a bounded worker pool, keeping submission order when asked to.
//
// A Stage describes the per-unit work: a Converter, an optional raw-input
// filter and a list of Verifiers run on every converted object. Errors raised
// by a unit are normalized to *errors.AppError. Fatal kinds (STRUCTURAL,
// SOURCE_FAILURE, CANCELLED, ...) always stop the run; per-record kinds go
// through the ErrorPolicy, which either rethrows (stop) or suppresses them
// into the captured-errors list. The first fatal error wins and is the only
// one ever surfaced.
//
// # Modes
//
// Ordered is push-driven: one goroutine submits inputs, workers convert them
// concurrently and Results yields the outputs, reordered by index unless
// WithOrdered(false) is given:
//
//	p, _ := pipeline.NewOrdered(pipeline.Stage[rec, obj]{Convert: conv},
//	    pipeline.WithWorkers(8), pipeline.WithThrowOnError(false))
//	_ = p.Prepare(ctx)
//	go func() {
//	    defer p.Complete()
//	    for _, r := range records {
//	        if _, err := p.Submit(ctx, r); err != nil {
//	            return
//	        }
//	    }
//	}()
//	it, _ := p.Results()
//	objs, err := pipeline.Collect(ctx, pipeline.From(it))
//
// Sequential is pull-driven and keeps at most two inputs resident:
//
//	s, _ := pipeline.NewSequential(src, stage)
//	_ = s.Start(ctx)
//	defer s.Close()
//	for s.HasNext() {
//	    v, err := s.Next()
//	    ...
//	}
//
// # Operators
//
// Map, Filter, Tap, Concat and Batch compose lazy pull-based pipelines over
// any Iterator; the binding package uses them to stitch headers, results and
// sink flushes together.
package pipeline
