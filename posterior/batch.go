package posterior

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of evaluating one point of a batch. A point
// with a non-nil Err is infeasible.
type Result struct {
	LogPosterior float64
	Err          error
}

// EvaluateBatch evaluates the log-posterior at each of xs on up to
// workers goroutines, each with its own clone of the engine. Failed
// points are reported in their results; the returned error is only
// the cancellation of ctx. Non-positive workers means GOMAXPROCS.
func EvaluateBatch(
	ctx context.Context,
	e *Engine,
	xs [][]float64,
	workers int,
) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(xs) {
		workers = len(xs)
	}
	results := make([]Result, len(xs))
	next := make(chan int)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(next)
		for i := range xs {
			select {
			case next <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for w := 0; w != workers; w++ {
		g.Go(func() error {
			c := e.Clone()
			for i := range next {
				lp, err := c.LogPosterior(xs[i])
				results[i] = Result{LogPosterior: lp, Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
