// Package parallel provides index-aligned batch evaluation for the solvers.
package parallel

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled    bool // Whether parallel execution is enabled.
	NumWorkers int  // Maximum number of concurrent evaluations.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:    n > 1,
		NumWorkers: n,
	}
}

// Map evaluates f(ctx, i) for i in [0, n) and returns the results in index
// order, whatever the completion order. It blocks until every call returned.
//
// The first error cancels the context passed to pending calls and is
// returned. Falls back to sequential execution if parallelism is disabled.
func Map[T any](ctx context.Context, n int, f func(ctx context.Context, i int) (T, error), cfg Config) ([]T, error) {
	out := make([]T, n)
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n <= 1 {
		// Sequential fallback.
		for i := range n {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			v, err := f(ctx, i)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}

	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(min(cfg.NumWorkers, n))
	for i := range n {
		p.Go(func(ctx context.Context) error {
			v, err := f(ctx, i)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = v
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
