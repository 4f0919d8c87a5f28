package optim

import (
	"context"
	"fmt"

	"github.com/born-ml/bayescal/internal/parallel"
	"github.com/born-ml/bayescal/internal/proba"
)

// LossFunc evaluates the loss at one sample.
type LossFunc func(ctx context.Context, x proba.Sample) (float64, error)

// BatchLossFunc evaluates the loss at every sample of a batch. The result
// must be index-aligned with xs.
type BatchLossFunc func(ctx context.Context, xs []proba.Sample) ([]float64, error)

// Objective is the loss under optimization. Loss is used by default,
// Batch when Config.Vectorized is set.
type Objective struct {
	Loss  LossFunc
	Batch BatchLossFunc
}

// FromFunc wraps an infallible per-sample loss.
func FromFunc(f func(x proba.Sample) float64) Objective {
	return Objective{Loss: func(_ context.Context, x proba.Sample) (float64, error) {
		return f(x), nil
	}}
}

// FromBatchFunc wraps an infallible vectorized loss.
func FromBatchFunc(f func(xs []proba.Sample) []float64) Objective {
	return Objective{Batch: func(_ context.Context, xs []proba.Sample) ([]float64, error) {
		return f(xs), nil
	}}
}

func (o Objective) validate(vectorized bool) error {
	if vectorized && o.Batch == nil {
		return invalid("vectorized evaluation needs a batch loss")
	}
	if !vectorized && o.Loss == nil {
		return invalid("per-sample evaluation needs a loss")
	}
	return nil
}

// evaluate returns the losses at xs, index-aligned. It blocks until the
// whole batch is evaluated.
func (o Objective) evaluate(ctx context.Context, xs []proba.Sample, vectorized bool, cfg parallel.Config) ([]float64, error) {
	if vectorized {
		vals, err := o.Batch(ctx, xs)
		if err != nil {
			return nil, fmt.Errorf("evaluate batch: %w", err)
		}
		if len(vals) != len(xs) {
			return nil, fmt.Errorf("%d values for %d samples: %w", len(vals), len(xs), ErrLossLength)
		}
		return vals, nil
	}

	vals, err := parallel.Map(ctx, len(xs), func(ctx context.Context, i int) (float64, error) {
		return o.Loss(ctx, xs[i])
	}, cfg)
	if err != nil {
		return nil, fmt.Errorf("evaluate samples: %w", err)
	}
	return vals, nil
}
