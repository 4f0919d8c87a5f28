// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/bayescal/internal/optim"
	"github.com/born-ml/bayescal/internal/proba"
)

// Updater is a single solver strategy (one step per Update call).
type Updater = optim.Updater

// Solver drives an Updater for a whole run.
type Solver = optim.Solver

// Config holds the solver configuration.
type Config = optim.Config

// Method selects the solver strategy.
type Method = optim.Method

// Solver strategies.
const (
	MethodGradientBased = optim.MethodGradientBased
	MethodGD            = optim.MethodGD
)

// State is the mutable part of a solver run.
type State = optim.State

// Outcome is the result of one Update call.
type Outcome = optim.Outcome

// Rejection describes a rolled back step.
type Rejection = optim.Rejection

// Result is the output of a solver run.
type Result = optim.Result

// Objective is the loss under optimization.
type Objective = optim.Objective

// LossFunc evaluates the loss at one sample.
type LossFunc = optim.LossFunc

// BatchLossFunc evaluates the loss on a whole batch.
type BatchLossFunc = optim.BatchLossFunc

// Errors.
var (
	ErrInvalidConfig  = optim.ErrInvalidConfig
	ErrLossLength     = optim.ErrLossLength
	ErrChainExhausted = optim.ErrChainExhausted
)

// DefaultConfig returns the default configuration. Prior must still be set.
func DefaultConfig() Config {
	return optim.DefaultConfig()
}

// New creates a solver for obj over the family m.
//
// Example:
//
//	family := proba.NewGaussianMap(1)
//	cfg := optim.DefaultConfig()
//	cfg.Prior = family.Param([]float64{0}, []float64{0})
//	solver, err := optim.New(optim.FromFunc(loss), family, cfg)
func New(obj Objective, m proba.Map, cfg Config) (*Solver, error) {
	return optim.New(obj, m, cfg)
}

// FromFunc wraps an infallible per-sample loss.
func FromFunc(f func(x proba.Sample) float64) Objective {
	return optim.FromFunc(f)
}

// FromBatchFunc wraps an infallible vectorized loss.
func FromBatchFunc(f func(xs []proba.Sample) []float64) Objective {
	return optim.FromBatchFunc(f)
}
