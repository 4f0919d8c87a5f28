// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides gradient-based variational calibration.
//
// # Overview
//
// The solvers look for the distribution, within a parametric family, that
// minimizes
//
//	E_post[loss] + temperature * KL(post || prior)
//
// when the loss is expensive and only Monte Carlo estimates are available.
//
// This package contains:
//   - GD: vanilla score-function gradient descent
//   - GradientBased: momentum, reuse of past samples through importance
//     reweighting, rollback of harmful steps with learning rate shrinkage
//   - Solver: the step loop with convergence check and logging
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/bayescal/optim"
//	    "github.com/born-ml/bayescal/proba"
//	)
//
//	func main() {
//	    family := proba.NewGaussianMap(1)
//
//	    cfg := optim.DefaultConfig()
//	    cfg.Prior = family.Param([]float64{0}, []float64{0})
//	    cfg.Temperature = 0.1
//	    cfg.Eta = 0.1
//	    cfg.ChainLength = 20
//	    cfg.PerStep = []int{200}
//	    cfg.Momentum = 0.5
//
//	    solver, err := optim.New(optim.FromFunc(func(x proba.Sample) float64 {
//	        return (x[0] - 5) * (x[0] - 5)
//	    }), family, cfg)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    res, err := solver.Optimize(context.Background())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(res.OptimParam, res.OptimScore)
//	}
//
// # Stepping Manually
//
// Update runs one step and reports whether it was accepted:
//
//	for solver.State().Step < cfg.ChainLength {
//	    out, err := solver.Update(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    if out.Rejection != nil {
//	        log.Println(out.Rejection)
//	    }
//	}
//
// # Expensive Losses
//
// Set Parallel to evaluate a per-sample loss on a worker pool, or Vectorized
// with Objective.Batch to evaluate whole batches at once. Results are always
// index-aligned with the drawn samples, so a seeded run gives the same
// trajectory whatever the evaluation mode.
package optim
