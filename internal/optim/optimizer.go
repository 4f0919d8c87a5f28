// Package optim implements gradient-based variational calibration.
//
// The solvers minimize the variational score
//
//	score(post) = E_post[loss] + temperature * KL(post || prior)
//
// over the parameters of a distribution family, using only Monte Carlo
// evaluations of a (possibly expensive) loss.
//
// This package provides:
//   - Updater interface: one solver step per Update call
//   - GD: vanilla score-function gradient descent
//   - GradientBased: momentum, reuse of past generations through importance
//     reweighting, rejection and rollback of harmful steps
//   - Solver: the iteration scaffold (step loop, convergence, logging)
//
// Example usage:
//
//	family := proba.NewGaussianMap(1)
//	prior := family.Param([]float64{0}, []float64{0})
//
//	cfg := optim.DefaultConfig()
//	cfg.Prior = prior
//	cfg.Eta = 0.1
//	cfg.ChainLength = 20
//	cfg.PerStep = []int{200}
//
//	solver, err := optim.New(optim.FromFunc(loss), family, cfg)
//	if err != nil {
//	    return err
//	}
//	res, err := solver.Optimize(ctx)
package optim

import (
	"context"
	"fmt"

	"github.com/born-ml/bayescal/internal/proba"
	"github.com/born-ml/bayescal/internal/trajectory"
)

// Updater is a single solver strategy.
//
// All updaters must implement:
//   - Update: run one step (draw, evaluate, estimate, propose, validate, log)
//   - State: expose the committed run-state
//   - Result: assemble the output of the run so far
type Updater interface {
	// Update performs one step.
	//
	// A rejected step is not an error: it is reported through
	// Outcome.Rejection and the run-state is rolled back. Errors are fatal
	// (loss evaluation failure, accumulator overflow, cancellation).
	Update(ctx context.Context) (Outcome, error)

	// State returns a copy of the committed run-state.
	State() State

	// Result assembles the run output.
	Result() *Result
}

// State is the mutable part of a solver run.
type State struct {
	Param     proba.Param // Current parameter
	Velocity  []float64   // Momentum, zero on frozen coordinates
	Eta       float64     // Current learning rate
	PrevScore float64     // Last accepted variational score (+Inf if none)
	Step      int         // Steps taken, accepted or not
	Converged bool
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Param = s.Param.Clone()
	out.Velocity = append([]float64(nil), s.Velocity...)
	return out
}

// Outcome is the result of one Update call.
type Outcome struct {
	Step      int
	Accepted  bool
	Record    trajectory.Record // Logged record when accepted
	Rejection *Rejection        // Set when the step was rolled back
}

// Rejection describes a step whose score degraded beyond the tolerated margin.
type Rejection struct {
	Step        int
	PrevScore   float64
	Score       float64
	Uncertainty float64
}

func (r *Rejection) String() string {
	return fmt.Sprintf("step %d rejected (previous score: %g, new score: %g, uncertainty: %g)",
		r.Step, r.PrevScore, r.Score, r.Uncertainty)
}
