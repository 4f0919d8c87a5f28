package optim

import (
	"context"

	"github.com/born-ml/bayescal/internal/accu"
	"github.com/born-ml/bayescal/internal/proba"
	"github.com/born-ml/bayescal/internal/trajectory"
)

// GD implements vanilla score-function gradient descent.
//
// Update rule:
//
//	grad  = 1/n sum (v_i - mean) d/dparam log p(x_i) + temperature * grad KL
//	param = param - eta * grad
//
// Each step uses only the samples it draws. Every step is accepted.
type GD struct {
	*run
	accu *accu.SampleVal
}

func newGD(obj Objective, m proba.Map, cfg Config) *GD {
	return &GD{
		run:  newRun(obj, m, cfg, cfg.Eta),
		accu: accu.NewSampleVal(m.SampleDim(), cfg.budget()),
	}
}

// Update performs one gradient descent step.
func (g *GD) Update(ctx context.Context) (Outcome, error) {
	st := g.st
	xs, vals, err := g.draw(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if err := g.accu.Add(xs, vals); err != nil {
		return Outcome{}, err
	}

	weights := make([]float64, len(vals))
	for i := range weights {
		weights[i] = 1 / float64(len(vals))
	}
	gradLoss, mean, _ := accu.WeightedScoreGrad(vals, weights, g.pmap.LogDensityGrad(st.Param)(xs))
	gradKL, kl := g.klGrad(st.Param, g.cfg.NGradKL)
	score := mean + g.cfg.Temperature*kl

	g.log.Add1(st.Param, score, kl, mean)
	rec, _ := g.log.LastRecord()

	next := descend(st, gradLoss, gradKL, g.cfg.Temperature, 0, g.frozen)
	next.PrevScore = score
	next.Converged = g.converged(next.Param, st.Param)
	g.commit(next)

	return Outcome{Step: st.Step, Accepted: true, Record: rec}, nil
}

// Result assembles the run output.
func (g *GD) Result() *Result {
	return g.result(nil, g.accu, trajectory.New(0))
}

// descend applies one (momentum) gradient step to st and returns the next state:
//
//	delta    = -eta * (gradLoss + temperature * gradKL), zero on frozen
//	velocity = delta + momentum * velocity
//	param    = param + velocity
func descend(st State, gradLoss, gradKL []float64, temperature, momentum float64, frozen []int) State {
	next := st.Clone()
	for i := range next.Velocity {
		next.Velocity[i] = -st.Eta*(gradLoss[i]+temperature*gradKL[i]) + momentum*st.Velocity[i]
	}
	for _, i := range frozen {
		next.Velocity[i] = 0
	}
	for i := range next.Param {
		next.Param[i] += next.Velocity[i]
	}
	next.Step++
	return next
}
