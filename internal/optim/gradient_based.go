package optim

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/born-ml/bayescal/internal/accu"
	"github.com/born-ml/bayescal/internal/proba"
	"github.com/born-ml/bayescal/internal/trajectory"
)

// GradientBased implements gradient descent with momentum, reuse of previous
// generations and rollback of harmful steps.
//
// The gradient of the mean loss is estimated from every stored generation,
// importance reweighted to the current parameter (see
// accu.SampleValDens.GradScore). The step size is eta*(1-momentum), so that
// momentum 0 takes the same steps as GD.
//
// A step is harmful when its score exceeds the last accepted one by more than
// Φ⁻¹(RefuseConf) times the estimated standard error of the score. A harmful
// step is rolled back:
//   - the velocity is reset to zero
//   - eta is multiplied by CorrEta for the rest of the run
//   - the two newest generations are dropped from the accumulator
//   - the newest logged record moves to the bin log
//   - the parameter returns to the last surviving record (or to the initial
//     parameter, with the previous score reset to +Inf)
type GradientBased struct {
	*run
	accu         *accu.SampleValDens
	stable       *accu.SampleVal
	bin          *trajectory.Log
	momentum     float64
	refuseFactor float64
}

func newGradientBased(obj Objective, m proba.Map, cfg Config) (*GradientBased, error) {
	budget := cfg.budget()

	samples := cfg.Resume
	if samples == nil {
		samples = accu.NewSampleValDens(m.SampleDim(), budget)
	} else if err := samples.ExtendMemory(budget); err != nil {
		return nil, fmt.Errorf("resume: %w", err)
	}

	return &GradientBased{
		run:          newRun(obj, m, cfg, cfg.Eta*(1-cfg.Momentum)),
		accu:         samples,
		stable:       accu.NewSampleVal(m.SampleDim(), budget),
		bin:          trajectory.New(cfg.ChainLength),
		momentum:     cfg.Momentum,
		refuseFactor: distuv.UnitNormal.Quantile(cfg.RefuseConf),
	}, nil
}

// Update performs one step, accepting or rolling back the proposal.
func (g *GradientBased) Update(ctx context.Context) (Outcome, error) {
	st := g.st
	xs, vals, err := g.draw(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if err := g.accu.Add(xs, g.post.LogDensity(xs), vals); err != nil {
		return Outcome{}, err
	}
	if err := g.stable.Add(xs, vals); err != nil {
		return Outcome{}, err
	}

	gradLoss, mean, uq, err := g.accu.GradScore(g.pmap, st.Param, g.cfg.K, g.cfg.GenDecay)
	if err != nil {
		return Outcome{}, fmt.Errorf("estimate gradient: %w", err)
	}
	gradKL, kl := g.klGrad(st.Param, g.cfg.NGradKL)
	score := mean + g.cfg.Temperature*kl

	if isBad(score, st.PrevScore, uq, g.refuseFactor) {
		rej := &Rejection{Step: st.Step, PrevScore: st.PrevScore, Score: score, Uncertainty: uq}
		g.rollback()
		return Outcome{Step: st.Step, Rejection: rej}, nil
	}

	g.log.Add1(st.Param, score, kl, mean)
	rec, _ := g.log.LastRecord()

	next := descend(st, gradLoss, gradKL, g.cfg.Temperature, g.momentum, g.frozen)
	next.PrevScore = score
	next.Converged = g.converged(next.Param, st.Param)
	g.commit(next)

	return Outcome{Step: st.Step, Accepted: true, Record: rec}, nil
}

// isBad reports whether score got worse than prev by more than factor
// standard errors. A NaN or +Inf score and a NaN uncertainty are always bad.
func isBad(score, prev, uq, factor float64) bool {
	if math.IsNaN(score) || math.IsInf(score, 1) || math.IsNaN(uq) {
		return true
	}
	return score-prev > factor*uq
}

func (g *GradientBased) rollback() {
	g.accu.SupprGen(2)
	if moved, err := g.log.Suppr(1); err == nil {
		g.bin.Add(moved...)
	}
	last, ok := g.log.LastRecord()
	g.commit(rollbackState(g.st, last, ok, g.init, g.cfg.CorrEta))
}

// rollbackState returns the state after a rejected step: zero velocity,
// shrunk eta, parameter and score of the last surviving record, or the
// initial parameter with a +Inf score when no record survives.
func rollbackState(st State, last trajectory.Record, ok bool, init proba.Param, corrEta float64) State {
	next := st.Clone()
	clear(next.Velocity)
	next.Eta *= corrEta
	if ok {
		next.Param = last.Param.Clone()
		next.PrevScore = last.Score
	} else {
		next.Param = init.Clone()
		next.PrevScore = math.Inf(1)
	}
	next.Step++
	return next
}

// Result assembles the run output.
func (g *GradientBased) Result() *Result {
	return g.result(g.accu, g.stable, g.bin)
}
