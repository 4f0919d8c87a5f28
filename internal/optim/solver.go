package optim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/bayescal/internal/accu"
	"github.com/born-ml/bayescal/internal/parallel"
	"github.com/born-ml/bayescal/internal/proba"
	"github.com/born-ml/bayescal/internal/trajectory"
)

// Result is the output of a solver run.
type Result struct {
	RunID uuid.UUID

	OptimParam proba.Param
	Converged  bool
	OptimScore float64 // Last accepted variational score
	HasScore   bool    // False when no step was ever accepted

	HistParam []proba.Param
	HistScore []float64
	EndParam  proba.Param

	Samples *accu.SampleValDens // Density-tracking accumulator (nil for GD)
	Stable  *accu.SampleVal     // Every evaluation of the run, never rolled back
	Log     *trajectory.Log
	BinLog  *trajectory.Log // Records removed by rollbacks
}

// run is the state and collaborators shared by both strategies.
type run struct {
	id     uuid.UUID
	obj    Objective
	pmap   proba.Map
	cfg    Config
	pcfg   parallel.Config
	init   proba.Param
	frozen []int
	klGrad proba.KLGradFunc
	rng    *rand.Rand

	st   State
	post proba.Distribution
	log  *trajectory.Log
}

func newRun(obj Objective, m proba.Map, cfg Config, eta float64) *run {
	pcfg := parallel.DefaultConfig()
	pcfg.Enabled = cfg.Parallel
	if cfg.Workers > 0 {
		pcfg.NumWorkers = cfg.Workers
	}
	return &run{
		id:     uuid.New(),
		obj:    obj,
		pmap:   m,
		cfg:    cfg,
		pcfg:   pcfg,
		init:   cfg.Post.Clone(),
		frozen: cfg.frozen(m.Dim()),
		klGrad: m.KLGrad(cfg.Prior),
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		st: State{
			Param:     cfg.Post.Clone(),
			Velocity:  make([]float64, m.Dim()),
			Eta:       eta,
			PrevScore: math.Inf(1),
		},
		post: m.New(cfg.Post),
		log:  trajectory.New(cfg.ChainLength),
	}
}

func (r *run) State() State { return r.st.Clone() }

// draw samples the current distribution and evaluates the loss.
func (r *run) draw(ctx context.Context) ([]proba.Sample, []float64, error) {
	if r.st.Step >= len(r.cfg.PerStep) {
		return nil, nil, fmt.Errorf("step %d of %d: %w", r.st.Step, len(r.cfg.PerStep), ErrChainExhausted)
	}
	xs := r.post.Sample(r.rng, r.cfg.PerStep[r.st.Step])
	vals, err := r.obj.evaluate(ctx, xs, r.cfg.Vectorized, r.pcfg)
	if err != nil {
		return nil, nil, err
	}
	return xs, vals, nil
}

// converged reports whether the move from old to next is below both tolerances.
func (r *run) converged(next, old proba.Param) bool {
	return floats.Distance(next, old, math.Inf(1)) < r.cfg.XTol &&
		r.pmap.KL(next, old) < r.cfg.KLTol
}

func (r *run) commit(next State) {
	r.st = next
	r.post = r.pmap.New(next.Param)
}

func (r *run) result(samples *accu.SampleValDens, stable *accu.SampleVal, bin *trajectory.Log) *Result {
	res := &Result{
		RunID:      r.id,
		OptimParam: r.st.Param.Clone(),
		Converged:  r.st.Converged,
		HistParam:  r.log.Params(),
		HistScore:  r.log.Scores(),
		EndParam:   r.st.Param.Clone(),
		Samples:    samples,
		Stable:     stable,
		Log:        r.log,
		BinLog:     bin,
	}
	if last, ok := r.log.LastRecord(); ok {
		res.OptimScore = last.Score
		res.HasScore = true
	}
	return res
}

// Solver drives an Updater for a whole run.
type Solver struct {
	Updater
	cfg    Config
	id     uuid.UUID
	logger *slog.Logger
}

// New creates a solver for obj over the family m.
//
// The configuration is validated eagerly: inconsistent shapes, non-positive
// batch sizes or out-of-range levels are reported as ErrInvalidConfig.
func New(obj Objective, m proba.Map, cfg Config) (*Solver, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(m); err != nil {
		return nil, err
	}
	if err := obj.validate(cfg.Vectorized); err != nil {
		return nil, err
	}

	var (
		u   Updater
		id  uuid.UUID
		err error
	)
	switch cfg.Method {
	case MethodGD:
		g := newGD(obj, m, cfg)
		u, id = g, g.id
	default:
		var gb *GradientBased
		gb, err = newGradientBased(obj, m, cfg)
		if err != nil {
			return nil, err
		}
		u, id = gb, gb.id
	}

	return &Solver{
		Updater: u,
		cfg:     cfg,
		id:      id,
		logger:  cfg.Logger.With(slog.String("run_id", id.String())),
	}, nil
}

// Config returns the effective configuration (defaults applied).
func (s *Solver) Config() Config { return s.cfg }

// Optimize runs steps until convergence or until ChainLength steps were taken.
//
// Rejected steps are logged as warnings and the run continues. The context is
// checked between steps and passed to the loss.
func (s *Solver) Optimize(ctx context.Context) (*Result, error) {
	if !s.cfg.Silent {
		s.logger.Info("starting bayesian calibration",
			slog.String("method", s.cfg.Method.String()),
			slog.Int("chain_length", s.cfg.ChainLength))
	}

	for {
		st := s.State()
		if st.Converged || st.Step >= s.cfg.ChainLength {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := s.Update(ctx)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", st.Step, err)
		}
		s.report(out)
	}

	res := s.Result()
	if !s.cfg.Silent {
		attrs := []any{
			slog.Bool("converged", res.Converged),
			slog.Int("steps", s.State().Step),
		}
		if res.HasScore {
			attrs = append(attrs, slog.Float64("score", res.OptimScore))
		}
		s.logger.Info("calibration finished", attrs...)
	}
	return res, nil
}

func (s *Solver) report(out Outcome) {
	if out.Rejection != nil {
		rej := out.Rejection
		s.logger.Warn("harmful step removed",
			slog.Int("step", rej.Step),
			slog.Float64("prev_score", rej.PrevScore),
			slog.Float64("score", rej.Score),
			slog.Float64("uncertainty", rej.Uncertainty),
			slog.Float64("eta", s.State().Eta))
		return
	}
	if s.cfg.Silent || out.Step%s.cfg.PrintRec != 0 {
		return
	}
	s.logger.Info("step",
		slog.Int("step", out.Step),
		slog.Float64("score", out.Record.Score),
		slog.Float64("kl", out.Record.KL),
		slog.Float64("mean", out.Record.Mean))
}
