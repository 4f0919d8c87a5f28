package optim

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/born-ml/bayescal/internal/accu"
	"github.com/born-ml/bayescal/internal/proba"
)

// Method selects the solver strategy.
type Method int

const (
	// MethodGradientBased uses momentum, sample reuse and bad step rollback.
	MethodGradientBased Method = iota
	// MethodGD is plain score-function gradient descent.
	MethodGD
)

func (m Method) String() string {
	switch m {
	case MethodGradientBased:
		return "gradient-based"
	case MethodGD:
		return "gd"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// Config holds the solver configuration.
//
// Zero values of Eta, ChainLength, PerStep, KLTol, XTol, NGradKL, RefuseConf,
// CorrEta and PrintRec are replaced by their defaults in New. Temperature,
// Momentum, GenDecay and K keep their zero value; start from DefaultConfig
// for the usual temperature of 1.
type Config struct {
	Method Method

	Prior proba.Param // Prior parameter (required)
	Post  proba.Param // Initial posterior parameter (default: Prior)

	Temperature float64 // Weight of the KL term
	Eta         float64 // Base learning rate (default: 0.05)
	ChainLength int     // Number of scheduled steps (default: 10)
	PerStep     []int   // Batch size, one value or one per step (default: 100)
	KLTol       float64 // Convergence tolerance on KL(new || old) (default: 1e-8)
	XTol        float64 // Convergence tolerance on parameter movement (default: 1e-8)
	NGradKL     int     // Monte Carlo budget of the KL gradient oracle (default: 10000)

	K          int     // Reweighting window: generations kept (0: all)
	GenDecay   float64 // Per-generation decay of old samples, in [0, 1]
	Momentum   float64 // Momentum coefficient, in [0, 1)
	RefuseConf float64 // Confidence level of the bad step test, in (0, 1) (default: 0.99)
	CorrEta    float64 // Learning rate shrink factor on rollback, in (0, 1] (default: 0.5)

	IndexTrain []int // Trainable coordinates (nil: all); the rest is frozen

	Parallel   bool // Evaluate the per-sample loss on a worker pool
	Vectorized bool // Evaluate the whole batch with Objective.Batch
	Workers    int  // Pool size when Parallel (default: NumCPU)

	PrintRec int          // Log progress every PrintRec steps (default: 1)
	Silent   bool         // Suppress progress logs; warnings are still emitted
	Logger   *slog.Logger // Default: slog.Default()

	Seed uint64 // Seed of the sampling RNG

	// Resume continues from a previous density-tracking accumulator. Its
	// capacity is extended by the samples scheduled for this run.
	Resume *accu.SampleValDens
}

// DefaultConfig returns the default configuration. Prior must still be set.
func DefaultConfig() Config {
	return Config{
		Method:      MethodGradientBased,
		Temperature: 1.0,
		Eta:         0.05,
		ChainLength: 10,
		PerStep:     []int{100},
		KLTol:       1e-8,
		XTol:        1e-8,
		NGradKL:     10_000,
		RefuseConf:  0.99,
		CorrEta:     0.5,
		PrintRec:    1,
	}
}

// withDefaults fills zero-valued fields.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Eta == 0 {
		c.Eta = d.Eta
	}
	if c.ChainLength == 0 {
		c.ChainLength = d.ChainLength
	}
	if len(c.PerStep) == 0 {
		c.PerStep = d.PerStep
	}
	if c.KLTol == 0 {
		c.KLTol = d.KLTol
	}
	if c.XTol == 0 {
		c.XTol = d.XTol
	}
	if c.NGradKL == 0 {
		c.NGradKL = d.NGradKL
	}
	if c.RefuseConf == 0 {
		c.RefuseConf = d.RefuseConf
	}
	if c.CorrEta == 0 {
		c.CorrEta = d.CorrEta
	}
	if c.PrintRec <= 0 {
		c.PrintRec = d.PrintRec
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Post == nil {
		c.Post = c.Prior
	}
	c.Prior = c.Prior.Clone()
	c.Post = c.Post.Clone()
	return c
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// validate checks c against the family m and expands PerStep to one entry per step.
//
//nolint:gocyclo,cyclop // Flat list of independent checks
func (c *Config) validate(m proba.Map) error {
	dim := m.Dim()
	if len(c.Prior) != dim {
		return invalid("prior has %d coordinates, family expects %d", len(c.Prior), dim)
	}
	if len(c.Post) != dim {
		return invalid("post has %d coordinates, family expects %d", len(c.Post), dim)
	}
	if c.Method != MethodGD && c.Method != MethodGradientBased {
		return invalid("unknown method %v", c.Method)
	}
	if !(c.Eta > 0) || math.IsInf(c.Eta, 0) {
		return invalid("eta must be positive, got %v", c.Eta)
	}
	if c.ChainLength < 0 {
		return invalid("chain length must be positive, got %d", c.ChainLength)
	}
	switch len(c.PerStep) {
	case 1:
		n := c.PerStep[0]
		c.PerStep = make([]int, c.ChainLength)
		for i := range c.PerStep {
			c.PerStep[i] = n
		}
	case c.ChainLength:
		c.PerStep = append([]int(nil), c.PerStep...)
	default:
		return invalid("per step has %d entries, want 1 or %d", len(c.PerStep), c.ChainLength)
	}
	for i, n := range c.PerStep {
		if n <= 0 {
			return invalid("per step[%d] must be positive, got %d", i, n)
		}
	}
	if c.Temperature < 0 || math.IsNaN(c.Temperature) {
		return invalid("temperature must be non-negative, got %v", c.Temperature)
	}
	if c.NGradKL < 0 {
		return invalid("n grad kl must be non-negative, got %d", c.NGradKL)
	}
	if c.K < 0 {
		return invalid("k must be non-negative, got %d", c.K)
	}
	if c.GenDecay < 0 || c.GenDecay > 1 || math.IsNaN(c.GenDecay) {
		return invalid("gen decay must lie in [0, 1], got %v", c.GenDecay)
	}
	if c.Momentum < 0 || c.Momentum >= 1 || math.IsNaN(c.Momentum) {
		return invalid("momentum must lie in [0, 1), got %v", c.Momentum)
	}
	if !(c.RefuseConf > 0 && c.RefuseConf < 1) {
		return invalid("refuse conf must lie in (0, 1), got %v", c.RefuseConf)
	}
	if !(c.CorrEta > 0 && c.CorrEta <= 1) {
		return invalid("corr eta must lie in (0, 1], got %v", c.CorrEta)
	}
	if c.Workers < 0 {
		return invalid("workers must be non-negative, got %d", c.Workers)
	}
	if c.IndexTrain != nil {
		seen := make(map[int]bool, len(c.IndexTrain))
		for _, i := range c.IndexTrain {
			if i < 0 || i >= dim {
				return invalid("index train %d out of range [0, %d)", i, dim)
			}
			if seen[i] {
				return invalid("index train %d repeated", i)
			}
			seen[i] = true
		}
	}
	if c.Resume != nil {
		if c.Method != MethodGradientBased {
			return invalid("resume requires the %v method", MethodGradientBased)
		}
		if c.Resume.SampleDim() != m.SampleDim() {
			return invalid("resumed samples have dimension %d, family expects %d", c.Resume.SampleDim(), m.SampleDim())
		}
	}
	return nil
}

// frozen returns the complement of IndexTrain.
func (c *Config) frozen(dim int) []int {
	if c.IndexTrain == nil {
		return nil
	}
	train := make([]bool, dim)
	for _, i := range c.IndexTrain {
		train[i] = true
	}
	var out []int
	for i, ok := range train {
		if !ok {
			out = append(out, i)
		}
	}
	return out
}

// budget returns the total number of samples scheduled.
func (c *Config) budget() int {
	var n int
	for _, k := range c.PerStep {
		n += k
	}
	return n
}
