package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/bayescal/internal/optim"
	"github.com/born-ml/bayescal/internal/proba"
)

// RunConfig is the YAML description of a calibration run on the diagonal
// Gaussian family with the loss sum_i (x_i - target_i)^2.
type RunConfig struct {
	Method string `yaml:"method"` // "gradient-based" or "gd"

	Dim           int       `yaml:"dim"`
	Target        []float64 `yaml:"target"`
	PriorMean     []float64 `yaml:"prior_mean"`
	PriorLogScale []float64 `yaml:"prior_log_scale"`
	InitMean      []float64 `yaml:"init_mean"`
	InitLogScale  []float64 `yaml:"init_log_scale"`

	Temperature *float64 `yaml:"temperature"`
	Eta         float64  `yaml:"eta"`
	ChainLength int      `yaml:"chain_length"`
	PerStep     []int    `yaml:"per_step"`
	KLTol       float64  `yaml:"kltol"`
	XTol        float64  `yaml:"xtol"`
	NGradKL     int      `yaml:"n_grad_kl"`
	K           int      `yaml:"k"`
	GenDecay    float64  `yaml:"gen_decay"`
	Momentum    float64  `yaml:"momentum"`
	RefuseConf  float64  `yaml:"refuse_conf"`
	CorrEta     float64  `yaml:"corr_eta"`
	IndexTrain  []int    `yaml:"index_train"`

	Parallel   bool   `yaml:"parallel"`
	Vectorized bool   `yaml:"vectorized"`
	Workers    int    `yaml:"workers"`
	PrintRec   int    `yaml:"print_rec"`
	Silent     bool   `yaml:"silent"`
	Seed       uint64 `yaml:"seed"`
}

// defaultRunConfig is the one-dimensional quadratic scenario.
func defaultRunConfig() RunConfig {
	zero := 0.0
	return RunConfig{
		Method:      "gradient-based",
		Dim:         1,
		Target:      []float64{5},
		Temperature: &zero,
		Eta:         0.1,
		ChainLength: 20,
		PerStep:     []int{200},
	}
}

// loadRunConfig reads path over the defaults. An empty path yields the defaults.
func loadRunConfig(path string) (RunConfig, error) {
	cfg := defaultRunConfig()
	if path == "" {
		return cfg, nil
	}
	//nolint:gosec // G304: config path comes from the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func orZeros(v []float64, n int) []float64 {
	if v == nil {
		return make([]float64, n)
	}
	return v
}

// build returns the family and the solver configuration.
func (rc RunConfig) build() (*proba.Gaussian, optim.Config, error) {
	if rc.Dim <= 0 {
		return nil, optim.Config{}, fmt.Errorf("dim must be positive, got %d", rc.Dim)
	}
	for name, v := range map[string][]float64{
		"target":          rc.Target,
		"prior_mean":      orZeros(rc.PriorMean, rc.Dim),
		"prior_log_scale": orZeros(rc.PriorLogScale, rc.Dim),
		"init_mean":       orZeros(rc.InitMean, rc.Dim),
		"init_log_scale":  orZeros(rc.InitLogScale, rc.Dim),
	} {
		if len(v) != rc.Dim {
			return nil, optim.Config{}, fmt.Errorf("%s has %d entries, want %d", name, len(v), rc.Dim)
		}
	}

	g := proba.NewGaussianMap(rc.Dim)
	cfg := optim.DefaultConfig()
	switch strings.ToLower(rc.Method) {
	case "", "gradient-based", "gradient_based":
		cfg.Method = optim.MethodGradientBased
	case "gd":
		cfg.Method = optim.MethodGD
	default:
		return nil, optim.Config{}, fmt.Errorf("unknown method %q", rc.Method)
	}

	cfg.Prior = g.Param(orZeros(rc.PriorMean, rc.Dim), orZeros(rc.PriorLogScale, rc.Dim))
	cfg.Post = g.Param(orZeros(rc.InitMean, rc.Dim), orZeros(rc.InitLogScale, rc.Dim))
	if rc.Temperature != nil {
		cfg.Temperature = *rc.Temperature
	}
	cfg.Eta = rc.Eta
	cfg.ChainLength = rc.ChainLength
	cfg.PerStep = rc.PerStep
	cfg.KLTol = rc.KLTol
	cfg.XTol = rc.XTol
	cfg.NGradKL = rc.NGradKL
	cfg.K = rc.K
	cfg.GenDecay = rc.GenDecay
	cfg.Momentum = rc.Momentum
	cfg.RefuseConf = rc.RefuseConf
	cfg.CorrEta = rc.CorrEta
	cfg.IndexTrain = rc.IndexTrain
	cfg.Parallel = rc.Parallel
	cfg.Vectorized = rc.Vectorized
	cfg.Workers = rc.Workers
	cfg.PrintRec = rc.PrintRec
	cfg.Silent = rc.Silent
	cfg.Seed = rc.Seed
	return g, cfg, nil
}

// objective returns the quadratic loss around the target, in both forms.
func (rc RunConfig) objective() optim.Objective {
	target := append([]float64(nil), rc.Target...)
	loss := func(x proba.Sample) float64 {
		var s float64
		for i, t := range target {
			d := x[i] - t
			s += d * d
		}
		return s
	}
	obj := optim.FromFunc(loss)
	obj.Batch = optim.FromBatchFunc(func(xs []proba.Sample) []float64 {
		out := make([]float64, len(xs))
		for i, x := range xs {
			out[i] = loss(x)
		}
		return out
	}).Batch
	return obj
}
