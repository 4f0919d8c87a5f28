// Package proba defines the distribution families optimized by the solvers.
//
// A family is described by a Map: it turns a flat parameter vector into a
// Distribution and exposes the derivatives the solvers need (gradient of the
// log-density with respect to the parameter, gradient of the KL divergence
// against a prior).
//
// The package ships a single concrete family, the diagonal Gaussian
// (see NewGaussianMap). Other families only have to satisfy Map.
package proba

import (
	"math/rand/v2"
)

// Param is a flattened parameter vector identifying a distribution in its family.
type Param []float64

// Clone returns a copy of p.
func (p Param) Clone() Param {
	if p == nil {
		return nil
	}
	out := make(Param, len(p))
	copy(out, p)
	return out
}

// Sample is a point in the support of a distribution.
type Sample []float64

// Distribution is a member of a family, fixed by its parameter.
//
// Instances are immutable: a new parameter yields a new Distribution.
type Distribution interface {
	// Sample draws n points using rng.
	Sample(rng *rand.Rand, n int) []Sample

	// LogDensity evaluates the log-density at each point.
	LogDensity(xs []Sample) []float64
}

// KLGradFunc returns the gradient with respect to post of KL(post || prior)
// and its value, using at most n internal Monte Carlo draws.
type KLGradFunc func(post Param, n int) (grad []float64, kl float64)

// Map is a parametric distribution family.
type Map interface {
	// Dim is the length of a parameter vector.
	Dim() int

	// SampleDim is the length of a sample.
	SampleDim() int

	// New returns the distribution identified by p.
	New(p Param) Distribution

	// LogDensityGrad returns a function evaluating, at each sample, the
	// gradient of log p(x) with respect to the parameter.
	LogDensityGrad(p Param) func(xs []Sample) [][]float64

	// KLGrad binds the prior and returns the KL gradient oracle.
	KLGrad(prior Param) KLGradFunc

	// KL returns KL(post || prior).
	KL(post, prior Param) float64
}
