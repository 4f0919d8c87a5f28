package proba

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Gaussian is the family of Gaussian distributions with diagonal covariance.
//
// Parameter layout for dimension d:
//
//	[mu_1, ..., mu_d, log(sigma_1), ..., log(sigma_d)]
type Gaussian struct {
	dim int
}

// NewGaussianMap creates the diagonal Gaussian family of the given sample dimension.
func NewGaussianMap(dim int) *Gaussian {
	if dim <= 0 {
		panic("proba: gaussian dimension must be positive")
	}
	return &Gaussian{dim: dim}
}

// Dim returns 2*d (means then log-scales).
func (g *Gaussian) Dim() int { return 2 * g.dim }

// SampleDim returns d.
func (g *Gaussian) SampleDim() int { return g.dim }

// Param builds a parameter vector from means and log-scales.
func (g *Gaussian) Param(mean, logScale []float64) Param {
	if len(mean) != g.dim || len(logScale) != g.dim {
		panic("proba: gaussian parameter length mismatch")
	}
	p := make(Param, 0, 2*g.dim)
	p = append(p, mean...)
	return append(p, logScale...)
}

// New returns the Gaussian distribution identified by p.
func (g *Gaussian) New(p Param) Distribution {
	g.check(p)
	d := &gaussianDist{normals: make([]distuv.Normal, g.dim)}
	for i := range g.dim {
		d.normals[i] = distuv.Normal{Mu: p[i], Sigma: math.Exp(p[g.dim+i])}
	}
	return d
}

// LogDensityGrad returns the gradient of log p(x) with respect to (mu, log sigma):
//
//	d/dmu      = (x - mu) / sigma^2
//	d/dlogsig  = ((x - mu) / sigma)^2 - 1
func (g *Gaussian) LogDensityGrad(p Param) func(xs []Sample) [][]float64 {
	g.check(p)
	mu := p[:g.dim]
	sig := make([]float64, g.dim)
	for i := range sig {
		sig[i] = math.Exp(p[g.dim+i])
	}
	return func(xs []Sample) [][]float64 {
		out := make([][]float64, len(xs))
		for j, x := range xs {
			row := make([]float64, 2*g.dim)
			for i := range g.dim {
				z := (x[i] - mu[i]) / sig[i]
				row[i] = z / sig[i]
				row[g.dim+i] = z*z - 1
			}
			out[j] = row
		}
		return out
	}
}

// KLGrad returns the analytic KL gradient oracle. The Monte Carlo budget is
// ignored since the divergence is known in closed form.
func (g *Gaussian) KLGrad(prior Param) KLGradFunc {
	g.check(prior)
	prior = prior.Clone()
	return func(post Param, _ int) ([]float64, float64) {
		g.check(post)
		grad := make([]float64, 2*g.dim)
		for i := range g.dim {
			s0 := math.Exp(prior[g.dim+i])
			s1 := math.Exp(post[g.dim+i])
			grad[i] = (post[i] - prior[i]) / (s0 * s0)
			grad[g.dim+i] = s1*s1/(s0*s0) - 1
		}
		return grad, g.KL(post, prior)
	}
}

// KL returns KL(post || prior) for diagonal Gaussians.
func (g *Gaussian) KL(post, prior Param) float64 {
	g.check(post)
	g.check(prior)
	var kl float64
	for i := range g.dim {
		ls0, ls1 := prior[g.dim+i], post[g.dim+i]
		v0 := math.Exp(2 * ls0)
		dm := post[i] - prior[i]
		kl += ls0 - ls1 + (math.Exp(2*ls1)+dm*dm)/(2*v0) - 0.5
	}
	return kl
}

func (g *Gaussian) check(p Param) {
	if len(p) != 2*g.dim {
		panic("proba: gaussian parameter length mismatch")
	}
}

type gaussianDist struct {
	normals []distuv.Normal
}

func (d *gaussianDist) Sample(rng *rand.Rand, n int) []Sample {
	out := make([]Sample, n)
	for j := range out {
		x := make(Sample, len(d.normals))
		for i, nd := range d.normals {
			nd.Src = rng
			x[i] = nd.Rand()
		}
		out[j] = x
	}
	return out
}

func (d *gaussianDist) LogDensity(xs []Sample) []float64 {
	out := make([]float64, len(xs))
	for j, x := range xs {
		var lp float64
		for i, nd := range d.normals {
			lp += nd.LogProb(x[i])
		}
		out[j] = lp
	}
	return out
}
