package proba

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGaussian_LogDensity(t *testing.T) {
	g := NewGaussianMap(1)
	d := g.New(g.Param([]float64{0}, []float64{0}))

	lp := d.LogDensity([]Sample{{0}, {1}})
	require.Len(t, lp, 2)
	assert.InDelta(t, -0.5*math.Log(2*math.Pi), lp[0], 1e-12)
	assert.InDelta(t, -0.5*math.Log(2*math.Pi)-0.5, lp[1], 1e-12)
}

func TestGaussian_SampleDeterministic(t *testing.T) {
	g := NewGaussianMap(2)
	p := g.Param([]float64{1, -1}, []float64{0, math.Log(2)})

	a := g.New(p).Sample(rand.New(rand.NewPCG(1, 2)), 50)
	b := g.New(p).Sample(rand.New(rand.NewPCG(1, 2)), 50)
	assert.Equal(t, a, b)
	require.Len(t, a, 50)
	assert.Len(t, a[0], 2)
}

// Finite differences of log p against the analytic gradient.
func TestGaussian_LogDensityGrad(t *testing.T) {
	g := NewGaussianMap(2)
	p := g.Param([]float64{0.3, -1.2}, []float64{-0.4, 0.7})
	xs := []Sample{{0.1, 2.0}, {-1.5, 0.2}}

	grads := g.LogDensityGrad(p)(xs)
	const h = 1e-6
	for i := range p {
		up, down := p.Clone(), p.Clone()
		up[i] += h
		down[i] -= h
		lu := g.New(up).LogDensity(xs)
		ld := g.New(down).LogDensity(xs)
		for j := range xs {
			fd := (lu[j] - ld[j]) / (2 * h)
			assert.InDelta(t, fd, grads[j][i], 1e-5, "coord %d sample %d", i, j)
		}
	}
}

func TestGaussian_KLGrad(t *testing.T) {
	g := NewGaussianMap(2)
	prior := g.Param([]float64{0, 0}, []float64{0, 0})
	post := g.Param([]float64{1, -2}, []float64{0.5, -0.3})

	assert.InDelta(t, 0.0, g.KL(prior, prior), 1e-12)

	grad, kl := g.KLGrad(prior)(post, 0)
	assert.InDelta(t, g.KL(post, prior), kl, 1e-12)

	const h = 1e-6
	for i := range post {
		up, down := post.Clone(), post.Clone()
		up[i] += h
		down[i] -= h
		fd := (g.KL(up, prior) - g.KL(down, prior)) / (2 * h)
		assert.InDelta(t, fd, grad[i], 1e-5, "coord %d", i)
	}
}

func TestGaussian_ParamLengthMismatch(t *testing.T) {
	g := NewGaussianMap(1)
	assert.Panics(t, func() { g.New(Param{0}) })
}
