package accu

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/bayescal/internal/proba"
)

// SampleValDens accumulates (sample, log-density, value) generations.
//
// The log-density is the one of the distribution the sample was drawn from,
// recorded at draw time. It is what makes stale generations reusable.
type SampleValDens struct {
	store
	logDens []float64
}

// NewSampleValDens creates a density-tracking accumulator for samples of
// dimension sampleDim holding at most capacity samples.
func NewSampleValDens(sampleDim, capacity int) *SampleValDens {
	return &SampleValDens{
		store:   newStore(sampleDim, capacity),
		logDens: make([]float64, 0, capacity),
	}
}

// Add appends one generation.
func (a *SampleValDens) Add(samples []proba.Sample, logDens, vals []float64) error {
	if len(logDens) != len(vals) {
		return fmt.Errorf("%d log-densities for %d values: %w", len(logDens), len(vals), ErrShapeMismatch)
	}
	if err := a.check(samples, len(vals)); err != nil {
		return err
	}
	a.push(samples, vals)
	a.logDens = append(a.logDens, logDens...)
	return nil
}

// LogDensities returns the recorded log-densities, index-aligned with Samples.
func (a *SampleValDens) LogDensities() []float64 { return a.logDens }

// SupprGen removes the g most recent generations (all of them if g >= NGen).
func (a *SampleValDens) SupprGen(g int) {
	a.logDens = a.logDens[:a.suppr(g)]
}

type genWeight struct {
	gen    int
	start  int
	w      []float64 // self-normalized importance weights within the generation
	weight float64   // decay * effective sample size
}

// GradScore estimates, for the distribution m.New(p), the gradient of the
// expected value with respect to p, the expected value itself and the
// standard error of that expectation.
//
// Every stored generation is importance reweighted from the distribution it
// was drawn from to the current one (self-normalized within the generation).
// A generation of age a (0 for the newest) weighs genDecay^a times its
// effective sample size. When k > 0, only the k heaviest generations are
// used; ties go to the most recent.
//
// With a single generation drawn from p, this is the plain score-function
// estimator with the batch mean as baseline.
func (a *SampleValDens) GradScore(m proba.Map, p proba.Param, k int, genDecay float64) ([]float64, float64, float64, error) {
	if genDecay < 0 || genDecay > 1 || math.IsNaN(genDecay) {
		return nil, 0, 0, fmt.Errorf("gen decay %v: %w", genDecay, ErrInvalidDecay)
	}
	if a.N() == 0 {
		return nil, 0, 0, ErrEmpty
	}

	post := m.New(p)

	var cands []genWeight
	for start := 0; start < len(a.gens); {
		gen := a.gens[start]
		end := start
		for end < len(a.gens) && a.gens[end] == gen {
			end++
		}
		if gw, ok := a.weighGen(post, gen, start, end, genDecay); ok {
			cands = append(cands, gw)
		}
		start = end
	}
	if len(cands) == 0 {
		return nil, 0, 0, fmt.Errorf("%d generations: %w", a.nGen, ErrNoFiniteWeight)
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].weight != cands[j].weight {
			return cands[i].weight > cands[j].weight
		}
		return cands[i].gen > cands[j].gen
	})
	if k > 0 && k < len(cands) {
		cands = cands[:k]
	}

	var total float64
	for _, c := range cands {
		total += c.weight
	}

	var (
		xs      []proba.Sample
		vals    []float64
		weights []float64
	)
	for _, c := range cands {
		scale := c.weight / total
		for j, w := range c.w {
			if w == 0 {
				continue
			}
			xs = append(xs, a.samples[c.start+j])
			vals = append(vals, a.vals[c.start+j])
			weights = append(weights, scale*w)
		}
	}

	grad, mean, uq := WeightedScoreGrad(vals, weights, m.LogDensityGrad(p)(xs))
	return grad, mean, uq, nil
}

// weighGen computes the importance weights of one generation under post.
// Fully decayed generations are skipped without evaluating any density.
func (a *SampleValDens) weighGen(post proba.Distribution, gen, start, end int, genDecay float64) (genWeight, bool) {
	age := a.nGen - 1 - gen
	decay := math.Pow(genDecay, float64(age))
	if decay == 0 {
		return genWeight{}, false
	}

	cur := post.LogDensity(a.samples[start:end])
	logW := make([]float64, end-start)
	var finite []float64
	for j := range logW {
		lw := cur[j] - a.logDens[start+j]
		if math.IsNaN(lw) || math.IsInf(lw, 0) {
			lw = math.Inf(-1)
		} else {
			finite = append(finite, lw)
		}
		logW[j] = lw
	}
	if len(finite) == 0 {
		return genWeight{}, false
	}

	lse := floats.LogSumExp(finite)
	w := make([]float64, len(logW))
	var sq float64
	for j, lw := range logW {
		w[j] = math.Exp(lw - lse)
		sq += w[j] * w[j]
	}
	return genWeight{gen: gen, start: start, w: w, weight: decay / sq}, true
}

// WeightedScoreGrad combines per-sample values and log-density gradients into
// a score-function gradient estimate. weights must sum to one.
//
//	mean = sum w_i v_i
//	grad = sum w_i (v_i - mean) grads_i
//	uq   = sqrt(sum w_i^2 (v_i - mean)^2)
func WeightedScoreGrad(vals, weights []float64, grads [][]float64) ([]float64, float64, float64) {
	n := len(vals)
	if len(weights) != n || len(grads) != n {
		panic("accu: weighted score gradient length mismatch")
	}
	mean := floats.Dot(weights, vals)
	if n == 0 {
		return nil, mean, 0
	}

	d := len(grads[0])
	g := mat.NewDense(n, d, nil)
	coef := make([]float64, n)
	var uq float64
	for i := range n {
		g.SetRow(i, grads[i])
		c := weights[i] * (vals[i] - mean)
		coef[i] = c
		uq += c * c
	}

	var out mat.VecDense
	out.MulVec(g.T(), mat.NewVecDense(n, coef))
	grad := make([]float64, d)
	copy(grad, out.RawVector().Data)
	return grad, mean, math.Sqrt(uq)
}
