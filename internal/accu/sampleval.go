// Package accu stores evaluated samples across solver steps.
//
// Samples are grouped in generations: one generation is the batch drawn and
// evaluated during one step. Two accumulators are provided:
//   - SampleVal: samples and loss values only.
//   - SampleValDens: additionally records the log-density of the distribution
//     that produced each sample, which allows old generations to be reused
//     through importance reweighting (see SampleValDens.GradScore).
//
// Both have a fixed total capacity set at construction. Adding past it is a
// configuration error (ErrCapacityExceeded); nothing is silently dropped.
package accu

import (
	"fmt"

	"github.com/born-ml/bayescal/internal/proba"
)

// store holds the state shared by both accumulators.
type store struct {
	sampleDim int
	capacity  int
	samples   []proba.Sample
	vals      []float64
	gens      []int
	nGen      int
}

func newStore(sampleDim, capacity int) store {
	if sampleDim <= 0 {
		panic("accu: sample dimension must be positive")
	}
	if capacity < 0 {
		panic("accu: capacity must be non-negative")
	}
	return store{
		sampleDim: sampleDim,
		capacity:  capacity,
		samples:   make([]proba.Sample, 0, capacity),
		vals:      make([]float64, 0, capacity),
		gens:      make([]int, 0, capacity),
	}
}

// N returns the number of stored samples.
func (s *store) N() int { return len(s.vals) }

// Capacity returns the maximum number of samples that can be stored.
func (s *store) Capacity() int { return s.capacity }

// NGen returns the number of stored generations.
func (s *store) NGen() int { return s.nGen }

// SampleDim returns the dimension of stored samples.
func (s *store) SampleDim() int { return s.sampleDim }

// ExtendMemory raises the capacity by extra samples.
func (s *store) ExtendMemory(extra int) error {
	if extra < 0 {
		return fmt.Errorf("extend memory by %d: %w", extra, ErrNegativeCapacity)
	}
	s.capacity += extra
	return nil
}

// Samples returns the stored samples, oldest first. The slice must not be modified.
func (s *store) Samples() []proba.Sample { return s.samples }

// Values returns the stored loss values, index-aligned with Samples.
func (s *store) Values() []float64 { return s.vals }

// Generations returns the generation id of each stored sample.
func (s *store) Generations() []int { return s.gens }

// Best returns the stored sample with the lowest value.
func (s *store) Best() (proba.Sample, float64, bool) {
	if len(s.vals) == 0 {
		return nil, 0, false
	}
	best := 0
	for i, v := range s.vals {
		if v < s.vals[best] {
			best = i
		}
	}
	return s.samples[best], s.vals[best], true
}

func (s *store) check(samples []proba.Sample, n int) error {
	if len(samples) != n {
		return fmt.Errorf("%d samples for %d values: %w", len(samples), n, ErrShapeMismatch)
	}
	for i, x := range samples {
		if len(x) != s.sampleDim {
			return fmt.Errorf("sample %d has length %d, want %d: %w", i, len(x), s.sampleDim, ErrShapeMismatch)
		}
	}
	if len(s.vals)+n > s.capacity {
		return fmt.Errorf("adding %d samples to %d/%d: %w", n, len(s.vals), s.capacity, ErrCapacityExceeded)
	}
	return nil
}

func (s *store) push(samples []proba.Sample, vals []float64) {
	for i, x := range samples {
		c := make(proba.Sample, len(x))
		copy(c, x)
		s.samples = append(s.samples, c)
		s.vals = append(s.vals, vals[i])
		s.gens = append(s.gens, s.nGen)
	}
	s.nGen++
}

// suppr drops the g newest generations and returns the new sample count.
func (s *store) suppr(g int) int {
	if g <= 0 {
		return len(s.vals)
	}
	keep := max(s.nGen-g, 0)
	cut := len(s.gens)
	for cut > 0 && s.gens[cut-1] >= keep {
		cut--
	}
	s.samples = s.samples[:cut]
	s.vals = s.vals[:cut]
	s.gens = s.gens[:cut]
	s.nGen = keep
	return cut
}

// SampleVal accumulates (sample, value) generations.
type SampleVal struct {
	store
}

// NewSampleVal creates an accumulator for samples of dimension sampleDim
// holding at most capacity samples.
func NewSampleVal(sampleDim, capacity int) *SampleVal {
	return &SampleVal{store: newStore(sampleDim, capacity)}
}

// Add appends one generation.
func (a *SampleVal) Add(samples []proba.Sample, vals []float64) error {
	if err := a.check(samples, len(vals)); err != nil {
		return err
	}
	a.push(samples, vals)
	return nil
}

// SupprGen removes the g most recent generations (all of them if g >= NGen).
func (a *SampleVal) SupprGen(g int) {
	a.suppr(g)
}
