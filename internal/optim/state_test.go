package optim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/bayescal/internal/proba"
	"github.com/born-ml/bayescal/internal/trajectory"
)

func TestDescend_Momentum(t *testing.T) {
	st := State{
		Param:    proba.Param{1, 1},
		Velocity: []float64{0, 0},
		Eta:      0.1,
	}
	grad := []float64{1, 1}
	zero := []float64{0, 0}

	// v_1 = -0.1 * 1 = -0.1, x_1 = 0.9
	st = descend(st, grad, zero, 1, 0.9, nil)
	assert.InDeltaSlice(t, []float64{0.9, 0.9}, st.Param, 1e-12)

	// v_2 = -0.1 + 0.9 * -0.1 = -0.19, x_2 = 0.71
	st = descend(st, grad, zero, 1, 0.9, nil)
	assert.InDeltaSlice(t, []float64{0.71, 0.71}, st.Param, 1e-12)
	assert.InDeltaSlice(t, []float64{-0.19, -0.19}, st.Velocity, 1e-12)
	assert.Equal(t, 2, st.Step)
}

func TestDescend_TemperatureAndFrozen(t *testing.T) {
	st := State{
		Param:    proba.Param{0, 5},
		Velocity: []float64{0, 0},
		Eta:      0.5,
	}

	next := descend(st, []float64{1, 1}, []float64{2, 2}, 0.25, 0, []int{1})
	// delta = -0.5 * (1 + 0.25 * 2) = -0.75
	assert.Equal(t, proba.Param{-0.75, 5}, next.Param)
	assert.Equal(t, []float64{-0.75, 0}, next.Velocity)

	// The input state is untouched.
	assert.Equal(t, proba.Param{0, 5}, st.Param)
}

func TestRollbackState(t *testing.T) {
	st := State{
		Param:     proba.Param{3, 3},
		Velocity:  []float64{0.4, -0.2},
		Eta:       0.2,
		PrevScore: 10,
		Step:      7,
	}
	init := proba.Param{0, 0}

	rec := trajectory.Record{Param: proba.Param{1, 2}, Score: 4}
	next := rollbackState(st, rec, true, init, 0.5)
	assert.Equal(t, proba.Param{1, 2}, next.Param)
	assert.Equal(t, 4.0, next.PrevScore)
	assert.Equal(t, []float64{0, 0}, next.Velocity)
	assert.Equal(t, 0.1, next.Eta)
	assert.Equal(t, 8, next.Step)
	assert.Equal(t, []float64{0.4, -0.2}, st.Velocity, "input state untouched")

	next = rollbackState(st, trajectory.Record{}, false, init, 0.5)
	assert.Equal(t, init, next.Param)
	assert.True(t, math.IsInf(next.PrevScore, 1))
}

func TestIsBad(t *testing.T) {
	factor := 2.0

	tests := []struct {
		name        string
		score, prev float64
		uq          float64
		want        bool
	}{
		{"improved", 1, 2, 0.1, false},
		{"within margin", 2.15, 2, 0.1, false},
		{"beyond margin", 2.25, 2, 0.1, true},
		{"no previous score", 1e9, math.Inf(1), 0, false},
		{"nan score", math.NaN(), 2, 0.1, true},
		{"infinite score", math.Inf(1), 2, 0.1, true},
		{"infinite score without previous", math.Inf(1), math.Inf(1), math.NaN(), true},
		{"nan uncertainty", 1, 2, math.NaN(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isBad(tt.score, tt.prev, tt.uq, factor))
		})
	}
}
