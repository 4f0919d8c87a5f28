package trajectory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/bayescal/internal/proba"
)

func filled(n int) *Log {
	l := New(n)
	for i := range n {
		f := float64(i)
		l.Add1(proba.Param{f, -f}, 10-f, f/10, 10-f)
	}
	return l
}

func TestLog_Add1CopiesParam(t *testing.T) {
	l := New(1)
	p := proba.Param{1, 2}
	l.Add1(p, 3, 0.1, 2.9)
	p[0] = 100

	r, ok := l.LastRecord()
	require.True(t, ok)
	assert.Equal(t, proba.Param{1, 2}, r.Param)
	assert.Equal(t, 3.0, r.Score)
}

func TestLog_Suppr(t *testing.T) {
	l := filled(4)

	removed, err := l.Suppr(2)
	require.NoError(t, err)
	require.Len(t, removed, 2)
	assert.Equal(t, proba.Param{2, -2}, removed[0].Param, "oldest first")
	assert.Equal(t, proba.Param{3, -3}, removed[1].Param)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, []float64{10, 9}, l.Scores())
}

func TestLog_SupprOutOfRange(t *testing.T) {
	l := filled(1)

	_, err := l.Suppr(2)
	require.ErrorIs(t, err, ErrOutOfRange)
	assert.Equal(t, 1, l.Len(), "log must be unchanged")

	_, err = l.Suppr(1)
	require.NoError(t, err)
	_, ok := l.LastRecord()
	assert.False(t, ok)
}

func TestLog_Last(t *testing.T) {
	l := filled(3)

	last := l.Last(2)
	require.Len(t, last, 2)
	assert.Equal(t, 9.0, last[0].Score)
	assert.Equal(t, 8.0, last[1].Score)

	assert.Len(t, l.Last(10), 3, "shorter history is not an error")
	assert.Empty(t, New(0).Last(1))
}

func TestLog_Columns(t *testing.T) {
	l := filled(3)
	assert.Equal(t, []float64{0, 0.1, 0.2}, l.KLs())
	assert.Equal(t, []float64{10, 9, 8}, l.Means())
	assert.Equal(t, []proba.Param{{0, 0}, {1, -1}, {2, -2}}, l.Params())

	bin := New(0)
	moved, err := l.Suppr(1)
	require.NoError(t, err)
	bin.Add(moved...)
	assert.Equal(t, 1, bin.Len())
	assert.Equal(t, 2, l.Len())
}
