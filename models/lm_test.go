package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ggerrors "github.com/Maschette/ggeffects/pkg/errors"
)

func TestLMFitExactLine(t *testing.T) {
	df := NewDataFrame()
	x := []float64{0, 1, 2, 3, 4, 5}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 1 + 2*v
	}
	require.NoError(t, df.AddFloat("x", x))
	require.NoError(t, df.AddFloat("y", y))

	m := NewLM()
	require.NoError(t, m.Fit(df, "y", []string{"x"}))

	coef := m.Coefficients()
	require.Len(t, coef, 2)
	assert.InDelta(t, 1.0, coef[0], 1e-10)
	assert.InDelta(t, 2.0, coef[1], 1e-10)
	assert.InDelta(t, 0.0, m.Sigma2(), 1e-10)

	eta, err := m.LinearPredict([]float64{1, 3})
	require.NoError(t, err)
	assert.InDelta(t, 7.0, eta, 1e-10)
}

func TestLMFitWithFactor(t *testing.T) {
	df := NewDataFrame()
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	g := []string{"a", "b", "a", "b", "a", "b", "a", "b"}
	y := make([]float64, len(x))
	for i := range x {
		y[i] = 2 + 3*x[i]
		if g[i] == "b" {
			y[i] += 1.5
		}
	}
	require.NoError(t, df.AddFloat("x", x))
	require.NoError(t, df.AddLevels("g", g))
	require.NoError(t, df.AddFloat("y", y))

	m := NewLM()
	require.NoError(t, m.Fit(df, "y", []string{"x", "g"}))

	coef := m.Coefficients()
	require.Len(t, coef, 3)
	assert.InDelta(t, 2.0, coef[0], 1e-9)
	assert.InDelta(t, 3.0, coef[1], 1e-9)
	assert.InDelta(t, 1.5, coef[2], 1e-9)

	row, err := m.DesignRow(map[string]any{"x": 2.0, "g": "b"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 1}, row)
}

func TestLMVCov(t *testing.T) {
	df := NewDataFrame()
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{1.1, 2.9, 5.2, 6.8, 9.1, 10.9}
	require.NoError(t, df.AddFloat("x", x))
	require.NoError(t, df.AddFloat("y", y))

	m := NewLM()
	require.NoError(t, m.Fit(df, "y", []string{"x"}))

	v, err := m.VCov()
	require.NoError(t, err)
	n := v.SymmetricDim()
	require.Equal(t, 2, n)
	for i := 0; i < n; i++ {
		assert.Greater(t, v.At(i, i), 0.0)
	}
	// slope and intercept estimates are negatively correlated for positive x
	assert.Less(t, v.At(0, 1), 0.0)
}

func TestLMNotFitted(t *testing.T) {
	m := NewLM()
	var nferr *ggerrors.NotFittedError

	_, err := m.VCov()
	assert.ErrorAs(t, err, &nferr)

	_, err = m.ModelTerms()
	assert.ErrorAs(t, err, &nferr)

	_, err = m.LinearPredict([]float64{1})
	assert.ErrorAs(t, err, &nferr)
}

func TestLMFitErrors(t *testing.T) {
	t.Run("empty data", func(t *testing.T) {
		m := NewLM()
		err := m.Fit(NewDataFrame(), "y", []string{"x"})
		assert.ErrorIs(t, err, ggerrors.ErrEmptyData)
	})

	t.Run("non numeric response", func(t *testing.T) {
		df := NewDataFrame()
		require.NoError(t, df.AddLevels("y", []string{"a", "b"}))
		require.NoError(t, df.AddFloat("x", []float64{1, 2}))
		m := NewLM()
		var verr *ggerrors.ValueError
		assert.ErrorAs(t, m.Fit(df, "y", []string{"x"}), &verr)
	})

	t.Run("more parameters than rows", func(t *testing.T) {
		df := NewDataFrame()
		require.NoError(t, df.AddFloat("x", []float64{1, 2}))
		require.NoError(t, df.AddFloat("y", []float64{3, 4}))
		m := NewLM()
		var derr *ggerrors.DimensionError
		assert.ErrorAs(t, m.Fit(df, "y", []string{"x"}), &derr)
	})
}
