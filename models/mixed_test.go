package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/Maschette/ggeffects/core/model"
	ggerrors "github.com/Maschette/ggeffects/pkg/errors"
)

func mixedTestFrame(t *testing.T) *DataFrame {
	t.Helper()
	df := NewDataFrame()
	require.NoError(t, df.AddFloat("x", []float64{1, 2, 3, 4, 5, 6}))
	require.NoError(t, df.AddLevels("site", []string{"s1", "s2", "s1", "s2", "s3", "s3"}))
	return df
}

func TestNewMixed(t *testing.T) {
	df := mixedTestFrame(t)
	vcov := mat.NewSymDense(2, []float64{0.04, 0, 0, 0.01})

	m, err := NewMixed(df, []string{"x"}, []string{"site"},
		[]float64{1, 0.5}, vcov, model.Gaussian,
		map[string]float64{"site": 0.3})
	require.NoError(t, err)

	assert.InDelta(t, 0.3, m.RandomVariance(), 1e-12)
	assert.Equal(t, "identity", m.Link().Name())

	terms, err := m.ModelTerms()
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, "x", terms[0].Name)
	assert.Equal(t, model.RoleFixed, terms[0].Role)
	assert.Equal(t, "site", terms[1].Name)
	assert.Equal(t, model.RoleRandom, terms[1].Role)
	assert.Equal(t, []string{"s1", "s2", "s3"}, terms[1].Levels)

	eta, err := m.LinearPredict([]float64{1, 4})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, eta, 1e-12)
}

func TestNewMixedValidation(t *testing.T) {
	df := mixedTestFrame(t)
	vcov := mat.NewSymDense(2, []float64{0.04, 0, 0, 0.01})

	t.Run("coefficient length mismatch", func(t *testing.T) {
		_, err := NewMixed(df, []string{"x"}, nil, []float64{1, 2, 3}, vcov, model.Gaussian, nil)
		var derr *ggerrors.DimensionError
		assert.ErrorAs(t, err, &derr)
	})

	t.Run("covariance dimension mismatch", func(t *testing.T) {
		bad := mat.NewSymDense(3, nil)
		_, err := NewMixed(df, []string{"x"}, nil, []float64{1, 2}, bad, model.Gaussian, nil)
		var derr *ggerrors.DimensionError
		assert.ErrorAs(t, err, &derr)
	})

	t.Run("negative variance component", func(t *testing.T) {
		_, err := NewMixed(df, []string{"x"}, []string{"site"}, []float64{1, 2}, vcov,
			model.Gaussian, map[string]float64{"site": -1})
		var verr *ggerrors.ValueError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("numeric grouping factor", func(t *testing.T) {
		_, err := NewMixed(df, []string{"x"}, []string{"x"}, []float64{1, 2}, vcov, model.Gaussian, nil)
		var verr *ggerrors.ValueError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestMixedLinkOverride(t *testing.T) {
	df := mixedTestFrame(t)
	vcov := mat.NewSymDense(2, []float64{0.04, 0, 0, 0.01})

	m, err := NewMixed(df, []string{"x"}, []string{"site"},
		[]float64{-1, 0.2}, vcov, model.Binomial, nil,
		WithMixedLink(model.ProbitLink{}))
	require.NoError(t, err)
	assert.Equal(t, "probit", m.Link().Name())
	assert.Equal(t, 0.0, m.RandomVariance())
}
