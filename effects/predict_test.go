package effects

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/Maschette/ggeffects/core/model"
	"github.com/Maschette/ggeffects/models"
	ggerrors "github.com/Maschette/ggeffects/pkg/errors"
	"github.com/Maschette/ggeffects/pkg/log"
)

// assertBracketed checks the interval property on every row.
func assertBracketed(t *testing.T, tab *Table) {
	t.Helper()
	for i, r := range tab.Rows {
		assert.LessOrEqual(t, r.ConfLow, r.Predicted, "row %d", i)
		assert.GreaterOrEqual(t, r.ConfHigh, r.Predicted, "row %d", i)
	}
}

func TestPredictLM(t *testing.T) {
	m := fitTestLM(t)

	tab, err := Predict(m, []TermSpec{{Name: "x"}}, WithGridResolution(11))
	require.NoError(t, err)
	require.Equal(t, 11, tab.Len())
	assert.Equal(t, []string{"x"}, tab.Terms)
	assert.Equal(t, "gaussian", tab.Family)
	assert.Equal(t, "identity", tab.Link)
	assert.Equal(t, TypeFixed, tab.Type)

	// the fit is exact, so predictions follow the line at g = "a"
	for _, r := range tab.Rows {
		x := r.X.(float64)
		assert.InDelta(t, 1+2*x, r.Predicted, 1e-8)
	}
	assertBracketed(t, tab)

	// x spans the observed range in ascending order
	assert.Equal(t, 0.0, tab.Rows[0].X)
	assert.Equal(t, 7.0, tab.Rows[tab.Len()-1].X)
}

func TestPredictExplicitValuesAreSorted(t *testing.T) {
	m := fitTestLM(t)

	tab, err := Predict(m, []TermSpec{{Name: "x", Values: []float64{3, 1, 2}}})
	require.NoError(t, err)
	require.Equal(t, 3, tab.Len())
	assert.Equal(t, []any{1.0, 2.0, 3.0}, tab.XValues())
}

func TestPredictRowOrdering(t *testing.T) {
	m := fitTestLM(t)

	tab, err := Predict(m, []TermSpec{{Name: "x", Values: []float64{0, 1, 2}}, {Name: "g"}})
	require.NoError(t, err)
	require.Equal(t, 6, tab.Len())
	assert.Equal(t, []string{"x", "g"}, tab.Terms)

	// group blocks are contiguous with x ascending inside each block
	assert.Equal(t, []string{"a", "b"}, tab.Groups())
	for i, r := range tab.Rows {
		if i < 3 {
			assert.Equal(t, "a", r.Group)
		} else {
			assert.Equal(t, "b", r.Group)
		}
		assert.Equal(t, float64(i%3), r.X)
	}

	// the factor effect shifts the "b" block by its coefficient
	assert.InDelta(t, 0.5, tab.Rows[3].Predicted-tab.Rows[0].Predicted, 1e-8)
}

func TestPredictGLMGaussianMatchesLM(t *testing.T) {
	df := models.NewDataFrame()
	require.NoError(t, df.AddFloat("x", []float64{1, 2, 3, 4, 5, 6}))
	require.NoError(t, df.AddFloat("y", []float64{2.1, 3.9, 6.2, 7.8, 10.1, 11.9}))

	lm := models.NewLM()
	require.NoError(t, lm.Fit(df, "y", []string{"x"}))
	glm := models.NewGLM(model.Gaussian)
	require.NoError(t, glm.Fit(df, "y", []string{"x"}))

	specs := []TermSpec{{Name: "x", Values: []float64{1, 3.5, 6}}}
	lt, err := Predict(lm, specs)
	require.NoError(t, err)
	gt, err := Predict(glm, specs)
	require.NoError(t, err)

	require.Equal(t, lt.Len(), gt.Len())
	for i := range lt.Rows {
		assert.InDelta(t, lt.Rows[i].Predicted, gt.Rows[i].Predicted, 1e-8)
		assert.InDelta(t, lt.Rows[i].StdError, gt.Rows[i].StdError, 1e-8)
		assert.InDelta(t, lt.Rows[i].ConfLow, gt.Rows[i].ConfLow, 1e-8)
		assert.InDelta(t, lt.Rows[i].ConfHigh, gt.Rows[i].ConfHigh, 1e-8)
	}
}

func TestPredictBinomialResponseScale(t *testing.T) {
	df := models.NewDataFrame()
	x := []float64{-2, -1.5, -1, -0.5, 0, 0.5, 1, 1.5, 2, 2.5}
	y := []float64{0, 0, 1, 0, 0, 1, 0, 1, 1, 1}
	require.NoError(t, df.AddFloat("x", x))
	require.NoError(t, df.AddFloat("y", y))

	m := models.NewGLM(model.Binomial)
	require.NoError(t, m.Fit(df, "y", []string{"x"}))

	tab, err := Predict(m, []TermSpec{{Name: "x"}}, WithGridResolution(9))
	require.NoError(t, err)
	assert.Equal(t, "binomial", tab.Family)
	assert.Equal(t, "logit", tab.Link)

	for _, r := range tab.Rows {
		assert.Greater(t, r.Predicted, 0.0)
		assert.Less(t, r.Predicted, 1.0)
		assert.GreaterOrEqual(t, r.ConfLow, 0.0)
		assert.LessOrEqual(t, r.ConfHigh, 1.0)
	}
	assertBracketed(t, tab)
}

func TestPredictConfidenceLevelWidensInterval(t *testing.T) {
	df := models.NewDataFrame()
	require.NoError(t, df.AddFloat("x", []float64{1, 2, 3, 4, 5, 6}))
	require.NoError(t, df.AddFloat("y", []float64{2.1, 3.9, 6.2, 7.8, 10.1, 11.9}))
	m := models.NewLM()
	require.NoError(t, m.Fit(df, "y", []string{"x"}))

	specs := []TermSpec{{Name: "x", Values: []float64{3.5}}}
	narrow, err := Predict(m, specs, WithLevel(0.8))
	require.NoError(t, err)
	wide, err := Predict(m, specs, WithLevel(0.99))
	require.NoError(t, err)

	nw := narrow.Rows[0].ConfHigh - narrow.Rows[0].ConfLow
	ww := wide.Rows[0].ConfHigh - wide.Rows[0].ConfLow
	assert.Greater(t, ww, nw)
}

func TestPredictMixedRandomType(t *testing.T) {
	df := models.NewDataFrame()
	require.NoError(t, df.AddFloat("x", []float64{1, 2, 3, 4, 5, 6}))
	require.NoError(t, df.AddLevels("site", []string{"s1", "s2", "s1", "s2", "s3", "s3"}))

	vcov := mat.NewSymDense(2, []float64{0.04, -0.005, -0.005, 0.01})
	m, err := models.NewMixed(df, []string{"x"}, []string{"site"},
		[]float64{1, 0.5}, vcov, model.Gaussian,
		map[string]float64{"site": 0.5})
	require.NoError(t, err)

	specs := []TermSpec{{Name: "x", Values: []float64{2, 4}}}
	fe, err := Predict(m, specs)
	require.NoError(t, err)
	re, err := Predict(m, specs, WithType(TypeRandom))
	require.NoError(t, err)

	require.Equal(t, fe.Len(), re.Len())
	for i := range fe.Rows {
		// same point estimate, wider uncertainty
		assert.InDelta(t, fe.Rows[i].Predicted, re.Rows[i].Predicted, 1e-12)
		assert.Greater(t, re.Rows[i].StdError, fe.Rows[i].StdError)
		feWidth := fe.Rows[i].ConfHigh - fe.Rows[i].ConfLow
		reWidth := re.Rows[i].ConfHigh - re.Rows[i].ConfLow
		assert.Greater(t, reWidth, feWidth)
	}

	// the grouping factor cannot be focal but is skipped in the assignment
	g, err := BuildGrid(m, specs)
	require.NoError(t, err)
	_, ok := g.Points[0].Assign["site"]
	assert.False(t, ok)
}

func TestPredictRandomTypeRequiresMixedModel(t *testing.T) {
	m := fitTestLM(t)
	_, err := Predict(m, []TermSpec{{Name: "x"}}, WithType(TypeRandom))
	var verr *ggerrors.ValueError
	assert.ErrorAs(t, err, &verr)
}

func newZITestModel(t *testing.T) *models.ZeroInflated {
	t.Helper()
	df := models.NewDataFrame()
	require.NoError(t, df.AddFloat("count_pred", []float64{0, 1, 2, 3, 4}))
	require.NoError(t, df.AddFloat("zero_pred", []float64{1, 1, 0, 0, 1}))

	z, err := models.NewZeroInflated(df,
		[]string{"count_pred"}, []string{"zero_pred"},
		[]float64{0.5, 0.2}, []float64{-1, 0.3},
		mat.NewSymDense(2, []float64{0.01, 0, 0, 0.01}),
		mat.NewSymDense(2, []float64{0.04, 0, 0, 0.04}),
		model.Poisson)
	require.NoError(t, err)
	return z
}

func TestPredictZeroInflatedConditional(t *testing.T) {
	z := newZITestModel(t)

	tab, err := Predict(z, []TermSpec{{Name: "count_pred", Values: []float64{0, 1, 2}}})
	require.NoError(t, err)

	// type "fe" is the conditional (count) part only
	for _, r := range tab.Rows {
		x := r.X.(float64)
		assert.InDelta(t, math.Exp(0.5+0.2*x), r.Predicted, 1e-10)
	}
	assertBracketed(t, tab)
}

func TestPredictZeroInflatedCombined(t *testing.T) {
	z := newZITestModel(t)
	specs := []TermSpec{{Name: "count_pred", Values: []float64{0, 1, 2}}}

	tab, err := Predict(z, specs, WithType(TypeZeroInflated), WithSimDraws(500), WithSeed(42))
	require.NoError(t, err)
	require.Equal(t, 3, tab.Len())

	// zero_pred is fixed at its mean 0.6
	etaZ := -1 + 0.3*0.6
	pi := 1 / (1 + math.Exp(-etaZ))
	for _, r := range tab.Rows {
		x := r.X.(float64)
		want := math.Exp(0.5+0.2*x) * (1 - pi)
		assert.InDelta(t, want, r.Predicted, 1e-10)
		assert.Greater(t, r.StdError, 0.0)
	}
	assertBracketed(t, tab)

	// the conditional-only prediction is strictly larger
	cond, err := Predict(z, specs)
	require.NoError(t, err)
	for i := range tab.Rows {
		assert.Less(t, tab.Rows[i].Predicted, cond.Rows[i].Predicted)
	}
}

func TestPredictZeroInflatedSeedReproducibility(t *testing.T) {
	z := newZITestModel(t)
	specs := []TermSpec{{Name: "count_pred", Values: []float64{1, 3}}}

	run := func(seed uint64) *Table {
		tab, err := Predict(z, specs, WithType(TypeZeroInflated), WithSimDraws(300), WithSeed(seed))
		require.NoError(t, err)
		return tab
	}

	a, b := run(7), run(7)
	for i := range a.Rows {
		assert.Equal(t, a.Rows[i].ConfLow, b.Rows[i].ConfLow)
		assert.Equal(t, a.Rows[i].ConfHigh, b.Rows[i].ConfHigh)
		assert.Equal(t, a.Rows[i].StdError, b.Rows[i].StdError)
	}

	c := run(8)
	assert.NotEqual(t, a.Rows[0].ConfLow, c.Rows[0].ConfLow)
}

func TestPredictZeroInflatedTypeRequiresZIModel(t *testing.T) {
	m := fitTestLM(t)
	_, err := Predict(m, []TermSpec{{Name: "x"}}, WithType(TypeZeroInflated))
	var verr *ggerrors.ValueError
	assert.ErrorAs(t, err, &verr)
}

func TestPredictBayesian(t *testing.T) {
	df := models.NewDataFrame()
	require.NoError(t, df.AddFloat("x", []float64{0, 1, 2, 3}))
	draws := mat.NewDense(4, 2, []float64{
		0.9, 2.1,
		1.1, 1.9,
		0.8, 2.2,
		1.2, 1.8,
	})
	b, err := models.NewBayesian(df, []string{"x"}, draws, model.Gaussian)
	require.NoError(t, err)

	tab, err := Predict(b, []TermSpec{{Name: "x", Values: []float64{1, 3}}})
	require.NoError(t, err)
	require.Equal(t, 2, tab.Len())

	// at x = 1 every draw predicts exactly 3
	assert.InDelta(t, 3.0, tab.Rows[0].Predicted, 1e-12)
	assert.InDelta(t, 0.0, tab.Rows[0].StdError, 1e-12)
	assert.InDelta(t, 3.0, tab.Rows[0].ConfLow, 1e-12)
	assert.InDelta(t, 3.0, tab.Rows[0].ConfHigh, 1e-12)

	// at x = 3 the draws disagree; the summary stays inside their span
	r := tab.Rows[1]
	assert.GreaterOrEqual(t, r.Predicted, 6.6)
	assert.LessOrEqual(t, r.Predicted, 7.4)
	assert.Greater(t, r.StdError, 0.0)
	assertBracketed(t, tab)
}

func TestPredictCoxRelativeRisk(t *testing.T) {
	df := models.NewDataFrame()
	require.NoError(t, df.AddFloat("age", []float64{50, 60, 70, 55, 65}))
	require.NoError(t, df.AddFloat("time", []float64{10, 8, 3, 12, 5}))
	require.NoError(t, df.AddFloat("status", []float64{1, 1, 1, 0, 1}))

	c, err := models.NewCox(df, []string{"age"}, []float64{0.02},
		mat.NewSymDense(1, []float64{1e-4}), "time", "status")
	require.NoError(t, err)

	tab, err := Predict(c, []TermSpec{{Name: "age", Values: []float64{50, 60}}})
	require.NoError(t, err)
	require.Equal(t, 2, tab.Len())
	assert.Equal(t, "coxph", tab.Family)

	// hazard ratio for a 10-year difference
	ratio := tab.Rows[1].Predicted / tab.Rows[0].Predicted
	assert.InDelta(t, math.Exp(0.2), ratio, 1e-10)
	assertBracketed(t, tab)
}

func TestPredictCounterfactualLinear(t *testing.T) {
	df := models.NewDataFrame()
	x := []float64{0, 1, 2, 3, 4, 5}
	w := []float64{2, 5, 1, 4, 3, 6}
	y := make([]float64, len(x))
	for i := range x {
		y[i] = 1 + 2*x[i] + 3*w[i]
	}
	require.NoError(t, df.AddFloat("x", x))
	require.NoError(t, df.AddFloat("w", w))
	require.NoError(t, df.AddFloat("y", y))

	m := models.NewLM()
	require.NoError(t, m.Fit(df, "y", []string{"x", "w"}))

	specs := []TermSpec{{Name: "x", Values: []float64{1, 2}}}
	marginal, err := Predict(m, specs)
	require.NoError(t, err)
	counter, err := Predict(m, specs, WithCounterfactual())
	require.NoError(t, err)

	// with an identity link, averaging over the data equals predicting at
	// the covariate means
	require.Equal(t, marginal.Len(), counter.Len())
	for i := range marginal.Rows {
		assert.InDelta(t, marginal.Rows[i].Predicted, counter.Rows[i].Predicted, 1e-9)
		assert.InDelta(t, marginal.Rows[i].StdError, counter.Rows[i].StdError, 1e-9)
	}
}

func TestPredictCounterfactualNonlinearDiffers(t *testing.T) {
	df := models.NewDataFrame()
	x := []float64{-2, -1.5, -1, -0.5, 0, 0.5, 1, 1.5, 2, 2.5}
	w := []float64{-3, 2, -1, 3, -2, 1, 0, -1.5, 2.5, 3.5}
	y := make([]float64, len(x))
	logit := model.LogitLink{}
	for i := range x {
		y[i] = logit.Linkinv(0.3 + 0.8*x[i] + 1.2*w[i])
	}
	require.NoError(t, df.AddFloat("x", x))
	require.NoError(t, df.AddFloat("w", w))
	require.NoError(t, df.AddFloat("y", y))

	m := models.NewGLM(model.Binomial)
	require.NoError(t, m.Fit(df, "y", []string{"x", "w"}))

	specs := []TermSpec{{Name: "x", Values: []float64{0}}}
	marginal, err := Predict(m, specs)
	require.NoError(t, err)
	counter, err := Predict(m, specs, WithCounterfactual())
	require.NoError(t, err)

	// the sigmoid is nonlinear, so the averaged prediction moves off the
	// prediction at the mean
	assert.Greater(t, math.Abs(marginal.Rows[0].Predicted-counter.Rows[0].Predicted), 1e-6)
	assertBracketed(t, counter)
}

func TestPredictCounterfactualZeroInflated(t *testing.T) {
	z := newZITestModel(t)
	specs := []TermSpec{{Name: "count_pred", Values: []float64{2}}}

	marginal, err := Predict(z, specs, WithType(TypeZeroInflated), WithSimDraws(300), WithSeed(3))
	require.NoError(t, err)
	counter, err := Predict(z, specs, WithType(TypeZeroInflated), WithSimDraws(300), WithSeed(3), WithCounterfactual())
	require.NoError(t, err)

	// averaging the combined response over the observed zero_pred values
	sigmoid := func(eta float64) float64 { return 1 / (1 + math.Exp(-eta)) }
	want := 0.0
	for _, zp := range []float64{1, 1, 0, 0, 1} {
		want += math.Exp(0.5+0.2*2) * (1 - sigmoid(-1+0.3*zp))
	}
	want /= 5
	assert.InDelta(t, want, counter.Rows[0].Predicted, 1e-10)

	// the logistic zero part is nonlinear, so averaging over zero_pred
	// moves the prediction off the value at its mean
	assert.Greater(t, math.Abs(marginal.Rows[0].Predicted-counter.Rows[0].Predicted), 1e-6)
	assert.Greater(t, counter.Rows[0].StdError, 0.0)
	assertBracketed(t, counter)
}

func TestPredictCounterfactualBayesian(t *testing.T) {
	df := models.NewDataFrame()
	require.NoError(t, df.AddFloat("x", []float64{0, 1, 2, 3}))
	require.NoError(t, df.AddFloat("w", []float64{0, 1, 0, 1}))
	draws := mat.NewDense(4, 3, []float64{
		0.2, 0.5, 1.0,
		0.2, 0.5, 1.0,
		0.2, 0.5, 1.0,
		0.2, 0.5, 1.0,
	})
	b, err := models.NewBayesian(df, []string{"x", "w"}, draws, model.Binomial)
	require.NoError(t, err)

	specs := []TermSpec{{Name: "x", Values: []float64{1}}}
	marginal, err := Predict(b, specs)
	require.NoError(t, err)
	counter, err := Predict(b, specs, WithCounterfactual())
	require.NoError(t, err)

	// identical draws make both summaries deterministic: the marginal
	// prediction sits at w's mean, the counterfactual one averages the
	// response over the observed w values
	logit := model.LogitLink{}
	assert.InDelta(t, logit.Linkinv(0.2+0.5+1.0*0.5), marginal.Rows[0].Predicted, 1e-12)
	assert.InDelta(t, (logit.Linkinv(0.7)+logit.Linkinv(1.7))/2, counter.Rows[0].Predicted, 1e-12)
	assert.Greater(t, math.Abs(marginal.Rows[0].Predicted-counter.Rows[0].Predicted), 1e-6)
	assertBracketed(t, counter)
}

func TestPredictUnsupportedModel(t *testing.T) {
	_, err := Predict(struct{}{}, []TermSpec{{Name: "x"}})
	var uerr *ggerrors.UnsupportedModelError
	assert.ErrorAs(t, err, &uerr)
}

func TestPredictOptionValidation(t *testing.T) {
	m := fitTestLM(t)
	specs := []TermSpec{{Name: "x"}}
	var verr *ggerrors.ValueError

	_, err := Predict(m, specs, WithLevel(1.5))
	assert.ErrorAs(t, err, &verr)

	_, err = Predict(m, specs, WithType(PredictionType("xyz")))
	assert.ErrorAs(t, err, &verr)

	_, err = Predict(m, specs, WithGridResolution(1))
	assert.ErrorAs(t, err, &verr)

	_, err = Predict(m, specs, WithSimDraws(1))
	assert.ErrorAs(t, err, &verr)
}

func TestPredictLogsStructuredFields(t *testing.T) {
	m := fitTestLM(t)
	logger, _ := log.NewTestLogger(log.LevelDebug)

	_, err := Predict(m, []TermSpec{{Name: "g"}}, WithLogger(logger))
	require.NoError(t, err)

	assert.True(t, logger.ContainsMessage("adjusted predictions computed"))
	assert.True(t, logger.ContainsField(log.ModelNameKey, "LM"))
	assert.True(t, logger.ContainsField(log.ModelFamilyKey, "gaussian"))
	assert.True(t, logger.ContainsField(log.PredictionTypeKey, "fe"))
	assert.True(t, logger.ContainsField(log.TermsKey, "g"))
	assert.True(t, logger.ContainsField(log.GridRowsKey, float64(2)))
}
