package effects

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Maschette/ggeffects/core/model"
	"github.com/Maschette/ggeffects/core/parallel"
	"github.com/Maschette/ggeffects/models"
	"github.com/Maschette/ggeffects/pkg/errors"
	"github.com/Maschette/ggeffects/pkg/log"
)

// Grids below this size are computed sequentially.
const parallelThreshold = 256

// prediction is the per-grid-row result before normalization.
type prediction struct {
	predicted float64
	se        float64
	low       float64
	high      float64
}

// Predict computes adjusted predictions for up to four focal terms of a
// fitted model and returns them as a tidy table. The model value is resolved
// through the adapter registry; unregistered types fail with
// UnsupportedModelError.
func Predict(m any, specs []TermSpec, opts ...Option) (*Table, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	adapter, err := models.AdapterFor(m)
	if err != nil {
		return nil, err
	}
	grid, err := buildGrid(adapter, specs, o)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(grid.Terms))
	for i := range grid.Terms {
		names[i] = grid.Terms[i].Name
	}
	logger := o.Logger.With(
		log.ComponentKey, "effects",
		log.ModelNameKey, modelName(m),
		log.ModelFamilyKey, adapter.ModelFamily().String(),
		log.LinkKey, adapter.Link().Name(),
	)
	start := time.Now()

	var preds []prediction
	switch {
	case o.Type == TypeZeroInflated:
		zim, ok := adapter.(model.ZeroInflation)
		if !ok {
			return nil, errors.NewValueError("Predict", "prediction type \"fe.zi\" requires a zero-inflated model")
		}
		preds, err = predictZeroInflated(adapter, zim, grid, o, logger)
	default:
		if ps, ok := adapter.(model.PosteriorSampler); ok && o.Type == TypeFixed {
			preds, err = predictPosterior(adapter, ps, grid, o)
		} else {
			preds, err = predictDelta(adapter, grid, o)
		}
	}
	if err != nil {
		return nil, err
	}

	logger.Info("adjusted predictions computed",
		log.OperationKey, "predict",
		log.TermsKey, strings.Join(names, ","),
		log.PredictionTypeKey, string(o.Type),
		log.TermCountKey, len(grid.Terms),
		log.GridRowsKey, len(grid.Points),
		log.ConfidenceLevelKey, o.Level,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return newTable(grid, preds, adapter, o), nil
}

// modelName reports the concrete model type behind a prediction request,
// without package qualifier or pointer marker.
func modelName(m any) string {
	name := strings.TrimPrefix(fmt.Sprintf("%T", m), "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// predictDelta is the analytic path: link-scale prediction with a
// delta-method standard error, widened by the random-effect variance for
// prediction type "re".
func predictDelta(a model.Adapter, g *Grid, o *Options) ([]prediction, error) {
	vcov, err := a.VCov()
	if err != nil {
		return nil, err
	}

	extraVar := 0.0
	if o.Type == TypeRandom {
		rv, ok := a.(model.RandomVariance)
		if !ok {
			return nil, errors.NewValueError("Predict", "prediction type \"re\" requires a mixed model")
		}
		extraVar = rv.RandomVariance()
	}

	link := a.Link()
	z := distuv.UnitNormal.Quantile(1 - (1-o.Level)/2)

	n := len(g.Points)
	preds := make([]prediction, n)
	errs := make([]error, n)
	parallel.ChunkedWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			errs[i] = predictRow(a, vcov, link, g, i, z, extraVar, o, &preds[i])
		}
	})
	for _, e := range errs {
		if e != nil {
			return nil, e
		}
	}
	return preds, nil
}

// predictRow fills in one grid row. Panics from the model's prediction
// routines are recovered into errors.
func predictRow(a model.Adapter, vcov *mat.SymDense, link model.Link, g *Grid, i int, z, extraVar float64, o *Options, out *prediction) (err error) {
	defer errors.Recover(&err, "Predict")
	pt := g.Points[i]

	if o.Counterfactual {
		return predictRowCounterfactual(a, vcov, link, g, i, z, extraVar, out)
	}

	x, err := a.DesignRow(pt.Assign)
	if err != nil {
		return err
	}
	eta, err := a.LinearPredict(x)
	if err != nil {
		return errors.NewPredictionFailureError(a.ModelFamily().String(), "LinearPredict", err)
	}
	se, err := deltaSE(vcov, x)
	if err != nil {
		return err
	}
	se = math.Sqrt(se*se + extraVar)

	out.predicted = link.Linkinv(eta)
	out.se = se
	out.low, out.high = bracket(out.predicted, link.Linkinv(eta-z*se), link.Linkinv(eta+z*se))
	return nil
}

// counterfactualAssigns expands one grid point into per-observation
// predictor assignments, every observed training row with the focal values
// overridden.
func counterfactualAssigns(g *Grid, pt GridPoint) ([]map[string]any, error) {
	nobs := g.observations()
	if nobs == 0 {
		return nil, errors.NewValueError("Predict", "counterfactual averaging requires observed training values")
	}
	assigns := make([]map[string]any, nobs)
	for r := 0; r < nobs; r++ {
		assign := g.observedAssign(r)
		for k := range g.Terms {
			assign[g.Terms[k].Name] = pt.Focal[k]
		}
		assigns[r] = assign
	}
	return assigns, nil
}

// predictRowCounterfactual averages response-scale predictions over every
// observed training row with the focal values overridden, instead of fixing
// non-focal terms at mean/mode. The standard error uses the averaged design
// vector.
func predictRowCounterfactual(a model.Adapter, vcov *mat.SymDense, link model.Link, g *Grid, i int, z, extraVar float64, out *prediction) error {
	assigns, err := counterfactualAssigns(g, g.Points[i])
	if err != nil {
		return err
	}
	nobs := len(assigns)

	var xbar []float64
	meanResp := 0.0
	for r := 0; r < nobs; r++ {
		x, err := a.DesignRow(assigns[r])
		if err != nil {
			return err
		}
		eta, err := a.LinearPredict(x)
		if err != nil {
			return errors.NewPredictionFailureError(a.ModelFamily().String(), "LinearPredict", err)
		}
		meanResp += link.Linkinv(eta)
		if xbar == nil {
			xbar = make([]float64, len(x))
		}
		for j := range x {
			xbar[j] += x[j]
		}
	}
	meanResp /= float64(nobs)
	for j := range xbar {
		xbar[j] /= float64(nobs)
	}

	etaBar, err := a.LinearPredict(xbar)
	if err != nil {
		return errors.NewPredictionFailureError(a.ModelFamily().String(), "LinearPredict", err)
	}
	se, err := deltaSE(vcov, xbar)
	if err != nil {
		return err
	}
	se = math.Sqrt(se*se + extraVar)

	out.predicted = meanResp
	out.se = se
	out.low, out.high = bracket(meanResp, link.Linkinv(etaBar-z*se), link.Linkinv(etaBar+z*se))
	return nil
}

// predictPosterior summarises per-row posterior draws into a median and an
// equal-tailed credible interval. Counterfactual requests average the
// response-scale draws over the observed training rows, draw by draw, so the
// credible interval reflects the averaged quantity.
func predictPosterior(a model.Adapter, ps model.PosteriorSampler, g *Grid, o *Options) ([]prediction, error) {
	link := a.Link()
	alpha := 1 - o.Level

	preds := make([]prediction, len(g.Points))
	for i, pt := range g.Points {
		assigns := []map[string]any{pt.Assign}
		if o.Counterfactual {
			var err error
			if assigns, err = counterfactualAssigns(g, pt); err != nil {
				return nil, err
			}
		}

		var resp []float64
		for _, assign := range assigns {
			x, err := a.DesignRow(assign)
			if err != nil {
				return nil, err
			}
			etas, err := ps.PosteriorEta(x)
			if err != nil {
				return nil, errors.NewPredictionFailureError(a.ModelFamily().String(), "PosteriorEta", err)
			}
			if resp == nil {
				resp = make([]float64, len(etas))
			}
			for j, e := range etas {
				resp[j] += link.Linkinv(e)
			}
		}
		if len(assigns) > 1 {
			for j := range resp {
				resp[j] /= float64(len(assigns))
			}
		}
		preds[i].se = stat.StdDev(resp, nil)
		sort.Float64s(resp)
		preds[i].predicted = stat.Quantile(0.5, stat.Empirical, resp, nil)
		lo := stat.Quantile(alpha/2, stat.Empirical, resp, nil)
		hi := stat.Quantile(1-alpha/2, stat.Empirical, resp, nil)
		preds[i].low, preds[i].high = bracket(preds[i].predicted, lo, hi)
	}
	return preds, nil
}

// predictZeroInflated combines the conditional and zero-inflation submodels
// multiplicatively on the response scale. No closed form exists for the
// combined uncertainty, so coefficient vectors are simulated from the joint
// covariance and intervals taken from the empirical quantiles. Counterfactual
// requests average the combined response over the observed training rows,
// both for the point estimate and within every simulation draw.
func predictZeroInflated(a model.Adapter, zim model.ZeroInflation, g *Grid, o *Options, logger log.Logger) ([]prediction, error) {
	theta := zim.JointCoefficients()
	vcov, err := zim.JointVCov()
	if err != nil {
		return nil, err
	}
	k := zim.ConditionalLen()
	link := a.Link()
	logit := model.LogitLink{}

	// meanResponse averages the combined response over the design rows of
	// one grid point for a given joint coefficient vector.
	meanResponse := func(coef []float64, xc, xz [][]float64) (float64, error) {
		sum := 0.0
		for r := range xc {
			etaC, err := dotProd(coef[:k], xc[r])
			if err != nil {
				return 0, err
			}
			etaZ, err := dotProd(coef[k:], xz[r])
			if err != nil {
				return 0, err
			}
			sum += link.Linkinv(etaC) * (1 - logit.Linkinv(etaZ))
		}
		return sum / float64(len(xc)), nil
	}

	n := len(g.Points)
	xc := make([][][]float64, n)
	xz := make([][][]float64, n)
	preds := make([]prediction, n)
	for i, pt := range g.Points {
		assigns := []map[string]any{pt.Assign}
		if o.Counterfactual {
			if assigns, err = counterfactualAssigns(g, pt); err != nil {
				return nil, err
			}
		}
		xc[i] = make([][]float64, len(assigns))
		xz[i] = make([][]float64, len(assigns))
		for r, assign := range assigns {
			if xc[i][r], err = a.DesignRow(assign); err != nil {
				return nil, err
			}
			if xz[i][r], err = zim.ZeroInflationDesignRow(assign); err != nil {
				return nil, err
			}
		}
		if preds[i].predicted, err = meanResponse(theta, xc[i], xz[i]); err != nil {
			return nil, err
		}
	}

	src := rand.New(rand.NewPCG(o.Seed, o.Seed))
	mvn, ok := distmv.NewNormal(theta, vcov, src)
	if !ok {
		return nil, errors.NewSingularCovarianceError("Predict(fe.zi)", len(theta))
	}

	logger.Debug("simulating joint coefficient draws",
		log.OperationKey, "simulate",
		log.DrawsKey, o.SimDraws,
		log.SeedKey, o.Seed,
	)

	sims := make([][]float64, n)
	for i := range sims {
		sims[i] = make([]float64, 0, o.SimDraws)
	}
	draw := make([]float64, len(theta))
	for s := 0; s < o.SimDraws; s++ {
		mvn.Rand(draw)
		for i := range g.Points {
			resp, err := meanResponse(draw, xc[i], xz[i])
			if err != nil {
				return nil, err
			}
			sims[i] = append(sims[i], resp)
		}
	}

	alpha := 1 - o.Level
	for i := range preds {
		s := sims[i]
		preds[i].se = stat.StdDev(s, nil)
		sort.Float64s(s)
		lo := stat.Quantile(alpha/2, stat.Empirical, s, nil)
		hi := stat.Quantile(1-alpha/2, stat.Empirical, s, nil)
		preds[i].low, preds[i].high = bracket(preds[i].predicted, lo, hi)
	}
	return preds, nil
}

// deltaSE projects a design vector through the parameter covariance,
// sqrt(x' V x), the first-order propagation of coefficient uncertainty into
// the linear predictor.
func deltaSE(vcov *mat.SymDense, x []float64) (float64, error) {
	p := vcov.SymmetricDim()
	if len(x) != p {
		return 0, errors.NewDimensionError("deltaSE", p, len(x), 1)
	}
	v := mat.NewVecDense(p, x)
	var tmp mat.VecDense
	tmp.MulVec(vcov, v)
	q := mat.Dot(v, &tmp)
	if math.IsNaN(q) || math.IsInf(q, 0) || q < 0 {
		return 0, errors.NewSingularCovarianceError("deltaSE", p)
	}
	return math.Sqrt(q), nil
}

// bracket orders the interval bounds and widens them to include the point
// estimate so conf.low <= predicted <= conf.high holds on every row.
func bracket(pred, lo, hi float64) (float64, float64) {
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo > pred {
		lo = pred
	}
	if hi < pred {
		hi = pred
	}
	return lo, hi
}

func dotProd(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.NewDimensionError("dotProd", len(a), len(b), 1)
	}
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s, nil
}
