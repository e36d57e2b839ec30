package models

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/Maschette/ggeffects/core/model"
	"github.com/Maschette/ggeffects/pkg/errors"
)

// Bayesian is a regression model described by posterior draws of its
// coefficients (one row per draw, columns ordered like the design).
// Point predictions use the posterior mean on the link scale; the engine
// summarises per-row posterior draws into credible intervals via
// model.PosteriorSampler, so no delta method is involved.
type Bayesian struct {
	state  *model.StateManager
	data   *DataFrame
	design *design
	family model.Family
	link   model.Link

	draws    *mat.Dense
	coefMean []float64
	vcov     *mat.SymDense
}

// BayesianOption is a functional option for Bayesian.
type BayesianOption func(*Bayesian)

// WithBayesianLink overrides the family's canonical link.
func WithBayesianLink(l model.Link) BayesianOption {
	return func(b *Bayesian) { b.link = l }
}

// NewBayesian wraps a posterior draw matrix into a fitted model.
func NewBayesian(df *DataFrame, predictors []string, draws *mat.Dense, family model.Family, opts ...BayesianOption) (*Bayesian, error) {
	d, err := newDesign(df, predictors, model.RoleFixed, true)
	if err != nil {
		return nil, err
	}
	s, p := draws.Dims()
	if p != d.ncols() {
		return nil, errors.NewDimensionError("NewBayesian", d.ncols(), p, 1)
	}
	if s < 2 {
		return nil, errors.NewValueError("NewBayesian", "at least 2 posterior draws are required")
	}

	b := &Bayesian{
		state:  model.NewStateManager(),
		data:   df,
		design: d,
		family: family,
		link:   family.DefaultLink(),
		draws:  draws,
	}
	for _, opt := range opts {
		opt(b)
	}

	b.coefMean = make([]float64, p)
	col := make([]float64, s)
	for j := 0; j < p; j++ {
		mat.Col(col, j, draws)
		b.coefMean[j] = stat.Mean(col, nil)
	}

	b.vcov = mat.NewSymDense(p, nil)
	stat.CovarianceMatrix(b.vcov, draws, nil)

	b.state.SetDimensions(p, df.Len())
	b.state.SetFitted()
	return b, nil
}

// DesignRow implements model.LinearPredictor.
func (b *Bayesian) DesignRow(assign map[string]any) ([]float64, error) {
	return b.design.Row(assign)
}

// LinearPredict implements model.LinearPredictor using the posterior mean.
func (b *Bayesian) LinearPredict(x []float64) (float64, error) {
	return dot("Bayesian.LinearPredict", b.coefMean, x)
}

// VCov implements model.VCovExtractor with the posterior covariance.
func (b *Bayesian) VCov() (*mat.SymDense, error) {
	return b.vcov, nil
}

// ModelTerms implements model.TermEnumerator.
func (b *Bayesian) ModelTerms() ([]model.Term, error) {
	out := make([]model.Term, len(b.design.terms))
	copy(out, b.design.terms)
	return out, nil
}

// Link implements model.LinkScale.
func (b *Bayesian) Link() model.Link { return b.link }

// ModelFamily implements model.LinkScale.
func (b *Bayesian) ModelFamily() model.Family { return b.family }

// PosteriorEta implements model.PosteriorSampler: one link-scale draw per
// posterior sample for the given design vector.
func (b *Bayesian) PosteriorEta(x []float64) ([]float64, error) {
	s, p := b.draws.Dims()
	if len(x) != p {
		return nil, errors.NewDimensionError("Bayesian.PosteriorEta", p, len(x), 1)
	}
	etas := make([]float64, s)
	for i := 0; i < s; i++ {
		e := 0.0
		for j := 0; j < p; j++ {
			e += b.draws.At(i, j) * x[j]
		}
		etas[i] = e
	}
	return etas, nil
}
