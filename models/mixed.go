package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/Maschette/ggeffects/core/model"
	"github.com/Maschette/ggeffects/pkg/errors"
)

// Mixed is a (generalized) linear mixed-effects model described by its
// fixed-effect estimates. The random-effect structure enters only through
// the grouping factors and their variance components: predictions are for
// the fixed effects, and requesting random-effect uncertainty widens the
// interval by the summed variance components.
//
// Mixed is constructed from externally obtained estimates rather than
// fitted here; estimating variance components is out of scope.
type Mixed struct {
	state  *model.StateManager
	data   *DataFrame
	design *design
	family model.Family
	link   model.Link

	coef   []float64
	vcov   *mat.SymDense
	groups []model.Term
	reVar  map[string]float64
}

// MixedOption is a functional option for Mixed.
type MixedOption func(*Mixed)

// WithMixedLink overrides the family's canonical link.
func WithMixedLink(l model.Link) MixedOption {
	return func(m *Mixed) { m.link = l }
}

// NewMixed wraps externally estimated fixed effects into a fitted model.
// groupFactors name the categorical grouping columns of df; reVar maps each
// grouping factor to its random-intercept variance component.
func NewMixed(df *DataFrame, predictors, groupFactors []string, coef []float64, vcov *mat.SymDense, family model.Family, reVar map[string]float64, opts ...MixedOption) (*Mixed, error) {
	d, err := newDesign(df, predictors, model.RoleFixed, true)
	if err != nil {
		return nil, err
	}
	if len(coef) != d.ncols() {
		return nil, errors.NewDimensionError("NewMixed", d.ncols(), len(coef), 1)
	}
	if r := vcov.SymmetricDim(); r != len(coef) {
		return nil, errors.NewDimensionError("NewMixed", len(coef), r, 1)
	}

	m := &Mixed{
		state:  model.NewStateManager(),
		data:   df,
		design: d,
		family: family,
		link:   family.DefaultLink(),
		coef:   coef,
		vcov:   vcov,
		reVar:  make(map[string]float64, len(groupFactors)),
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, g := range groupFactors {
		obs, ok := df.Levels(g)
		if !ok {
			return nil, errors.NewValueError("NewMixed", fmt.Sprintf("grouping factor '%s' is not a categorical column", g))
		}
		m.groups = append(m.groups, summarizeLevels(g, model.RoleRandom, obs))
		if v, ok := reVar[g]; ok {
			if v < 0 {
				return nil, errors.NewValueError("NewMixed", fmt.Sprintf("negative variance component for '%s'", g))
			}
			m.reVar[g] = v
		}
	}

	m.state.SetDimensions(len(coef), df.Len())
	m.state.SetFitted()
	return m, nil
}

// RandomVariance implements model.RandomVariance: the sum of the
// random-effect variance components.
func (m *Mixed) RandomVariance() float64 {
	total := 0.0
	for _, v := range m.reVar {
		total += v
	}
	return total
}

// DesignRow implements model.LinearPredictor.
func (m *Mixed) DesignRow(assign map[string]any) ([]float64, error) {
	return m.design.Row(assign)
}

// LinearPredict implements model.LinearPredictor.
func (m *Mixed) LinearPredict(x []float64) (float64, error) {
	return dot("Mixed.LinearPredict", m.coef, x)
}

// VCov implements model.VCovExtractor.
func (m *Mixed) VCov() (*mat.SymDense, error) {
	return m.vcov, nil
}

// ModelTerms implements model.TermEnumerator. Grouping factors appear with
// RoleRandom after the fixed-effect terms.
func (m *Mixed) ModelTerms() ([]model.Term, error) {
	out := make([]model.Term, 0, len(m.design.terms)+len(m.groups))
	out = append(out, m.design.terms...)
	out = append(out, m.groups...)
	return out, nil
}

// Link implements model.LinkScale.
func (m *Mixed) Link() model.Link { return m.link }

// ModelFamily implements model.LinkScale.
func (m *Mixed) ModelFamily() model.Family { return m.family }
