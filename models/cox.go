package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/Maschette/ggeffects/core/model"
	"github.com/Maschette/ggeffects/pkg/errors"
)

// Cox is a Cox proportional-hazards model described by its estimated
// log-hazard-ratio coefficients. The design has no intercept; predictions
// are relative risks exp(x'beta) against the covariate reference values.
// The baseline hazard is not represented, so absolute survival predictions
// are not available.
type Cox struct {
	state  *model.StateManager
	data   *DataFrame
	design *design

	coef []float64
	vcov *mat.SymDense

	timeTerm  model.Term
	statusCol string
}

// NewCox wraps externally estimated proportional-hazards coefficients into a
// fitted model. timeCol names the numeric event-time column and statusCol the
// numeric event indicator (0 censored, 1 event) in df.
func NewCox(df *DataFrame, predictors []string, coef []float64, vcov *mat.SymDense, timeCol, statusCol string) (*Cox, error) {
	d, err := newDesign(df, predictors, model.RoleFixed, false)
	if err != nil {
		return nil, err
	}
	if len(coef) != d.ncols() {
		return nil, errors.NewDimensionError("NewCox", d.ncols(), len(coef), 1)
	}
	if r := vcov.SymmetricDim(); r != len(coef) {
		return nil, errors.NewDimensionError("NewCox", len(coef), r, 1)
	}

	times, ok := df.Float(timeCol)
	if !ok {
		return nil, errors.NewValueError("NewCox", fmt.Sprintf("time column '%s' is not numeric", timeCol))
	}
	if _, ok := df.Float(statusCol); !ok {
		return nil, errors.NewValueError("NewCox", fmt.Sprintf("status column '%s' is not numeric", statusCol))
	}

	c := &Cox{
		state:     model.NewStateManager(),
		data:      df,
		design:    d,
		coef:      coef,
		vcov:      vcov,
		timeTerm:  summarizeFloat(timeCol, model.RoleSurvivalTime, times),
		statusCol: statusCol,
	}
	c.state.SetDimensions(len(coef), df.Len())
	c.state.SetFitted()
	return c, nil
}

// DesignRow implements model.LinearPredictor.
func (c *Cox) DesignRow(assign map[string]any) ([]float64, error) {
	return c.design.Row(assign)
}

// LinearPredict implements model.LinearPredictor.
func (c *Cox) LinearPredict(x []float64) (float64, error) {
	return dot("Cox.LinearPredict", c.coef, x)
}

// VCov implements model.VCovExtractor.
func (c *Cox) VCov() (*mat.SymDense, error) {
	return c.vcov, nil
}

// ModelTerms implements model.TermEnumerator. The event-time variable is
// enumerated with RoleSurvivalTime; it cannot be a focal term.
func (c *Cox) ModelTerms() ([]model.Term, error) {
	out := make([]model.Term, 0, len(c.design.terms)+1)
	out = append(out, c.design.terms...)
	out = append(out, c.timeTerm)
	return out, nil
}

// Link implements model.LinkScale. Relative risks back-transform with exp.
func (c *Cox) Link() model.Link { return model.LogLink{} }

// ModelFamily implements model.LinkScale.
func (c *Cox) ModelFamily() model.Family { return model.CoxPH }
