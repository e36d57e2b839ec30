package models

import (
	"gonum.org/v1/gonum/mat"

	"github.com/Maschette/ggeffects/core/model"
	"github.com/Maschette/ggeffects/pkg/errors"
)

// LM is an ordinary least-squares linear model. It is fitted with the normal
// equations; the parameter covariance is sigma^2 (X'X)^-1.
type LM struct {
	state    *model.StateManager
	data     *DataFrame
	design   *design
	response string

	coef   []float64
	vcov   *mat.SymDense
	sigma2 float64
}

// NewLM creates an unfitted linear model.
func NewLM() *LM {
	return &LM{state: model.NewStateManager()}
}

// Fit estimates the model from the named response and predictor columns.
func (m *LM) Fit(df *DataFrame, response string, predictors []string) error {
	if df == nil || df.Len() == 0 {
		return errors.Wrap(errors.ErrEmptyData, "LM.Fit")
	}
	y, ok := df.Float(response)
	if !ok {
		return errors.NewValueError("LM.Fit", "response '"+response+"' is not a numeric column")
	}

	d, err := newDesign(df, predictors, model.RoleFixed, true)
	if err != nil {
		return err
	}

	X, err := d.Matrix(df.Len())
	if err != nil {
		return err
	}
	n, p := X.Dims()
	if n <= p {
		return errors.NewDimensionError("LM.Fit", p+1, n, 0)
	}

	// Normal equations: beta = (X'X)^-1 X'y
	var xtx mat.Dense
	xtx.Mul(X.T(), X)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return errors.Wrap(errors.ErrSingularMatrix, "LM.Fit")
	}

	yVec := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yVec.SetVec(i, y[i])
	}

	var xty mat.VecDense
	xty.MulVec(X.T(), yVec)

	beta := mat.NewVecDense(p, nil)
	beta.MulVec(&xtxInv, &xty)

	// Residual variance
	var fitted mat.VecDense
	fitted.MulVec(X, beta)
	rss := 0.0
	for i := 0; i < n; i++ {
		r := y[i] - fitted.AtVec(i)
		rss += r * r
	}
	m.sigma2 = rss / float64(n-p)

	m.coef = make([]float64, p)
	for i := 0; i < p; i++ {
		m.coef[i] = beta.AtVec(i)
	}

	m.vcov = mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			v := m.sigma2 * (xtxInv.At(i, j) + xtxInv.At(j, i)) / 2
			m.vcov.SetSym(i, j, v)
		}
	}

	m.data = df
	m.design = d
	m.response = response
	m.state.SetDimensions(p, n)
	m.state.SetFitted()
	return nil
}

// Coefficients returns the estimated coefficients (intercept first).
func (m *LM) Coefficients() []float64 {
	out := make([]float64, len(m.coef))
	copy(out, m.coef)
	return out
}

// Sigma2 returns the estimated residual variance.
func (m *LM) Sigma2() float64 { return m.sigma2 }

// DesignRow implements model.LinearPredictor.
func (m *LM) DesignRow(assign map[string]any) ([]float64, error) {
	if !m.state.IsFitted() {
		return nil, errors.NewNotFittedError("LM", "DesignRow")
	}
	return m.design.Row(assign)
}

// LinearPredict implements model.LinearPredictor.
func (m *LM) LinearPredict(x []float64) (float64, error) {
	if !m.state.IsFitted() {
		return 0, errors.NewNotFittedError("LM", "LinearPredict")
	}
	return dot("LM.LinearPredict", m.coef, x)
}

// VCov implements model.VCovExtractor.
func (m *LM) VCov() (*mat.SymDense, error) {
	if !m.state.IsFitted() {
		return nil, errors.NewNotFittedError("LM", "VCov")
	}
	return m.vcov, nil
}

// ModelTerms implements model.TermEnumerator.
func (m *LM) ModelTerms() ([]model.Term, error) {
	if !m.state.IsFitted() {
		return nil, errors.NewNotFittedError("LM", "ModelTerms")
	}
	out := make([]model.Term, len(m.design.terms))
	copy(out, m.design.terms)
	return out, nil
}

// Link implements model.LinkScale.
func (m *LM) Link() model.Link { return model.IdentityLink{} }

// ModelFamily implements model.LinkScale.
func (m *LM) ModelFamily() model.Family { return model.Gaussian }

// dot computes the inner product of two equally sized vectors.
func dot(op string, a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.NewDimensionError(op, len(a), len(b), 1)
	}
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s, nil
}
