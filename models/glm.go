package models

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/Maschette/ggeffects/core/model"
	"github.com/Maschette/ggeffects/pkg/errors"
)

// GLM is a generalized linear model fitted by iteratively reweighted least
// squares. Supported families are Gaussian, Binomial, Poisson and (with a
// known dispersion theta) NegativeBinomial. The parameter covariance is
// (X'WX)^-1 at convergence, scaled by the Pearson dispersion for the
// gaussian family.
type GLM struct {
	state    *model.StateManager
	family   model.Family
	link     model.Link
	maxIter  int
	tol      float64
	theta    float64
	data     *DataFrame
	design   *design
	response string

	coef      []float64
	vcov      *mat.SymDense
	nIter     int
	converged bool
}

// GLMOption is a functional option for GLM.
type GLMOption func(*GLM)

// WithMaxIter sets the IRLS iteration limit.
func WithMaxIter(n int) GLMOption {
	return func(g *GLM) { g.maxIter = n }
}

// WithTol sets the coefficient-change convergence tolerance.
func WithTol(tol float64) GLMOption {
	return func(g *GLM) { g.tol = tol }
}

// WithLink overrides the family's canonical link.
func WithLink(l model.Link) GLMOption {
	return func(g *GLM) { g.link = l }
}

// WithTheta sets the negative binomial dispersion parameter.
func WithTheta(theta float64) GLMOption {
	return func(g *GLM) { g.theta = theta }
}

// NewGLM creates an unfitted GLM for the given family with its canonical link.
func NewGLM(family model.Family, opts ...GLMOption) *GLM {
	g := &GLM{
		state:   model.NewStateManager(),
		family:  family,
		link:    family.DefaultLink(),
		maxIter: 25,
		tol:     1e-8,
		theta:   1,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Fit estimates the model from the named response and predictor columns.
func (m *GLM) Fit(df *DataFrame, response string, predictors []string) error {
	switch m.family {
	case model.Gaussian, model.Binomial, model.Poisson, model.NegativeBinomial:
	default:
		return errors.NewValueError("GLM.Fit", "family "+m.family.String()+" cannot be fitted by IRLS")
	}
	if df == nil || df.Len() == 0 {
		return errors.Wrap(errors.ErrEmptyData, "GLM.Fit")
	}
	y, ok := df.Float(response)
	if !ok {
		return errors.NewValueError("GLM.Fit", "response '"+response+"' is not a numeric column")
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
		return errors.NewDimensionError("GLM.Fit", p+1, n, 0)
	}

	beta := make([]float64, p)
	eta := make([]float64, n)
	w := make([]float64, n)
	z := make([]float64, n)

	var xtwxInv mat.Dense
	m.converged = false
	for iter := 1; iter <= m.maxIter; iter++ {
		m.nIter = iter

		for i := 0; i < n; i++ {
			e := 0.0
			for j := 0; j < p; j++ {
				e += X.At(i, j) * beta[j]
			}
			eta[i] = e

			mu := m.link.Linkinv(e)
			dmu := m.link.DerivInv(e)
			v := m.family.Variance(mu, m.theta)
			if math.Abs(dmu) < 1e-10 {
				dmu = math.Copysign(1e-10, dmu)
			}
			if v < 1e-10 {
				v = 1e-10
			}
			w[i] = dmu * dmu / v
			z[i] = e + (y[i]-mu)/dmu
		}

		// Weighted least squares step: beta = (X'WX)^-1 X'Wz
		xtwx := mat.NewDense(p, p, nil)
		xtwz := make([]float64, p)
		for i := 0; i < n; i++ {
			for j := 0; j < p; j++ {
				xj := X.At(i, j) * w[i]
				xtwz[j] += xj * z[i]
				for k := 0; k < p; k++ {
					xtwx.Set(j, k, xtwx.At(j, k)+xj*X.At(i, k))
				}
			}
		}

		if err := xtwxInv.Inverse(xtwx); err != nil {
			return errors.Wrap(errors.ErrSingularMatrix, "GLM.Fit")
		}

		maxDiff := 0.0
		for j := 0; j < p; j++ {
			nb := 0.0
			for k := 0; k < p; k++ {
				nb += xtwxInv.At(j, k) * xtwz[k]
			}
			if diff := math.Abs(nb - beta[j]); diff > maxDiff {
				maxDiff = diff
			}
			beta[j] = nb
		}

		if err := errors.CheckNumericalStability("GLM.Fit", beta, iter); err != nil {
			return err
		}
		if maxDiff < m.tol {
			m.converged = true
			break
		}
	}
	if !m.converged {
		errors.Warn(errors.NewConvergenceWarning("IRLS", m.maxIter, ""))
	}

	// Dispersion: Pearson chi^2 / (n - p) for gaussian, fixed at 1 otherwise
	dispersion := 1.0
	if m.family == model.Gaussian {
		pearson := 0.0
		for i := 0; i < n; i++ {
			mu := m.link.Linkinv(eta[i])
			r := y[i] - mu
			pearson += r * r / m.family.Variance(mu, m.theta)
		}
		dispersion = pearson / float64(n-p)
	}

	m.coef = beta
	m.vcov = mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			v := dispersion * (xtwxInv.At(i, j) + xtwxInv.At(j, i)) / 2
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
func (m *GLM) Coefficients() []float64 {
	out := make([]float64, len(m.coef))
	copy(out, m.coef)
	return out
}

// Iterations returns the number of IRLS iterations performed.
func (m *GLM) Iterations() int { return m.nIter }

// Converged reports whether IRLS reached the tolerance within the limit.
func (m *GLM) Converged() bool { return m.converged }

// DesignRow implements model.LinearPredictor.
func (m *GLM) DesignRow(assign map[string]any) ([]float64, error) {
	if !m.state.IsFitted() {
		return nil, errors.NewNotFittedError("GLM", "DesignRow")
	}
	return m.design.Row(assign)
}

// LinearPredict implements model.LinearPredictor.
func (m *GLM) LinearPredict(x []float64) (float64, error) {
	if !m.state.IsFitted() {
		return 0, errors.NewNotFittedError("GLM", "LinearPredict")
	}
	return dot("GLM.LinearPredict", m.coef, x)
}

// VCov implements model.VCovExtractor.
func (m *GLM) VCov() (*mat.SymDense, error) {
	if !m.state.IsFitted() {
		return nil, errors.NewNotFittedError("GLM", "VCov")
	}
	return m.vcov, nil
}

// ModelTerms implements model.TermEnumerator.
func (m *GLM) ModelTerms() ([]model.Term, error) {
	if !m.state.IsFitted() {
		return nil, errors.NewNotFittedError("GLM", "ModelTerms")
	}
	out := make([]model.Term, len(m.design.terms))
	copy(out, m.design.terms)
	return out, nil
}

// Link implements model.LinkScale.
func (m *GLM) Link() model.Link { return m.link }

// ModelFamily implements model.LinkScale.
func (m *GLM) ModelFamily() model.Family { return m.family }
