package models

import (
	"gonum.org/v1/gonum/mat"

	"github.com/Maschette/ggeffects/core/model"
	"github.com/Maschette/ggeffects/pkg/errors"
)

// ZeroInflated is a two-part count model: a conditional count submodel with a
// log link and a zero-inflation submodel with a logit link. Both parts are
// described by externally estimated coefficients and covariances. The
// response-scale prediction combining both parts is
//
//	mu * (1 - pi)
//
// where mu is the conditional mean and pi the zero-inflation probability.
type ZeroInflated struct {
	state *model.StateManager
	data  *DataFrame

	cond *design
	zi   *design

	condCoef []float64
	ziCoef   []float64
	condVCov *mat.SymDense
	ziVCov   *mat.SymDense
	joint    *mat.SymDense

	family model.Family
	theta  float64
}

// ZIOption is a functional option for ZeroInflated.
type ZIOption func(*ZeroInflated)

// WithZITheta sets the negative binomial dispersion of the conditional part.
func WithZITheta(theta float64) ZIOption {
	return func(z *ZeroInflated) { z.theta = theta }
}

// WithJointVCov supplies the full covariance of the stacked
// [conditional; zero-inflation] coefficient vector. Without it the blocks
// are assumed uncorrelated and the joint covariance is block-diagonal.
func WithJointVCov(v *mat.SymDense) ZIOption {
	return func(z *ZeroInflated) { z.joint = v }
}

// NewZeroInflated wraps externally estimated submodel coefficients into a
// fitted zero-inflated model. family must be Poisson or NegativeBinomial.
func NewZeroInflated(df *DataFrame, condPredictors, ziPredictors []string, condCoef, ziCoef []float64, condVCov, ziVCov *mat.SymDense, family model.Family, opts ...ZIOption) (*ZeroInflated, error) {
	if family != model.Poisson && family != model.NegativeBinomial {
		return nil, errors.NewValueError("NewZeroInflated", "conditional family must be poisson or negative_binomial")
	}

	cond, err := newDesign(df, condPredictors, model.RoleFixed, true)
	if err != nil {
		return nil, err
	}
	zi, err := newDesign(df, ziPredictors, model.RoleZeroInflated, true)
	if err != nil {
		return nil, err
	}
	if len(condCoef) != cond.ncols() {
		return nil, errors.NewDimensionError("NewZeroInflated", cond.ncols(), len(condCoef), 1)
	}
	if len(ziCoef) != zi.ncols() {
		return nil, errors.NewDimensionError("NewZeroInflated", zi.ncols(), len(ziCoef), 1)
	}
	if r := condVCov.SymmetricDim(); r != len(condCoef) {
		return nil, errors.NewDimensionError("NewZeroInflated", len(condCoef), r, 1)
	}
	if r := ziVCov.SymmetricDim(); r != len(ziCoef) {
		return nil, errors.NewDimensionError("NewZeroInflated", len(ziCoef), r, 1)
	}

	z := &ZeroInflated{
		state:    model.NewStateManager(),
		data:     df,
		cond:     cond,
		zi:       zi,
		condCoef: condCoef,
		ziCoef:   ziCoef,
		condVCov: condVCov,
		ziVCov:   ziVCov,
		family:   family,
		theta:    1,
	}
	for _, opt := range opts {
		opt(z)
	}

	k := len(condCoef) + len(ziCoef)
	if z.joint == nil {
		z.joint = blockDiag(condVCov, ziVCov)
	} else if r := z.joint.SymmetricDim(); r != k {
		return nil, errors.NewDimensionError("NewZeroInflated", k, r, 1)
	}

	z.state.SetDimensions(k, df.Len())
	z.state.SetFitted()
	return z, nil
}

// blockDiag stacks two symmetric matrices into a block-diagonal one.
func blockDiag(a, b *mat.SymDense) *mat.SymDense {
	na, nb := a.SymmetricDim(), b.SymmetricDim()
	out := mat.NewSymDense(na+nb, nil)
	for i := 0; i < na; i++ {
		for j := i; j < na; j++ {
			out.SetSym(i, j, a.At(i, j))
		}
	}
	for i := 0; i < nb; i++ {
		for j := i; j < nb; j++ {
			out.SetSym(na+i, na+j, b.At(i, j))
		}
	}
	return out
}

// DesignRow implements model.LinearPredictor for the conditional submodel.
func (z *ZeroInflated) DesignRow(assign map[string]any) ([]float64, error) {
	return z.cond.Row(assign)
}

// LinearPredict implements model.LinearPredictor for the conditional submodel.
func (z *ZeroInflated) LinearPredict(x []float64) (float64, error) {
	return dot("ZeroInflated.LinearPredict", z.condCoef, x)
}

// VCov implements model.VCovExtractor for the conditional submodel.
func (z *ZeroInflated) VCov() (*mat.SymDense, error) {
	return z.condVCov, nil
}

// ModelTerms implements model.TermEnumerator. Predictors that only appear in
// the zero-inflation submodel carry RoleZeroInflated.
func (z *ZeroInflated) ModelTerms() ([]model.Term, error) {
	out := make([]model.Term, 0, len(z.cond.terms)+len(z.zi.terms))
	out = append(out, z.cond.terms...)
	for _, t := range z.zi.terms {
		seen := false
		for _, c := range z.cond.terms {
			if c.Name == t.Name {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, t)
		}
	}
	return out, nil
}

// Link implements model.LinkScale; the conditional submodel uses a log link.
func (z *ZeroInflated) Link() model.Link { return model.LogLink{} }

// ModelFamily implements model.LinkScale.
func (z *ZeroInflated) ModelFamily() model.Family { return z.family }

// ZeroInflationDesignRow implements model.ZeroInflation.
func (z *ZeroInflated) ZeroInflationDesignRow(assign map[string]any) ([]float64, error) {
	return z.zi.Row(assign)
}

// JointCoefficients implements model.ZeroInflation.
func (z *ZeroInflated) JointCoefficients() []float64 {
	out := make([]float64, 0, len(z.condCoef)+len(z.ziCoef))
	out = append(out, z.condCoef...)
	out = append(out, z.ziCoef...)
	return out
}

// JointVCov implements model.ZeroInflation.
func (z *ZeroInflated) JointVCov() (*mat.SymDense, error) {
	return z.joint, nil
}

// ConditionalLen implements model.ZeroInflation.
func (z *ZeroInflated) ConditionalLen() int { return len(z.condCoef) }
