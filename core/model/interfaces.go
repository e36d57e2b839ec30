// Package model provides the capability interfaces fitted models expose to
// the prediction pipeline. An Adapter composes the four core capabilities;
// the optional interfaces extend them for mixed, zero-inflated and Bayesian
// models. The effects package never inspects concrete model types beyond
// these interfaces.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// LinearPredictor exposes link-scale prediction for one assignment of
// predictor values. Assignments map term names to float64 (continuous) or
// string (categorical level) values.
type LinearPredictor interface {
	// DesignRow encodes an assignment into the model's design vector
	// (intercept and dummy coding included).
	DesignRow(assign map[string]any) ([]float64, error)

	// LinearPredict returns eta = x'beta for a design vector.
	LinearPredict(x []float64) (float64, error)
}

// VCovExtractor exposes the covariance matrix of the estimated parameters,
// ordered consistently with DesignRow.
type VCovExtractor interface {
	VCov() (*mat.SymDense, error)
}

// TermEnumerator lists the model's terms with their roles and observed
// training statistics.
type TermEnumerator interface {
	ModelTerms() ([]Term, error)
}

// LinkScale exposes the link function and family used for back-transforming
// link-scale predictions to the response scale.
type LinkScale interface {
	Link() Link
	ModelFamily() Family
}

// Adapter is the full capability set the prediction engine requires.
type Adapter interface {
	LinearPredictor
	VCovExtractor
	TermEnumerator
	LinkScale
}

// RandomVariance is implemented by mixed models. The returned value is the
// sum of the random-effect variance components; adding it to the delta-method
// variance turns a confidence interval into a prediction interval.
type RandomVariance interface {
	RandomVariance() float64
}

// ZeroInflation is implemented by zero-inflated and hurdle models. The joint
// parameter vector stacks the conditional block before the zero-inflation
// block; the zero-inflation link is always logit.
type ZeroInflation interface {
	// ZeroInflationDesignRow encodes an assignment into the zero-inflation
	// submodel's design vector.
	ZeroInflationDesignRow(assign map[string]any) ([]float64, error)

	// JointCoefficients returns the stacked [conditional; zero-inflation]
	// coefficient vector.
	JointCoefficients() []float64

	// JointVCov returns the covariance of the stacked coefficient vector.
	JointVCov() (*mat.SymDense, error)

	// ConditionalLen returns the length of the conditional block.
	ConditionalLen() int
}

// PosteriorSampler is implemented by Bayesian models. PosteriorEta returns
// one link-scale draw per posterior sample for a design vector; the engine
// summarises the draws into a median and an equal-tailed credible interval.
type PosteriorSampler interface {
	PosteriorEta(x []float64) ([]float64, error)
}
