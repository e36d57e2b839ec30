package effects

import (
	"github.com/Maschette/ggeffects/pkg/errors"
	"github.com/Maschette/ggeffects/pkg/log"
)

// PredictionType selects which parts of the model contribute to predictions
// and their uncertainty.
type PredictionType string

const (
	// TypeFixed predicts from the fixed effects only; intervals are
	// confidence intervals.
	TypeFixed PredictionType = "fe"

	// TypeRandom additionally propagates random-effect variance components;
	// intervals are prediction intervals. Requires a mixed model.
	TypeRandom PredictionType = "re"

	// TypeZeroInflated combines the conditional and zero-inflation submodels
	// on the response scale with simulation-based uncertainty. Requires a
	// zero-inflated model.
	TypeZeroInflated PredictionType = "fe.zi"
)

// Options control grid construction and prediction.
type Options struct {
	// Type is the prediction type; TypeFixed by default.
	Type PredictionType

	// Level is the confidence level, 0.95 by default.
	Level float64

	// GridResolution is the number of evenly spaced values used for a
	// continuous focal term without explicit values; 25 by default,
	// endpoints always included.
	GridResolution int

	// Counterfactual averages predictions over the observed data
	// distribution instead of holding non-focal terms at mean/mode.
	Counterfactual bool

	// Seed seeds the RNG of simulation-based uncertainty propagation.
	Seed uint64

	// SimDraws is the number of simulation draws for TypeZeroInflated;
	// 1000 by default.
	SimDraws int

	// Logger receives structured progress records; discarded by default.
	Logger log.Logger
}

// Option is a functional option for Predict and BuildGrid.
type Option func(*Options)

// WithType sets the prediction type.
func WithType(t PredictionType) Option {
	return func(o *Options) { o.Type = t }
}

// WithLevel sets the confidence level.
func WithLevel(level float64) Option {
	return func(o *Options) { o.Level = level }
}

// WithGridResolution sets the number of representative values for continuous
// focal terms.
func WithGridResolution(n int) Option {
	return func(o *Options) { o.GridResolution = n }
}

// WithCounterfactual enables averaging over the observed data distribution.
func WithCounterfactual() Option {
	return func(o *Options) { o.Counterfactual = true }
}

// WithSeed fixes the simulation RNG seed for reproducible intervals.
func WithSeed(seed uint64) Option {
	return func(o *Options) { o.Seed = seed }
}

// WithSimDraws sets the number of simulation draws.
func WithSimDraws(n int) Option {
	return func(o *Options) { o.SimDraws = n }
}

// WithLogger attaches a structured logger.
func WithLogger(l log.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func defaultOptions() *Options {
	return &Options{
		Type:           TypeFixed,
		Level:          0.95,
		GridResolution: 25,
		Seed:           1,
		SimDraws:       1000,
		Logger:         log.Nop(),
	}
}

func (o *Options) validate() error {
	switch o.Type {
	case TypeFixed, TypeRandom, TypeZeroInflated:
	default:
		return errors.NewValueError("Options", "unknown prediction type '"+string(o.Type)+"'")
	}
	if o.Level <= 0 || o.Level >= 1 {
		return errors.NewValueError("Options", "confidence level must be in (0, 1)")
	}
	if o.GridResolution < 2 {
		return errors.NewValueError("Options", "grid resolution must be at least 2")
	}
	if o.SimDraws < 2 {
		return errors.NewValueError("Options", "simulation draw count must be at least 2")
	}
	return nil
}
