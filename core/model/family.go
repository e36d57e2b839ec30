package model

// Family identifies the distributional family of a fitted model.
type Family int

const (
	// Gaussian is the normal family of linear models.
	Gaussian Family = iota
	// Binomial is the binary/proportion family.
	Binomial
	// Poisson is the count family.
	Poisson
	// NegativeBinomial is the overdispersed count family.
	NegativeBinomial
	// CoxPH is the Cox proportional-hazards pseudo-family. Predictions are
	// relative risks; there is no intercept and no variance function.
	CoxPH
)

// String returns the family name as used in structured logs and tables.
func (f Family) String() string {
	switch f {
	case Gaussian:
		return "gaussian"
	case Binomial:
		return "binomial"
	case Poisson:
		return "poisson"
	case NegativeBinomial:
		return "negative_binomial"
	case CoxPH:
		return "coxph"
	default:
		return "unknown"
	}
}

// DefaultLink returns the canonical link of the family.
func (f Family) DefaultLink() Link {
	switch f {
	case Gaussian:
		return IdentityLink{}
	case Binomial:
		return LogitLink{}
	case Poisson, NegativeBinomial, CoxPH:
		return LogLink{}
	default:
		return IdentityLink{}
	}
}

// Variance is the GLM variance function V(mu). The theta parameter is the
// dispersion of the negative binomial family and is ignored otherwise.
func (f Family) Variance(mu, theta float64) float64 {
	switch f {
	case Gaussian:
		return 1
	case Binomial:
		return mu * (1 - mu)
	case Poisson:
		return mu
	case NegativeBinomial:
		return mu + mu*mu/theta
	default:
		return 1
	}
}
