package model

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Link is a GLM link function. Linkinv maps the linear predictor (link scale)
// back to the response scale; DerivInv is d linkinv / d eta, needed both for
// IRLS working weights and for delta-method gradients on the response scale.
type Link interface {
	Name() string
	Linkinv(eta float64) float64
	DerivInv(eta float64) float64
}

// IdentityLink is the identity link of gaussian models.
type IdentityLink struct{}

func (IdentityLink) Name() string                 { return "identity" }
func (IdentityLink) Linkinv(eta float64) float64  { return eta }
func (IdentityLink) DerivInv(eta float64) float64 { return 1 }

// LogLink is the log link of count models.
type LogLink struct{}

func (LogLink) Name() string                 { return "log" }
func (LogLink) Linkinv(eta float64) float64  { return math.Exp(eta) }
func (LogLink) DerivInv(eta float64) float64 { return math.Exp(eta) }

// LogitLink is the logit link of binomial models.
type LogitLink struct{}

func (LogitLink) Name() string { return "logit" }

func (LogitLink) Linkinv(eta float64) float64 {
	// Numerically stable sigmoid
	if eta >= 0 {
		return 1.0 / (1.0 + math.Exp(-eta))
	}
	e := math.Exp(eta)
	return e / (1.0 + e)
}

func (l LogitLink) DerivInv(eta float64) float64 {
	mu := l.Linkinv(eta)
	return mu * (1 - mu)
}

// ProbitLink is the probit link; linkinv is the standard normal CDF.
type ProbitLink struct{}

func (ProbitLink) Name() string { return "probit" }

func (ProbitLink) Linkinv(eta float64) float64 {
	return distuv.UnitNormal.CDF(eta)
}

func (ProbitLink) DerivInv(eta float64) float64 {
	return distuv.UnitNormal.Prob(eta)
}

// InverseLink is the inverse (reciprocal) link of gamma models.
type InverseLink struct{}

func (InverseLink) Name() string { return "inverse" }

func (InverseLink) Linkinv(eta float64) float64 {
	return 1.0 / eta
}

func (InverseLink) DerivInv(eta float64) float64 {
	return -1.0 / (eta * eta)
}

// LinkByName resolves a link function by its name. Unknown names return nil.
func LinkByName(name string) Link {
	switch name {
	case "identity":
		return IdentityLink{}
	case "log":
		return LogLink{}
	case "logit":
		return LogitLink{}
	case "probit":
		return ProbitLink{}
	case "inverse":
		return InverseLink{}
	default:
		return nil
	}
}
