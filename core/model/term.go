package model

// TermKind classifies a model term as continuous or categorical.
type TermKind int

const (
	// Continuous is a numeric predictor.
	Continuous TermKind = iota
	// Categorical is a factor predictor with a finite level set.
	Categorical
)

// String returns the string representation of the term kind.
func (k TermKind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// TermRole describes the role a term plays in the model.
type TermRole int

const (
	// RoleFixed is an ordinary fixed-effect predictor.
	RoleFixed TermRole = iota
	// RoleRandom is a random-effect grouping factor of a mixed model.
	RoleRandom
	// RoleZeroInflated is a predictor of the zero-inflation submodel.
	RoleZeroInflated
	// RoleSurvivalTime is the event-time variable of a survival model.
	RoleSurvivalTime
)

// String returns the string representation of the term role.
func (r TermRole) String() string {
	switch r {
	case RoleFixed:
		return "fixed"
	case RoleRandom:
		return "random"
	case RoleZeroInflated:
		return "zero_inflated"
	case RoleSurvivalTime:
		return "survival_time"
	default:
		return "unknown"
	}
}

// Term describes one model term together with the summary statistics of its
// observed training values. The grid builder relies on these statistics to
// pick representative values, so every adapter must fill them in.
type Term struct {
	Name string
	Kind TermKind
	Role TermRole

	// Continuous summaries. Values holds the raw observed column so the
	// builder can compute quantiles and counterfactual averages.
	Min    float64
	Max    float64
	Mean   float64
	Values []float64

	// Categorical summaries. Levels is sorted; Mode is the most frequent
	// level. Obs holds the raw observed level per training row.
	Levels []string
	Mode   string
	Obs    []string
}

// HasLevel reports whether level is one of the term's observed levels.
func (t *Term) HasLevel(level string) bool {
	for _, l := range t.Levels {
		if l == level {
			return true
		}
	}
	return false
}

// LevelIndex returns the position of level within the term's level set,
// or -1 when absent. Used for factor-aware result ordering.
func (t *Term) LevelIndex(level string) int {
	for i, l := range t.Levels {
		if l == level {
			return i
		}
	}
	return -1
}
