package effects

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/Maschette/ggeffects/core/model"
	"github.com/Maschette/ggeffects/models"
	"github.com/Maschette/ggeffects/pkg/errors"
)

// MaxTerms is the maximum number of focal terms of one request: the first
// term maps to the x axis, the remaining three to group, facet and panel.
const MaxTerms = 4

// GridPoint is one combination of focal values together with the full
// predictor assignment (non-focal terms fixed at their representative
// values) used for design encoding.
type GridPoint struct {
	Focal  []any
	Assign map[string]any
}

// Grid is the reference grid: every combination of representative focal
// values, in an order where the first term varies fastest.
type Grid struct {
	Terms  []model.Term
	Points []GridPoint

	// modelTerms is the full enumeration, kept for counterfactual averaging.
	modelTerms []model.Term
}

// BuildGrid constructs the reference grid of a prediction request without
// computing predictions. The model value is resolved through the adapter
// registry like in Predict.
func BuildGrid(m any, specs []TermSpec, opts ...Option) (*Grid, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	adapter, err := models.AdapterFor(m)
	if err != nil {
		return nil, err
	}
	return buildGrid(adapter, specs, o)
}

func buildGrid(a model.Adapter, specs []TermSpec, o *Options) (*Grid, error) {
	if len(specs) == 0 {
		return nil, errors.NewInvalidTermsError(nil, "at least one focal term is required")
	}
	if len(specs) > MaxTerms {
		names := make([]string, len(specs))
		for i, s := range specs {
			names[i] = s.Name
		}
		return nil, errors.NewInvalidTermsError(names, fmt.Sprintf("at most %d terms are supported, got %d", MaxTerms, len(specs)))
	}

	terms, err := a.ModelTerms()
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*model.Term, len(terms))
	for i := range terms {
		byName[terms[i].Name] = &terms[i]
	}

	focal := make([]model.Term, len(specs))
	values := make([][]any, len(specs))
	seen := make(map[string]bool, len(specs))
	for i, spec := range specs {
		if seen[spec.Name] {
			return nil, errors.NewInvalidTermsError([]string{spec.Name}, fmt.Sprintf("term '%s' given more than once", spec.Name))
		}
		seen[spec.Name] = true
		t, ok := byName[spec.Name]
		if !ok {
			return nil, errors.NewInvalidTermsError([]string{spec.Name}, fmt.Sprintf("term '%s' is not part of the model", spec.Name))
		}
		if t.Role == model.RoleSurvivalTime {
			return nil, errors.NewInvalidTermsError([]string{spec.Name}, fmt.Sprintf("survival time '%s' cannot be a focal term", spec.Name))
		}
		focal[i] = *t

		vals, err := focalValues(t, spec, o)
		if err != nil {
			return nil, err
		}
		values[i] = vals
	}

	// Non-focal predictors are fixed at mean (continuous) or most frequent
	// level (categorical).
	fixed := make(map[string]any)
	for i := range terms {
		t := &terms[i]
		if t.Role == model.RoleRandom || t.Role == model.RoleSurvivalTime {
			continue
		}
		if isFocal(specs, t.Name) {
			continue
		}
		if t.Kind == model.Categorical {
			fixed[t.Name] = t.Mode
		} else {
			fixed[t.Name] = t.Mean
		}
	}

	// Cartesian product with the first term varying fastest.
	total := 1
	for _, v := range values {
		total *= len(v)
	}
	points := make([]GridPoint, total)
	for idx := 0; idx < total; idx++ {
		rem := idx
		fv := make([]any, len(values))
		assign := make(map[string]any, len(fixed)+len(fv))
		for k, v := range fixed {
			assign[k] = v
		}
		for k := range values {
			fv[k] = values[k][rem%len(values[k])]
			rem /= len(values[k])
			assign[focal[k].Name] = fv[k]
		}
		points[idx] = GridPoint{Focal: fv, Assign: assign}
	}

	return &Grid{Terms: focal, Points: points, modelTerms: terms}, nil
}

// focalValues selects the representative values of one focal term.
func focalValues(t *model.Term, spec TermSpec, o *Options) ([]any, error) {
	switch {
	case len(spec.Values) > 0:
		if t.Kind != model.Continuous {
			return nil, errors.NewInvalidTermsError([]string{t.Name}, fmt.Sprintf("numeric values given for categorical term '%s'", t.Name))
		}
		out := make([]any, len(spec.Values))
		for i, v := range spec.Values {
			if v < t.Min || v > t.Max {
				errors.Warn(errors.NewExtrapolationWarning(t.Name, v, t.Min, t.Max))
			}
			out[i] = v
		}
		return out, nil

	case len(spec.Levels) > 0:
		if t.Kind != model.Categorical {
			return nil, errors.NewInvalidTermsError([]string{t.Name}, fmt.Sprintf("levels given for continuous term '%s'", t.Name))
		}
		out := make([]any, len(spec.Levels))
		for i, l := range spec.Levels {
			if !t.HasLevel(l) {
				return nil, errors.NewInvalidTermsError([]string{t.Name}, fmt.Sprintf("unknown level '%s' for term '%s'", l, t.Name))
			}
			out[i] = l
		}
		return out, nil

	case t.Kind == model.Categorical:
		out := make([]any, len(t.Levels))
		for i, l := range t.Levels {
			out[i] = l
		}
		return out, nil

	default:
		if t.Min == t.Max {
			return []any{t.Min}, nil
		}
		seq := make([]float64, o.GridResolution)
		floats.Span(seq, t.Min, t.Max)
		out := make([]any, len(seq))
		for i, v := range seq {
			out[i] = v
		}
		return out, nil
	}
}

func isFocal(specs []TermSpec, name string) bool {
	for _, s := range specs {
		if s.Name == name {
			return true
		}
	}
	return false
}

// observedAssign rebuilds the predictor assignment of training row i for
// counterfactual averaging.
func (g *Grid) observedAssign(i int) map[string]any {
	assign := make(map[string]any)
	for j := range g.modelTerms {
		t := &g.modelTerms[j]
		if t.Role == model.RoleRandom || t.Role == model.RoleSurvivalTime {
			continue
		}
		if t.Kind == model.Categorical {
			assign[t.Name] = t.Obs[i]
		} else {
			assign[t.Name] = t.Values[i]
		}
	}
	return assign
}

// observations returns the training row count backing the grid's terms.
func (g *Grid) observations() int {
	for j := range g.modelTerms {
		t := &g.modelTerms[j]
		if t.Kind == model.Categorical && t.Obs != nil {
			return len(t.Obs)
		}
		if t.Kind == model.Continuous && t.Values != nil {
			return len(t.Values)
		}
	}
	return 0
}
