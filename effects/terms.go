// Package effects computes adjusted predictions (marginal effects) for
// fitted regression models. Given a model and up to four focal terms it
// builds a reference grid of representative predictor values, obtains
// link-scale predictions with delta-method or simulation-based uncertainty,
// and returns a tidy table with a fixed column schema suitable for plotting.
package effects

import (
	"strconv"
	"strings"

	"github.com/Maschette/ggeffects/pkg/errors"
)

// TermSpec names one focal term, optionally with an explicit set of values
// to predict at. Without explicit values the grid builder picks
// representative values from the observed data.
type TermSpec struct {
	Name string

	// Values are explicit numeric values for a continuous term.
	Values []float64

	// Levels are explicit levels for a categorical term.
	Levels []string
}

// ParseTerms parses focal term specifications of the form
//
//	"age"
//	"dose [10, 20, 30]"
//	"species [setosa, virginica]"
//
// A bracketed list whose entries all parse as numbers yields Values,
// otherwise Levels. Malformed specifications fail with InvalidTermsError.
func ParseTerms(specs []string) ([]TermSpec, error) {
	out := make([]TermSpec, 0, len(specs))
	for _, raw := range specs {
		spec, err := parseTerm(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, spec)
	}
	return out, nil
}

func parseTerm(raw string) (TermSpec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return TermSpec{}, errors.NewInvalidTermsError(nil, "empty term specification")
	}

	open := strings.IndexByte(s, '[')
	if open < 0 {
		if strings.ContainsAny(s, "]") {
			return TermSpec{}, errors.NewInvalidTermsError([]string{raw}, "unbalanced brackets")
		}
		return TermSpec{Name: s}, nil
	}

	if !strings.HasSuffix(s, "]") {
		return TermSpec{}, errors.NewInvalidTermsError([]string{raw}, "unbalanced brackets")
	}
	name := strings.TrimSpace(s[:open])
	if name == "" {
		return TermSpec{}, errors.NewInvalidTermsError([]string{raw}, "missing term name before value list")
	}

	body := s[open+1 : len(s)-1]
	parts := strings.Split(body, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		items = append(items, p)
	}
	if len(items) == 0 {
		return TermSpec{}, errors.NewInvalidTermsError([]string{raw}, "empty value list")
	}

	values := make([]float64, 0, len(items))
	numeric := true
	for _, it := range items {
		v, err := strconv.ParseFloat(it, 64)
		if err != nil {
			numeric = false
			break
		}
		values = append(values, v)
	}
	if numeric {
		return TermSpec{Name: name, Values: values}, nil
	}
	return TermSpec{Name: name, Levels: items}, nil
}
