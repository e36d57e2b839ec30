package models

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/Maschette/ggeffects/core/model"
	"github.com/Maschette/ggeffects/pkg/errors"
)

// design encodes predictor assignments into model design vectors: an optional
// intercept column, one column per continuous term and treatment-coded
// dummies for categorical terms (first sorted level is the reference).
// The column order of coefficients and covariance matrices follows it.
type design struct {
	intercept bool
	terms     []model.Term
}

// newDesign summarises the named predictor columns of df into terms with the
// given role and returns the resulting encoder.
func newDesign(df *DataFrame, predictors []string, role model.TermRole, intercept bool) (*design, error) {
	if df == nil || df.Len() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "design")
	}

	d := &design{intercept: intercept}
	for _, name := range predictors {
		if !df.Has(name) {
			return nil, errors.NewValueError("design", fmt.Sprintf("predictor '%s' not found in data", name))
		}
		if df.IsCategorical(name) {
			obs, _ := df.Levels(name)
			d.terms = append(d.terms, summarizeLevels(name, role, obs))
		} else {
			vals, _ := df.Float(name)
			d.terms = append(d.terms, summarizeFloat(name, role, vals))
		}
	}
	return d, nil
}

// summarizeFloat builds the Term metadata of a continuous column.
func summarizeFloat(name string, role model.TermRole, vals []float64) model.Term {
	min, max := vals[0], vals[0]
	for _, v := range vals {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return model.Term{
		Name:   name,
		Kind:   model.Continuous,
		Role:   role,
		Min:    min,
		Max:    max,
		Mean:   stat.Mean(vals, nil),
		Values: vals,
	}
}

// summarizeLevels builds the Term metadata of a categorical column.
func summarizeLevels(name string, role model.TermRole, obs []string) model.Term {
	counts := make(map[string]int)
	for _, l := range obs {
		counts[l]++
	}
	levels := make([]string, 0, len(counts))
	for l := range counts {
		levels = append(levels, l)
	}
	sort.Strings(levels)

	// Most frequent level; ties resolve to the first in sorted order
	mode := levels[0]
	for _, l := range levels {
		if counts[l] > counts[mode] {
			mode = l
		}
	}

	return model.Term{
		Name:   name,
		Kind:   model.Categorical,
		Role:   role,
		Levels: levels,
		Mode:   mode,
		Obs:    obs,
	}
}

// ncols returns the width of the design matrix.
func (d *design) ncols() int {
	n := 0
	if d.intercept {
		n = 1
	}
	for _, t := range d.terms {
		if t.Kind == model.Categorical {
			n += len(t.Levels) - 1
		} else {
			n++
		}
	}
	return n
}

// Row encodes one assignment of predictor values into a design vector.
func (d *design) Row(assign map[string]any) ([]float64, error) {
	x := make([]float64, 0, d.ncols())
	if d.intercept {
		x = append(x, 1)
	}
	for i := range d.terms {
		t := &d.terms[i]
		raw, ok := assign[t.Name]
		if !ok {
			return nil, errors.NewValueError("design.Row", fmt.Sprintf("no value assigned for term '%s'", t.Name))
		}
		if t.Kind == model.Categorical {
			level, ok := raw.(string)
			if !ok {
				return nil, errors.NewValueError("design.Row", fmt.Sprintf("term '%s' expects a level string, got %T", t.Name, raw))
			}
			idx := t.LevelIndex(level)
			if idx < 0 {
				return nil, errors.NewValueError("design.Row", fmt.Sprintf("unknown level '%s' for term '%s'", level, t.Name))
			}
			for j := 1; j < len(t.Levels); j++ {
				if j == idx {
					x = append(x, 1)
				} else {
					x = append(x, 0)
				}
			}
		} else {
			v, ok := toFloat(raw)
			if !ok {
				return nil, errors.NewValueError("design.Row", fmt.Sprintf("term '%s' expects a numeric value, got %T", t.Name, raw))
			}
			x = append(x, v)
		}
	}
	return x, nil
}

// observedAssign returns the assignment of row i in the training data,
// restricted to the design's terms.
func (d *design) observedAssign(i int) map[string]any {
	assign := make(map[string]any, len(d.terms))
	for j := range d.terms {
		t := &d.terms[j]
		if t.Kind == model.Categorical {
			assign[t.Name] = t.Obs[i]
		} else {
			assign[t.Name] = t.Values[i]
		}
	}
	return assign
}

// Matrix encodes the full training data into the n x p design matrix.
func (d *design) Matrix(n int) (*mat.Dense, error) {
	p := d.ncols()
	X := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		row, err := d.Row(d.observedAssign(i))
		if err != nil {
			return nil, err
		}
		X.SetRow(i, row)
	}
	return X, nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}
