// Package models provides the fitted model families ggeffects can
// post-process, together with the adapter registry that maps a model value to
// the capability set the prediction engine consumes.
package models

import (
	"github.com/Maschette/ggeffects/pkg/errors"
)

// DataFrame is the column-major training data a model was fitted on. Columns
// are either numeric (float64) or categorical (string levels). Models keep a
// reference to their frame after fitting so the grid builder can read
// observed ranges and factor levels; the frame is never mutated afterwards.
type DataFrame struct {
	n     int
	order []string
	nums  map[string][]float64
	cats  map[string][]string
}

// NewDataFrame creates an empty DataFrame.
func NewDataFrame() *DataFrame {
	return &DataFrame{
		nums: make(map[string][]float64),
		cats: make(map[string][]string),
	}
}

// AddFloat adds a numeric column. The first column added fixes the row count.
func (df *DataFrame) AddFloat(name string, values []float64) error {
	if err := df.checkAdd(name, len(values)); err != nil {
		return err
	}
	df.nums[name] = values
	df.order = append(df.order, name)
	return nil
}

// AddLevels adds a categorical column. The first column added fixes the row count.
func (df *DataFrame) AddLevels(name string, values []string) error {
	if err := df.checkAdd(name, len(values)); err != nil {
		return err
	}
	df.cats[name] = values
	df.order = append(df.order, name)
	return nil
}

func (df *DataFrame) checkAdd(name string, n int) error {
	if n == 0 {
		return errors.Wrap(errors.ErrEmptyData, "DataFrame: column "+name)
	}
	if df.Has(name) {
		return errors.NewValueError("DataFrame", "duplicate column '"+name+"'")
	}
	if len(df.order) == 0 {
		df.n = n
		return nil
	}
	if n != df.n {
		return errors.NewDimensionError("DataFrame.Add", df.n, n, 0)
	}
	return nil
}

// Len returns the number of rows.
func (df *DataFrame) Len() int { return df.n }

// Names returns the column names in insertion order.
func (df *DataFrame) Names() []string {
	out := make([]string, len(df.order))
	copy(out, df.order)
	return out
}

// Has reports whether a column exists.
func (df *DataFrame) Has(name string) bool {
	_, okN := df.nums[name]
	_, okC := df.cats[name]
	return okN || okC
}

// IsCategorical reports whether a column holds level data.
func (df *DataFrame) IsCategorical(name string) bool {
	_, ok := df.cats[name]
	return ok
}

// Float returns a numeric column.
func (df *DataFrame) Float(name string) ([]float64, bool) {
	v, ok := df.nums[name]
	return v, ok
}

// Levels returns a categorical column.
func (df *DataFrame) Levels(name string) ([]string, bool) {
	v, ok := df.cats[name]
	return v, ok
}
