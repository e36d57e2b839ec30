package effects

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Maschette/ggeffects/core/model"
)

// Row is one row of the result table. X holds the first focal term's value
// (float64 for continuous terms, string for categorical ones); Group, Facet
// and Panel hold the formatted values of the second, third and fourth focal
// terms and are empty when the request had fewer terms.
type Row struct {
	X         any
	Predicted float64
	StdError  float64
	ConfLow   float64
	ConfHigh  float64
	Group     string
	Facet     string
	Panel     string
}

// Table is the tidy result of a prediction request. Its column set and
// semantics are identical regardless of model family and term count, and its
// rows are sorted by panel, then facet, then group, then x.
type Table struct {
	Rows []Row

	// Terms are the focal term names by position (x, group, facet, panel).
	Terms []string

	// Type, Level, Family and Link record how the table was computed.
	Type   PredictionType
	Level  float64
	Family string
	Link   string
}

// newTable normalizes grid points and their predictions into the fixed
// schema. Rows are ordered with the outermost grouping term as the most
// significant sort key.
func newTable(g *Grid, preds []prediction, a model.Adapter, o *Options) *Table {
	idx := make([]int, len(g.Points))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(u, v int) bool {
		pu, pv := g.Points[idx[u]], g.Points[idx[v]]
		for k := len(g.Terms) - 1; k >= 0; k-- {
			if c := compareFocal(&g.Terms[k], pu.Focal[k], pv.Focal[k]); c != 0 {
				return c < 0
			}
		}
		return false
	})

	t := &Table{
		Rows:   make([]Row, len(idx)),
		Terms:  make([]string, len(g.Terms)),
		Type:   o.Type,
		Level:  o.Level,
		Family: a.ModelFamily().String(),
		Link:   a.Link().Name(),
	}
	for k := range g.Terms {
		t.Terms[k] = g.Terms[k].Name
	}

	for out, in := range idx {
		pt := g.Points[in]
		p := preds[in]
		row := Row{
			X:         pt.Focal[0],
			Predicted: p.predicted,
			StdError:  p.se,
			ConfLow:   p.low,
			ConfHigh:  p.high,
		}
		if len(pt.Focal) > 1 {
			row.Group = formatValue(pt.Focal[1])
		}
		if len(pt.Focal) > 2 {
			row.Facet = formatValue(pt.Focal[2])
		}
		if len(pt.Focal) > 3 {
			row.Panel = formatValue(pt.Focal[3])
		}
		t.Rows[out] = row
	}
	return t
}

// compareFocal orders two values of one focal term: numerically for
// continuous terms, by observed level order for categorical ones.
func compareFocal(t *model.Term, a, b any) int {
	if t.Kind == model.Continuous {
		av, _ := a.(float64)
		bv, _ := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	}
	ai := t.LevelIndex(a.(string))
	bi := t.LevelIndex(b.(string))
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	default:
		return 0
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// XValues returns the x column.
func (t *Table) XValues() []any {
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.X
	}
	return out
}

// Groups returns the distinct group labels in row order.
func (t *Table) Groups() []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range t.Rows {
		if r.Group == "" || seen[r.Group] {
			continue
		}
		seen[r.Group] = true
		out = append(out, r.Group)
	}
	return out
}

// String renders the table as aligned text for quick inspection.
func (t *Table) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Adjusted predictions (%s, %s link, type %s, %.0f%% CI)\n",
		t.Family, t.Link, t.Type, t.Level*100)

	header := []string{"x", "predicted", "std.error", "conf.low", "conf.high"}
	if len(t.Terms) > 1 {
		header = append(header, "group")
	}
	if len(t.Terms) > 2 {
		header = append(header, "facet")
	}
	if len(t.Terms) > 3 {
		header = append(header, "panel")
	}
	fmt.Fprintf(&b, "%s\n", strings.Join(padAll(header), " "))

	for _, r := range t.Rows {
		cells := []string{
			formatValue(r.X),
			strconv.FormatFloat(r.Predicted, 'g', 6, 64),
			strconv.FormatFloat(r.StdError, 'g', 6, 64),
			strconv.FormatFloat(r.ConfLow, 'g', 6, 64),
			strconv.FormatFloat(r.ConfHigh, 'g', 6, 64),
		}
		if len(t.Terms) > 1 {
			cells = append(cells, r.Group)
		}
		if len(t.Terms) > 2 {
			cells = append(cells, r.Facet)
		}
		if len(t.Terms) > 3 {
			cells = append(cells, r.Panel)
		}
		fmt.Fprintf(&b, "%s\n", strings.Join(padAll(cells), " "))
	}
	return b.String()
}

func padAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = fmt.Sprintf("%-12s", c)
	}
	return out
}
