package stats

import (
	"errors"
	"fmt"
	"math"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
)

// Causes carried by a Gap.
var (
	ErrUnknownColumn = errors.New("unknown column")
	ErrNotNumeric    = errors.New("column is not numeric")
	ErrEmpty         = errors.New("not enough non-missing values")
	ErrSingular      = errors.New("singular matrix")
	ErrDegenerate    = errors.New("degenerate distribution")
)

// Gap reports a single statistic that could not be computed. It is scoped to
// one operation on one column (or pair) and never aborts sibling work.
type Gap struct {
	Op     string
	Column string
	Err    error
}

func (g *Gap) Error() string {
	if g.Column == "" {
		return fmt.Sprintf("%s: %v", g.Op, g.Err)
	}
	return fmt.Sprintf("%s %q: %v", g.Op, g.Column, g.Err)
}

func (g *Gap) Unwrap() error { return g.Err }

func newGap(op, column string, err error) *Gap {
	return &Gap{Op: op, Column: column, Err: err}
}

// numericColumn returns the column's numeric view, NaN for missing cells.
func numericColumn(t *dataset.Table, op, name string) ([]float64, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, newGap(op, name, ErrUnknownColumn)
	}
	if c.Kind() != dataset.KindNumeric {
		return nil, newGap(op, name, ErrNotNumeric)
	}
	vals, _ := t.Floats(name)
	return vals, nil
}

func dropNaN(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
