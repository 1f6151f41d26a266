package stats

import (
	"math"
	"sort"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
)

// fenceFactor scales the IQR into outlier fences.
const fenceFactor = 1.5

// Bounds are the IQR fences of a numeric column and the rows outside them.
type Bounds struct {
	Column string  `json:"column" yaml:"column"`
	Q1     float64 `json:"q1" yaml:"q1"`
	Q3     float64 `json:"q3" yaml:"q3"`
	IQR    float64 `json:"iqr" yaml:"iqr"`
	Lower  float64 `json:"lower" yaml:"lower"`
	Upper  float64 `json:"upper" yaml:"upper"`
	// Rows are the indices of rows strictly outside [Lower, Upper].
	Rows []int `json:"rows" yaml:"rows"`
}

// Count returns the number of outlier rows.
func (b Bounds) Count() int { return len(b.Rows) }

// OutlierBounds applies the 1.5×IQR rule to a numeric column. A constant
// column has IQR 0 and no outliers.
func OutlierBounds(t *dataset.Table, column string) (Bounds, error) {
	vals, err := numericColumn(t, "outlier bounds", column)
	if err != nil {
		return Bounds{}, err
	}
	b, ok := FenceValues(vals)
	if !ok {
		return Bounds{}, newGap("outlier bounds", column, ErrEmpty)
	}
	b.Column = column
	return b, nil
}

// FenceValues computes IQR bounds over vals, ignoring NaN. Row indices refer
// to positions in vals. It reports false when vals has no usable values.
func FenceValues(vals []float64) (Bounds, bool) {
	sorted := dropNaN(vals)
	if len(sorted) == 0 {
		return Bounds{}, false
	}
	sort.Float64s(sorted)
	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	b := Bounds{Q1: q1, Q3: q3, IQR: iqr, Lower: q1 - fenceFactor*iqr, Upper: q3 + fenceFactor*iqr, Rows: []int{}}
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if v < b.Lower || v > b.Upper {
			b.Rows = append(b.Rows, i)
		}
	}
	return b, true
}

// quantile interpolates linearly between closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
