package stats

import (
	"math"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/montanaflynn/stats"
	gstat "gonum.org/v1/gonum/stat"
)

// Skewness returns the sample skewness of the non-missing values.
func Skewness(values []float64) (float64, error) {
	vals := dropNaN(values)
	if len(vals) < 3 {
		return 0, ErrEmpty
	}
	sd, _ := stats.StandardDeviationSample(vals)
	if sd == 0 {
		return 0, ErrDegenerate
	}
	s := gstat.Skew(vals, nil)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0, ErrDegenerate
	}
	return s, nil
}

// ColumnSkewness is Skewness over a named numeric column.
func ColumnSkewness(t *dataset.Table, name string) (float64, error) {
	vals, err := numericColumn(t, "skewness", name)
	if err != nil {
		return 0, err
	}
	s, err := Skewness(vals)
	if err != nil {
		return 0, newGap("skewness", name, err)
	}
	return s, nil
}

// GroupMean is the mean of a numeric column within one category.
type GroupMean struct {
	Group string  `json:"group" yaml:"group"`
	Count int     `json:"count" yaml:"count"`
	Mean  float64 `json:"mean" yaml:"mean"`
}

// GroupMeans averages num per distinct value of cat. Rows missing either
// value are skipped; groups keep first-seen order.
func GroupMeans(t *dataset.Table, cat, num string) ([]GroupMean, error) {
	c, ok := t.Column(cat)
	if !ok {
		return nil, newGap("group means", cat, ErrUnknownColumn)
	}
	vals, err := numericColumn(t, "group means", num)
	if err != nil {
		return nil, err
	}
	index := map[string]int{}
	var order []string
	buckets := map[string][]float64{}
	for i := 0; i < c.Len(); i++ {
		if c.Missing(i) || math.IsNaN(vals[i]) {
			continue
		}
		key := c.Value(i)
		if _, seen := index[key]; !seen {
			index[key] = len(order)
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], vals[i])
	}
	out := make([]GroupMean, len(order))
	for i, key := range order {
		m, _ := stats.Mean(buckets[key])
		out[i] = GroupMean{Group: key, Count: len(buckets[key]), Mean: m}
	}
	return out, nil
}

// GroupSpread returns the sample standard deviation of the group means and
// the mean of the group means. It needs at least two groups.
func GroupSpread(groups []GroupMean) (spread, center float64, err error) {
	if len(groups) < 2 {
		return 0, 0, ErrEmpty
	}
	means := make([]float64, len(groups))
	for i, g := range groups {
		means[i] = g.Mean
	}
	center, _ = stats.Mean(means)
	spread, _ = stats.StandardDeviationSample(means)
	return spread, center, nil
}
