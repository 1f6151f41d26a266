package stats

import (
	"sort"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/montanaflynn/stats"
)

// Summary holds descriptive statistics for one numeric column.
type Summary struct {
	Column string  `json:"column" yaml:"column"`
	Count  int     `json:"count" yaml:"count"`
	Mean   float64 `json:"mean" yaml:"mean"`
	Std    float64 `json:"std" yaml:"std"`
	Min    float64 `json:"min" yaml:"min"`
	Q25    float64 `json:"q25" yaml:"q25"`
	Median float64 `json:"median" yaml:"median"`
	Q75    float64 `json:"q75" yaml:"q75"`
	Max    float64 `json:"max" yaml:"max"`
}

// Describe summarizes each named numeric column. Columns that cannot be
// summarized are reported as gaps.
func Describe(t *dataset.Table, cols []string) ([]Summary, []error) {
	var out []Summary
	var gaps []error
	for _, name := range cols {
		s, err := describeColumn(t, name)
		if err != nil {
			gaps = append(gaps, err)
			continue
		}
		out = append(out, s)
	}
	return out, gaps
}

func describeColumn(t *dataset.Table, name string) (Summary, error) {
	vals, err := numericColumn(t, "describe", name)
	if err != nil {
		return Summary{}, err
	}
	data := stats.Float64Data(dropNaN(vals))
	if data.Len() == 0 {
		return Summary{}, newGap("describe", name, ErrEmpty)
	}
	s := Summary{Column: name, Count: data.Len()}
	s.Mean, _ = stats.Mean(data)
	s.Min, _ = stats.Min(data)
	s.Max, _ = stats.Max(data)
	s.Median, _ = stats.Median(data)
	if data.Len() > 1 {
		s.Std, _ = stats.StandardDeviationSample(data)
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	s.Q25 = quantile(sorted, 0.25)
	s.Q75 = quantile(sorted, 0.75)
	return s, nil
}

// CategoryCount is a value and how often it occurs.
type CategoryCount struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// ValueCounts returns the topN most frequent non-missing values of a column.
func ValueCounts(t *dataset.Table, name string, topN int) ([]CategoryCount, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, newGap("value counts", name, ErrUnknownColumn)
	}
	counts := map[string]int{}
	for i := 0; i < c.Len(); i++ {
		if c.Missing(i) {
			continue
		}
		counts[c.Value(i)]++
	}
	tops := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if topN > 0 && len(tops) > topN {
		tops = tops[:topN]
	}
	return tops, nil
}
