package stats

import (
	"sort"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
)

// MissingEntry is one row of the missingness report.
type MissingEntry struct {
	Column  string  `json:"column" yaml:"column"`
	Count   int     `json:"count" yaml:"count"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// MissingReport lists columns with at least one missing value, most missing
// first. Ties keep table order.
func MissingReport(t *dataset.Table) []MissingEntry {
	var out []MissingEntry
	rows := t.NumRows()
	for i := 0; i < t.NumCols(); i++ {
		c := t.ColumnAt(i)
		n := c.MissingCount()
		if n == 0 {
			continue
		}
		out = append(out, MissingEntry{Column: c.Name, Count: n, Percent: float64(n) * 100 / float64(rows)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
