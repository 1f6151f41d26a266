package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
)

// Kind is the inferred semantic type of a column.
type Kind string

const (
	KindNumeric Kind = "numeric"
	KindText    Kind = "text"
)

// numericRatio is the share of non-missing values that must parse as numbers
// for a non-native column to count as numeric.
const numericRatio = 0.7

// Column holds the raw cells of one column and their numeric interpretation.
type Column struct {
	Name   string
	values []string
	nums   []float64
	// native is true when every non-missing cell parsed as a number at load.
	native bool
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.values) }

// Value returns the raw cell text; missing cells are "".
func (c *Column) Value(i int) string { return c.values[i] }

// Float returns the numeric value of cell i, NaN when missing or unparseable.
func (c *Column) Float(i int) float64 { return c.nums[i] }

// Missing reports whether cell i is missing.
func (c *Column) Missing(i int) bool { return c.values[i] == "" }

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, v := range c.values {
		if v == "" {
			n++
		}
	}
	return n
}

// Kind classifies the column as numeric or text.
func (c *Column) Kind() Kind {
	if c.native {
		return KindNumeric
	}
	nonNull, parsed := 0, 0
	for i, v := range c.values {
		if v == "" {
			continue
		}
		nonNull++
		if !math.IsNaN(c.nums[i]) {
			parsed++
		}
	}
	if nonNull > 0 && float64(parsed)/float64(nonNull) > numericRatio {
		return KindNumeric
	}
	return KindText
}

func (c *Column) slice(idx []int) *Column {
	out := &Column{Name: c.Name, native: c.native, values: make([]string, len(idx)), nums: make([]float64, len(idx))}
	for k, i := range idx {
		out.values[k] = c.values[i]
		out.nums[k] = c.nums[i]
	}
	return out
}

// Table is an immutable, column-oriented dataset. Transforms return new tables.
type Table struct {
	Name        string
	cols        []*Column
	rows        int
	fingerprint string
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// Fingerprint identifies the content the table was loaded from.
func (t *Table) Fingerprint() string { return t.fingerprint }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// ColumnAt returns the i-th column.
func (t *Table) ColumnAt(i int) *Column { return t.cols[i] }

// Column looks up a column by exact name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.cols {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Floats returns a copy of the numeric view of a column (NaN for missing).
func (t *Table) Floats(name string) ([]float64, bool) {
	c, ok := t.Column(name)
	if !ok {
		return nil, false
	}
	out := make([]float64, len(c.nums))
	copy(out, c.nums)
	return out, true
}

// NumericColumns lists columns classified numeric, in table order.
func (t *Table) NumericColumns() []string {
	var out []string
	for _, c := range t.cols {
		if c.Kind() == KindNumeric {
			out = append(out, c.Name)
		}
	}
	return out
}

// CategoricalColumns lists columns classified text, in table order.
func (t *Table) CategoricalColumns() []string {
	var out []string
	for _, c := range t.cols {
		if c.Kind() == KindText {
			out = append(out, c.Name)
		}
	}
	return out
}

// Head returns a new table with the first n rows.
func (t *Table) Head(n int) *Table {
	if n > t.rows {
		n = t.rows
	}
	if n < 0 {
		n = 0
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return t.take(idx)
}

// Tail returns a new table with the last n rows.
func (t *Table) Tail(n int) *Table {
	if n > t.rows {
		n = t.rows
	}
	if n < 0 {
		n = 0
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = t.rows - n + i
	}
	return t.take(idx)
}

// Sample draws up to n rows uniformly without replacement using seed. Row
// order is preserved. When the table already fits, the receiver is returned.
func (t *Table) Sample(n int, seed int64) *Table {
	if n <= 0 || t.rows <= n {
		return t
	}
	rng := rand.New(rand.NewSource(seed))
	idx := rng.Perm(t.rows)[:n]
	sort.Ints(idx)
	return t.take(idx)
}

// Select returns a new table restricted to the named columns.
func (t *Table) Select(names ...string) (*Table, error) {
	out := &Table{Name: t.Name, rows: t.rows, fingerprint: t.fingerprint}
	for _, n := range names {
		c, ok := t.Column(n)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", n)
		}
		out.cols = append(out.cols, c)
	}
	return out, nil
}

func (t *Table) take(idx []int) *Table {
	out := &Table{Name: t.Name, rows: len(idx), fingerprint: t.fingerprint, cols: make([]*Column, len(t.cols))}
	for i, c := range t.cols {
		out.cols[i] = c.slice(idx)
	}
	return out
}

// FromRecords builds a table from a header and string records. Records shorter
// than the header are padded with missing cells; longer ones are truncated.
func FromRecords(name string, header []string, records [][]string, opt Options) *Table {
	names := repairHeader(header)
	t := &Table{Name: name, rows: len(records), cols: make([]*Column, len(names))}
	for j, n := range names {
		c := &Column{Name: n, native: true, values: make([]string, len(records)), nums: make([]float64, len(records))}
		for i, rec := range records {
			v := ""
			if j < len(rec) {
				v = normalizeCell(rec[j])
			}
			c.values[i] = v
			if v == "" {
				c.nums[i] = math.NaN()
				continue
			}
			if x, ok := parseNumeric(v, opt); ok {
				c.nums[i] = x
			} else {
				c.nums[i] = math.NaN()
				c.native = false
			}
		}
		t.cols[j] = c
	}
	return t
}

var missingMarkers = map[string]struct{}{
	"NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-nan": {}, "-NaN": {},
	"null": {}, "NULL": {}, "None": {}, "#N/A": {}, "<NA>": {},
}

func normalizeCell(v string) string {
	v = strings.TrimSpace(v)
	if _, ok := missingMarkers[v]; ok {
		return ""
	}
	return v
}

func repairHeader(header []string) []string {
	out := make([]string, len(header))
	seen := map[string]int{}
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}
