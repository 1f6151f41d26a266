package dataset

import (
	"fmt"
	"strings"
)

const (
	// shiftMinRows is the smallest table the shift check inspects.
	shiftMinRows = 30
	// shiftWindow is how many rows are compared at each end of the table.
	shiftWindow = 15
)

// Mismatch records a column whose inferred type differs between the first
// and last rows of a table.
type Mismatch struct {
	Column   string `json:"column" yaml:"column"`
	HeadKind Kind   `json:"type_in_head" yaml:"type_in_head"`
	TailKind Kind   `json:"type_in_tail" yaml:"type_in_tail"`
}

// ShiftWarning describes a suspected column shift. It never stops a load.
type ShiftWarning struct {
	Mismatches []Mismatch
}

func (w *ShiftWarning) Error() string {
	var b strings.Builder
	b.WriteString("column types differ between the first and last rows:\n")
	for _, m := range w.Mismatches {
		b.WriteString(fmt.Sprintf("- column '%s': first %d rows %s, last %d rows %s\n", m.Column, shiftWindow, m.HeadKind, shiftWindow, m.TailKind))
	}
	b.WriteString("This may indicate a shift in the middle of the file (for example, unescaped delimiters inside text fields).")
	return b.String()
}

// Columns returns the names of the mismatched columns.
func (w *ShiftWarning) Columns() []string {
	out := make([]string, len(w.Mismatches))
	for i, m := range w.Mismatches {
		out[i] = m.Column
	}
	return out
}

// CheckShift compares per-column types of the first and last rows. It returns
// nil for small tables or when every column keeps its type.
func CheckShift(t *Table) *ShiftWarning {
	if t == nil || t.NumRows() < shiftMinRows {
		return nil
	}
	head := t.Head(shiftWindow)
	tail := t.Tail(shiftWindow)
	var mm []Mismatch
	for i := range t.cols {
		hk := head.cols[i].Kind()
		tk := tail.cols[i].Kind()
		if hk != tk {
			mm = append(mm, Mismatch{Column: t.cols[i].Name, HeadKind: hk, TailKind: tk})
		}
	}
	if len(mm) == 0 {
		return nil
	}
	return &ShiftWarning{Mismatches: mm}
}
