package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/KaramelBytes/edaloom-cli/internal/hypothesis"
	"github.com/KaramelBytes/edaloom-cli/internal/stats"
)

// topPairs bounds the correlation pairs listed in reports.
const topPairs = 10

// Input is everything a report can show. Corr, VIF, Hypotheses and Warning
// are optional; their sections are omitted when empty.
type Input struct {
	Table       *dataset.Table
	Numeric     []string
	Categorical []string
	Target      string
	Corr        *stats.CorrMatrix
	VIF         []stats.VIFRecord
	Hypotheses  []hypothesis.Export
	Warning     *dataset.ShiftWarning
	// Generated stamps the report; zero means now.
	Generated time.Time
}

func (in Input) generated() time.Time {
	if in.Generated.IsZero() {
		return time.Now()
	}
	return in.Generated
}

func (in Input) target() string {
	if in.Target == "" {
		return "not detected"
	}
	return in.Target
}

func (in Input) title() string {
	if in.Table != nil && in.Table.Name != "" {
		return "EDA report: " + in.Table.Name
	}
	return "EDA report"
}

// Text renders a compact plain-text summary for terminals.
func Text(in Input) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if in.Table == nil {
		b.WriteString("No dataset loaded\n")
		return b.String()
	}
	if in.Table.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", in.Table.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", in.Table.NumRows()))
	b.WriteString(fmt.Sprintf("Columns: %d (numeric %d, categorical %d)\n", in.Table.NumCols(), len(in.Numeric), len(in.Categorical)))
	b.WriteString(fmt.Sprintf("Target: %s\n", in.target()))

	if in.Warning != nil {
		b.WriteString("\n[SHIFT WARNING]\n")
		b.WriteString(in.Warning.Error())
		b.WriteString("\n")
	}

	if miss := stats.MissingReport(in.Table); len(miss) > 0 {
		b.WriteString("\n[MISSING VALUES]\n")
		for _, m := range miss {
			b.WriteString(fmt.Sprintf("- %s: %d (%.2f%%)\n", safeVal(m.Column), m.Count, m.Percent))
		}
	}
	if in.Corr != nil {
		if pairs := in.Corr.TopPairs(topPairs); len(pairs) > 0 {
			b.WriteString("\n[CORRELATIONS]\n")
			for _, p := range pairs {
				b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", safeVal(p.A), safeVal(p.B), p.R))
			}
		}
	}
	if len(in.VIF) > 0 {
		b.WriteString("\n[MULTICOLLINEARITY]\n")
		for _, v := range in.VIF {
			b.WriteString(fmt.Sprintf("- %s: VIF %s (%s)\n", safeVal(v.Column), v.VIF, v.Classification))
		}
	}
	if len(in.Hypotheses) > 0 {
		b.WriteString("\n[HYPOTHESES]\n")
		for i, h := range in.Hypotheses {
			b.WriteString(fmt.Sprintf("%d. %s\n   why: %s\n   check: %s\n", i+1, h.Statement, h.Justification, h.Verification))
		}
	}
	return b.String()
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
