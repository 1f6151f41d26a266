package report

import (
	"bytes"
	"fmt"

	"github.com/KaramelBytes/edaloom-cli/internal/stats"
	"github.com/go-pdf/fpdf"
)

// PDF renders the report as an A4 document.
func PDF(in Input) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(20, 20, 20)
	doc.SetAutoPageBreak(true, 15)
	doc.AddPage()
	tr := doc.UnicodeTranslatorFromDescriptor("")
	w := &pdfWriter{doc: doc, tr: tr}

	doc.SetFont("Helvetica", "B", 20)
	doc.SetTextColor(0x2c, 0x3e, 0x50)
	doc.MultiCell(0, 10, tr(in.title()), "", "C", false)
	doc.SetFont("Helvetica", "I", 10)
	doc.SetTextColor(0, 0, 0)
	doc.CellFormat(0, 6, tr("Generated: "+in.generated().Format("2006-01-02 15:04:05")), "", 1, "C", false, 0, "")
	doc.Ln(6)

	w.heading("Dataset overview")
	if in.Table == nil {
		w.para("No dataset loaded.")
		return w.finish()
	}
	w.table([]float64{85, 85}, []string{"Parameter", "Value"}, [][]string{
		{"Size", fmt.Sprintf("%d rows x %d columns", in.Table.NumRows(), in.Table.NumCols())},
		{"Numeric features", fmt.Sprint(len(in.Numeric))},
		{"Categorical features", fmt.Sprint(len(in.Categorical))},
		{"Target", in.target()},
	})
	if in.Warning != nil {
		rows := make([][]string, len(in.Warning.Mismatches))
		for i, m := range in.Warning.Mismatches {
			rows[i] = []string{m.Column, string(m.HeadKind), string(m.TailKind)}
		}
		w.para("Warning: column types differ between the first and last rows. This may indicate a shift caused by unescaped delimiters inside text fields.")
		w.table([]float64{70, 50, 50}, []string{"Column", "First rows", "Last rows"}, rows)
	}

	w.heading("Missing values")
	if miss := stats.MissingReport(in.Table); len(miss) > 0 {
		rows := make([][]string, len(miss))
		for i, m := range miss {
			rows[i] = []string{m.Column, fmt.Sprint(m.Count), fmt.Sprintf("%.2f%%", m.Percent)}
		}
		w.table([]float64{80, 50, 40}, []string{"Feature", "Missing", "Percent"}, rows)
	} else {
		w.para("No missing values found.")
	}

	if in.Corr != nil {
		w.heading("Correlation analysis")
		w.para(fmt.Sprintf("Pearson correlations were computed for %d numeric features.", len(in.Corr.Columns)))
		if pairs := in.Corr.TopPairs(topPairs); len(pairs) > 0 {
			rows := make([][]string, len(pairs))
			for i, p := range pairs {
				rows[i] = []string{p.A, p.B, fmt.Sprintf("%.3f", p.R)}
			}
			w.table([]float64{70, 70, 30}, []string{"Feature A", "Feature B", "r"}, rows)
		}
	}

	if len(in.VIF) > 0 {
		w.heading("Multicollinearity (VIF)")
		rows := make([][]string, len(in.VIF))
		for i, v := range in.VIF {
			rows[i] = []string{v.Column, v.VIF, v.Classification}
		}
		w.table([]float64{70, 40, 60}, []string{"Feature", "VIF", "Assessment"}, rows)
	}

	if len(in.Hypotheses) > 0 {
		w.heading("Generated hypotheses")
		for i, h := range in.Hypotheses {
			doc.SetFont("Helvetica", "B", 11)
			doc.MultiCell(0, 6, tr(fmt.Sprintf("Hypothesis %d: %s", i+1, h.Statement)), "", "L", false)
			w.para("Justification: " + h.Justification)
			w.para("Verification: " + h.Verification)
		}
	}
	return w.finish()
}

type pdfWriter struct {
	doc     *fpdf.Fpdf
	tr      func(string) string
	section int
}

func (w *pdfWriter) heading(title string) {
	w.section++
	w.doc.Ln(4)
	w.doc.SetFont("Helvetica", "B", 14)
	w.doc.SetTextColor(0x34, 0x49, 0x5e)
	w.doc.CellFormat(0, 8, w.tr(fmt.Sprintf("%d. %s", w.section, title)), "", 1, "L", false, 0, "")
	w.doc.SetTextColor(0, 0, 0)
}

func (w *pdfWriter) para(text string) {
	w.doc.SetFont("Helvetica", "", 10)
	w.doc.MultiCell(0, 5, w.tr(text), "", "L", false)
	w.doc.Ln(1)
}

func (w *pdfWriter) table(widths []float64, header []string, rows [][]string) {
	w.doc.SetFont("Helvetica", "B", 10)
	w.doc.SetFillColor(0x34, 0x98, 0xdb)
	w.doc.SetTextColor(255, 255, 255)
	for i, h := range header {
		w.doc.CellFormat(widths[i], 7, w.tr(h), "1", 0, "L", true, 0, "")
	}
	w.doc.Ln(-1)
	w.doc.SetFont("Helvetica", "", 9)
	w.doc.SetFillColor(0xf5, 0xf5, 0xdc)
	w.doc.SetTextColor(0, 0, 0)
	for _, row := range rows {
		for i, cell := range row {
			w.doc.CellFormat(widths[i], 6, w.tr(clip(w.doc, cell, widths[i])), "1", 0, "L", true, 0, "")
		}
		w.doc.Ln(-1)
	}
	w.doc.Ln(3)
}

// clip shortens s with an ellipsis so it fits a cell of width mm.
func clip(doc *fpdf.Fpdf, s string, width float64) string {
	limit := width - 2
	if doc.GetStringWidth(s) <= limit {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && doc.GetStringWidth(string(r)+"...") > limit {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

func (w *pdfWriter) finish() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
