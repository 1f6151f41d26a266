package report

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/edaloom-cli/internal/stats"
)

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "|", `\|`, "\n", " ", "\r", " ",
)

func esc(s string) string { return mdEscaper.Replace(s) }

// Markdown renders the report body. Section numbers follow the sections
// actually present.
func Markdown(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", esc(in.title()))
	fmt.Fprintf(&b, "**Generated:** %s\n\n", in.generated().Format("2006-01-02 15:04:05"))

	n := 0
	section := func(title string) {
		n++
		fmt.Fprintf(&b, "## %d. %s\n\n", n, title)
	}

	section("Dataset overview")
	if in.Table == nil {
		b.WriteString("No dataset loaded.\n\n")
		return b.String()
	}
	fmt.Fprintf(&b, "- **Size:** %d rows × %d columns\n", in.Table.NumRows(), in.Table.NumCols())
	fmt.Fprintf(&b, "- **Numeric features:** %d\n", len(in.Numeric))
	fmt.Fprintf(&b, "- **Categorical features:** %d\n", len(in.Categorical))
	fmt.Fprintf(&b, "- **Target:** %s\n\n", esc(in.target()))

	if in.Warning != nil {
		b.WriteString("> **Warning:** column types differ between the first and last rows. ")
		b.WriteString("This may indicate a shift caused by unescaped delimiters inside text fields.\n\n")
		b.WriteString("| Column | First rows | Last rows |\n|---|---|---|\n")
		for _, m := range in.Warning.Mismatches {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", esc(m.Column), m.HeadKind, m.TailKind)
		}
		b.WriteString("\n")
	}

	section("Missing values")
	if miss := stats.MissingReport(in.Table); len(miss) > 0 {
		b.WriteString("| Feature | Missing | Percent |\n|---|---|---|\n")
		for _, m := range miss {
			fmt.Fprintf(&b, "| %s | %d | %.2f%% |\n", esc(m.Column), m.Count, m.Percent)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("No missing values found.\n\n")
	}

	if in.Corr != nil {
		section("Correlation analysis")
		fmt.Fprintf(&b, "Pearson correlations were computed for %d numeric features.\n\n", len(in.Corr.Columns))
		if pairs := in.Corr.TopPairs(topPairs); len(pairs) > 0 {
			b.WriteString("| Feature A | Feature B | r |\n|---|---|---|\n")
			for _, p := range pairs {
				fmt.Fprintf(&b, "| %s | %s | %.3f |\n", esc(p.A), esc(p.B), p.R)
			}
			b.WriteString("\n")
		}
	}

	if len(in.VIF) > 0 {
		section("Multicollinearity (VIF)")
		b.WriteString("| Feature | VIF | Assessment |\n|---|---|---|\n")
		for _, v := range in.VIF {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", esc(v.Column), esc(v.VIF), esc(v.Classification))
		}
		b.WriteString("\n")
	}

	if len(in.Hypotheses) > 0 {
		section("Generated hypotheses")
		for i, h := range in.Hypotheses {
			fmt.Fprintf(&b, "### Hypothesis %d: %s\n\n", i+1, esc(h.Statement))
			fmt.Fprintf(&b, "**Justification:** %s\n\n", esc(h.Justification))
			fmt.Fprintf(&b, "**Verification:** %s\n\n", esc(h.Verification))
		}
	}
	return b.String()
}
