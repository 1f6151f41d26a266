package hypothesis

import (
	"fmt"
	"math"
	"strconv"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/KaramelBytes/edaloom-cli/internal/stats"
)

// Scan bounds and thresholds of the rule engine.
const (
	// MaxColumnsPerRule caps the columns (or each side of a pair) a rule scans.
	MaxColumnsPerRule = 5
	// MaxMissingColumns caps the columns the missingness rule scans.
	MaxMissingColumns = 3

	CorrelationThreshold  = 0.3
	GroupSpreadRatio      = 0.1
	OutlierShareThreshold = 0.05
	SkewThreshold         = 1.0
	StrongSkewThreshold   = 2.0
	MissingPercentLimit   = 10.0
	TrendMinNumeric       = 3
	TrendMinRows          = 10

	// DefaultPlotPoints bounds the rows copied into plot samples.
	DefaultPlotPoints = 10000
	// DefaultSeed makes plot samples reproducible.
	DefaultSeed = 42
)

// Rule identifies which check produced a hypothesis.
type Rule string

const (
	RuleCorrelation Rule = "correlation"
	RuleInfluence   Rule = "categorical-influence"
	RuleOutliers    Rule = "outliers"
	RuleSkewness    Rule = "skewness"
	RuleMissingness Rule = "missingness"
	RuleTrend       Rule = "trend"
)

// PlotKind names the chart a presentation layer should draw.
type PlotKind string

const (
	PlotScatter   PlotKind = "scatter"
	PlotBox       PlotKind = "box"
	PlotHistogram PlotKind = "histogram"
	PlotMissing   PlotKind = "missing"
	PlotTrend     PlotKind = "trend"
)

// PlotData is the bounded, sampled input for a hypothesis chart. It is never
// exported.
type PlotData struct {
	Kind    PlotKind
	Columns []string
	Sample  *dataset.Table
}

// Hypothesis is one generated statement about the dataset.
type Hypothesis struct {
	Rule          Rule
	Statement     string
	Justification string
	Verification  string
	Plot          *PlotData
}

// Input selects what the generator looks at. Nil column lists are derived
// from the table.
type Input struct {
	Numeric     []string
	Categorical []string
	Target      string
	// MaxPlotPoints bounds plot samples; 0 keeps every row.
	MaxPlotPoints int
	Seed          int64
}

// Result holds hypotheses in rule order and the gaps met on the way.
type Result struct {
	Hypotheses []Hypothesis
	Gaps       []error
}

type generator struct {
	t   *dataset.Table
	in  Input
	res Result
}

// Generate runs every rule in fixed order. A failing statistic is recorded in
// Result.Gaps and only skips its own column or pair.
func Generate(t *dataset.Table, in Input) Result {
	if in.Numeric == nil {
		in.Numeric = t.NumericColumns()
	}
	if in.Categorical == nil {
		in.Categorical = t.CategoricalColumns()
	}
	g := &generator{t: t, in: in}
	g.correlation()
	g.influence()
	g.outliers()
	g.skewness()
	g.missingness()
	g.trend()
	return g.res
}

func (g *generator) emit(h Hypothesis) { g.res.Hypotheses = append(g.res.Hypotheses, h) }

func (g *generator) gap(err error) { g.res.Gaps = append(g.res.Gaps, err) }

func (g *generator) plot(kind PlotKind, cols ...string) *PlotData {
	sel, err := g.t.Select(cols...)
	if err != nil {
		return nil
	}
	return &PlotData{Kind: kind, Columns: cols, Sample: sel.Sample(g.in.MaxPlotPoints, g.in.Seed)}
}

func first(cols []string, n int) []string {
	if len(cols) > n {
		return cols[:n]
	}
	return cols
}

func contains(cols []string, name string) bool {
	for _, c := range cols {
		if c == name {
			return true
		}
	}
	return false
}

func (g *generator) correlation() {
	target := g.in.Target
	if target == "" || !contains(g.in.Numeric, target) || len(g.in.Numeric) < 2 {
		return
	}
	ty, _ := g.t.Floats(target)
	for _, col := range g.in.Numeric {
		if col == target {
			continue
		}
		x, ok := g.t.Floats(col)
		if !ok {
			g.gap(&stats.Gap{Op: "correlation", Column: col, Err: stats.ErrUnknownColumn})
			continue
		}
		r, err := stats.Pearson(ty, x)
		if err != nil {
			g.gap(&stats.Gap{Op: "correlation", Column: col + "~" + target, Err: err})
			continue
		}
		if math.Abs(r) <= CorrelationThreshold {
			continue
		}
		sign, link := "positive", "direct"
		if r < 0 {
			sign, link = "negative", "inverse"
		}
		g.emit(Hypothesis{
			Rule:          RuleCorrelation,
			Statement:     fmt.Sprintf("Feature '%s' has a %s correlation with '%s'", col, sign, target),
			Justification: fmt.Sprintf("Correlation is %.3f, indicating a %s relationship", r, link),
			Verification:  "Correlation analysis, regression modelling",
			Plot:          g.plot(PlotScatter, col, target),
		})
	}
}

func (g *generator) influence() {
	for _, cat := range first(g.in.Categorical, MaxColumnsPerRule) {
		for _, num := range first(g.in.Numeric, MaxColumnsPerRule) {
			groups, err := stats.GroupMeans(g.t, cat, num)
			if err != nil {
				g.gap(err)
				continue
			}
			if len(groups) < 2 {
				continue
			}
			spread, center, err := stats.GroupSpread(groups)
			if err != nil {
				g.gap(&stats.Gap{Op: "group spread", Column: cat + "/" + num, Err: err})
				continue
			}
			if !(spread > GroupSpreadRatio*math.Abs(center)) {
				continue
			}
			g.emit(Hypothesis{
				Rule:          RuleInfluence,
				Statement:     fmt.Sprintf("Feature '%s' influences '%s'", cat, num),
				Justification: fmt.Sprintf("Mean of '%s' differs across groups of '%s' (spread: %.2f)", num, cat, spread),
				Verification:  "ANOVA, t-test, boxplot visualization",
				Plot:          g.plot(PlotBox, cat, num),
			})
		}
	}
}

func (g *generator) outliers() {
	rows := g.t.NumRows()
	for _, col := range first(g.in.Numeric, MaxColumnsPerRule) {
		b, err := stats.OutlierBounds(g.t, col)
		if err != nil {
			g.gap(err)
			continue
		}
		if b.IQR <= 0 || float64(b.Count()) <= float64(rows)*OutlierShareThreshold {
			continue
		}
		g.emit(Hypothesis{
			Rule:          RuleOutliers,
			Statement:     fmt.Sprintf("Feature '%s' contains a significant number of outliers", col),
			Justification: fmt.Sprintf("Found %d outliers (%.1f%% of rows)", b.Count(), float64(b.Count())*100/float64(rows)),
			Verification:  "IQR method, boxplot visualization, root-cause analysis of outliers",
			Plot:          g.plot(PlotBox, col),
		})
	}
}

func (g *generator) skewness() {
	for _, col := range first(g.in.Numeric, MaxColumnsPerRule) {
		s, err := stats.ColumnSkewness(g.t, col)
		if err != nil {
			g.gap(err)
			continue
		}
		if math.Abs(s) <= SkewThreshold {
			continue
		}
		side, strength := "right", "moderate"
		if s < 0 {
			side = "left"
		}
		if math.Abs(s) > StrongSkewThreshold {
			strength = "strong"
		}
		g.emit(Hypothesis{
			Rule:          RuleSkewness,
			Statement:     fmt.Sprintf("Feature '%s' has a %s-skewed distribution", col, side),
			Justification: fmt.Sprintf("Skewness coefficient: %.2f (%s skew)", s, strength),
			Verification:  "Histogram visualization, log transformation",
			Plot:          g.plot(PlotHistogram, col),
		})
	}
}

func (g *generator) missingness() {
	rows := g.t.NumRows()
	if rows == 0 {
		return
	}
	var withMissing []*dataset.Column
	for i := 0; i < g.t.NumCols(); i++ {
		if c := g.t.ColumnAt(i); c.MissingCount() > 0 {
			withMissing = append(withMissing, c)
		}
	}
	if len(withMissing) > MaxMissingColumns {
		withMissing = withMissing[:MaxMissingColumns]
	}
	for _, c := range withMissing {
		pct := float64(c.MissingCount()) * 100 / float64(rows)
		if pct <= MissingPercentLimit {
			continue
		}
		g.emit(Hypothesis{
			Rule:          RuleMissingness,
			Statement:     fmt.Sprintf("Missing values in '%s' may be informative", c.Name),
			Justification: fmt.Sprintf("%.1f%% of values are missing, which may indicate a systematic pattern", pct),
			Verification:  "Missingness pattern analysis, binary is-missing indicator feature",
			Plot:          g.plot(PlotMissing, c.Name),
		})
	}
}

func (g *generator) trend() {
	num := g.in.Numeric
	if len(num) < TrendMinNumeric || g.t.NumRows() <= TrendMinRows {
		return
	}
	for _, name := range g.t.Columns() {
		if yearLike(name) {
			return
		}
	}
	window := MaxColumnsPerRule
	if len(num) < window {
		window = len(num)
	}
	col := num[len(num)-window]
	cols := []string{col}
	if len(g.in.Categorical) > 0 {
		cols = append(cols, g.in.Categorical[0])
	}
	g.emit(Hypothesis{
		Rule:          RuleTrend,
		Statement:     fmt.Sprintf("Feature '%s' shows a trend over time", col),
		Justification: "Values change across the observation order, which may reflect process dynamics",
		Verification:  "Time series analysis, stationarity test, decomposition",
		Plot:          g.plot(PlotTrend, cols...),
	})
}

// yearLike reports whether a column name is a bare year such as "2019".
func yearLike(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return false
		}
	}
	y, err := strconv.Atoi(name)
	return err == nil && y >= 1900 && y <= 2100
}
