package stats

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"gonum.org/v1/gonum/mat"
)

// MaxVIFColumns caps how many numeric columns callers feed into VIF.
const MaxVIFColumns = 30

const (
	vifModerate = 5.0
	vifStrong   = 10.0
	// rankTolerance is the singular value cutoff, relative to the largest,
	// below which a regressor direction counts as aliased.
	rankTolerance = 1e-10
	// minTolerance is the smallest 1-R² treated as finite.
	minTolerance = 1e-12
)

// VIFStatus says whether a score was computed.
type VIFStatus string

const (
	VIFOK           VIFStatus = "ok"
	VIFInsufficient VIFStatus = "insufficient data"
	VIFError        VIFStatus = "computation error"
)

// VIFClass buckets a VIF value.
type VIFClass string

const (
	VIFWeak     VIFClass = "weak"
	VIFModerate VIFClass = "moderate"
	VIFStrong   VIFClass = "strong"
)

// ClassifyVIF buckets v into weak (<5), moderate ([5,10)) or strong (>=10).
func ClassifyVIF(v float64) VIFClass {
	switch {
	case v >= vifStrong:
		return VIFStrong
	case v >= vifModerate:
		return VIFModerate
	default:
		return VIFWeak
	}
}

// VIFScore is the variance inflation factor of one column.
type VIFScore struct {
	Column string    `json:"column" yaml:"column"`
	Value  float64   `json:"value" yaml:"value"`
	Status VIFStatus `json:"status" yaml:"status"`
	Class  VIFClass  `json:"class,omitempty" yaml:"class,omitempty"`
	Reason string    `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// VIF regresses every column on all the others (with intercept) after
// dropping rows missing a value in any of cols. It returns nil when fewer than
// two columns are given. Per-column failures are reported in the score.
func VIF(t *dataset.Table, cols []string) ([]VIFScore, error) {
	if len(cols) < 2 {
		return nil, nil
	}
	data := make([][]float64, len(cols))
	for i, name := range cols {
		vals, err := numericColumn(t, "vif", name)
		if err != nil {
			return nil, err
		}
		data[i] = vals
	}
	var rows []int
	for r := 0; r < t.NumRows(); r++ {
		complete := true
		for _, col := range data {
			if math.IsNaN(col[r]) {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, r)
		}
	}

	scores := make([]VIFScore, len(cols))
	if len(rows) <= len(cols) {
		for i, name := range cols {
			scores[i] = VIFScore{
				Column: name,
				Status: VIFInsufficient,
				Reason: fmt.Sprintf("%d complete rows for %d columns", len(rows), len(cols)),
			}
		}
		return scores, nil
	}
	constant := make([]bool, len(cols))
	for j, col := range data {
		constant[j] = true
		for _, r := range rows[1:] {
			if col[r] != col[rows[0]] {
				constant[j] = false
				break
			}
		}
	}
	for i, name := range cols {
		if constant[i] {
			gap := newGap("vif", name, ErrDegenerate)
			scores[i] = VIFScore{Column: name, Status: VIFError, Reason: gap.Error()}
			continue
		}
		v, err := vifFor(data, rows, i, constant)
		if err != nil {
			gap := newGap("vif", name, err)
			scores[i] = VIFScore{Column: name, Status: VIFError, Reason: gap.Error()}
			continue
		}
		scores[i] = VIFScore{Column: name, Value: v, Status: VIFOK, Class: ClassifyVIF(v)}
	}
	return scores, nil
}

// vifFor regresses column target on the intercept and every other
// non-constant column. Constant columns are absorbed by the intercept and
// aliased regressors are dropped by the rank cutoff, so a collinear pair
// elsewhere does not spoil this column's fit.
func vifFor(data [][]float64, rows []int, target int, constant []bool) (float64, error) {
	n := len(rows)
	k := 1
	for j := range data {
		if j != target && !constant[j] {
			k++
		}
	}
	x := mat.NewDense(n, k, nil)
	y := mat.NewDense(n, 1, nil)
	var mean float64
	for r, row := range rows {
		x.Set(r, 0, 1)
		c := 1
		for j, col := range data {
			if j == target || constant[j] {
				continue
			}
			x.Set(r, c, col[row])
			c++
		}
		v := data[target][row]
		y.Set(r, 0, v)
		mean += v
	}
	mean /= float64(n)

	var svd mat.SVD
	if !svd.Factorize(x, mat.SVDThin) {
		return 0, ErrSingular
	}
	rank := svd.Rank(rankTolerance)
	if rank == 0 {
		return 0, ErrSingular
	}
	var beta mat.Dense
	svd.SolveTo(&beta, y, rank)
	var fitted mat.Dense
	fitted.Mul(x, &beta)

	var ssr, sst float64
	for r := 0; r < n; r++ {
		obs := y.At(r, 0)
		res := obs - fitted.At(r, 0)
		ssr += res * res
		d := obs - mean
		sst += d * d
	}
	if sst == 0 {
		return 0, ErrDegenerate
	}
	tol := ssr / sst // 1 - R²
	if tol < minTolerance {
		return 0, fmt.Errorf("%w: perfect collinearity", ErrSingular)
	}
	return 1 / tol, nil
}

// VIFRecord is the report-facing rendering of a VIFScore.
type VIFRecord struct {
	Column         string `json:"column" yaml:"column"`
	VIF            string `json:"vif" yaml:"vif"`
	Classification string `json:"classification" yaml:"classification"`
}

// VIFRecords formats scores for reports; uncomputed values read "N/A".
func VIFRecords(scores []VIFScore) []VIFRecord {
	out := make([]VIFRecord, len(scores))
	for i, s := range scores {
		if s.Status != VIFOK {
			out[i] = VIFRecord{Column: s.Column, VIF: "N/A", Classification: string(s.Status)}
			continue
		}
		out[i] = VIFRecord{Column: s.Column, VIF: fmt.Sprintf("%.2f", s.Value), Classification: string(s.Class)}
	}
	return out
}
