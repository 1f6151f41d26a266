package stats

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// table builds a dataset from column-major string slices.
func table(t *testing.T, names []string, cols ...[]string) *dataset.Table {
	t.Helper()
	require.Equal(t, len(names), len(cols))
	rows := 0
	if len(cols) > 0 {
		rows = len(cols[0])
	}
	recs := make([][]string, rows)
	for r := range recs {
		recs[r] = make([]string, len(cols))
		for c := range cols {
			recs[r][c] = cols[c][r]
		}
	}
	return dataset.FromRecords("test", names, recs, dataset.Options{})
}

func floats(vals []float64) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = fmt.Sprintf("%g", v)
	}
	return out
}

func TestOutlierBoundsFlagsExtremeValue(t *testing.T) {
	tbl := table(t, []string{"x"}, floats([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 1000}))
	b, err := OutlierBounds(tbl, "x")
	require.NoError(t, err)
	assert.InDelta(t, 3.25, b.Q1, 1e-9)
	assert.InDelta(t, 7.75, b.Q3, 1e-9)
	assert.InDelta(t, 4.5, b.IQR, 1e-9)
	assert.InDelta(t, -3.5, b.Lower, 1e-9)
	assert.InDelta(t, 14.5, b.Upper, 1e-9)
	assert.Equal(t, []int{9}, b.Rows)
}

func TestOutlierBoundsConstantColumn(t *testing.T) {
	tbl := table(t, []string{"x"}, []string{"5", "5", "5", "5"})
	b, err := OutlierBounds(tbl, "x")
	require.NoError(t, err)
	assert.Equal(t, 0.0, b.IQR)
	assert.Equal(t, 0, b.Count())
}

func TestOutlierBoundsGaps(t *testing.T) {
	tbl := table(t, []string{"x", "name"}, []string{"", ""}, []string{"a", "b"})
	_, err := OutlierBounds(tbl, "x")
	var gap *Gap
	require.ErrorAs(t, err, &gap)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = OutlierBounds(tbl, "name")
	assert.ErrorIs(t, err, ErrNotNumeric)
	_, err = OutlierBounds(tbl, "nope")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestCorrelationMatrixProperties(t *testing.T) {
	a := []string{"1", "2", "3", "4", "5", "6"}
	b := []string{"2", "4", "6", "8", "10", "12"}
	c := []string{"6", "", "4", "1", "2", "1"}
	k := []string{"7", "7", "7", "7", "7", "7"}
	tbl := table(t, []string{"a", "b", "c", "k"}, a, b, c, k)

	m, err := CorrelationMatrix(tbl, []string{"a", "b", "c", "k"})
	require.NoError(t, err)
	require.NotNil(t, m)
	for i := range m.Columns {
		assert.Equal(t, 1.0, m.Values[i][i])
		for j := range m.Columns {
			assert.Equal(t, m.Values[i][j], m.Values[j][i])
			assert.GreaterOrEqual(t, m.Values[i][j], -1.0)
			assert.LessOrEqual(t, m.Values[i][j], 1.0)
		}
	}
	r, ok := m.At("a", "b")
	require.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-12)
	r, _ = m.At("a", "c")
	assert.Less(t, r, 0.0)
	r, _ = m.At("a", "k")
	assert.Equal(t, 0.0, r, "zero-variance pair is reported as 0")

	top := m.TopPairs(1)
	require.Len(t, top, 1)
	assert.Equal(t, PairCorr{A: "a", B: "b", R: m.Values[0][1]}, top[0])
}

func TestCorrelationMatrixNeedsTwoColumns(t *testing.T) {
	tbl := table(t, []string{"a"}, []string{"1", "2"})
	m, err := CorrelationMatrix(tbl, []string{"a"})
	assert.NoError(t, err)
	assert.Nil(t, m)
	m, err = CorrelationMatrix(tbl, nil)
	assert.NoError(t, err)
	assert.Nil(t, m)
}

func TestPearsonUndefined(t *testing.T) {
	_, err := Pearson([]float64{1, math.NaN()}, []float64{math.NaN(), 2})
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = Pearson([]float64{1, 1, 1}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrDegenerate)
}

func collinearTable(t *testing.T, rows int) *dataset.Table {
	rng := rand.New(rand.NewSource(7))
	a, b, c, d := make([]float64, rows), make([]float64, rows), make([]float64, rows), make([]float64, rows)
	for i := 0; i < rows; i++ {
		a[i] = rng.NormFloat64()
		b[i] = rng.NormFloat64()
		c[i] = a[i] + b[i] + 0.05*rng.NormFloat64()
		d[i] = rng.NormFloat64()
	}
	return table(t, []string{"a", "b", "c", "d"}, floats(a), floats(b), floats(c), floats(d))
}

func TestVIFClassifiesCollinearColumns(t *testing.T) {
	tbl := collinearTable(t, 200)
	scores, err := VIF(tbl, []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	require.Len(t, scores, 4)
	byName := map[string]VIFScore{}
	for _, s := range scores {
		require.Equal(t, VIFOK, s.Status, s.Reason)
		byName[s.Column] = s
	}
	assert.Equal(t, VIFStrong, byName["c"].Class)
	assert.Equal(t, VIFStrong, byName["a"].Class)
	assert.Equal(t, VIFWeak, byName["d"].Class)
	assert.Less(t, byName["d"].Value, 2.0)

	recs := VIFRecords(scores)
	assert.Equal(t, "strong", recs[2].Classification)
	assert.NotEqual(t, "N/A", recs[2].VIF)
}

func TestVIFInsufficientRows(t *testing.T) {
	tbl := table(t, []string{"a", "b", "c"},
		[]string{"1", "2", "3", "4"},
		[]string{"3", "", "1", "5"},
		[]string{"2", "2", "9", ""})
	scores, err := VIF(tbl, []string{"a", "b", "c"})
	require.NoError(t, err)
	for _, s := range scores {
		assert.Equal(t, VIFInsufficient, s.Status)
	}
	for _, r := range VIFRecords(scores) {
		assert.Equal(t, "N/A", r.VIF)
		assert.Equal(t, "insufficient data", r.Classification)
	}
}

func TestVIFPerfectCollinearityIsLocal(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n := 200
	cols := []string{"a", "b", "c", "d", "a_scaled"}
	data := make([][]float64, len(cols))
	for j := range data {
		data[j] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < 4; j++ {
			// four decimals survive the %g round trip exactly
			data[j][i] = math.Round(rng.NormFloat64()*1e4) / 1e4
		}
		data[4][i] = 100 * data[0][i]
	}
	strs := make([][]string, len(cols))
	for j := range data {
		strs[j] = floats(data[j])
	}
	tbl := table(t, cols, strs...)
	scores, err := VIF(tbl, cols)
	require.NoError(t, err)
	require.Len(t, scores, 5)

	for _, i := range []int{0, 4} {
		assert.Equal(t, VIFError, scores[i].Status, scores[i].Column)
		assert.Contains(t, scores[i].Reason, "collinearity")
	}
	for _, i := range []int{1, 2, 3} {
		require.Equal(t, VIFOK, scores[i].Status, scores[i].Column)
		assert.Less(t, scores[i].Value, 2.0, scores[i].Column)
		assert.Equal(t, VIFWeak, scores[i].Class)
	}
}

func TestVIFConstantColumn(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	n := 40
	a, b, k := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		a[i] = rng.NormFloat64()
		b[i] = rng.NormFloat64()
		k[i] = 3
	}
	tbl := table(t, []string{"a", "b", "k"}, floats(a), floats(b), floats(k))
	scores, err := VIF(tbl, []string{"a", "b", "k"})
	require.NoError(t, err)
	assert.Equal(t, VIFOK, scores[0].Status)
	assert.Equal(t, VIFOK, scores[1].Status)
	assert.Equal(t, VIFError, scores[2].Status)
}

func TestClassifyVIF(t *testing.T) {
	assert.Equal(t, VIFWeak, ClassifyVIF(4.99))
	assert.Equal(t, VIFModerate, ClassifyVIF(5))
	assert.Equal(t, VIFModerate, ClassifyVIF(9.99))
	assert.Equal(t, VIFStrong, ClassifyVIF(10))
}

func TestMissingReportOrder(t *testing.T) {
	tbl := table(t, []string{"a", "b", "c", "d"},
		[]string{"1", "", "3", "4"},
		[]string{"", "", "", "4"},
		[]string{"1", "2", "3", "4"},
		[]string{"x", "", "z", "w"})
	rep := MissingReport(tbl)
	require.Len(t, rep, 3)
	assert.Equal(t, "b", rep[0].Column)
	assert.Equal(t, 3, rep[0].Count)
	assert.InDelta(t, 75.0, rep[0].Percent, 1e-9)
	assert.Equal(t, []string{"a", "d"}, []string{rep[1].Column, rep[2].Column})
}

func TestDescribe(t *testing.T) {
	tbl := table(t, []string{"x", "name"}, []string{"1", "2", "3", "4", ""}, []string{"a", "b", "c", "d", "e"})
	sums, gaps := Describe(tbl, []string{"x", "name"})
	require.Len(t, sums, 1)
	require.Len(t, gaps, 1)
	assert.ErrorIs(t, gaps[0], ErrNotNumeric)
	s := sums[0]
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.5, s.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(5.0/3.0), s.Std, 1e-9)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.InDelta(t, 1.75, s.Q25, 1e-9)
	assert.InDelta(t, 2.5, s.Median, 1e-9)
	assert.InDelta(t, 3.25, s.Q75, 1e-9)
}

func TestValueCounts(t *testing.T) {
	tbl := table(t, []string{"c"}, []string{"b", "a", "b", "", "c", "a", "b"})
	got, err := ValueCounts(tbl, "c", 2)
	require.NoError(t, err)
	assert.Equal(t, []CategoryCount{{Value: "b", Count: 3}, {Value: "a", Count: 2}}, got)
}

func TestSkewness(t *testing.T) {
	s, err := Skewness([]float64{1, 1, 1, 2, 2, 3, 10})
	require.NoError(t, err)
	assert.Greater(t, s, 1.0)

	s, err = Skewness([]float64{-10, 1, 2, 2, 3, 3, 3})
	require.NoError(t, err)
	assert.Less(t, s, -1.0)

	_, err = Skewness([]float64{1, 2})
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = Skewness([]float64{4, 4, 4, 4})
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestGroupMeans(t *testing.T) {
	tbl := table(t, []string{"g", "v"},
		[]string{"x", "y", "x", "", "y", "z"},
		[]string{"1", "10", "3", "100", "", "7"})
	groups, err := GroupMeans(tbl, "g", "v")
	require.NoError(t, err)
	assert.Equal(t, []GroupMean{{Group: "x", Count: 2, Mean: 2}, {Group: "y", Count: 1, Mean: 10}, {Group: "z", Count: 1, Mean: 7}}, groups)

	spread, center, err := GroupSpread(groups)
	require.NoError(t, err)
	assert.InDelta(t, 19.0/3.0, center, 1e-9)
	assert.Greater(t, spread, 0.0)

	_, _, err = GroupSpread(groups[:1])
	assert.True(t, errors.Is(err, ErrEmpty))
}
