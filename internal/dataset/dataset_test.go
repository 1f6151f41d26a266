package dataset

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniffDelimiter(t *testing.T) {
	cases := []struct {
		name     string
		content  string
		explicit rune
		want     rune
	}{
		{"tabs win", "a\tb\tc\td\te\tf\n1\t2\t3\t4\t5\t6\n", 0, '\t'},
		{"commas win", "a,b,c,d,e,f\n1,2,3,4,5,6\n", 0, ','},
		{"one of each defaults to tab", "a\tb,c\n1\t2,3\n", 0, '\t'},
		{"explicit override", "a,b,c,d,e,f\n", ';', ';'},
		{"empty content defaults to tab", "", 0, '\t'},
		{"blank lines ignored", "\n\n\na,b,c,d\n\n1,2,3,4\n", 0, ','},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SniffDelimiter(tc.content, tc.explicit))
			// determinism
			assert.Equal(t, tc.want, SniffDelimiter(tc.content, tc.explicit))
		})
	}
}

func TestSniffDelimiterUsesFirstFiveNonEmptyLines(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 5; i++ {
		b.WriteString("a\tb\tc\td\n\n")
	}
	for i := 0; i < 50; i++ {
		b.WriteString("a,b,c,d,e,f,g,h,i\n")
	}
	assert.Equal(t, '\t', SniffDelimiter(b.String(), 0))
}

func TestParseDelimiter(t *testing.T) {
	for in, want := range map[string]rune{"": 0, "auto": 0, "comma": ',', ",": ',', "tab": '\t', "\t": '\t', "semicolon": ';', ";": ';'} {
		got, err := ParseDelimiter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDelimiter("pipe")
	assert.Error(t, err)
}

func TestLoadIsIdempotent(t *testing.T) {
	data := []byte("a,b,c\n1,x,2.5\n2,y,\n3,z,4.5\n")
	r1, err := LoadBytes(data, Options{Delimiter: ','})
	require.NoError(t, err)
	r2, err := LoadBytes(data, Options{Delimiter: ','})
	require.NoError(t, err)

	require.Equal(t, r1.Table.Columns(), r2.Table.Columns())
	require.Equal(t, r1.Table.NumRows(), r2.Table.NumRows())
	assert.Equal(t, r1.Table.Fingerprint(), r2.Table.Fingerprint())
	for i := 0; i < r1.Table.NumCols(); i++ {
		c1, c2 := r1.Table.ColumnAt(i), r2.Table.ColumnAt(i)
		for row := 0; row < c1.Len(); row++ {
			assert.Equal(t, c1.Value(row), c2.Value(row))
		}
	}
}

func TestLoadRewindsSeekableInput(t *testing.T) {
	rd := bytes.NewReader([]byte("a,b,c\n1,2,3\n"))
	_, err := Load(rd, Options{})
	require.NoError(t, err)
	rest, err := io.ReadAll(rd)
	require.NoError(t, err)
	assert.Equal(t, "a,b,c\n1,2,3\n", string(rest))
}

func TestLoadFallsBackToLatin1(t *testing.T) {
	data := []byte("city,temp\ncaf\xe9,21\nna\xefve,19\n")
	res, err := LoadBytes(data, Options{Delimiter: ','})
	require.NoError(t, err)
	assert.Equal(t, "latin-1", res.Encoding)
	col, ok := res.Table.Column("city")
	require.True(t, ok)
	assert.Equal(t, "café", col.Value(0))
}

func TestLoadToleratesMalformedRows(t *testing.T) {
	data := []byte("a,b,c\n1,2,3\n4,TV 55\" screen,6\n7,8\n9,10,11,12\n")
	res, err := LoadBytes(data, Options{Delimiter: ','})
	require.NoError(t, err)
	assert.Equal(t, 0, res.SkippedRows)
	assert.Equal(t, 1, res.WideRows)
	require.Equal(t, 4, res.Table.NumRows())

	b, _ := res.Table.Column("b")
	assert.Equal(t, `TV 55" screen`, b.Value(1), "a bare quote is kept as a literal")
	c, _ := res.Table.Column("c")
	assert.True(t, c.Missing(2), "short row is padded with a missing cell")
	assert.Equal(t, "11", c.Value(3))
	assert.Nil(t, res.Warning)
	assert.False(t, res.Fixed)
}

func TestLoadUnterminatedQuoteLosesOneLine(t *testing.T) {
	var b strings.Builder
	b.WriteString("id,name,amount\n")
	for i := 0; i < 100; i++ {
		name := fmt.Sprintf("item-%d", i)
		if i == 9 {
			name = `"unterminated`
		}
		fmt.Fprintf(&b, "%d,%s,%d\n", i, name, i*3)
	}
	res, err := LoadBytes([]byte(b.String()), Options{Delimiter: ','})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SkippedRows)
	assert.Equal(t, 99, res.Table.NumRows())
	assert.Contains(t, res.Notes, "skipped 1 malformed lines")

	id, _ := res.Table.Column("id")
	assert.Equal(t, "8", id.Value(8))
	assert.Equal(t, "10", id.Value(9))
	assert.Equal(t, "99", id.Value(98))
}

func TestLoadQuotedNewlinesStillParse(t *testing.T) {
	data := []byte("a,note\n1,\"two\nlines\"\n2,plain\n")
	res, err := LoadBytes(data, Options{Delimiter: ','})
	require.NoError(t, err)
	assert.Equal(t, 0, res.SkippedRows)
	require.Equal(t, 2, res.Table.NumRows())
	note, _ := res.Table.Column("note")
	assert.Equal(t, "two\nlines", note.Value(0))
}

func TestLoadEmptyInputFails(t *testing.T) {
	_, err := LoadBytes(nil, Options{})
	require.Error(t, err)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Len(t, le.Attempts, 2)
	assert.Contains(t, err.Error(), "utf-8")
	assert.Contains(t, err.Error(), " / latin-1")
	assert.ErrorIs(t, err, ErrNoColumns)
}

func TestLoadHeaderOnlyGivesEmptyTable(t *testing.T) {
	res, err := LoadBytes([]byte("a,b,c\n"), Options{Delimiter: ','})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Table.NumRows())
	assert.Equal(t, 3, res.Table.NumCols())
}

func TestHeaderRepair(t *testing.T) {
	res, err := LoadBytes([]byte("a,,a,b\n1,2,3,4\n"), Options{Delimiter: ','})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "Unnamed: 1", "a.1", "b"}, res.Table.Columns())
}

func TestMissingMarkers(t *testing.T) {
	res, err := LoadBytes([]byte("x\n1\nNA\nnull\n\n4\n"), Options{Delimiter: ','})
	require.NoError(t, err)
	c, _ := res.Table.Column("x")
	assert.Equal(t, 2, c.MissingCount())
	assert.Equal(t, KindNumeric, c.Kind())
}

func TestColumnKindRatio(t *testing.T) {
	mk := func(numeric, text int) *Column {
		var recs [][]string
		for i := 0; i < numeric; i++ {
			recs = append(recs, []string{fmt.Sprint(i)})
		}
		for i := 0; i < text; i++ {
			recs = append(recs, []string{"word"})
		}
		return FromRecords("", []string{"v"}, recs, Options{}).ColumnAt(0)
	}
	assert.Equal(t, KindNumeric, mk(10, 0).Kind())
	assert.Equal(t, KindNumeric, mk(8, 2).Kind())
	assert.Equal(t, KindText, mk(7, 3).Kind())
	assert.Equal(t, KindText, mk(0, 5).Kind())
	assert.Equal(t, KindNumeric, mk(0, 0).Kind(), "all-missing column behaves like a numeric storage type")
}

func shiftTable(rows int, drift bool) *Table {
	var recs [][]string
	for i := 0; i < rows; i++ {
		x := fmt.Sprint(i * 3)
		if drift && i >= 25 {
			x = fmt.Sprintf("text-%d", i)
		}
		recs = append(recs, []string{fmt.Sprint(i), x, "label"})
	}
	return FromRecords("synthetic", []string{"id", "X", "tag"}, recs, Options{})
}

func TestCheckShift(t *testing.T) {
	w := CheckShift(shiftTable(40, true))
	require.NotNil(t, w)
	require.Len(t, w.Mismatches, 1)
	assert.Equal(t, Mismatch{Column: "X", HeadKind: KindNumeric, TailKind: KindText}, w.Mismatches[0])
	assert.Contains(t, w.Error(), "'X'")

	assert.Nil(t, CheckShift(shiftTable(40, false)))
	assert.Nil(t, CheckShift(shiftTable(20, true)), "tables under 30 rows are never checked")
	assert.Nil(t, CheckShift(nil))
}

func TestSampleIsDeterministicAndOrdered(t *testing.T) {
	tbl := shiftTable(100, false)
	s1 := tbl.Sample(10, 42)
	s2 := tbl.Sample(10, 42)
	require.Equal(t, 10, s1.NumRows())
	id1, _ := s1.Floats("id")
	id2, _ := s2.Floats("id")
	assert.Equal(t, id1, id2)
	for i := 1; i < len(id1); i++ {
		assert.Less(t, id1[i-1], id1[i])
	}
	assert.Equal(t, 100, tbl.NumRows())
	assert.Same(t, tbl, tbl.Sample(500, 42))
}

// buildShiftedCSV writes a 12-column dataset whose free-text column gains an
// unquoted comma from row shiftAt onwards.
func buildShiftedCSV(rows, shiftAt int) []byte {
	var b strings.Builder
	b.WriteString("id,name,note,age,city,income,segment,score,region,visits,channel,rating\n")
	cities := []string{"Oslo", "Lima", "Pune", "Kyiv"}
	for i := 0; i < rows; i++ {
		note := "fine"
		if i >= shiftAt {
			note = "good, very good"
		}
		fmt.Fprintf(&b, "%d,user%d,%s,%d,%s,%d,%s,%d,%s,%d,%s,%d\n",
			i, i, note, 20+i%50, cities[i%4], 30000+i*10, "seg"+fmt.Sprint(i%3), i%100, "north", i%7, "web", 1+i%5)
	}
	return []byte(b.String())
}

func TestLoadDetectsShiftEndToEnd(t *testing.T) {
	res, err := LoadBytes(buildShiftedCSV(900, 500), Options{Delimiter: ','})
	require.NoError(t, err)
	require.NotNil(t, res.Table)
	require.Equal(t, 900, res.Table.NumRows())
	require.Equal(t, 12, res.Table.NumCols())
	assert.False(t, res.Fixed)
	assert.Equal(t, 400, res.WideRows)

	require.NotNil(t, res.Warning)
	msg := res.Message()
	shifted := []string{"age", "city", "income", "segment", "score", "region", "visits", "channel", "rating"}
	assert.ElementsMatch(t, shifted, res.Warning.Columns())
	for _, c := range shifted {
		assert.Contains(t, msg, "'"+c+"'")
	}

	head, tail := res.Table.Head(15), res.Table.Tail(15)
	for _, name := range shifted {
		hc, _ := head.Column(name)
		tc, _ := tail.Column(name)
		assert.NotEqual(t, hc.Kind(), tc.Kind(), name)
	}
}
