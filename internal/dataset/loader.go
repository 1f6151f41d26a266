package dataset

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Options controls how raw bytes are turned into a Table.
type Options struct {
	// Name labels the table (usually the file's base name).
	Name string
	// Delimiter for fields. If 0, SniffDelimiter decides.
	Delimiter rune
	// MaxRows limits data rows kept; 0 means unlimited.
	MaxRows int
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// Result is the outcome of a successful load. A non-nil Warning is advisory:
// the table is complete and callers are expected to keep using it.
type Result struct {
	Table       *Table
	Warning     *ShiftWarning
	Fixed       bool
	Delimiter   rune
	Encoding    string
	SkippedRows int
	WideRows    int
	Notes       []string
}

// Message returns the user-facing warning text, or "" when there is none.
func (r *Result) Message() string {
	if r == nil || r.Warning == nil {
		return ""
	}
	return r.Warning.Error()
}

// LoadError is returned when no encoding attempt produced a table.
type LoadError struct {
	Attempts []error
}

func (e *LoadError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, err := range e.Attempts {
		parts[i] = err.Error()
	}
	return "load dataset: " + strings.Join(parts, " / ")
}

func (e *LoadError) Unwrap() []error { return e.Attempts }

// ErrNoColumns is reported when the input has no header row.
var ErrNoColumns = errors.New("no columns to parse from input")

type decoder struct {
	name   string
	decode func([]byte) (string, error)
}

var decoders = []decoder{
	{name: "utf-8", decode: decodeUTF8},
	{name: "latin-1", decode: decodeLatin1},
}

// Load reads r to the end and parses it. If r is also an io.Seeker it is
// rewound so the caller can read the same bytes again.
func Load(r io.Reader, opt Options) (*Result, error) {
	data, err := io.ReadAll(r)
	if s, ok := r.(io.Seeker); ok {
		_, _ = s.Seek(0, io.SeekStart)
	}
	if err != nil {
		return nil, &LoadError{Attempts: []error{fmt.Errorf("read input: %w", err)}}
	}
	return LoadBytes(data, opt)
}

// LoadBytes parses data, trying UTF-8 first and Latin-1 second.
func LoadBytes(data []byte, opt Options) (*Result, error) {
	var attempts []error
	for _, d := range decoders {
		text, err := d.decode(data)
		if err == nil {
			var res *Result
			res, err = parse(text, data, d.name, opt)
			if err == nil {
				return res, nil
			}
		}
		attempts = append(attempts, fmt.Errorf("%s: %w", d.name, err))
	}
	return nil, &LoadError{Attempts: attempts}
}

func decodeUTF8(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		off := 0
		for off < len(data) {
			r, size := utf8.DecodeRune(data[off:])
			if r == utf8.RuneError && size <= 1 {
				break
			}
			off += size
		}
		return "", fmt.Errorf("invalid byte sequence at offset %d", off)
	}
	return string(data), nil
}

func decodeLatin1(data []byte) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	return string(out), nil
}

func parse(text string, raw []byte, encoding string, opt Options) (*Result, error) {
	delim := SniffDelimiter(text, opt.Delimiter)
	res := &Result{Delimiter: delim, Encoding: encoding}

	// offsets[i] is where physical line i starts, so a parse can resume
	// right after a bad line instead of losing everything a stray quote
	// swallowed.
	offsets := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' && i+1 < len(text) {
			offsets = append(offsets, i+1)
		}
	}

	var header []string
	var records [][]string
	line := 0
	for line < len(offsets) {
		r := newCSVReader(text[offsets[line]:], delim, false)
		for {
			rec, err := r.Read()
			if errors.Is(err, io.EOF) {
				line = len(offsets)
				break
			}
			if err != nil {
				var pe *csv.ParseError
				if !errors.As(err, &pe) {
					return nil, fmt.Errorf("read csv: %w", err)
				}
				bad := line + pe.StartLine - 1
				rec, ok := recoverLine(text, offsets, bad, delim, pe)
				switch {
				case ok && header == nil:
					header = rec
				case ok:
					records = append(records, rec)
				case header == nil:
					return nil, fmt.Errorf("read header: %w", err)
				default:
					res.SkippedRows++
				}
				line = bad + 1
				break
			}
			if header == nil {
				header = rec
				continue
			}
			records = append(records, rec)
		}
	}
	if len(header) == 0 {
		return nil, ErrNoColumns
	}
	if res.SkippedRows > 0 {
		res.Notes = append(res.Notes, fmt.Sprintf("skipped %d malformed lines", res.SkippedRows))
	}
	res.finish(header, records, raw, opt)
	return res, nil
}

func newCSVReader(text string, delim rune, lazy bool) *csv.Reader {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = lazy
	return r
}

// recoverLine re-reads physical line i on its own when the failure was a
// bare quote inside an unquoted field, which is kept as a literal character.
// Any other quoting error loses just that line.
func recoverLine(text string, offsets []int, i int, delim rune, pe *csv.ParseError) ([]string, bool) {
	if pe.StartLine != pe.Line || !errors.Is(pe.Err, csv.ErrBareQuote) || i >= len(offsets) {
		return nil, false
	}
	end := len(text)
	if i+1 < len(offsets) {
		end = offsets[i+1]
	}
	rec, err := newCSVReader(text[offsets[i]:end], delim, true).Read()
	if err != nil {
		return nil, false
	}
	return rec, true
}

// NewResult builds a Result from records that were already split into
// fields, as spreadsheet readers produce. raw is the source content and only
// feeds the fingerprint.
func NewResult(header []string, records [][]string, raw []byte, opt Options) *Result {
	res := &Result{}
	res.finish(header, records, raw, opt)
	return res
}

func (res *Result) finish(header []string, records [][]string, raw []byte, opt Options) {
	if opt.MaxRows > 0 && len(records) > opt.MaxRows {
		records = records[:opt.MaxRows]
		res.Notes = append(res.Notes, fmt.Sprintf("kept only the first %d rows due to MaxRows", opt.MaxRows))
	}
	ncol := len(header)
	for i, rec := range records {
		if len(rec) > ncol {
			res.WideRows++
			records[i] = rec[:ncol]
		}
	}
	if res.WideRows > 0 {
		res.Notes = append(res.Notes, fmt.Sprintf("%d rows had more fields than the header and were truncated", res.WideRows))
	}
	res.Table = FromRecords(opt.Name, header, records, opt)
	res.Table.fingerprint = fingerprint(raw, res.Delimiter, opt)
	res.Warning = CheckShift(res.Table)
}

func fingerprint(raw []byte, delim rune, opt Options) string {
	h := sha256.New()
	h.Write(raw)
	fmt.Fprintf(h, "|%q|%q|%q|%d", delim, opt.DecimalSeparator, opt.ThousandsSeparator, opt.MaxRows)
	return hex.EncodeToString(h.Sum(nil))[:32]
}
