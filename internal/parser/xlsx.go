package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/xuri/excelize/v2"
)

type xlsxReader struct{}

func (xlsxReader) CanRead(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Read loads one sheet of a workbook. The first row is the header.
func (xlsxReader) Read(_ string, r io.Reader, opt Options) (*dataset.Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &dataset.LoadError{Attempts: []error{fmt.Errorf("read xlsx: %w", err)}}
	}
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, &dataset.LoadError{Attempts: []error{fmt.Errorf("open xlsx: %w", err)}}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &dataset.LoadError{Attempts: []error{dataset.ErrNoColumns}}
	}
	sheet := sheets[0]
	if opt.Sheet != "" {
		sheet = ""
		for _, s := range sheets {
			if strings.EqualFold(s, opt.Sheet) {
				sheet = s
				break
			}
		}
		if sheet == "" {
			return nil, &dataset.LoadError{Attempts: []error{fmt.Errorf("sheet '%s' not found in workbook '%s'; available sheets: %s",
				opt.Sheet, opt.Name, strings.Join(sheets, ", "))}}
		}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &dataset.LoadError{Attempts: []error{fmt.Errorf("read sheet %s: %w", sheet, err)}}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, &dataset.LoadError{Attempts: []error{fmt.Errorf("sheet %s: %w", sheet, dataset.ErrNoColumns)}}
	}
	res := dataset.NewResult(rows[0], rows[1:], raw, opt.Options)
	res.Encoding = "xlsx"
	if len(sheets) > 1 {
		res.Notes = append(res.Notes, fmt.Sprintf("read sheet %s of %d", sheet, len(sheets)))
	}
	return res, nil
}
