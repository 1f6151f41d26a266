package cmd

import (
	"fmt"
	"io"
	"strings"

	cfgpkg "github.com/KaramelBytes/edaloom-cli/internal/config"
	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/KaramelBytes/edaloom-cli/internal/parser"
	"github.com/KaramelBytes/edaloom-cli/internal/session"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// loadFlags are shared by every command that reads a dataset file.
type loadFlags struct {
	delimiter string
	sheet     string
	maxRows   int
	decimal   string
	thousands string
}

func (f *loadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "field delimiter: comma | tab | semicolon (sniffed if omitted)")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "XLSX: sheet name to load (first sheet if omitted)")
	cmd.Flags().IntVar(&f.maxRows, "max-rows", 0, "maximum rows to load (0 = config value, unlimited by default)")
	cmd.Flags().StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	cmd.Flags().StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
}

// options merges the flags over the configuration.
func (f *loadFlags) options(c *cfgpkg.Global) (parser.Options, error) {
	opt := parser.Options{Sheet: f.sheet}
	delim := c.Delimiter
	if f.delimiter != "" {
		delim = f.delimiter
	}
	d, err := dataset.ParseDelimiter(delim)
	if err != nil {
		return opt, err
	}
	opt.Delimiter = d
	opt.MaxRows = c.MaxRows
	if f.maxRows > 0 {
		opt.MaxRows = f.maxRows
	}
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(f.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	return opt, nil
}

// sessionOptions derives analysis settings from the configuration.
func sessionOptions(c *cfgpkg.Global) session.Options {
	opt := session.DefaultOptions()
	if c.MaxVIFColumns > 0 {
		opt.MaxVIFColumns = c.MaxVIFColumns
	}
	opt.PlotPoints = c.MaxPlotPoints
	if !c.UseSampling {
		opt.PlotPoints = 0
	}
	opt.Seed = c.SampleSeed
	opt.Logger = logger
	return opt
}

// openSession loads path into a fresh session.
func openSession(path string, f *loadFlags) (*session.Session, *dataset.Result, error) {
	c := currentConfig()
	opt, err := f.options(c)
	if err != nil {
		return nil, nil, err
	}
	res, err := parser.Open(path, opt)
	if err != nil {
		return nil, nil, err
	}
	s := session.New(uuid.NewString(), sessionOptions(c))
	s.Replace(res)
	return s, res, nil
}

// printLoad reports how a dataset was read.
func printLoad(w io.Writer, res *dataset.Result) {
	t := res.Table
	how := res.Encoding
	if res.Delimiter != 0 {
		how = fmt.Sprintf("delimiter %q, %s", res.Delimiter, res.Encoding)
	}
	fmt.Fprintf(w, "✓ Loaded %s: %d rows × %d columns (%s)\n", t.Name, t.NumRows(), t.NumCols(), how)
	for _, n := range res.Notes {
		fmt.Fprintf(w, "  • %s\n", n)
	}
	if res.Warning != nil {
		fmt.Fprintf(w, "⚠ Warning: %s\n", res.Message())
	}
}
