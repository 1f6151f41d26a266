package parser

import (
	"io"
	"strings"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
)

type delimitedReader struct{}

func (delimitedReader) CanRead(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".txt")
}

// Read loads CSV/TSV content. A .tsv filename implies tabs unless a
// delimiter was given.
func (delimitedReader) Read(filename string, r io.Reader, opt Options) (*dataset.Result, error) {
	if opt.Delimiter == 0 && strings.HasSuffix(strings.ToLower(filename), ".tsv") {
		opt.Delimiter = '\t'
	}
	return dataset.Load(r, opt.Options)
}
