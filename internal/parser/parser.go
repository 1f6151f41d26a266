package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
)

// Options extend the loader options with format-specific settings.
type Options struct {
	dataset.Options
	// Sheet selects a workbook sheet by name; empty means the first sheet.
	Sheet string
}

// Reader turns one tabular file format into a loaded dataset.
type Reader interface {
	CanRead(filename string) bool
	// Read loads r; filename is the name the reader was selected by.
	Read(filename string, r io.Reader, opt Options) (*dataset.Result, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

// ErrUnsupported indicates a format is not supported.
var ErrUnsupported = errors.New("unsupported dataset format")

// Open selects a reader based on the file extension and loads path.
func Open(path string, opt Options) (*dataset.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	if opt.Name == "" {
		opt.Name = filepath.Base(path)
	}
	return OpenReader(path, f, opt)
}

// OpenReader is Open for content that does not live on disk, such as an
// upload. name only selects the reader and labels the table.
func OpenReader(name string, r io.Reader, opt Options) (*dataset.Result, error) {
	if opt.Name == "" {
		opt.Name = filepath.Base(name)
	}
	for _, rd := range registry {
		if rd.CanRead(name) {
			return rd.Read(name, r, opt)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(name))
}

func init() {
	Register(delimitedReader{})
	Register(xlsxReader{})
}
