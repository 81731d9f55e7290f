// Package parser loads uploaded files into dataset tables. Parsers are chosen
// by filename suffix from a small registry.
package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/datadash/internal/dataset"
)

// Parser defines a tabular file parser implementation.
type Parser interface {
	CanParse(filename string) bool
	Parse(r io.Reader, name string) (*dataset.Table, error)
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// ForFile returns the first registered parser accepting filename.
func ForFile(filename string) (Parser, bool) {
	for _, p := range registry {
		if p.CanParse(filename) {
			return p, true
		}
	}
	return nil, false
}

// ErrUnsupported indicates a file format the loader does not handle.
var ErrUnsupported = errors.New("unsupported file format, please upload a CSV or Excel file")

// Load parses r according to the suffix of filename. It returns ErrUnsupported
// for unknown suffixes and a wrapped error for parse failures; the table is nil
// in both cases.
func Load(r io.Reader, filename string) (*dataset.Table, error) {
	p, ok := ForFile(filename)
	if !ok {
		return nil, ErrUnsupported
	}
	name := filepath.Base(filename)
	t, err := p.Parse(r, name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return t, nil
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string) (*dataset.Table, error) {
	if _, ok := ForFile(path); !ok {
		return nil, ErrUnsupported
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	defer f.Close()
	return Load(f, path)
}

func init() {
	Register(csvParser{Delimiter: ','})
	Register(xlsxParser{})
}

// SetCSVDelimiter replaces the registered CSV parser's delimiter.
func SetCSVDelimiter(d rune) {
	for i, p := range registry {
		if _, ok := p.(csvParser); ok {
			registry[i] = csvParser{Delimiter: d}
		}
	}
}
