// Package ingest reads flight schedules from CSV or XLSX files into an
// untyped model.Batch. Column interpretation happens in core/flights.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kilianp07/shuttlecast/core/model"
)

// Format names an input file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrEmpty is returned for inputs without a header row.
var ErrEmpty = errors.New("ingest: input has no header row")

// Options tune ingestion. Zero values pick defaults.
type Options struct {
	// Sheet selects the XLSX worksheet; the first sheet when empty.
	Sheet string `json:"sheet"`
	// Delimiter overrides CSV delimiter detection.
	Delimiter string `json:"delimiter"`
}

// DetectFormat infers the format from a file name extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("ingest: unsupported file type %q", filepath.Ext(name))
	}
}

// Read decodes r according to format.
func Read(r io.Reader, format Format, opts Options) (model.Batch, error) {
	switch format {
	case FormatCSV:
		return ReadCSV(r, opts)
	case FormatXLSX:
		return ReadXLSX(r, opts)
	default:
		return model.Batch{}, fmt.Errorf("ingest: unsupported format %q", format)
	}
}

// ReadFile opens path and decodes it using its extension.
func ReadFile(path string, opts Options) (model.Batch, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return model.Batch{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return model.Batch{}, err
	}
	defer f.Close()
	return Read(f, format, opts)
}

// toBatch turns a header plus records into a Batch. Header cells are
// trimmed, a UTF-8 BOM is dropped and fully blank records are skipped.
// Short records are padded with empty cells.
func toBatch(records [][]string) (model.Batch, error) {
	if len(records) == 0 {
		return model.Batch{}, ErrEmpty
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		h = strings.TrimPrefix(h, "\ufeff")
		header[i] = strings.TrimSpace(h)
	}
	if len(header) == 0 || blank(header) {
		return model.Batch{}, ErrEmpty
	}
	b := model.Batch{Columns: header, Rows: make([]model.RawRow, 0, len(records)-1)}
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := make(model.RawRow, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		b.Rows = append(b.Rows, row)
	}
	return b, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// sniffDelimiter picks ';' or tab when the first line uses it and no comma.
func sniffDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	switch {
	case bytes.ContainsRune(line, ','):
		return ','
	case bytes.ContainsRune(line, ';'):
		return ';'
	case bytes.ContainsRune(line, '\t'):
		return '\t'
	default:
		return ','
	}
}
