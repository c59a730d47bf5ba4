package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/gocarina/gocsv"

	"github.com/kilianp07/shuttlecast/core/model"
)

// ReadCSV decodes a delimited text file. The delimiter is sniffed from the
// header line unless opts.Delimiter is set. Each call owns its reader, so
// files with different delimiters can be read concurrently; gocsv's
// package-level reader setting is never touched.
func ReadCSV(r io.Reader, opts Options) (model.Batch, error) {
	br := bufio.NewReader(r)
	comma := ','
	if opts.Delimiter != "" {
		d, size := utf8.DecodeRuneInString(opts.Delimiter)
		if size != len(opts.Delimiter) {
			return model.Batch{}, fmt.Errorf("ingest: delimiter %q must be one character", opts.Delimiter)
		}
		comma = d
	} else {
		head, _ := br.Peek(4096)
		comma = sniffDelimiter(head)
	}

	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := gocsv.NewSimpleDecoderFromCSVReader(cr).GetCSVRows()
	if err != nil {
		return model.Batch{}, fmt.Errorf("ingest: read csv: %w", err)
	}
	return toBatch(records)
}
