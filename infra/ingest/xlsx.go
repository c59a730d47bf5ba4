package ingest

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kilianp07/shuttlecast/core/model"
)

// ReadXLSX decodes one worksheet of an Excel workbook. Cells are read with
// their display format, so date columns need a matching layout in the input
// schema.
func ReadXLSX(r io.Reader, opts Options) (model.Batch, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return model.Batch{}, fmt.Errorf("ingest: open xlsx: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return model.Batch{}, ErrEmpty
		}
		sheet = sheets[0]
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return model.Batch{}, fmt.Errorf("ingest: sheet %q not found", sheet)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return model.Batch{}, fmt.Errorf("ingest: read sheet %q: %w", sheet, err)
	}
	return toBatch(rows)
}
