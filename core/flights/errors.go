package flights

import (
	"fmt"
	"strings"
)

// ValidationError is fatal for the whole batch: a required column is absent.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// RowParseFailure reports one excluded input row. Row is the 1-based data
// row number (header excluded).
type RowParseFailure struct {
	Row    int    `json:"row" csv:"row"`
	Reason string `json:"reason" csv:"reason"`
}

func (f RowParseFailure) String() string {
	return fmt.Sprintf("row %d: %s", f.Row, f.Reason)
}
