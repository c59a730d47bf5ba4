// Package flights turns raw arrival rows into validated flight records.
// Bad rows never abort a batch: they are excluded and reported with their
// row number. Only a missing required column is fatal.
package flights

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/shuttlecast/core/logger"
	"github.com/kilianp07/shuttlecast/core/model"
)

// Options tunes a single Normalize call.
type Options struct {
	// ServiceDate, when non-zero, excludes rows whose flight date differs.
	ServiceDate time.Time
}

// Result holds the valid records and the per-row failures.
type Result struct {
	Flights  []model.FlightRecord
	Failures []RowParseFailure
}

// Normalizer validates and converts raw rows.
type Normalizer struct {
	schema Schema
	log    logger.Logger
}

// NewNormalizer returns a Normalizer for the schema. Unset schema fields
// take their defaults.
func NewNormalizer(s Schema, log logger.Logger) (*Normalizer, error) {
	s.SetDefaults()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("flight schema: %w", err)
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Normalizer{schema: s, log: log}, nil
}

// Schema returns the effective schema.
func (n *Normalizer) Schema() Schema { return n.schema }

// Normalize converts the batch. It returns a *ValidationError before looking
// at any row when a required column is absent from the header.
func (n *Normalizer) Normalize(b model.Batch, opts Options) (Result, error) {
	var missing []string
	for _, col := range n.schema.Required() {
		if !b.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return Result{}, &ValidationError{Missing: missing}
	}

	res := Result{Flights: make([]model.FlightRecord, 0, len(b.Rows))}
	seen := make(map[string]int, len(b.Rows))
	for i, row := range b.Rows {
		rowNum := i + 1
		rec, err := n.parseRow(row, rowNum, opts)
		if err == nil {
			if prev, dup := seen[rec.ID]; dup {
				err = fmt.Errorf("duplicate flight id %q (first seen at row %d)", rec.ID, prev)
			}
		}
		if err != nil {
			res.Failures = append(res.Failures, RowParseFailure{Row: rowNum, Reason: err.Error()})
			continue
		}
		seen[rec.ID] = rowNum
		res.Flights = append(res.Flights, rec)
	}
	if len(res.Failures) > 0 {
		n.log.Warnf("excluded %d of %d rows", len(res.Failures), len(b.Rows))
	}
	n.log.Debugw("batch normalized", map[string]any{
		"rows":     len(b.Rows),
		"flights":  len(res.Flights),
		"failures": len(res.Failures),
	})
	return res, nil
}

func (n *Normalizer) parseRow(row model.RawRow, rowNum int, opts Options) (model.FlightRecord, error) {
	s := n.schema
	get := func(col string) (string, error) {
		v := strings.TrimSpace(row[col])
		if v == "" {
			return "", fmt.Errorf("missing value for %q", col)
		}
		return v, nil
	}
	dateStr, err := get(s.DateColumn)
	if err != nil {
		return model.FlightRecord{}, err
	}
	timeStr, err := get(s.TimeColumn)
	if err != nil {
		return model.FlightRecord{}, err
	}
	origin, err := get(s.OriginColumn)
	if err != nil {
		return model.FlightRecord{}, err
	}
	seatsStr, err := get(s.SeatsColumn)
	if err != nil {
		return model.FlightRecord{}, err
	}

	arrival, err := n.parseArrival(dateStr, timeStr)
	if err != nil {
		return model.FlightRecord{}, err
	}
	if !opts.ServiceDate.IsZero() && !sameDay(arrival, opts.ServiceDate) {
		return model.FlightRecord{}, fmt.Errorf("flight date %s outside service day %s",
			arrival.Format("2006-01-02"), opts.ServiceDate.Format("2006-01-02"))
	}
	seats, err := parseSeats(seatsStr)
	if err != nil {
		return model.FlightRecord{}, err
	}

	id := fmt.Sprintf("row-%d", rowNum)
	if s.IDColumn != "" {
		if v := strings.TrimSpace(row[s.IDColumn]); v != "" {
			id = v
		}
	}
	rec := model.FlightRecord{ID: id, Arrival: arrival, Origin: origin, AvgSeats: seats}
	return rec, rec.Validate()
}

// parseArrival combines the date and time cells. Date layouts may carry a
// clock component (spreadsheet exports do); only the date part is kept.
func (n *Normalizer) parseArrival(dateStr, timeStr string) (time.Time, error) {
	loc := n.schema.Location
	var day time.Time
	var err error
	for _, layout := range n.schema.DateLayouts {
		if day, err = time.ParseInLocation(layout, dateStr, loc); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", dateStr)
	}
	var clock time.Time
	for _, layout := range n.schema.TimeLayouts {
		if clock, err = time.Parse(layout, timeStr); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", timeStr)
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, loc), nil
}

func parseSeats(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid seat count %q", v)
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid seat count %q", v)
	}
	return f, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
