// Package reportlog keeps an append-only history of forecast runs. The
// engine never reads it back; it serves audit and the history views.
package reportlog

import (
	"context"
	"sort"
	"time"

	"github.com/kilianp07/shuttlecast/core/forecast"
)

// Record is one completed run.
type Record struct {
	RunID       string           `json:"run_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	ServiceDate string           `json:"service_date"`
	Source      string           `json:"source"`
	Report      *forecast.Report `json:"report"`
}

// Query filters records. Zero values disable a filter. Limit keeps the most
// recent matches.
type Query struct {
	Since       time.Time
	Until       time.Time
	ServiceDate string
	AlertsOnly  bool
	Limit       int
}

// Match reports whether r satisfies the time, date and alert filters.
func (q Query) Match(r Record) bool {
	if !q.Since.IsZero() && r.GeneratedAt.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && r.GeneratedAt.After(q.Until) {
		return false
	}
	if q.ServiceDate != "" && r.ServiceDate != q.ServiceDate {
		return false
	}
	if q.AlertsOnly && (r.Report == nil || r.Report.Summary.AlertSlots == 0) {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// finish orders records oldest first and applies the limit.
func finish(recs []Record, q Query) []Record {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].GeneratedAt.Before(recs[j].GeneratedAt) })
	if q.Limit > 0 && len(recs) > q.Limit {
		recs = recs[len(recs)-q.Limit:]
	}
	return recs
}
