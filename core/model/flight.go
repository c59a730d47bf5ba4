package model

import (
	"fmt"
	"math"
	"time"
)

// RawRow is one untyped input row keyed by column name.
type RawRow map[string]string

// Batch is the tabular flight input for one invocation, as produced by the
// ingestion adapters. Columns lists the header in file order.
type Batch struct {
	Columns []string
	Rows    []RawRow
}

// HasColumn reports whether the batch header contains name.
func (b Batch) HasColumn(name string) bool {
	for _, c := range b.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// FlightRecord is a validated arrival.
type FlightRecord struct {
	ID       string    `json:"id"`
	Arrival  time.Time `json:"arrival"`
	Origin   string    `json:"origin"`
	AvgSeats float64   `json:"avg_seats"` // average seats offered on the route
}

// Validate checks the record invariants.
func (f FlightRecord) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("flight id is required")
	}
	if f.Arrival.IsZero() {
		return fmt.Errorf("flight %s: arrival timestamp is required", f.ID)
	}
	if f.Origin == "" {
		return fmt.Errorf("flight %s: origin is required", f.ID)
	}
	if f.AvgSeats < 0 || math.IsNaN(f.AvgSeats) || math.IsInf(f.AvgSeats, 0) {
		return fmt.Errorf("flight %s: invalid seat count %v", f.ID, f.AvgSeats)
	}
	return nil
}

// DelayBucket groups origins sharing the same walking delay.
type DelayBucket int

const (
	BucketLong DelayBucket = iota
	BucketShort
)

func (b DelayBucket) String() string {
	switch b {
	case BucketShort:
		return "short"
	default:
		return "long"
	}
}

// ReadinessRecord is a flight annotated with the instant its passengers can
// board a shuttle.
type ReadinessRecord struct {
	FlightRecord
	Bucket       DelayBucket   `json:"bucket"`
	WalkingDelay time.Duration `json:"walking_delay"`
	ReadyAt      time.Time     `json:"ready_at"`
}
