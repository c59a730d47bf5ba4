// Package walking derives the boarding-readiness instant of each flight from
// the walking delay of its origin bucket.
package walking

import (
	"fmt"
	"time"

	"github.com/kilianp07/shuttlecast/core/model"
)

// Default walking delays in minutes.
const (
	DefaultShortDelayMinutes = 30
	DefaultLongDelayMinutes  = 45
)

// RegionTable lists the origins whose passengers reach the shuttle stop
// quickly (typically domestic arrivals with no passport control). Every
// other origin uses the long delay. A nil delay means the default; zero is
// a valid setting.
type RegionTable struct {
	ShortDelayOrigins []string `json:"short_delay_origins"`
	ShortDelayMinutes *int     `json:"short_delay_minutes"`
	LongDelayMinutes  *int     `json:"long_delay_minutes"`
}

// Minutes returns a pointer to m, for building tables in code.
func Minutes(m int) *int { return &m }

// SetDefaults applies the Bilbao airport values.
func (r *RegionTable) SetDefaults() {
	if r.ShortDelayOrigins == nil {
		r.ShortDelayOrigins = []string{"BCN", "MAD", "ALC"}
	}
	if r.ShortDelayMinutes == nil {
		r.ShortDelayMinutes = Minutes(DefaultShortDelayMinutes)
	}
	if r.LongDelayMinutes == nil {
		r.LongDelayMinutes = Minutes(DefaultLongDelayMinutes)
	}
}

// ShortDelay returns the short walking delay, defaulted when unset.
func (r RegionTable) ShortDelay() time.Duration {
	return minutesOr(r.ShortDelayMinutes, DefaultShortDelayMinutes)
}

// LongDelay returns the long walking delay, defaulted when unset.
func (r RegionTable) LongDelay() time.Duration {
	return minutesOr(r.LongDelayMinutes, DefaultLongDelayMinutes)
}

func minutesOr(m *int, def int) time.Duration {
	if m == nil {
		return time.Duration(def) * time.Minute
	}
	return time.Duration(*m) * time.Minute
}

// Validate rejects negative delays.
func (r RegionTable) Validate() error {
	short, long := r.ShortDelay(), r.LongDelay()
	if short < 0 || long < 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("walking delays must be non-negative (short=%v, long=%v)",
			short, long)}
	}
	return nil
}

// ConfigurationError reports an unusable region table.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "region table: " + e.Reason }

// Classifier resolves origins to walking delays. It is read-only after
// construction.
type Classifier struct {
	short      map[string]struct{}
	shortDelay time.Duration
	longDelay  time.Duration
}

// NewClassifier builds a classifier from the table.
func NewClassifier(t RegionTable) (*Classifier, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	c := &Classifier{
		short:      make(map[string]struct{}, len(t.ShortDelayOrigins)),
		shortDelay: t.ShortDelay(),
		longDelay:  t.LongDelay(),
	}
	for _, code := range t.ShortDelayOrigins {
		if code != "" {
			c.short[code] = struct{}{}
		}
	}
	return c, nil
}

// Bucket returns the delay bucket of origin. Matching is exact: empty,
// unknown or differently cased codes are long.
func (c *Classifier) Bucket(origin string) model.DelayBucket {
	if _, ok := c.short[origin]; ok {
		return model.BucketShort
	}
	return model.BucketLong
}

// Delay returns the walking delay for origin.
func (c *Classifier) Delay(origin string) time.Duration {
	if c.Bucket(origin) == model.BucketShort {
		return c.shortDelay
	}
	return c.longDelay
}

// Readiness annotates every flight with its ready-to-board instant. The
// input order is preserved.
func (c *Classifier) Readiness(flights []model.FlightRecord) []model.ReadinessRecord {
	out := make([]model.ReadinessRecord, len(flights))
	for i, f := range flights {
		b := c.Bucket(f.Origin)
		d := c.shortDelay
		if b == model.BucketLong {
			d = c.longDelay
		}
		out[i] = model.ReadinessRecord{
			FlightRecord: f,
			Bucket:       b,
			WalkingDelay: d,
			ReadyAt:      f.Arrival.Add(d),
		}
	}
	return out
}
