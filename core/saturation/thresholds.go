// Package saturation maps a predicted passenger count to a risk tier using an
// ordered threshold table.
package saturation

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Tier is one band of the threshold table. A tier covers counts from Min up
// to, but excluding, the Min of the next tier.
type Tier struct {
	Name  string  `json:"name"`
	Min   float64 `json:"min"`
	Alert bool    `json:"alert"`
}

// Table is an ordered, contiguous and exhaustive set of tiers over the
// non-negative numbers.
type Table struct {
	Tiers []Tier `json:"tiers"`
}

// ConfigurationError reports an incomplete or overlapping threshold table.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "threshold table: " + e.Reason }

const (
	PresetDefault  = "default"
	PresetFiveTier = "five-tier"
)

// DefaultTable is the production table: alert from 90 passengers against a
// bus capacity of 100.
func DefaultTable() Table {
	return Table{Tiers: []Tier{
		{Name: "NOMINAL", Min: 0},
		{Name: "SATURATED", Min: 90, Alert: true},
		{Name: "OVER_CAPACITY", Min: 100, Alert: true},
	}}
}

// FiveTierTable reproduces the 10/30/60/90/100 ladder.
func FiveTierTable() Table {
	return Table{Tiers: []Tier{
		{Name: "EMPTY", Min: 0},
		{Name: "LOW", Min: 10},
		{Name: "MODERATE", Min: 30},
		{Name: "FILLING", Min: 60},
		{Name: "NEAR_SATURATION", Min: 90, Alert: true},
		{Name: "SATURATED", Min: 100, Alert: true},
	}}
}

// Preset returns the named built-in table.
func Preset(name string) (Table, error) {
	switch strings.ToLower(name) {
	case "", PresetDefault:
		return DefaultTable(), nil
	case PresetFiveTier:
		return FiveTierTable(), nil
	default:
		return Table{}, &ConfigurationError{Reason: fmt.Sprintf("unknown preset %q", name)}
	}
}

// Validate checks that the table starts at zero, is strictly increasing and
// carries unique non-empty names.
func (t Table) Validate() error {
	if len(t.Tiers) == 0 {
		return &ConfigurationError{Reason: "no tiers"}
	}
	names := make(map[string]struct{}, len(t.Tiers))
	for i, tier := range t.Tiers {
		if tier.Name == "" {
			return &ConfigurationError{Reason: fmt.Sprintf("tier %d has no name", i)}
		}
		if _, dup := names[tier.Name]; dup {
			return &ConfigurationError{Reason: fmt.Sprintf("duplicate tier %q", tier.Name)}
		}
		names[tier.Name] = struct{}{}
		if math.IsNaN(tier.Min) || math.IsInf(tier.Min, 0) {
			return &ConfigurationError{Reason: fmt.Sprintf("tier %q has invalid lower bound", tier.Name)}
		}
		if i == 0 && tier.Min != 0 {
			return &ConfigurationError{Reason: fmt.Sprintf("first tier %q must start at 0, got %g", tier.Name, tier.Min)}
		}
		if i > 0 && tier.Min <= t.Tiers[i-1].Min {
			return &ConfigurationError{Reason: fmt.Sprintf("tier %q (%g) does not start after %q (%g)",
				tier.Name, tier.Min, t.Tiers[i-1].Name, t.Tiers[i-1].Min)}
		}
	}
	return nil
}

// Classify returns the tier holding count. Negative and NaN counts are
// rejected.
func (t Table) Classify(count float64) (Tier, error) {
	if math.IsNaN(count) || count < 0 {
		return Tier{}, fmt.Errorf("cannot classify %g passengers", count)
	}
	if len(t.Tiers) == 0 {
		return Tier{}, &ConfigurationError{Reason: "no tiers"}
	}
	i := sort.Search(len(t.Tiers), func(i int) bool { return t.Tiers[i].Min > count })
	if i == 0 {
		return Tier{}, &ConfigurationError{Reason: fmt.Sprintf("no tier covers %g", count)}
	}
	return t.Tiers[i-1], nil
}

// AlertFrom returns the lowest bound that raises an alert, or +Inf when no
// tier alerts.
func (t Table) AlertFrom() float64 {
	for _, tier := range t.Tiers {
		if tier.Alert {
			return tier.Min
		}
	}
	return math.Inf(1)
}
