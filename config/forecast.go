package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/shuttlecast/core/prediction"
	"github.com/kilianp07/shuttlecast/core/saturation"
)

// ThresholdsConfig selects a preset table or lists custom tiers. Tiers win
// over Preset.
type ThresholdsConfig struct {
	Preset string            `json:"preset"`
	Tiers  []saturation.Tier `json:"tiers"`
}

// Table returns the validated threshold table.
func (c ThresholdsConfig) Table() (saturation.Table, error) {
	if len(c.Tiers) > 0 {
		t := saturation.Table{Tiers: c.Tiers}
		return t, t.Validate()
	}
	return saturation.Preset(c.Preset)
}

// FeaturesConfig selects a named feature contract or lists custom
// definitions. Defs win over Contract. ConnectedLookbackMinutes bounds the
// connected_flights variable; zero keeps the engine default of 10.
type FeaturesConfig struct {
	Contract                 string                  `json:"contract"`
	Defs                     []prediction.FeatureDef `json:"defs"`
	ConnectedLookbackMinutes int                     `json:"connected_lookback_minutes"`
}

// ConnectedLookback returns the lookback as a duration.
func (c FeaturesConfig) ConnectedLookback() time.Duration {
	return time.Duration(c.ConnectedLookbackMinutes) * time.Minute
}

// Definitions returns the feature definitions after checking they compile.
// Without defs or contract the "capacity" contract is used.
func (c FeaturesConfig) Definitions() ([]prediction.FeatureDef, error) {
	if c.ConnectedLookbackMinutes < 0 {
		return nil, fmt.Errorf("connected_lookback_minutes must not be negative")
	}
	defs := c.Defs
	if len(defs) == 0 {
		name := c.Contract
		if name == "" {
			name = "capacity"
		}
		var err error
		if defs, err = prediction.Contract(name); err != nil {
			return nil, err
		}
	}
	if _, err := prediction.NewFeatureSet(defs); err != nil {
		return nil, err
	}
	return defs, nil
}
