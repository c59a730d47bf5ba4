package config

import (
	"fmt"
	"os"
)

// SentryConfig enables error reporting of failed forecast runs, undelivered
// alerts and panics. Reporting is off while DSN is empty.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Release          string  `json:"release"`
}

// SetDefaults takes the environment from APP_ENV, then "production".
func (c *SentryConfig) SetDefaults() {
	if c.Environment != "" {
		return
	}
	c.Environment = os.Getenv("APP_ENV")
	if c.Environment == "" {
		c.Environment = "production"
	}
}

// Enabled reports whether a DSN is configured.
func (c SentryConfig) Enabled() bool { return c.DSN != "" }

// Validate checks the sample rate.
func (c SentryConfig) Validate() error {
	if c.TracesSampleRate < 0 || c.TracesSampleRate > 1 {
		return fmt.Errorf("traces_sample_rate must be within [0, 1], got %g", c.TracesSampleRate)
	}
	return nil
}
