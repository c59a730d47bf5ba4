package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/shuttlecast/core/scheduler"
)

// ServiceConfig describes the airport's service day.
type ServiceConfig struct {
	// Timezone is an IANA zone name. Arrival times and slots are local to it.
	Timezone string                 `json:"timezone"`
	Window   scheduler.WindowConfig `json:"window"`
}

// SetDefaults applies UTC and the standard departure window.
func (c *ServiceConfig) SetDefaults() {
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	c.Window.SetDefaults()
}

// Location loads the configured timezone.
func (c ServiceConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("service.timezone: %w", err)
	}
	return loc, nil
}

// ParseDate reads a YYYY-MM-DD service date in the configured timezone.
func (c ServiceConfig) ParseDate(s string) (time.Time, error) {
	loc, err := c.Location()
	if err != nil {
		return time.Time{}, err
	}
	d, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("service date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}
