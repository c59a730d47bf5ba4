package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// WindowConfig is the serialized form of a Window.
type WindowConfig struct {
	Start           string `json:"start" yaml:"start"`
	End             string `json:"end" yaml:"end"`
	IntervalMinutes int    `json:"interval_minutes" yaml:"interval_minutes"`
}

// SetDefaults fills unset fields from DefaultWindow.
func (c *WindowConfig) SetDefaults() {
	def := DefaultWindow()
	if c.Start == "" {
		c.Start = def.Start.String()
	}
	if c.End == "" {
		c.End = def.End.String()
	}
	if c.IntervalMinutes == 0 {
		c.IntervalMinutes = int(def.Interval / time.Minute)
	}
}

// Window converts and validates the configuration.
func (c WindowConfig) Window() (Window, error) {
	start, err := ParseTimeOfDay(c.Start)
	if err != nil {
		return Window{}, &ConfigurationError{Reason: err.Error()}
	}
	end, err := ParseTimeOfDay(c.End)
	if err != nil {
		return Window{}, &ConfigurationError{Reason: err.Error()}
	}
	w := Window{Start: start, End: end, Interval: time.Duration(c.IntervalMinutes) * time.Minute}
	return w, w.Validate()
}

// LoadWindow loads a WindowConfig from a JSON or YAML file.
func LoadWindow(path string) (WindowConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return WindowConfig{}, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	var cfg WindowConfig
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	default:
		return WindowConfig{}, fmt.Errorf("unsupported window format: %s", ext)
	}
	if err != nil {
		return WindowConfig{}, err
	}
	cfg.SetDefaults()
	return cfg, nil
}

// DecodeWindow reads a WindowConfig from r.
func DecodeWindow(r io.Reader, format string) (WindowConfig, error) {
	var cfg WindowConfig
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported format: %s", format)
	}
	cfg.SetDefaults()
	return cfg, nil
}
