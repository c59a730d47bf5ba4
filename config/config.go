package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/shuttlecast/core/factory"
	"github.com/kilianp07/shuttlecast/core/flights"
	"github.com/kilianp07/shuttlecast/core/metrics"
	"github.com/kilianp07/shuttlecast/core/walking"
	"github.com/kilianp07/shuttlecast/infra/ingest"
	"github.com/kilianp07/shuttlecast/infra/mqtt"
)

// EnvPrefix marks environment overrides: SHUTTLE_SERVICE__TIMEZONE sets
// service.timezone.
const EnvPrefix = "SHUTTLE_"

type Config struct {
	Service    ServiceConfig        `json:"service"`
	Input      flights.Schema       `json:"input"`
	Ingest     ingest.Options       `json:"ingest"`
	Regions    walking.RegionTable  `json:"regions"`
	Thresholds ThresholdsConfig     `json:"thresholds"`
	Features   FeaturesConfig       `json:"features"`
	Predictor  factory.ModuleConfig `json:"predictor"`
	Metrics    metrics.Config       `json:"metrics"`
	MQTT       mqtt.Config          `json:"mqtt"`
	Alerts     AlertsConfig         `json:"alerts"`
	ReportLog  ReportLogConfig      `json:"report_log"`
	Sentry     SentryConfig         `json:"sentry"`
	Server     ServerConfig         `json:"server"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.finish(); err != nil {
		// defaults are always valid
		panic(err)
	}
	return cfg
}

// Load reads a YAML or JSON file, applies SHUTTLE_ environment overrides,
// fills defaults and validates every section.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) finish() error {
	c.Service.SetDefaults()
	c.Regions.SetDefaults()
	c.ReportLog.SetDefaults()
	c.Server.SetDefaults()
	c.Sentry.SetDefaults()
	if c.Predictor.Type == "" {
		c.Predictor.Type = "mock"
	}

	loc, err := c.Service.Location()
	if err != nil {
		return err
	}
	c.Input.Location = loc
	c.Input.SetDefaults()

	if err := c.Input.Validate(); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if _, err := c.Service.Window.Window(); err != nil {
		return fmt.Errorf("service.window: %w", err)
	}
	if err := c.Regions.Validate(); err != nil {
		return fmt.Errorf("regions: %w", err)
	}
	if _, err := c.Thresholds.Table(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	if _, err := c.Features.Definitions(); err != nil {
		return fmt.Errorf("features: %w", err)
	}
	if err := c.ReportLog.Validate(); err != nil {
		return fmt.Errorf("report_log: %w", err)
	}
	if err := c.Sentry.Validate(); err != nil {
		return fmt.Errorf("sentry: %w", err)
	}
	return nil
}
