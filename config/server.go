package config

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string `json:"addr"`
	MaxUploadMB int    `json:"max_upload_mb"`
	// Metrics exposes /metrics when true.
	Metrics bool `json:"metrics"`
}

// SetDefaults applies sane defaults.
func (c *ServerConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = 32
	}
}

// AlertsConfig enables publication of saturation alerts over MQTT.
type AlertsConfig struct {
	Enabled bool `json:"enabled"`
}
