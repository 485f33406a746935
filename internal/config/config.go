// Package config handles runtime configuration for the dashboard storage
// layer, layering defaults, an optional JSON file, environment variables and
// command-line flags (later sources win).
package config

import "time"

// Config holds runtime settings for the storage layer.
//
// Fields:
//   - StorageRoot: base directory for all persisted user data.
//   - ForceLocal: disables the remote backend regardless of credentials.
//   - RemoteURL / RemoteKey: remote backend endpoint and API key; remote mode
//     is considered only when both are present.
//   - DefaultGoal: goal value used to seed new preference documents.
//   - ProbeTimeout: upper bound for the startup connectivity probe.
type Config struct {
	StorageRoot  string
	ForceLocal   bool
	RemoteURL    string
	RemoteKey    string
	DefaultGoal  float64
	ProbeTimeout time.Duration
}

// RemoteConfigured reports whether both remote endpoint and key are set.
func (c *Config) RemoteConfigured() bool {
	return c.RemoteURL != "" && c.RemoteKey != ""
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.StorageRoot = "data"
	c.ForceLocal = false
	c.DefaultGoal = 4.0
	c.ProbeTimeout = 5 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), environment variables and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
