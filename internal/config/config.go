// Package config loads runtime settings for the daybook client: defaults
// first, then an optional JSON file (-c/-config), then command-line flags,
// with later sources overriding earlier ones.
package config

import "time"

// Config holds runtime settings.
//
// RemoteDSN selects the remote authority backend: a Postgres DSN, or empty
// to run against the in-memory store (offline development).
type Config struct {
	LocalDBPath         string
	RemoteDSN           string
	SessionKey          string
	OnlineCheckInterval time.Duration

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.LocalDBPath = "daybook.db"
	c.RemoteDSN = ""
	c.SessionKey = "daybook-dev-key"
	c.OnlineCheckInterval = 3 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
