// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath        = "stickfix.toml"
	DefaultStoreDriver       = "sqlite3"
	DefaultStoreDSN          = "file:stickfix.db"
	DefaultEvictionInterval  = 15 * time.Minute
	DefaultEvictionThreshold = time.Hour
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log       LogConfig       `toml:"log"`
	Store     StoreConfig     `toml:"store"`
	Ephemeral EphemeralConfig `toml:"ephemeral"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// StoreConfig addresses the persistent store: a driver name and a connection
// string (file-backed in production, ":memory:" in tests).
type StoreConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// EphemeralConfig controls the ephemeral store's background eviction task.
type EphemeralConfig struct {
	EvictionIntervalSeconds  int64 `toml:"eviction_interval_seconds"`
	EvictionThresholdSeconds int64 `toml:"eviction_threshold_seconds"`
}

// EvictionInterval returns the configured eviction interval, or the default
// when unset.
func (c EphemeralConfig) EvictionInterval() time.Duration {
	if c.EvictionIntervalSeconds <= 0 {
		return DefaultEvictionInterval
	}
	return time.Duration(c.EvictionIntervalSeconds) * time.Second
}

// EvictionThreshold returns the configured eviction threshold, or the
// default when unset.
func (c EphemeralConfig) EvictionThreshold() time.Duration {
	if c.EvictionThresholdSeconds <= 0 {
		return DefaultEvictionThreshold
	}
	return time.Duration(c.EvictionThresholdSeconds) * time.Second
}

// Load reads and parses the TOML config file at path and applies default
// values for missing fields. A missing file is not an error: Load returns
// the defaults.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Store: StoreConfig{
			Driver: DefaultStoreDriver,
			DSN:    DefaultStoreDSN,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
