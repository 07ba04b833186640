// Package config loads and saves the core's global settings: display
// preferences, API keys for the remote catalogs, and page-size/schedule
// tuning: viper layered over a mapstructure-tagged struct.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/jellywatch/core/internal/paths"
)

// CatalogKeysConfig holds the opaque credentials for the two remote
// catalogs plus any cross-reference provider. Values are Secret so they
// redact on display; callers needing the real key must call Reveal.
type CatalogKeysConfig struct {
	CatalogA Secret `mapstructure:"catalog_a_key"`
	CatalogB Secret `mapstructure:"catalog_b_key"`
}

// LoggingConfig mirrors internal/logging.Config so the top-level config can
// carry it without importing logging (avoids an import cycle with callers
// that construct the logger before loading config).
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Config is the top-level settings document persisted at config.(json|yaml)
// under the configuration directory.
type Config struct {
	Theme                string            `mapstructure:"theme"`
	DashboardPageSize    int               `mapstructure:"dashboard_page_size"`
	SchedulePageSize     int               `mapstructure:"schedule_page_size"`
	ScheduleDurationDays int               `mapstructure:"schedule_duration_days"`
	ReadOnly             bool              `mapstructure:"read_only"`
	CatalogKeys          CatalogKeysConfig `mapstructure:"catalog_keys"`
	Logging              LoggingConfig     `mapstructure:"logging"`
}

// DefaultConfig returns the configuration used when no file exists yet.
func DefaultConfig() *Config {
	return &Config{
		Theme:                "dark",
		DashboardPageSize:    20,
		SchedulePageSize:     7,
		ScheduleDurationDays: 14,
		ReadOnly:             false,
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
	}
}

// Load reads config.(json|yaml) from the configuration directory, falling
// back to DefaultConfig when no file exists. Unlike entity persistence
// (internal/persist), the config file is singular and small enough that a
// plain viper unmarshal is idiomatic here.
func Load() (*Config, error) {
	dir, err := paths.ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("unable to resolve config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(dir)

	cfg := DefaultConfig()
	v.SetDefault("theme", cfg.Theme)
	v.SetDefault("dashboard_page_size", cfg.DashboardPageSize)
	v.SetDefault("schedule_page_size", cfg.SchedulePageSize)
	v.SetDefault("schedule_duration_days", cfg.ScheduleDurationDays)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
		return cfg, nil
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Save persists the config as pretty JSON under the configuration
// directory. JSON (rather than the YAML also accepted on read) is the
// canonical form this core writes, the same "accept either, emit one"
// discipline internal/persist applies to entity families.
func (c *Config) Save() error {
	dir, err := paths.ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("unable to create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("json")
	v.Set("theme", c.Theme)
	v.Set("dashboard_page_size", c.DashboardPageSize)
	v.Set("schedule_page_size", c.SchedulePageSize)
	v.Set("schedule_duration_days", c.ScheduleDurationDays)
	v.Set("read_only", c.ReadOnly)
	v.Set("catalog_keys.catalog_a_key", c.CatalogKeys.CatalogA.Reveal())
	v.Set("catalog_keys.catalog_b_key", c.CatalogKeys.CatalogB.Reveal())
	v.Set("logging", c.Logging)

	return v.WriteConfigAs(filepath.Join(dir, "config.json"))
}

// ScheduleDuration returns ScheduleDurationDays as a time.Duration, used by
// the pending engine's schedule-window computation.
func (c *Config) ScheduleDuration() time.Duration {
	return time.Duration(c.ScheduleDurationDays) * 24 * time.Hour
}
