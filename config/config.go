/*
Package config loads server configuration from the environment.

All variables share the POINTS_ prefix:

  POINTS_PORT             HTTP listen port (default 8080)
  POINTS_DB_PATH          SQLite database path (default points.db)
  POINTS_CATALOG_PATH     Role/reward catalog TOML (default catalog.toml)
  POINTS_LOG_LEVEL        logrus level (default info)
  POINTS_REMINDER_CRON    Expiry reminder schedule (default "0 9 * * *")
  POINTS_REMINDER_DAYS    Reminder look-ahead window in days (default 7)
*/
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all server settings.
type Config struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	DBPath      string `envconfig:"DB_PATH" default:"points.db"`
	CatalogPath string `envconfig:"CATALOG_PATH" default:"catalog.toml"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	ReminderCron string `envconfig:"REMINDER_CRON" default:"0 9 * * *"`
	ReminderDays int    `envconfig:"REMINDER_DAYS" default:"7"`
}

// Load reads configuration from POINTS_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("points", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.ReminderDays < 1 {
		return nil, fmt.Errorf("POINTS_REMINDER_DAYS must be at least 1, got %d", cfg.ReminderDays)
	}
	return &cfg, nil
}

// ReminderWindow returns the look-ahead window as a duration.
func (c *Config) ReminderWindow() time.Duration {
	return time.Duration(c.ReminderDays) * 24 * time.Hour
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
