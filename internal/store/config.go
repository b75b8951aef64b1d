package store

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls the SQLite connection pool behind the store.
type Config struct {
	Path string

	MaxOpenConns int
	MaxIdleConns int

	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	BusyTimeout     time.Duration
}

// Merge overlays non-zero fields from the override onto the base config.
func (c Config) Merge(override Config) Config {
	result := c
	if strings.TrimSpace(override.Path) != "" {
		result.Path = strings.TrimSpace(override.Path)
	}
	if override.MaxOpenConns > 0 {
		result.MaxOpenConns = override.MaxOpenConns
	}
	if override.MaxIdleConns > 0 {
		result.MaxIdleConns = override.MaxIdleConns
	}
	if override.ConnMaxLifetime > 0 {
		result.ConnMaxLifetime = override.ConnMaxLifetime
	}
	if override.ConnMaxIdleTime > 0 {
		result.ConnMaxIdleTime = override.ConnMaxIdleTime
	}
	if override.BusyTimeout > 0 {
		result.BusyTimeout = override.BusyTimeout
	}
	return result
}

// LoadConfig builds a Config from PERSONA_DB_* environment variables and
// fills in pool defaults.
func LoadConfig() Config {
	cfg := Config{}
	if path := strings.TrimSpace(os.Getenv("PERSONA_DB_PATH")); path != "" {
		cfg.Path = path
	}
	if v := strings.TrimSpace(os.Getenv("PERSONA_DB_MAX_OPEN_CONNS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.MaxOpenConns = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("PERSONA_DB_MAX_IDLE_CONNS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.MaxIdleConns = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("PERSONA_DB_CONN_MAX_LIFETIME")); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.ConnMaxLifetime = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("PERSONA_DB_CONN_MAX_IDLE_TIME")); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.ConnMaxIdleTime = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("PERSONA_DB_BUSY_TIMEOUT")); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.BusyTimeout = parsed
		}
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 8
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 15 * time.Minute
	}
	if c.ConnMaxIdleTime <= 0 {
		c.ConnMaxIdleTime = 5 * time.Minute
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = 5 * time.Second
	}
}
