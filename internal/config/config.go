// Package config loads engine settings from defaults, an optional YAML
// file, LMSENGINE_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/arong/lmsengine/internal/status"
	"github.com/arong/lmsengine/internal/store"
)

// EnvPrefix prefixes every environment override, e.g. LMSENGINE_LOG_LEVEL.
const EnvPrefix = "LMSENGINE"

type Config struct {
	DB       string       `mapstructure:"db"`
	Catalog  string       `mapstructure:"catalog"`
	Timezone string       `mapstructure:"timezone"`
	Workers  int          `mapstructure:"workers"`
	Log      LogConfig    `mapstructure:"log"`
	Status   StatusConfig `mapstructure:"status"`

	location *time.Location
}

type LogConfig struct {
	Mode       string `mapstructure:"mode"` // development | production
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"` // empty = stderr only
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type StatusConfig struct {
	InactiveDays int `mapstructure:"inactive_days"`
	DueSoonDays  int `mapstructure:"due_soon_days"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db", "")
	v.SetDefault("catalog", "catalog.yaml")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("workers", 4)

	v.SetDefault("log.mode", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("status.inactive_days", 14)
	v.SetDefault("status.due_soon_days", status.DefaultDueSoonDays)
}

// Load reads configuration into a Config. file may be empty, in which case
// lmsengine.yaml is looked up in the working directory and the XDG config
// dir, and its absence is not an error. Flags must already be bound to v.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("lmsengine")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "lmsengine"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.DB == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
		cfg.DB = p
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	c.location = loc

	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be >= 1, got %d", c.Workers)
	}
	if c.Log.Mode != "development" && c.Log.Mode != "production" {
		return fmt.Errorf("config: log.mode must be development or production, got %q", c.Log.Mode)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	if c.Status.InactiveDays != 14 && c.Status.InactiveDays != 30 {
		return fmt.Errorf("config: status.inactive_days must be 14 or 30, got %d", c.Status.InactiveDays)
	}
	if c.Status.DueSoonDays < 0 {
		return fmt.Errorf("config: status.due_soon_days must be >= 0, got %d", c.Status.DueSoonDays)
	}
	return nil
}

// Location returns the configured time zone.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// StatusConfig converts the status settings for the deriver.
func (c *Config) StatusConfig() status.Config {
	return status.Config{
		Inactivity:  status.ParseThreshold(c.Status.InactiveDays),
		DueSoonDays: c.Status.DueSoonDays,
	}
}
