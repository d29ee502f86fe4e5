// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	DB        DBConfig        `mapstructure:"db"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles for the admin surface.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// DBConfig controls access to the relational store.
type DBConfig struct {
	Provider        string        `mapstructure:"provider"`
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// SchedulerConfig governs the periodic refresh trigger.
type SchedulerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	MisfireGrace time.Duration `mapstructure:"misfire_grace"`
	RunOnStart   bool          `mapstructure:"run_on_start"`
}

// SourcesConfig holds per-feed adapter settings.
type SourcesConfig struct {
	FDA  SourceConfig `mapstructure:"fda"`
	USDA SourceConfig `mapstructure:"usda"`
}

// SourceConfig configures one upstream recall feed.
type SourceConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url"`
	PageLimit      int    `mapstructure:"page_limit"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RECALLALERT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("db.provider", "memory")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.max_conn_lifetime", time.Hour)
	v.SetDefault("scheduler.interval", 6*time.Hour)
	v.SetDefault("scheduler.misfire_grace", 5*time.Minute)
	v.SetDefault("scheduler.run_on_start", true)
	v.SetDefault("sources.fda.enabled", true)
	v.SetDefault("sources.fda.base_url", "https://api.fda.gov/food/enforcement.json")
	v.SetDefault("sources.fda.page_limit", 100)
	v.SetDefault("sources.fda.timeout_seconds", 15)
	v.SetDefault("sources.usda.enabled", true)
	v.SetDefault("sources.usda.base_url", "https://www.fsis.usda.gov/fsis/api/recall/v/1")
	v.SetDefault("sources.usda.page_limit", 100)
	v.SetDefault("sources.usda.timeout_seconds", 15)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	switch c.DB.Provider {
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when db.provider is postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown db.provider %q", c.DB.Provider)
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be > 0")
	}
	if c.Scheduler.MisfireGrace < 0 {
		return fmt.Errorf("scheduler.misfire_grace must be >= 0")
	}
	if c.Sources.FDA.Enabled && c.Sources.FDA.BaseURL == "" {
		return fmt.Errorf("sources.fda.base_url must be set when the FDA source is enabled")
	}
	if c.Sources.USDA.Enabled && c.Sources.USDA.BaseURL == "" {
		return fmt.Errorf("sources.usda.base_url must be set when the USDA source is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// SourceTimeout converts a source's timeout setting into a duration.
func (s SourceConfig) SourceTimeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}
