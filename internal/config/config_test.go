package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.DB.Provider)
	assert.Equal(t, 6*time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.MisfireGrace)
	assert.True(t, cfg.Scheduler.RunOnStart)
	assert.True(t, cfg.Sources.FDA.Enabled)
	assert.Equal(t, "https://api.fda.gov/food/enforcement.json", cfg.Sources.FDA.BaseURL)
	assert.Equal(t, 100, cfg.Sources.FDA.PageLimit)
	assert.Equal(t, 15*time.Second, cfg.Sources.FDA.SourceTimeout())
	assert.True(t, cfg.Sources.USDA.Enabled)
	assert.False(t, cfg.Auth.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
db:
  provider: postgres
  dsn: postgres://localhost:5432/recalls
scheduler:
  interval: 2h
  run_on_start: false
sources:
  usda:
    enabled: false
auth:
  enabled: true
  api_key: secret
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.DB.Provider)
	assert.Equal(t, 2*time.Hour, cfg.Scheduler.Interval)
	assert.False(t, cfg.Scheduler.RunOnStart)
	assert.False(t, cfg.Sources.USDA.Enabled)
	assert.True(t, cfg.Sources.FDA.Enabled, "unset sections keep defaults")
	assert.Equal(t, "secret", cfg.Auth.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }},
		{name: "unknown provider", mutate: func(c *Config) { c.DB.Provider = "sqlite" }},
		{name: "postgres without dsn", mutate: func(c *Config) { c.DB.Provider = "postgres"; c.DB.DSN = "" }},
		{name: "zero interval", mutate: func(c *Config) { c.Scheduler.Interval = 0 }},
		{name: "negative grace", mutate: func(c *Config) { c.Scheduler.MisfireGrace = -time.Minute }},
		{name: "fda enabled without url", mutate: func(c *Config) { c.Sources.FDA.BaseURL = "" }},
		{name: "usda enabled without url", mutate: func(c *Config) { c.Sources.USDA.BaseURL = "" }},
		{name: "auth enabled without key", mutate: func(c *Config) { c.Auth.Enabled = true; c.Auth.APIKey = "" }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("RECALLALERT_SERVER_PORT", "7070")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}
