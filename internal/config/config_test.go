package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "sim"
log_level = "debug"

[simulation]
buildings = 12
tick_interval = "2s"
snapshot_every = 5

[grid]
cycle_minutes = 30
peak_level = "critical"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 12, cfg.Simulation.Buildings)
	assert.Equal(t, 2*time.Second, cfg.Simulation.TickInterval.Duration)
	assert.Equal(t, int64(5), cfg.Simulation.SnapshotEvery)
	assert.Equal(t, 30, cfg.Grid.CycleMinutes)
	assert.Equal(t, "critical", cfg.Grid.PeakLevel)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfig(t, `
[simulation]
buildings = 4
`)

	t.Setenv("COOL_SIMULATION_BUILDINGS", "16")
	t.Setenv("COOL_REDIS_ENABLED", "true")
	t.Setenv("COOL_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("COOL_SERVER_CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Simulation.Buildings)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown mode", func(c *Config) { c.Mode = "replay" }, "unknown mode"},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }, "unknown log_level"},
		{"zero buildings", func(c *Config) { c.Simulation.Buildings = 0 }, "buildings"},
		{"bad peak level", func(c *Config) { c.Grid.PeakLevel = "extreme" }, "peak_level"},
		{"bad server port", func(c *Config) { c.Server.Port = 70000 }, "port"},
		{
			"postgres enabled without host",
			func(c *Config) {
				c.Postgres.Enabled = true
				c.Postgres.Host = ""
			},
			"postgres: host",
		},
		{
			"archive mode without s3",
			func(c *Config) { c.Mode = "archive" },
			"archive mode requires",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
