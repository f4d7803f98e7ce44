package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeTOML(t, `
mode = "migrate"
log_level = "debug"

[server]
port = 9100

[market]
default_fee_rate_bps = 250
min_duration = "2h"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "migrate", cfg.Mode)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, uint64(250), cfg.Market.DefaultFeeRateBps)
	assert.Equal(t, 2*time.Hour, cfg.Market.MinDuration.Duration)
	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, uint64(10), cfg.Market.DefaultMinBet)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeTOML(t, `[server]
port = 9100
`)

	t.Setenv("ZENTRO_SERVER_PORT", "9200")
	t.Setenv("ZENTRO_AUTH_API_KEY", "env-key")
	t.Setenv("ZENTRO_NOTIFY_EVENTS", "market_resolved, winnings_claimed")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, "env-key", cfg.Auth.APIKey)
	assert.Equal(t, []string{"market_resolved", "winnings_claimed"}, cfg.Notify.Events)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "orbit"
	cfg.Server.Port = 0
	cfg.Market.DefaultFeeRateBps = 20_000

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "port must be 1-65535")
	assert.Contains(t, err.Error(), "default_fee_rate_bps")
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Auth.APIKey = "topsecret"
	cfg.Postgres.Password = "hunter2"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Auth.APIKey)
	assert.Equal(t, "***", red.Postgres.Password)
	// Original untouched.
	assert.Equal(t, "topsecret", cfg.Auth.APIKey)
}
