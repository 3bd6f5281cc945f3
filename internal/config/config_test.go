package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":50051", cfg.Server.GRPCAddr)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, LockModePerUser, cfg.Ledger.LockMode)
	assert.Equal(t, 256, cfg.Ledger.LockStripes)
	assert.Zero(t, cfg.Ledger.LockTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Log.Console())
	assert.Equal(t, "@every 1m", cfg.Stats.Schedule)
	assert.True(t, cfg.Stats.Enabled())
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, `
server:
  grpc_addr: ":6000"
  shutdown_timeout: 3s
ledger:
  lock_mode: striped
  lock_stripes: 16
  lock_timeout: 250ms
log:
  level: debug
  format: json
stats:
  schedule: "off"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.Server.GRPCAddr)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, LockModeStriped, cfg.Ledger.LockMode)
	assert.Equal(t, 16, cfg.Ledger.LockStripes)
	assert.Equal(t, 250*time.Millisecond, cfg.Ledger.LockTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Log.Console())
	assert.False(t, cfg.Stats.Enabled())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, `
ledger:
  lock_mode: per_user
  lock_timeout: 1s
`)
	t.Setenv("POINT_LEDGER_LOCK_MODE", "striped")
	t.Setenv("POINT_LEDGER_LOCK_TIMEOUT", "5s")
	t.Setenv("POINT_SERVER_HTTP_ADDR", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, LockModeStriped, cfg.Ledger.LockMode)
	assert.Equal(t, 5*time.Second, cfg.Ledger.LockTimeout)
	assert.Equal(t, ":9090", cfg.Server.HTTPAddr)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "server: ["))
		assert.Error(t, err)
	})

	t.Run("bad env value", func(t *testing.T) {
		t.Setenv("POINT_LEDGER_LOCK_STRIPES", "many")
		_, err := Load("")
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown lock mode", func(c *Config) { c.Ledger.LockMode = "global" }, false},
		{"negative stripes", func(c *Config) { c.Ledger.LockStripes = -1 }, false},
		{"negative lock timeout", func(c *Config) { c.Ledger.LockTimeout = -time.Second }, false},
		{"negative shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = -time.Second }, false},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, false},
		{"same listen address", func(c *Config) { c.Server.HTTPAddr = c.Server.GRPCAddr }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
