package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	assert := assert.New(t)
	cfg, err := Load(writeConfig(t, "bot:\n  token: \"1:abc\"\n"))
	require.NoError(t, err)

	assert.Equal("1:abc", cfg.Bot.Token)
	assert.Equal(int64(-1), cfg.Bot.GroupID)
	assert.Equal("8443", cfg.Bot.Webhook.ListenPort)
	assert.Equal("muted", cfg.Sanction.MutedRole)
	assert.Equal(time.Hour, cfg.Sanction.DefaultDuration)
	assert.Equal(30*time.Second, cfg.Sanction.ResolveTimeout)
	assert.Equal("mysql", cfg.Database.Driver)
	assert.False(cfg.Database.Enabled)
	assert.False(cfg.Redis.Enabled)
	assert.Equal("sanction", cfg.Redis.Prefix)
	assert.Equal("/metrics", cfg.Metrics.Path)
	assert.Same(cfg, Get())
}

func TestLoadOverrides(t *testing.T) {
	assert := assert.New(t)
	cfg, err := Load(writeConfig(t, `
bot:
  token: "1:abc"
  group_id: -1001234
database:
  enabled: true
  driver: sqlite
  path: /tmp/s.db
redis:
  enabled: true
  url: redis://localhost:6379/2
sanction:
  muted_role: silenced
  default_duration: 15m
logger:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(int64(-1001234), cfg.Bot.GroupID)
	assert.Equal("sqlite", cfg.Database.Driver)
	assert.Equal("/tmp/s.db", cfg.Database.Path)
	assert.Equal("redis://localhost:6379/2", cfg.Redis.URL)
	assert.Equal("silenced", cfg.Sanction.MutedRole)
	assert.Equal(15*time.Minute, cfg.Sanction.DefaultDuration)
	assert.Equal("debug", cfg.Logger.Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "database:\n  driver: oracle\n"))
	assert.ErrorContains(t, err, "unsupported database driver")

	_, err = Load(writeConfig(t, "redis:\n  enabled: true\n"))
	assert.ErrorContains(t, err, "redis.url")

	_, err = Load(writeConfig(t, "sanction:\n  default_duration: 0s\n"))
	assert.ErrorContains(t, err, "default_duration")

	_, err = Load(writeConfig(t, "sanction:\n  muted_role: \"\"\n"))
	assert.ErrorContains(t, err, "muted_role")
}
