package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope", "config.json"))
	require.NoError(t, err)

	assert.Equal(t, "~/.truefriend", cfg.Data.Dir)
	assert.True(t, cfg.Channels.Telegram.Enabled)
	assert.True(t, cfg.Channels.WhatsApp.Enabled)
	assert.False(t, cfg.Engage.Enabled)
	assert.Equal(t, "0 * * * *", cfg.Engage.Cron)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.Data.Dir = "/var/lib/truefriend"
	cfg.Channels.Telegram.Token = "tok123"
	cfg.Engage.Enabled = true
	cfg.Engage.InactiveHours = 72

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/truefriend", loaded.Data.Dir)
	assert.Equal(t, "tok123", loaded.Channels.Telegram.Token)
	assert.True(t, loaded.Engage.Enabled)
	assert.Equal(t, 72, loaded.Engage.InactiveHours)
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, SaveConfig(path, DefaultConfig()))

	t.Setenv("TRUEFRIEND_TELEGRAM_TOKEN", "env-token")
	t.Setenv("TRUEFRIEND_DATA_DIR", "/data")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Channels.Telegram.Token)
	assert.Equal(t, "/data", cfg.Data.Dir)
	assert.Equal(t, filepath.Join("/data", "truefriend.db"), cfg.Data.DBPath())
}

func TestLoadConfigRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home+"/sub", expandHome("~/sub"))
	assert.Equal(t, home, expandHome("~"))
	assert.Equal(t, "/abs/path", expandHome("/abs/path"))
	assert.Equal(t, "", expandHome(""))
}
