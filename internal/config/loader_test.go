package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderReturnsDefaultsWhenFileMissing(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "nope.json"))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoaderReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "collabco.json")

	content := `{
		"server": {"host": "127.0.0.1", "port": 8088},
		"auth": {"secret": "0123456789abcdef", "token_ttl_minutes": 15},
		"session": {"notify_on_leave": true},
		"database": {"path": "` + filepath.Join(dir, "test.db") + `"},
		"data_dir": "` + dir + `"
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, "0123456789abcdef", cfg.Auth.Secret)
	assert.Equal(t, 15, cfg.Auth.TokenTTLMinutes)
	assert.True(t, cfg.Session.NotifyOnLeave)
	assert.Equal(t, filepath.Join(dir, "test.db"), cfg.Database.Path)
}

func TestLoaderSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collabco.json")
	loader := NewLoader(path)

	cfg := DefaultConfig()
	cfg.Server.Port = 4100
	cfg.Auth.Secret = "another-secret-value"
	require.NoError(t, loader.Save(cfg))

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 4100, loaded.Server.Port)
	assert.Equal(t, "another-secret-value", loaded.Auth.Secret)
}
