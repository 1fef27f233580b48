package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 9872, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "standup_tracker", cfg.Database.Name)
	assert.Equal(t, 7*24, cfg.Auth.TokenTTLHours)
	assert.Equal(t, ":9872", cfg.Addr())
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8088
log:
  level: debug
database:
  name: standup_test
`), 0o644))

	cfg := Load(path)
	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "standup_test", cfg.Database.Name)
	// Untouched keys keep their defaults.
	assert.Equal(t, 3306, cfg.Database.Port)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8088\n"), 0o644))

	t.Setenv("PORT", "9000")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("JWT_SECRET", "override-secret")

	cfg := Load(path)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "override-secret", cfg.Auth.JWTSecret)
}

func TestEnvOverrideIgnoresBadInt(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	cfg := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 9872, cfg.Server.Port)
}
