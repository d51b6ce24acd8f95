package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "logs/app.json.log", cfg.Audit.File)
	assert.Equal(t, 10, cfg.Audit.MaxSizeMB)
	assert.Equal(t, 5, cfg.Audit.MaxBackups)
	assert.Equal(t, "***MASKED***", cfg.Audit.Mask)
	assert.Contains(t, cfg.Audit.SensitiveKeys, "refresh_token")
	require.Len(t, cfg.Auth.Operators, 1)
	assert.Equal(t, "admin", cfg.Auth.Operators[0].Username)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	yaml := []byte("server:\n  port: \"9090\"\naudit:\n  max_backups: 2\n  sensitive_keys: [\"pin\"]\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))
	t.Setenv("SUPPORTGATE_AUTH_JWT_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 2, cfg.Audit.MaxBackups)
	assert.Equal(t, []string{"pin"}, cfg.Audit.SensitiveKeys)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestLoadRejectsUnboundedRetention(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("audit:\n  max_backups: 0\n"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit.max_backups")

	t.Setenv("SUPPORTGATE_AUDIT_MAX_BACKUPS", "3")
	t.Setenv("SUPPORTGATE_AUDIT_MAX_SIZE_MB", "-1")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit.max_size_mb")
}
