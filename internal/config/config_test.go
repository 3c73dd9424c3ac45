package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Storage.Backend)
	require.Equal(t, "mnemo.db", cfg.Storage.SQLite.Path)
	require.Equal(t, "stdio", cfg.Transport.Mode)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MNEMO_SERVER_PORT", "9090")
	t.Setenv("MNEMO_DB_PATH", "/tmp/test.db")
	t.Setenv("MNEMO_LOG_LEVEL", "debug")
	t.Setenv("MNEMO_TRANSPORT_MODE", "http")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "/tmp/test.db", cfg.Storage.SQLite.Path)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "http", cfg.Transport.Mode)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 7070
storage:
  backend: sqlite
  sqlite:
    path: from-file.db
log:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("MNEMO_CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "from-file.db", cfg.Storage.SQLite.Path)
	require.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o644))
	t.Setenv("MNEMO_CONFIG_PATH", path)
	t.Setenv("MNEMO_SERVER_PORT", "6060")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 6060, cfg.Server.Port)
}

func TestLoadInvalidValues(t *testing.T) {
	t.Setenv("MNEMO_SERVER_PORT", "not-a-port")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadPostgresRequiresCredentials(t *testing.T) {
	t.Setenv("MNEMO_STORAGE_BACKEND", "postgres")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("MNEMO_POSTGRES_URL", "postgres://localhost/mnemo")
	t.Setenv("MNEMO_API_KEY", "key")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.Storage.Backend)
}

func TestLoadUnknownBackend(t *testing.T) {
	t.Setenv("MNEMO_STORAGE_BACKEND", "cassandra")
	_, err := Load()
	require.Error(t, err)
}
