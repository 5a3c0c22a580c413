package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kbcatalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, Defaults(), *cfg)
	assert.Equal(t, "/data/kbcatalog.db", cfg.DBPath)
	assert.Equal(t, 3000, cfg.Port)
	assert.True(t, cfg.RateLimit)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.False(t, cfg.Remote())
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
db_path: /srv/catalog.db
port: 8088
rate_limit: false
log_level: debug
manifest_path: /srv/catalog.yaml
watch: true
watch_debounce: 2s
`)

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/catalog.db", cfg.DBPath)
	assert.Equal(t, 8088, cfg.Port)
	assert.False(t, cfg.RateLimit)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/srv/catalog.yaml", cfg.ManifestPath)
	assert.True(t, cfg.Watch)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce)
	// Untouched keys keep their defaults
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadDiscoversConfigInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kbcatalog.yaml"), []byte("port: 4100\n"), 0o644))
	t.Chdir(dir)

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, 4100, cfg.Port)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "port: 8088\ndb_path: /srv/catalog.db\n")
	t.Setenv("KBCATALOG_PORT", "9099")
	t.Setenv("KBCATALOG_WATCH_DEBOUNCE", "1s")
	t.Setenv("KBCATALOG_SERVER", "http://catalog.internal:3000")

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, 9099, cfg.Port)
	assert.Equal(t, "/srv/catalog.db", cfg.DBPath)
	assert.Equal(t, time.Second, cfg.WatchDebounce)
	assert.True(t, cfg.Remote())
}

func TestSetOverridesEnvironment(t *testing.T) {
	t.Setenv("KBCATALOG_DB_PATH", "/env/catalog.db")

	v := NewViper()
	v.Set(KeyDBPath, "/flag/catalog.db")

	cfg, err := Load(v, writeConfigFile(t, "port: 3000\n"))
	require.NoError(t, err)
	assert.Equal(t, "/flag/catalog.db", cfg.DBPath)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeConfigFile(t, "port: [unclosed\n")
	_, err := Load(NewViper(), path)
	require.Error(t, err)
}
