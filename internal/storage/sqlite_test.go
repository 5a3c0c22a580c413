package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseInitialization(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	storage, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer storage.Close()

	assert.NotNil(t, storage.db)
	assert.Equal(t, dbPath, storage.Path())

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")
}

func TestMigrationsCreateCatalogTables(t *testing.T) {
	storage := newTestStorage(t)

	for _, table := range []string{"categories", "scripts", "parameters", "tags", "script_tags", "contributors", "docker_components", "scripts_fts"} {
		var count int
		err := storage.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name = ?", table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s", table)
	}
}

func TestInitializeSchemaIsIdempotent(t *testing.T) {
	storage := newTestStorage(t)

	require.NoError(t, storage.InitializeSchema())
	require.NoError(t, storage.InitializeSchema())

	var applied int
	require.NoError(t, storage.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 1, applied)

	var fts int
	require.NoError(t, storage.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name = 'scripts_fts'").Scan(&fts))
	assert.Equal(t, 1, fts)
}

func TestReopenExistingStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	first, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	f := seedFixture(t, first)
	require.NoError(t, first.Close())

	second, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer second.Close()

	sc, found, err := second.GetScriptByID(context.Background(), f.globalAdmin)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Set-GlobalAdmin", sc.Name)
}

func TestUnavailableDirectory(t *testing.T) {
	storage, err := NewSQLiteStorage("/nonexistent/readonly/path/test.db")
	assert.Nil(t, storage)
	assert.Error(t, err)
}

func TestWALModeEnabled(t *testing.T) {
	storage := newTestStorage(t)

	var journalMode string
	require.NoError(t, storage.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)
}

func TestForeignKeysEnabled(t *testing.T) {
	storage := newTestStorage(t)

	var enabled int
	require.NoError(t, storage.db.QueryRow("PRAGMA foreign_keys").Scan(&enabled))
	assert.Equal(t, 1, enabled)
}

func TestDatabaseClose(t *testing.T) {
	storage, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	require.NoError(t, storage.Close())
	assert.Error(t, storage.db.Ping())

	_, err = storage.GetAllCategories(context.Background())
	assert.Error(t, err, "closed store must fail loudly")
}

func TestContextCancellation(t *testing.T) {
	storage := newTestStorage(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := storage.GetAllScripts(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConnectionPoolConfiguration(t *testing.T) {
	storage := newTestStorage(t)
	assert.Equal(t, 1, storage.db.Stats().MaxOpenConnections)
}

func TestCheckpoint(t *testing.T) {
	storage := newTestStorage(t)
	seedFixture(t, storage)
	assert.NoError(t, storage.Checkpoint(context.Background()))
}
