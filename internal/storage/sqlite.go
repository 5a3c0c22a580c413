package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chis/kbcatalog/internal/logging"

	_ "modernc.org/sqlite" // SQLite driver with FTS5
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage opens the catalog store at dbPath.
// Initializes the database connection, enables WAL mode, and runs migrations.
// Returns nil and an error if initialization fails.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "/" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		logging.Error("Failed to open database at %s: %v", dbPath, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes writers; WAL keeps reads cheap.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		logging.Error("Failed to ping database: %v", err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	storage := &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}

	if err := storage.enableWALMode(); err != nil {
		db.Close()
		logging.Error("Failed to enable WAL mode: %v", err)
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := storage.InitializeSchema(); err != nil {
		db.Close()
		logging.Error("Failed to run migrations: %v", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logging.Debug("Database initialized at %s", dbPath)
	return storage, nil
}

// dsn builds the modernc connection string. Foreign keys are off by default
// in SQLite and are needed for the cascades.
func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// Path returns the file the store was opened from.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// enableWALMode enables Write-Ahead Logging mode for better concurrency.
func (s *SQLiteStorage) enableWALMode() error {
	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode=WAL").Scan(&mode); err != nil {
		return fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if mode != "wal" {
		return fmt.Errorf("WAL mode not enabled, got: %s", mode)
	}

	return nil
}

// InitializeSchema applies every embedded migration that has not been
// recorded in schema_migrations. Running it again is a no-op.
func (s *SQLiteStorage) InitializeSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	appliedCount := 0
	skippedCount := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filename := entry.Name()
		if !strings.HasSuffix(filename, ".up.sql") {
			continue
		}

		// "000001_catalog_schema.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
			logging.Warn("Skipping invalid migration filename: %s", filename)
			continue
		}

		var count int
		err = s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}

		if count > 0 {
			skippedCount++
			continue
		}

		migrationSQL, err := migrationsFS.ReadFile("migrations/" + filename)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %s: %w", filename, err)
		}

		if _, err := tx.Exec(string(migrationSQL)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", filename, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", filename, err)
		}

		logging.Debug("Applied migration: %s", filename)
		appliedCount++
	}

	if appliedCount > 0 {
		logging.Debug("Migrations complete: %d applied, %d skipped", appliedCount, skippedCount)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		logging.Debug("Closing database connection: %s", s.dbPath)
		return s.db.Close()
	}
	return nil
}

// Checkpoint folds the WAL back into the main database file so the file can
// be moved on its own.
func (s *SQLiteStorage) Checkpoint(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}
	return nil
}

// retryWithBackoff executes a function with exponential backoff for SQLITE_BUSY errors.
func (s *SQLiteStorage) retryWithBackoff(ctx context.Context, operation func() error) error {
	maxRetries := 5
	baseDelay := 10 * time.Millisecond

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = operation()
		if err == nil {
			return nil
		}

		if !isBusy(err) {
			return err
		}

		delay := baseDelay * time.Duration(1<<uint(attempt))
		if delay > 1*time.Second {
			delay = 1 * time.Second
		}

		logging.Warn("Database locked, retrying in %v (attempt %d/%d)", delay, attempt+1, maxRetries)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("database operation failed after %d retries: %w", maxRetries, err)
}
