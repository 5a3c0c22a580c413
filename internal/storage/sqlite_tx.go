package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// withTx runs fn inside a transaction, retrying the whole transaction on
// SQLITE_BUSY. The transaction is rolled back if fn returns an error.
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.retryWithBackoff(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

// InTransaction runs fn with a Writer bound to one transaction. Nothing fn
// writes is visible unless it returns nil.
func (s *SQLiteStorage) InTransaction(ctx context.Context, fn func(w Writer) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return fn(&txWriter{tx: tx})
	})
}

// txWriter implements Writer against an open transaction.
type txWriter struct {
	tx *sql.Tx
}

func (w *txWriter) CreateCategory(ctx context.Context, category Category) (int64, error) {
	return insertCategory(ctx, w.tx, category)
}

func (w *txWriter) CreateScript(ctx context.Context, input ScriptInput) (int64, error) {
	return insertScript(ctx, w.tx, input)
}

func (w *txWriter) CreateDockerComponent(ctx context.Context, component DockerComponent) (int64, error) {
	return insertDockerComponent(ctx, w.tx, component)
}
