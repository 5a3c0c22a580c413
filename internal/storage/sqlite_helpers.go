package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so write helpers can run
// inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scriptColumns selects a script joined with its category (aliases s and c).
const scriptColumns = `
	s.id, s.category_id, c.name, c.slug, s.name, s.file_path, s.subcategory,
	s.synopsis, s.description, s.supports_whatif, s.supports_export,
	s.kcs_state, s.environment, s.resolution, s.cause, s.confidence,
	s.view_count, s.last_reviewed, s.author, s.created_at, s.updated_at`

const scriptFrom = `FROM scripts s JOIN categories c ON c.id = s.category_id`

// scanScript scans one row selected with scriptColumns.
func scanScript(row rowScanner) (Script, error) {
	var sc Script
	var subcategory sql.NullString
	var lastReviewed sql.NullTime

	err := row.Scan(
		&sc.ID, &sc.CategoryID, &sc.CategoryName, &sc.CategorySlug, &sc.Name, &sc.FilePath, &subcategory,
		&sc.Synopsis, &sc.Description, &sc.SupportsWhatIf, &sc.SupportsExport,
		&sc.KCSState, &sc.Environment, &sc.Resolution, &sc.Cause, &sc.Confidence,
		&sc.ViewCount, &lastReviewed, &sc.Author, &sc.CreatedAt, &sc.UpdatedAt,
	)
	if err != nil {
		return Script{}, err
	}

	if subcategory.Valid {
		sc.Subcategory = subcategory.String
	}
	if lastReviewed.Valid {
		t := lastReviewed.Time
		sc.LastReviewed = &t
	}

	return sc, nil
}

// scanScriptRows scans every row into a non-nil slice.
func scanScriptRows(rows *sql.Rows) ([]Script, error) {
	scripts := make([]Script, 0)
	for rows.Next() {
		sc, err := scanScript(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan script: %w", err)
		}
		scripts = append(scripts, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating script rows: %w", err)
	}

	return scripts, nil
}

// scanCategoryRows scans category rows carrying a trailing script count.
func scanCategoryRows(rows *sql.Rows) ([]Category, error) {
	categories := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &c.Description, &c.SortOrder, &c.ScriptCount); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category rows: %w", err)
	}

	return categories, nil
}

// nullString maps "" to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullTime maps a nil pointer to NULL.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// now returns the current UTC time truncated to whole seconds so that
// stored timestamps sort lexically.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// syncSearchIndex rewrites the scripts_fts row for one script from its
// current scripts row. A deleted script leaves no index row behind.
func syncSearchIndex(ctx context.Context, q dbtx, scriptID int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM scripts_fts WHERE rowid = ?`, scriptID); err != nil {
		return fmt.Errorf("failed to remove search index row: %w", err)
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO scripts_fts (rowid, name, synopsis, description, subcategory, environment, resolution, cause)
		SELECT id, name, synopsis, description, COALESCE(subcategory, ''), environment, resolution, cause
		FROM scripts WHERE id = ?
	`, scriptID)
	if err != nil {
		return fmt.Errorf("failed to write search index row: %w", err)
	}

	return nil
}

// IndexReport describes how far scripts_fts has drifted from scripts.
type IndexReport struct {
	Scripts  int `json:"scripts"`
	Indexed  int `json:"indexed"`
	Missing  int `json:"missing"`
	Orphaned int `json:"orphaned"`
	Stale    int `json:"stale"`
}

// Consistent reports whether every script is indexed exactly once with
// its current content.
func (r IndexReport) Consistent() bool {
	return r.Missing == 0 && r.Orphaned == 0 && r.Stale == 0 && r.Scripts == r.Indexed
}

// VerifySearchIndex compares scripts_fts against the scripts table.
func (s *SQLiteStorage) VerifySearchIndex(ctx context.Context) (IndexReport, error) {
	var r IndexReport
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM scripts),
			(SELECT COUNT(*) FROM scripts_fts),
			(SELECT COUNT(*) FROM scripts s WHERE NOT EXISTS (SELECT 1 FROM scripts_fts f WHERE f.rowid = s.id)),
			(SELECT COUNT(*) FROM scripts_fts f WHERE NOT EXISTS (SELECT 1 FROM scripts s WHERE s.id = f.rowid)),
			(SELECT COUNT(*) FROM scripts s JOIN scripts_fts f ON f.rowid = s.id
				WHERE f.name != s.name OR f.synopsis != s.synopsis OR f.description != s.description
				   OR f.subcategory != COALESCE(s.subcategory, '') OR f.environment != s.environment
				   OR f.resolution != s.resolution OR f.cause != s.cause)
	`).Scan(&r.Scripts, &r.Indexed, &r.Missing, &r.Orphaned, &r.Stale)
	if err != nil {
		return IndexReport{}, fmt.Errorf("failed to verify search index: %w", err)
	}
	return r, nil
}
