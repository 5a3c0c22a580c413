package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/chis/kbcatalog/internal/logging"
)

// GetScriptByID implements Storage.GetScriptByID.
func (s *SQLiteStorage) GetScriptByID(ctx context.Context, id int64) (Script, bool, error) {
	return s.getScript(ctx, "s.id = ?", id)
}

// GetScriptByName implements Storage.GetScriptByName.
func (s *SQLiteStorage) GetScriptByName(ctx context.Context, name string) (Script, bool, error) {
	return s.getScript(ctx, "s.name = ?", name)
}

func (s *SQLiteStorage) getScript(ctx context.Context, where string, arg any) (Script, bool, error) {
	return getScript(ctx, s.db, where, arg)
}

func getScript(ctx context.Context, q dbtx, where string, arg any) (Script, bool, error) {
	row := q.QueryRowContext(ctx, `SELECT `+scriptColumns+` `+scriptFrom+` WHERE `+where, arg)

	sc, err := scanScript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Script{}, false, nil
	}
	if err != nil {
		logging.Error("Failed to query script (%v): %v", arg, err)
		return Script{}, false, fmt.Errorf("failed to query script: %w", err)
	}

	return sc, true, nil
}

// GetScriptsByCategory implements Storage.GetScriptsByCategory.
func (s *SQLiteStorage) GetScriptsByCategory(ctx context.Context, categoryID int64) ([]Script, error) {
	return s.queryScripts(ctx, `
		WHERE s.category_id = ?
		ORDER BY s.subcategory, s.name
	`, categoryID)
}

// GetAllScripts implements Storage.GetAllScripts.
func (s *SQLiteStorage) GetAllScripts(ctx context.Context) ([]Script, error) {
	return s.queryScripts(ctx, `ORDER BY c.sort_order, s.subcategory, s.name`)
}

// GetScriptsByKCSState implements Storage.GetScriptsByKCSState.
func (s *SQLiteStorage) GetScriptsByKCSState(ctx context.Context, state string) ([]Script, error) {
	if !ValidKCSState(state) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKCSState, state)
	}
	return s.queryScripts(ctx, `
		WHERE s.kcs_state = ?
		ORDER BY s.name
	`, state)
}

func (s *SQLiteStorage) queryScripts(ctx context.Context, tail string, args ...any) ([]Script, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+scriptColumns+` `+scriptFrom+` `+tail, args...)
	if err != nil {
		logging.Error("Failed to query scripts: %v", err)
		return nil, fmt.Errorf("failed to query scripts: %w", err)
	}
	defer rows.Close()

	return scanScriptRows(rows)
}

// GetParametersForScript implements Storage.GetParametersForScript.
func (s *SQLiteStorage) GetParametersForScript(ctx context.Context, scriptID int64) ([]Parameter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, script_id, name, description, is_required, default_value
		FROM parameters
		WHERE script_id = ?
		ORDER BY is_required DESC, name
	`, scriptID)
	if err != nil {
		logging.Error("Failed to query parameters for script %d: %v", scriptID, err)
		return nil, fmt.Errorf("failed to query parameters: %w", err)
	}
	defer rows.Close()

	params := make([]Parameter, 0)
	for rows.Next() {
		var p Parameter
		var defaultValue sql.NullString
		if err := rows.Scan(&p.ID, &p.ScriptID, &p.Name, &p.Description, &p.IsRequired, &defaultValue); err != nil {
			return nil, fmt.Errorf("failed to scan parameter: %w", err)
		}
		if defaultValue.Valid {
			v := defaultValue.String
			p.DefaultValue = &v
		}
		params = append(params, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating parameter rows: %w", err)
	}

	return params, nil
}

// GetTagsForScript implements Storage.GetTagsForScript.
func (s *SQLiteStorage) GetTagsForScript(ctx context.Context, scriptID int64) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name
		FROM tags t
		JOIN script_tags st ON st.tag_id = t.id
		WHERE st.script_id = ?
		ORDER BY t.name
	`, scriptID)
	if err != nil {
		logging.Error("Failed to query tags for script %d: %v", scriptID, err)
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	tags := make([]Tag, 0)
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag rows: %w", err)
	}

	return tags, nil
}

// CreateScript implements Storage.CreateScript.
func (s *SQLiteStorage) CreateScript(ctx context.Context, input ScriptInput) (int64, error) {
	var id int64
	err := s.InTransaction(ctx, func(w Writer) error {
		var err error
		id, err = w.CreateScript(ctx, input)
		return err
	})
	if err == nil {
		logging.Debug("Created script %s (id=%d)", input.Name, id)
	}
	return id, err
}

// UpdateScript implements Storage.UpdateScript.
func (s *SQLiteStorage) UpdateScript(ctx context.Context, scriptID int64, input ScriptInput) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return updateScript(ctx, tx, scriptID, input)
	})
}

// DeleteScript implements Storage.DeleteScript.
func (s *SQLiteStorage) DeleteScript(ctx context.Context, scriptID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM scripts WHERE id = ?`, scriptID)
		if err != nil {
			return fmt.Errorf("failed to delete script: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrScriptNotFound
		}
		return syncSearchIndex(ctx, tx, scriptID)
	})
}

// validateScriptInput normalizes and checks a script before it is written.
func validateScriptInput(input *ScriptInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return errors.New("script name is required")
	}
	if strings.TrimSpace(input.FilePath) == "" {
		return fmt.Errorf("script %s: file path is required", input.Name)
	}
	if input.KCSState == "" {
		input.KCSState = KCSStateDraft
	}
	if !ValidKCSState(input.KCSState) {
		return fmt.Errorf("script %s: %w: %q", input.Name, ErrInvalidKCSState, input.KCSState)
	}
	if !ValidConfidence(input.Confidence) {
		return fmt.Errorf("script %s: %w (got %d)", input.Name, ErrInvalidConfidence, input.Confidence)
	}
	for _, p := range input.Parameters {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("script %s: parameter name is required", input.Name)
		}
	}
	return nil
}

func insertScript(ctx context.Context, q dbtx, input ScriptInput) (int64, error) {
	if err := validateScriptInput(&input); err != nil {
		return 0, err
	}

	created := now()
	if input.LastReviewed != nil {
		created = input.LastReviewed.UTC()
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO scripts (
			category_id, name, file_path, subcategory, synopsis, description,
			supports_whatif, supports_export, kcs_state, environment, resolution, cause,
			confidence, view_count, last_reviewed, author, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?)
	`,
		input.CategoryID, input.Name, input.FilePath, nullString(input.Subcategory), input.Synopsis, input.Description,
		input.SupportsWhatIf, input.SupportsExport, input.KCSState, input.Environment, input.Resolution, input.Cause,
		input.Confidence, nullTime(input.LastReviewed), input.Author, created, created,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateScriptName, input.Name)
		}
		return 0, fmt.Errorf("failed to insert script %s: %w", input.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read script id: %w", err)
	}

	if err := writeParameters(ctx, q, id, input.Parameters); err != nil {
		return 0, fmt.Errorf("script %s: %w", input.Name, err)
	}
	if err := writeTags(ctx, q, id, input.Tags); err != nil {
		return 0, fmt.Errorf("script %s: %w", input.Name, err)
	}

	if input.Author != "" {
		if _, err := insertContributor(ctx, q, id, input.Author, RoleAuthor, created); err != nil {
			return 0, fmt.Errorf("script %s: %w", input.Name, err)
		}
	}

	if err := syncSearchIndex(ctx, q, id); err != nil {
		return 0, fmt.Errorf("script %s: %w", input.Name, err)
	}

	return id, nil
}

func updateScript(ctx context.Context, q dbtx, scriptID int64, input ScriptInput) error {
	if err := validateScriptInput(&input); err != nil {
		return err
	}

	result, err := q.ExecContext(ctx, `
		UPDATE scripts SET
			category_id = ?, name = ?, file_path = ?, subcategory = ?, synopsis = ?, description = ?,
			supports_whatif = ?, supports_export = ?, author = ?, updated_at = ?
		WHERE id = ?
	`,
		input.CategoryID, input.Name, input.FilePath, nullString(input.Subcategory), input.Synopsis, input.Description,
		input.SupportsWhatIf, input.SupportsExport, input.Author, now(), scriptID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateScriptName, input.Name)
		}
		return fmt.Errorf("failed to update script %d: %w", scriptID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrScriptNotFound
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM parameters WHERE script_id = ?`, scriptID); err != nil {
		return fmt.Errorf("failed to clear parameters: %w", err)
	}
	if err := writeParameters(ctx, q, scriptID, input.Parameters); err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM script_tags WHERE script_id = ?`, scriptID); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	if err := writeTags(ctx, q, scriptID, input.Tags); err != nil {
		return err
	}

	return syncSearchIndex(ctx, q, scriptID)
}

func writeParameters(ctx context.Context, q dbtx, scriptID int64, params []Parameter) error {
	for _, p := range params {
		var defaultValue sql.NullString
		if p.DefaultValue != nil {
			defaultValue = sql.NullString{String: *p.DefaultValue, Valid: true}
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO parameters (script_id, name, description, is_required, default_value)
			VALUES (?, ?, ?, ?, ?)
		`, scriptID, p.Name, p.Description, p.IsRequired, defaultValue)
		if err != nil {
			return fmt.Errorf("failed to insert parameter %s: %w", p.Name, err)
		}
	}
	return nil
}

// writeTags links tags to a script, creating any tag that does not exist yet.
func writeTags(ctx context.Context, q dbtx, scriptID int64, tags []string) error {
	for _, name := range tags {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		if _, err := q.ExecContext(ctx, `INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
			return fmt.Errorf("failed to insert tag %s: %w", name, err)
		}

		var tagID int64
		if err := q.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&tagID); err != nil {
			return fmt.Errorf("failed to look up tag %s: %w", name, err)
		}

		if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO script_tags (script_id, tag_id) VALUES (?, ?)`, scriptID, tagID); err != nil {
			return fmt.Errorf("failed to link tag %s: %w", name, err)
		}
	}
	return nil
}
