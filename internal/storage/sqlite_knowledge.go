package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/chis/kbcatalog/internal/logging"
)

// IncrementViewCount implements Storage.IncrementViewCount.
func (s *SQLiteStorage) IncrementViewCount(ctx context.Context, scriptID int64) error {
	return s.retryWithBackoff(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `UPDATE scripts SET view_count = view_count + 1 WHERE id = ?`, scriptID)
		if err != nil {
			logging.Error("Failed to increment view count for script %d: %v", scriptID, err)
			return fmt.Errorf("failed to increment view count: %w", err)
		}
		return nil
	})
}

// GetContributorsForScript implements Storage.GetContributorsForScript.
func (s *SQLiteStorage) GetContributorsForScript(ctx context.Context, scriptID int64) ([]Contributor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, script_id, name, role, contributed_at
		FROM contributors
		WHERE script_id = ?
		ORDER BY contributed_at DESC, id DESC
	`, scriptID)
	if err != nil {
		logging.Error("Failed to query contributors for script %d: %v", scriptID, err)
		return nil, fmt.Errorf("failed to query contributors: %w", err)
	}
	defer rows.Close()

	contributors := make([]Contributor, 0)
	for rows.Next() {
		var c Contributor
		if err := rows.Scan(&c.ID, &c.ScriptID, &c.Name, &c.Role, &c.ContributedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contributor: %w", err)
		}
		contributors = append(contributors, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contributor rows: %w", err)
	}

	return contributors, nil
}

// AddContributor implements Storage.AddContributor.
func (s *SQLiteStorage) AddContributor(ctx context.Context, scriptID int64, name, role string) (Contributor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Contributor{}, fmt.Errorf("contributor name is required")
	}
	if !ValidRole(role) {
		return Contributor{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	var contributor Contributor
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireScript(ctx, tx, scriptID); err != nil {
			return err
		}
		c, err := insertContributor(ctx, tx, scriptID, name, role, now())
		if err != nil {
			return err
		}
		contributor = c
		return nil
	})
	if err != nil {
		return Contributor{}, err
	}

	logging.Debug("Added contributor %s (%s) to script %d", name, role, scriptID)
	return contributor, nil
}

// TransitionKCSState implements Storage.TransitionKCSState.
func (s *SQLiteStorage) TransitionKCSState(ctx context.Context, scriptID int64, to, actor string) (Script, string, error) {
	if !ValidKCSState(to) {
		return Script{}, "", fmt.Errorf("%w: %q", ErrInvalidKCSState, to)
	}

	var (
		updated Script
		from    string
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT kcs_state FROM scripts WHERE id = ?`, scriptID).Scan(&from)
		if err == sql.ErrNoRows {
			return ErrScriptNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read KCS state: %w", err)
		}

		if !CanTransition(from, to) {
			return &TransitionError{From: from, To: to}
		}

		stamp := now()
		_, err = tx.ExecContext(ctx, `
			UPDATE scripts SET kcs_state = ?, last_reviewed = ?, updated_at = ? WHERE id = ?
		`, to, stamp, stamp, scriptID)
		if err != nil {
			return fmt.Errorf("failed to update KCS state: %w", err)
		}

		if actor = strings.TrimSpace(actor); actor != "" {
			if _, err := insertContributor(ctx, tx, scriptID, actor, transitionRole(to), stamp); err != nil {
				return err
			}
		}

		sc, _, err := getScript(ctx, tx, "s.id = ?", scriptID)
		if err != nil {
			return err
		}
		updated = sc
		return nil
	})
	if err != nil {
		return Script{}, "", err
	}

	logging.Info("Script %d moved %s -> %s", scriptID, from, to)
	return updated, from, nil
}

// UpdateKnowledge implements Storage.UpdateKnowledge.
func (s *SQLiteStorage) UpdateKnowledge(ctx context.Context, scriptID int64, update KnowledgeUpdate) error {
	if update.Confidence != nil && !ValidConfidence(*update.Confidence) {
		return fmt.Errorf("%w (got %d)", ErrInvalidConfidence, *update.Confidence)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE scripts SET
				environment = COALESCE(?, environment),
				resolution = COALESCE(?, resolution),
				cause = COALESCE(?, cause),
				confidence = COALESCE(?, confidence),
				updated_at = ?
			WHERE id = ?
		`, optString(update.Environment), optString(update.Resolution), optString(update.Cause),
			optInt(update.Confidence), now(), scriptID)
		if err != nil {
			return fmt.Errorf("failed to update knowledge fields: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrScriptNotFound
		}
		return syncSearchIndex(ctx, tx, scriptID)
	})
}

func insertContributor(ctx context.Context, q dbtx, scriptID int64, name, role string, at time.Time) (Contributor, error) {
	result, err := q.ExecContext(ctx, `
		INSERT INTO contributors (script_id, name, role, contributed_at)
		VALUES (?, ?, ?, ?)
	`, scriptID, name, role, at)
	if err != nil {
		return Contributor{}, fmt.Errorf("failed to insert contributor %s: %w", name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return Contributor{}, fmt.Errorf("failed to read contributor id: %w", err)
	}

	return Contributor{ID: id, ScriptID: scriptID, Name: name, Role: role, ContributedAt: at}, nil
}

func requireScript(ctx context.Context, q dbtx, scriptID int64) error {
	var exists int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM scripts WHERE id = ?`, scriptID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrScriptNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up script %d: %w", scriptID, err)
	}
	return nil
}

func optString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func optInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
