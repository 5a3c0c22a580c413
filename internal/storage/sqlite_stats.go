package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chis/kbcatalog/internal/logging"
)

// GetStats implements Storage.GetStats. All counts come from one
// transaction, so a concurrent transition cannot split them.
func (s *SQLiteStorage) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		st, err := queryStats(ctx, tx)
		if err != nil {
			return err
		}
		stats = st
		return nil
	})
	if err != nil {
		logging.Error("Failed to query stats: %v", err)
		return Stats{}, err
	}
	return stats, nil
}

func queryStats(ctx context.Context, q dbtx) (Stats, error) {
	var stats Stats
	err := q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM scripts),
			(SELECT COUNT(*) FROM categories),
			(SELECT COUNT(*) FROM parameters),
			(SELECT COUNT(*) FROM docker_components),
			(SELECT COALESCE(SUM(view_count), 0) FROM scripts)
	`).Scan(
		&stats.ScriptCount, &stats.CategoryCount, &stats.ParameterCount,
		&stats.DockerComponentCount, &stats.TotalViews,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}

	stats.StateCounts = make(map[string]int, len(KCSStates))
	for _, state := range KCSStates {
		stats.StateCounts[state] = 0
	}

	rows, err := q.QueryContext(ctx, `SELECT kcs_state, COUNT(*) FROM scripts GROUP BY kcs_state`)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query state counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return Stats{}, fmt.Errorf("failed to scan state count: %w", err)
		}
		stats.StateCounts[state] = count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("error iterating state counts: %w", err)
	}

	stats.PublishedCount = stats.StateCounts[KCSStatePublished]
	return stats, nil
}
