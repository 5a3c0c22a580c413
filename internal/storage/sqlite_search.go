package storage

import (
	"context"
	"fmt"

	"github.com/chis/kbcatalog/internal/logging"
)

// SearchScripts implements Storage.SearchScripts.
func (s *SQLiteStorage) SearchScripts(ctx context.Context, query string) ([]Script, error) {
	expr := BuildMatchExpression(query)
	if expr == "" {
		return []Script{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+scriptColumns+`
		FROM scripts_fts
		JOIN scripts s ON s.id = scripts_fts.rowid
		JOIN categories c ON c.id = s.category_id
		WHERE scripts_fts MATCH ?
		ORDER BY scripts_fts.rank, s.name
	`, expr)
	if err != nil {
		logging.Error("Search failed for %q: %v", query, err)
		return nil, fmt.Errorf("failed to search scripts: %w", err)
	}
	defer rows.Close()

	results, err := scanScriptRows(rows)
	if err != nil {
		return nil, err
	}

	logging.Debug("Search %q matched %d scripts", query, len(results))
	return results, nil
}
