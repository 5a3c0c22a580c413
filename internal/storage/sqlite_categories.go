package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chis/kbcatalog/internal/logging"
)

const categoryColumns = `
	SELECT c.id, c.slug, c.name, c.description, c.sort_order, COUNT(s.id)
	FROM categories c
	LEFT JOIN scripts s ON s.category_id = c.id`

// GetAllCategories implements Storage.GetAllCategories.
func (s *SQLiteStorage) GetAllCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, categoryColumns+`
		GROUP BY c.id
		ORDER BY c.sort_order, c.id
	`)
	if err != nil {
		logging.Error("Failed to query categories: %v", err)
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	return scanCategoryRows(rows)
}

// GetCategoryBySlug implements Storage.GetCategoryBySlug.
func (s *SQLiteStorage) GetCategoryBySlug(ctx context.Context, slug string) (Category, bool, error) {
	var c Category
	err := s.db.QueryRowContext(ctx, categoryColumns+`
		WHERE c.slug = ?
		GROUP BY c.id
	`, slug).Scan(&c.ID, &c.Slug, &c.Name, &c.Description, &c.SortOrder, &c.ScriptCount)

	if errors.Is(err, sql.ErrNoRows) {
		return Category{}, false, nil
	}
	if err != nil {
		logging.Error("Failed to query category %s: %v", slug, err)
		return Category{}, false, fmt.Errorf("failed to query category: %w", err)
	}

	return c, true, nil
}

// CreateCategory implements Storage.CreateCategory.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, category Category) (int64, error) {
	var id int64
	err := s.InTransaction(ctx, func(w Writer) error {
		var err error
		id, err = w.CreateCategory(ctx, category)
		return err
	})
	return id, err
}

func insertCategory(ctx context.Context, q dbtx, category Category) (int64, error) {
	result, err := q.ExecContext(ctx, `
		INSERT INTO categories (slug, name, description, sort_order)
		VALUES (?, ?, ?, ?)
	`, category.Slug, category.Name, category.Description, category.SortOrder)
	if err != nil {
		return 0, fmt.Errorf("failed to insert category %s: %w", category.Slug, err)
	}
	return result.LastInsertId()
}
