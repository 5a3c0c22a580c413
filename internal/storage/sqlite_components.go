package storage

import (
	"context"
	"fmt"

	"github.com/chis/kbcatalog/internal/logging"
)

// GetAllDockerComponents implements Storage.GetAllDockerComponents.
func (s *SQLiteStorage) GetAllDockerComponents(ctx context.Context) ([]DockerComponent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, port, description, location, details
		FROM docker_components
		ORDER BY name
	`)
	if err != nil {
		logging.Error("Failed to query docker components: %v", err)
		return nil, fmt.Errorf("failed to query docker components: %w", err)
	}
	defer rows.Close()

	components := make([]DockerComponent, 0)
	for rows.Next() {
		var d DockerComponent
		if err := rows.Scan(&d.ID, &d.Name, &d.Type, &d.Port, &d.Description, &d.Location, &d.Details); err != nil {
			return nil, fmt.Errorf("failed to scan docker component: %w", err)
		}
		components = append(components, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating docker component rows: %w", err)
	}

	return components, nil
}

// CreateDockerComponent implements Storage.CreateDockerComponent.
func (s *SQLiteStorage) CreateDockerComponent(ctx context.Context, component DockerComponent) (int64, error) {
	var id int64
	err := s.InTransaction(ctx, func(w Writer) error {
		var err error
		id, err = w.CreateDockerComponent(ctx, component)
		return err
	})
	return id, err
}

func insertDockerComponent(ctx context.Context, q dbtx, d DockerComponent) (int64, error) {
	result, err := q.ExecContext(ctx, `
		INSERT INTO docker_components (name, type, port, description, location, details)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.Name, d.Type, d.Port, d.Description, d.Location, d.Details)
	if err != nil {
		return 0, fmt.Errorf("failed to insert docker component %s: %w", d.Name, err)
	}
	return result.LastInsertId()
}
