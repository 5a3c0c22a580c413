// Package seed builds catalog stores from a manifest and swaps them into
// place.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chis/kbcatalog/internal/logging"
	"github.com/chis/kbcatalog/internal/manifest"
	"github.com/chis/kbcatalog/internal/storage"
	"github.com/google/uuid"
)

// Result summarizes a completed seed.
type Result struct {
	Path             string        `json:"path"`
	Categories       int           `json:"categories"`
	Scripts          int           `json:"scripts"`
	Parameters       int           `json:"parameters"`
	DockerComponents int           `json:"docker_components"`
	Checksum         string        `json:"checksum"`
	Duration         time.Duration `json:"duration"`
}

// Rebuild replaces the store at dbPath with one freshly built from m.
// The new store is written to a temporary file first and renamed over
// dbPath only after it is complete, so a failed seed leaves the previous
// store untouched. Nothing must hold dbPath open; use Reload for a store
// that is being served.
func Rebuild(ctx context.Context, dbPath string, m *manifest.Manifest) (Result, error) {
	tmp, result, err := prepare(ctx, dbPath, m)
	if err != nil {
		return Result{}, err
	}

	if err := install(tmp, dbPath); err != nil {
		removeDatabase(tmp)
		return Result{}, err
	}

	logging.Info("Seeded %s: %d categories, %d scripts, %d docker components (%s)",
		dbPath, result.Categories, result.Scripts, result.DockerComponents, result.Duration.Round(time.Millisecond))
	return result, nil
}

// Reload rebuilds the store behind r. Readers keep using the old store while
// the new file is built and block only while the files are swapped.
func Reload(ctx context.Context, r *storage.Reloadable, dbPath string, m *manifest.Manifest) (Result, error) {
	tmp, result, err := prepare(ctx, dbPath, m)
	if err != nil {
		return Result{}, err
	}

	err = r.Replace(func() error {
		return install(tmp, dbPath)
	})
	if err != nil {
		removeDatabase(tmp)
		return Result{}, fmt.Errorf("failed to swap catalog store: %w", err)
	}

	logging.Info("Reloaded %s: %d scripts (checksum %.12s)", dbPath, result.Scripts, result.Checksum)
	return result, nil
}

// prepare validates m and builds it into a sibling temp file of dbPath.
func prepare(ctx context.Context, dbPath string, m *manifest.Manifest) (string, Result, error) {
	if err := m.Validate(); err != nil {
		return "", Result{}, err
	}

	checksum, err := m.Checksum()
	if err != nil {
		return "", Result{}, err
	}

	tmp := fmt.Sprintf("%s.%s.building", dbPath, uuid.NewString())
	start := time.Now()

	result, err := build(ctx, tmp, m)
	if err != nil {
		removeDatabase(tmp)
		return "", Result{}, err
	}

	result.Path = dbPath
	result.Checksum = checksum
	result.Duration = time.Since(start)
	return tmp, result, nil
}

// build writes every manifest row into a new store at path inside a single
// transaction: categories, then scripts, then docker components.
func build(ctx context.Context, path string, m *manifest.Manifest) (Result, error) {
	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create store: %w", err)
	}

	var result Result
	err = store.InTransaction(ctx, func(w storage.Writer) error {
		result = Result{}
		categoryIDs := make(map[string]int64, len(m.Categories))

		for _, c := range m.Categories {
			id, err := w.CreateCategory(ctx, c.StorageCategory())
			if err != nil {
				return err
			}
			categoryIDs[c.Slug] = id
			result.Categories++
		}

		for _, s := range m.Scripts {
			input, err := m.ScriptInput(s, categoryIDs)
			if err != nil {
				return err
			}
			if _, err := w.CreateScript(ctx, input); err != nil {
				return err
			}
			result.Scripts++
			result.Parameters += len(input.Parameters)
		}

		for _, d := range m.DockerComponents {
			if _, err := w.CreateDockerComponent(ctx, d.StorageComponent()); err != nil {
				return err
			}
			result.DockerComponents++
		}
		return nil
	})
	if err != nil {
		store.Close()
		return Result{}, fmt.Errorf("failed to seed catalog: %w", err)
	}

	if err := store.Checkpoint(ctx); err != nil {
		store.Close()
		return Result{}, err
	}
	if err := store.Close(); err != nil {
		return Result{}, fmt.Errorf("failed to close seeded store: %w", err)
	}
	return result, nil
}

// install moves a built store over dbPath, discarding the old store's
// write-ahead log.
func install(tmp, dbPath string) error {
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := removeIfExists(dbPath + suffix); err != nil {
			return err
		}
		if err := removeIfExists(tmp + suffix); err != nil {
			return err
		}
	}
	if err := os.Rename(tmp, dbPath); err != nil {
		return fmt.Errorf("failed to install seeded store: %w", err)
	}
	return nil
}

func removeDatabase(path string) {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := removeIfExists(p); err != nil {
			logging.Warn("Failed to remove %s: %v", p, err)
		}
	}
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
