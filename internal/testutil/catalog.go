// Package testutil provides shared testing utilities for the kbcatalog test suite.
// It seeds throwaway catalogs from the embedded manifest and fakes the Docker daemon.
package testutil

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/chis/kbcatalog/internal/manifest"
	"github.com/chis/kbcatalog/internal/seed"
	"github.com/chis/kbcatalog/internal/storage"
)

// Common test errors for use in fakes
var (
	ErrMockUnavailable = errors.New("service unavailable")
	ErrMockTimeout     = errors.New("operation timed out")
)

// SeededPath rebuilds the embedded catalog into a temp directory and
// returns the database path.
func SeededPath(t testing.TB) string {
	t.Helper()
	m, err := manifest.Default()
	if err != nil {
		t.Fatalf("embedded catalog: %v", err)
	}
	return SeededPathFrom(t, m)
}

// SeededPathFrom rebuilds the catalog described by m into a temp directory.
func SeededPathFrom(t testing.TB, m *manifest.Manifest) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kbcatalog.db")
	if _, err := seed.Rebuild(context.Background(), path, m); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	return path
}

// SeededStore opens a freshly seeded copy of the embedded catalog.
// The store is closed when the test ends.
func SeededStore(t testing.TB) *storage.SQLiteStorage {
	t.Helper()
	s, err := storage.NewSQLiteStorage(SeededPath(t))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// MustScript looks a script up by name and fails the test if it is missing.
func MustScript(t testing.TB, s storage.Storage, name string) storage.Script {
	t.Helper()
	script, found, err := s.GetScriptByName(context.Background(), name)
	if err != nil {
		t.Fatalf("lookup %s: %v", name, err)
	}
	if !found {
		t.Fatalf("script %s not in catalog", name)
	}
	return script
}
