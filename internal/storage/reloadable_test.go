package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReloadableReplaceSwapsFile(t *testing.T) {
	dir := t.TempDir()
	live := filepath.Join(dir, "catalog.db")
	ctx := context.Background()

	initial, err := NewSQLiteStorage(live)
	require.NoError(t, err)
	seedFixture(t, initial)

	r := NewReloadable(initial, SQLiteOpener(live))
	t.Cleanup(func() { r.Close() })

	next := filepath.Join(dir, "catalog.db.next")
	built, err := NewSQLiteStorage(next)
	require.NoError(t, err)
	_, err = built.CreateCategory(ctx, Category{Slug: "only", Name: "Only"})
	require.NoError(t, err)
	require.NoError(t, built.Close())

	err = r.Replace(func() error {
		return os.Rename(next, live)
	})
	require.NoError(t, err)

	stats, err := r.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CategoryCount)
	assert.Zero(t, stats.ScriptCount)
}

func TestReloadableFailedSwapKeepsServing(t *testing.T) {
	live := filepath.Join(t.TempDir(), "catalog.db")

	initial, err := NewSQLiteStorage(live)
	require.NoError(t, err)
	f := seedFixture(t, initial)

	r := NewReloadable(initial, SQLiteOpener(live))
	t.Cleanup(func() { r.Close() })

	swapErr := errors.New("disk full")
	err = r.Replace(func() error { return swapErr })
	assert.ErrorIs(t, err, swapErr)

	sc, found, err := r.GetScriptByID(context.Background(), f.globalAdmin)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Set-GlobalAdmin", sc.Name)
}

func TestReloadableClosed(t *testing.T) {
	initial := newTestStorage(t)
	r := NewReloadable(initial, SQLiteOpener(initial.Path()))

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err := r.GetAllCategories(context.Background())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, r.IncrementViewCount(context.Background(), 1), ErrStoreUnavailable)
}

func TestReloadableReadersDuringReplace(t *testing.T) {
	live := filepath.Join(t.TempDir(), "catalog.db")

	initial, err := NewSQLiteStorage(live)
	require.NoError(t, err)
	f := seedFixture(t, initial)

	r := NewReloadable(initial, SQLiteOpener(live))
	t.Cleanup(func() { r.Close() })
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if _, _, err := r.GetScriptByID(ctx, f.offboard); err != nil {
					errs <- err
				}
			}
		}()
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Replace(func() error { return nil }))
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("reader failed during replace: %v", err)
	}
}
