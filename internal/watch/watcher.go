// Package watch reloads the served catalog when its manifest file changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/chis/kbcatalog/internal/events"
	"github.com/chis/kbcatalog/internal/logging"
	"github.com/chis/kbcatalog/internal/manifest"
	"github.com/chis/kbcatalog/internal/seed"
	"github.com/chis/kbcatalog/internal/storage"
)

// DefaultDebounce coalesces the burst of events an editor save produces
const DefaultDebounce = 500 * time.Millisecond

// Config wires a Watcher to the manifest it follows and the store it rebuilds.
type Config struct {
	ManifestPath string
	DBPath       string
	Store        *storage.Reloadable
	EventBus     *events.Bus // optional
	Debounce     time.Duration
	// Checksum of the manifest the store was seeded from. Changes that
	// produce the same checksum are ignored.
	Checksum string
}

// Watcher rebuilds the catalog whenever the manifest file changes.
type Watcher struct {
	manifestPath string
	dbPath       string
	store        *storage.Reloadable
	bus          *events.Bus
	debounce     time.Duration

	mu       sync.Mutex
	checksum string
}

// New creates a watcher. Call Run to start following the manifest.
func New(cfg Config) *Watcher {
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		manifestPath: filepath.Clean(cfg.ManifestPath),
		dbPath:       cfg.DBPath,
		store:        cfg.Store,
		bus:          cfg.EventBus,
		debounce:     debounce,
		checksum:     cfg.Checksum,
	}
}

// Checksum returns the checksum of the manifest last applied.
func (w *Watcher) Checksum() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.checksum
}

// Run watches the manifest's directory until ctx is cancelled. The
// directory is watched instead of the file so that editors which replace
// the file by rename keep being followed.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(w.manifestPath)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logging.Info("Watching %s for catalog changes (debounce %s)", w.manifestPath, w.debounce)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			logging.Debug("Manifest event: %s (%s)", event.Name, event.Op)
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logging.Error("Watcher error: %v", err)

		case <-timer.C:
			if _, err := w.Apply(ctx); err != nil {
				logging.Error("Catalog reload skipped: %v", err)
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.manifestPath {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// Apply loads the manifest and rebuilds the store if its checksum changed.
// An unreadable or invalid manifest leaves the served store untouched.
// It reports whether a reload happened.
func (w *Watcher) Apply(ctx context.Context) (bool, error) {
	m, err := manifest.Load(w.manifestPath)
	if err != nil {
		return false, err
	}

	checksum, err := m.Checksum()
	if err != nil {
		return false, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if checksum == w.checksum {
		logging.Debug("Manifest unchanged (checksum %.12s)", checksum)
		return false, nil
	}

	result, err := seed.Reload(ctx, w.store, w.dbPath, m)
	if err != nil {
		var invalid *manifest.ValidationError
		if errors.As(err, &invalid) {
			logging.Warn("Ignoring invalid manifest %s: %v", w.manifestPath, err)
		}
		return false, err
	}

	w.checksum = result.Checksum
	if w.bus != nil {
		w.bus.Publish(events.CatalogReloaded(result.Scripts, result.Checksum))
	}
	return true, nil
}
