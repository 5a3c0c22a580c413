package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chis/kbcatalog/internal/config"
	"github.com/chis/kbcatalog/internal/docker"
	"github.com/chis/kbcatalog/internal/events"
	"github.com/chis/kbcatalog/internal/logging"
	"github.com/chis/kbcatalog/internal/manifest"
	"github.com/chis/kbcatalog/internal/seed"
	"github.com/chis/kbcatalog/internal/storage"
)

// ServiceDependencies holds all initialized service dependencies for CLI commands.
type ServiceDependencies struct {
	Store    *storage.Reloadable
	Docker   docker.Client // nil when disabled or unavailable
	EventBus *events.Bus

	// Seeded is set when the store was built during initialization,
	// and Checksum then holds the manifest checksum it was built from.
	Seeded   bool
	Checksum string
}

// InitOptions configures service initialization behavior.
type InitOptions struct {
	Config *config.Config

	// SeedIfMissing builds the catalog when the database file does not exist
	SeedIfMissing bool

	// WithDocker connects to the Docker daemon when the config enables it
	WithDocker bool

	// NewDocker overrides the Docker client constructor (tests)
	NewDocker func() (docker.Client, error)

	// Verbose enables detailed logging during initialization
	Verbose bool
}

// LoadManifest reads the manifest at path, or the embedded catalog when
// path is empty.
func LoadManifest(path string) (*manifest.Manifest, error) {
	if path == "" {
		return manifest.Default()
	}
	return manifest.Load(path)
}

// InitializeServices initializes all service dependencies with consistent error handling.
// Returns ServiceDependencies and a cleanup function that should be deferred.
func InitializeServices(ctx context.Context, opts InitOptions) (*ServiceDependencies, func(), error) {
	cfg := opts.Config
	if cfg == nil {
		d := config.Defaults()
		cfg = &d
	}

	deps := &ServiceDependencies{EventBus: events.NewBus()}
	var cleanups []func()

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Seed a missing catalog
	if _, err := os.Stat(cfg.DBPath); errors.Is(err, os.ErrNotExist) {
		if !opts.SeedIfMissing {
			return nil, nil, fmt.Errorf("catalog %s does not exist; run 'kbcatalog seed' first", cfg.DBPath)
		}
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}

		m, err := LoadManifest(cfg.ManifestPath)
		if err != nil {
			return nil, nil, err
		}
		if opts.Verbose {
			logging.Info("Catalog %s not found, seeding...", cfg.DBPath)
		}
		result, err := seed.Rebuild(ctx, cfg.DBPath, m)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
		deps.Seeded = true
		deps.Checksum = result.Checksum
	}

	// Initialize storage
	if opts.Verbose {
		logging.Info("Opening catalog at %s...", cfg.DBPath)
	}
	sqliteStore, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	deps.Store = storage.NewReloadable(sqliteStore, storage.SQLiteOpener(cfg.DBPath))
	cleanups = append(cleanups, func() { deps.Store.Close() })

	// Initialize Docker client (optional - graceful degradation)
	if opts.WithDocker && cfg.Docker {
		newDocker := opts.NewDocker
		if newDocker == nil {
			newDocker = func() (docker.Client, error) { return docker.NewService() }
		}

		dockerClient, err := newDocker()
		if err != nil {
			logging.Warn("Docker unavailable, live component status disabled: %v", err)
		} else {
			deps.Docker = dockerClient
			cleanups = append(cleanups, func() { dockerClient.Close() })
			if opts.Verbose {
				logging.Info("Docker client initialized")
			}
		}
	}

	return deps, cleanup, nil
}
