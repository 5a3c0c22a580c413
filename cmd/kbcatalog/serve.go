package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chis/kbcatalog/internal/api"
	"github.com/chis/kbcatalog/internal/bootstrap"
	"github.com/chis/kbcatalog/internal/config"
	"github.com/chis/kbcatalog/internal/logging"
	"github.com/chis/kbcatalog/internal/watch"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog HTTP API",
		Long: `Serve the catalog over HTTP. A missing catalog is seeded first. With
--watch the manifest file is followed and the catalog is rebuilt and
swapped in whenever its content changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			res := config.ValidateConfig(cfg)
			if !res.IsValid() {
				return res.Err()
			}
			for _, w := range res.Warnings {
				logging.Warn("%s", w)
			}

			return a.runServer(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.IntP("port", "p", 0, "port to listen on (default 3000)")
	flags.StringP("static-dir", "s", "", "directory containing static UI files")
	flags.Bool("watch", false, "rebuild the catalog when the manifest changes")
	flags.String("manifest", "", "manifest file to seed from and watch")
	flags.Duration("watch-debounce", 0, "quiet period before a manifest change is applied")
	return cmd
}

// serveCatalog runs the API server, and the manifest watcher when enabled,
// until a shutdown signal arrives.
func serveCatalog(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := bootstrap.InitializeServices(ctx, bootstrap.InitOptions{
		Config:        cfg,
		SeedIfMissing: true,
		WithDocker:    true,
		Verbose:       true,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	server := api.NewServer(api.Config{
		Port:           cfg.Port,
		Storage:        deps.Store,
		Docker:         deps.Docker,
		EventBus:       deps.EventBus,
		StaticDir:      cfg.StaticDir,
		RateLimit:      cfg.RateLimit,
		RequestLogging: cfg.RequestLogging,
	})

	if cfg.Watch {
		if err := startWatcher(ctx, cfg, deps); err != nil {
			return err
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	logging.Info("API server running on http://localhost:%d", cfg.Port)
	if cfg.StaticDir != "" {
		logging.Info("UI available at http://localhost:%d/", cfg.Port)
	}

	// Wait for shutdown signal or error
	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logging.Info("Received shutdown signal...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logging.Info("Server stopped")
	return nil
}

// startWatcher follows the manifest in the background until ctx ends.
func startWatcher(ctx context.Context, cfg *config.Config, deps *bootstrap.ServiceDependencies) error {
	if cfg.ManifestPath == "" {
		return nil
	}

	// Assume an existing catalog matches the manifest so a restart keeps
	// its view counts.
	checksum := deps.Checksum
	if checksum == "" {
		m, err := bootstrap.LoadManifest(cfg.ManifestPath)
		if err != nil {
			return err
		}
		if checksum, err = m.Checksum(); err != nil {
			return err
		}
	}

	w := watch.New(watch.Config{
		ManifestPath: cfg.ManifestPath,
		DBPath:       cfg.DBPath,
		Store:        deps.Store,
		EventBus:     deps.EventBus,
		Debounce:     cfg.WatchDebounce,
		Checksum:     checksum,
	})
	go func() {
		if err := w.Run(ctx); err != nil {
			logging.Error("Manifest watcher stopped: %v", err)
		}
	}()
	return nil
}
