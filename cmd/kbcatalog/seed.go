package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/chis/kbcatalog/internal/bootstrap"
	"github.com/chis/kbcatalog/internal/seed"
)

func newSeedCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Rebuild the local catalog from a manifest",
		Long: `Rebuild the SQLite catalog from the manifest given by --manifest, or from
the catalog embedded in the binary. The previous catalog is replaced only
after the new one has been built completely; view counts and contributors
recorded since the last seed are discarded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := bootstrap.LoadManifest(a.cfg.ManifestPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(a.cfg.DBPath), 0o755); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}

			result, err := seed.Rebuild(cmd.Context(), a.cfg.DBPath, m)
			if err != nil {
				return err
			}

			return a.emit(cmd.OutOrStdout(), result, func() string {
				return fmt.Sprintf("%s %s\n%d categories, %d scripts, %d parameters, %d docker components %s",
					a.styles.Success.Render("Seeded"), result.Path,
					result.Categories, result.Scripts, result.Parameters, result.DockerComponents,
					a.styles.Muted.Render("("+result.Duration.Round(time.Millisecond).String()+")"))
			})
		},
	}

	cmd.Flags().String("manifest", "", "manifest file (default: embedded catalog)")
	return cmd
}
