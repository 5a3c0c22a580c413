package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chis/kbcatalog/internal/bootstrap"
	kbmcp "github.com/chis/kbcatalog/internal/mcp"
	"github.com/chis/kbcatalog/internal/output"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the local catalog as MCP tools on stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout. AI assistants can
call search_scripts, get_script, list_categories, get_stats and
get_script_jsonld against the local catalog. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Remote() {
				return fmt.Errorf("mcp serves the local catalog; unset --server")
			}

			ctx := cmd.Context()
			deps, cleanup, err := bootstrap.InitializeServices(ctx, bootstrap.InitOptions{
				Config:        a.cfg,
				SeedIfMissing: true,
			})
			if err != nil {
				return err
			}
			defer cleanup()

			if err := kbmcp.NewServer(deps.Store, output.Version).Run(ctx); err != nil {
				return fmt.Errorf("running MCP server: %w", err)
			}
			return nil
		},
	}
}
