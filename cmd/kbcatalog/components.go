package main

import (
	"github.com/spf13/cobra"

	"github.com/chis/kbcatalog/internal/docker"
)

func newComponentsCmd(a *app) *cobra.Command {
	var live bool

	cmd := &cobra.Command{
		Use:   "components",
		Short: "List the monitoring stack's docker components",
		Long: `List the docker components of the monitoring stack. With --live each
component is matched to its container by compose service or name and its
state is shown; without a reachable Docker daemon the catalog entries are
listed alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cat, closeCatalog, err := a.openCatalog(ctx, live)
			if err != nil {
				return err
			}
			defer closeCatalog()

			components, isLive, err := cat.DockerComponents(ctx, live)
			if err != nil {
				return err
			}

			body := map[string]any{"components": components, "live": isLive}
			return a.emit(cmd.OutOrStdout(), body, func() string {
				return a.componentTable(components, live, isLive)
			})
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "query Docker for container state")
	return cmd
}

func (a *app) componentTable(components []docker.ComponentStatus, requested, live bool) string {
	headers := []string{"NAME", "TYPE", "PORT", "LOCATION"}
	if live {
		headers = append(headers, "STATE", "CONTAINER")
	}

	rows := make([][]string, len(components))
	for i, c := range components {
		row := []string{c.Name, c.Type, c.Port, c.Location}
		if live {
			state := a.styles.state(c.State)
			if c.Health != "" {
				state += " " + a.styles.state(c.Health)
			}
			row = append(row, state, c.Container)
		}
		rows[i] = row
	}

	out := a.styles.table(headers, rows)
	switch {
	case requested && !live:
		out += "\n" + a.styles.Warning.Render("Docker unavailable; container state not shown.")
	case !requested:
		out += "\n" + a.styles.Muted.Render("Container state not queried; use --live.")
	}
	return out
}
