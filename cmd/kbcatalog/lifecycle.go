package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chis/kbcatalog/internal/storage"
)

func parseScriptID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid script id %q", arg)
	}
	return id, nil
}

func newTransitionCmd(a *app) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "transition <id> <state>",
		Short: "Move a script's knowledge article to a new KCS state",
		Long: `Move an article through the KCS lifecycle:

  draft -> approved -> published -> retired
  approved -> draft (sent back), retired -> draft (reopened)

The actor is recorded as reviewer (approved, published) or editor.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseScriptID(args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(actor) == "" {
				return fmt.Errorf("--actor is required")
			}

			ctx := cmd.Context()
			cat, closeCatalog, err := a.openCatalog(ctx, false)
			if err != nil {
				return err
			}
			defer closeCatalog()

			script, err := cat.Transition(ctx, id, args[1], actor)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), script, func() string {
				return fmt.Sprintf("%s is now %s", a.styles.Title.Render(script.Name), a.styles.state(script.KCSState))
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "person making the change")
	return cmd
}

func newContributeCmd(a *app) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "contribute <id> <name>",
		Short: "Record a contributor on a script's knowledge article",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseScriptID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			cat, closeCatalog, err := a.openCatalog(ctx, false)
			if err != nil {
				return err
			}
			defer closeCatalog()

			contributor, err := cat.AddContributor(ctx, id, args[1], role)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), contributor, func() string {
				return fmt.Sprintf("Recorded %s as %s", a.styles.Title.Render(contributor.Name), contributor.Role)
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", storage.RoleContributor, "author, reviewer, editor or contributor")
	return cmd
}
