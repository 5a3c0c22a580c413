package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/chis/kbcatalog/internal/output"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := map[string]string{"version": output.Version, "go": runtime.Version()}
			return a.emit(cmd.OutOrStdout(), info, func() string {
				return fmt.Sprintf("kbcatalog %s (%s)", output.Version, runtime.Version())
			})
		},
	}
}
