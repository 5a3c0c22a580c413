package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRDFCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rdf",
		Short: "Print the catalog as JSON-LD",
		Long: `Print linked-data projections of the catalog: the DCAT catalog with its
SKOS concept scheme, every category as a SKOS concept, or one script as
schema.org SoftwareSourceCode with its TechArticle.`,
	}

	printDoc := func(cmd *cobra.Command, resource string) error {
		ctx := cmd.Context()
		cat, closeCatalog, err := a.openCatalog(ctx, false)
		if err != nil {
			return err
		}
		defer closeCatalog()

		doc, err := cat.RDF(ctx, resource)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(doc))
		return err
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "catalog",
			Short: "The DCAT catalog and SKOS concept scheme",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return printDoc(cmd, "catalog")
			},
		},
		&cobra.Command{
			Use:   "categories",
			Short: "Every category as a SKOS concept",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return printDoc(cmd, "categories")
			},
		},
		&cobra.Command{
			Use:   "script <id>",
			Short: "One script as SoftwareSourceCode",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid script id %q", args[0])
				}
				return printDoc(cmd, "scripts/"+strconv.FormatInt(id, 10))
			},
		},
	)
	return cmd
}
