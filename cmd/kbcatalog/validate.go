package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chis/kbcatalog/internal/bootstrap"
	"github.com/chis/kbcatalog/internal/manifest"
)

// validateReport is the --json body of the validate command.
type validateReport struct {
	Valid            bool     `json:"valid"`
	Categories       int      `json:"categories"`
	Scripts          int      `json:"scripts"`
	DockerComponents int      `json:"docker_components"`
	Checksum         string   `json:"checksum,omitempty"`
	Issues           []string `json:"issues,omitempty"`
}

func newValidateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a manifest without seeding it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := bootstrap.LoadManifest(a.cfg.ManifestPath)
			if err != nil {
				return err
			}

			report := validateReport{
				Valid:            true,
				Categories:       len(m.Categories),
				Scripts:          len(m.Scripts),
				DockerComponents: len(m.DockerComponents),
			}

			var verr *manifest.ValidationError
			if err := m.Validate(); errors.As(err, &verr) {
				report.Valid = false
				report.Issues = verr.Issues
			} else if err != nil {
				return err
			} else if report.Checksum, err = m.Checksum(); err != nil {
				return err
			}

			if err := a.emit(cmd.OutOrStdout(), report, func() string { return a.renderValidation(report) }); err != nil {
				return err
			}
			if !report.Valid {
				return fmt.Errorf("manifest has %d problems", len(report.Issues))
			}
			return nil
		},
	}

	cmd.Flags().String("manifest", "", "manifest file (default: embedded catalog)")
	return cmd
}

func (a *app) renderValidation(r validateReport) string {
	s := a.styles
	summary := fmt.Sprintf("%d categories, %d scripts, %d docker components", r.Categories, r.Scripts, r.DockerComponents)
	if r.Valid {
		return fmt.Sprintf("%s %s\n%s", s.Success.Render("Valid"), summary, s.Muted.Render("checksum "+r.Checksum))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", s.Danger.Render("Invalid"), summary)
	for _, issue := range r.Issues {
		fmt.Fprintf(&b, "  - %s\n", issue)
	}
	return strings.TrimRight(b.String(), "\n")
}
