package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chis/kbcatalog/internal/storage"
)

func newSearchCmd(a *app) *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "search [terms...]",
		Short: "Full-text search over script names, synopses, descriptions and articles",
		Long: `Search the catalog. Every term must prefix-match a word of the script's
name, synopsis, description, environment, resolution or cause. With no
terms every script is listed, optionally filtered by --state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cat, closeCatalog, err := a.openCatalog(ctx, false)
			if err != nil {
				return err
			}
			defer closeCatalog()

			query := strings.Join(args, " ")
			var scripts []storage.Script
			if query == "" && state != "" {
				scripts, err = cat.Scripts(ctx, state)
			} else {
				scripts, err = cat.Search(ctx, query)
			}
			if err != nil {
				return err
			}

			return a.emit(cmd.OutOrStdout(), scripts, func() string {
				if len(scripts) == 0 {
					return a.styles.Muted.Render("No scripts found.")
				}
				return a.scriptTable(scripts) + "\n" + a.styles.Muted.Render(fmt.Sprintf("%d scripts", len(scripts)))
			})
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "list scripts in one KCS state (draft, approved, published, retired)")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|name>",
		Short: "Show a script with its parameters and knowledge article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cat, closeCatalog, err := a.openCatalog(ctx, false)
			if err != nil {
				return err
			}
			defer closeCatalog()

			detail, err := cat.Script(ctx, args[0])
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), detail, func() string { return a.renderDetail(detail) })
		},
	}
}

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories [slug]",
		Short: "List categories, or the scripts of one category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cat, closeCatalog, err := a.openCatalog(ctx, false)
			if err != nil {
				return err
			}
			defer closeCatalog()

			if len(args) == 1 {
				category, scripts, err := cat.Category(ctx, args[0])
				if err != nil {
					return err
				}
				body := map[string]any{"category": category, "scripts": scripts}
				return a.emit(cmd.OutOrStdout(), body, func() string {
					return a.styles.Title.Render(category.Name) + "\n" +
						a.styles.Muted.Render(category.Description) + "\n" +
						a.scriptTable(scripts)
				})
			}

			categories, err := cat.Categories(ctx)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), categories, func() string {
				rows := make([][]string, len(categories))
				for i, c := range categories {
					rows[i] = []string{c.Slug, c.Name, strconv.Itoa(c.ScriptCount)}
				}
				return a.styles.table([]string{"SLUG", "NAME", "SCRIPTS"}, rows)
			})
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate catalog counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cat, closeCatalog, err := a.openCatalog(ctx, false)
			if err != nil {
				return err
			}
			defer closeCatalog()

			stats, err := cat.Stats(ctx)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), stats, func() string { return a.renderStats(stats) })
		},
	}
}

func (a *app) scriptTable(scripts []storage.Script) string {
	rows := make([][]string, len(scripts))
	for i, s := range scripts {
		rows[i] = []string{
			strconv.FormatInt(s.ID, 10),
			s.Name,
			s.CategoryName,
			a.styles.state(s.KCSState),
			strconv.FormatInt(s.ViewCount, 10),
		}
	}
	return a.styles.table([]string{"ID", "NAME", "CATEGORY", "STATE", "VIEWS"}, rows)
}

func (a *app) renderDetail(d storage.ScriptDetail) string {
	s := a.styles
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", s.Title.Render(d.Name), s.Muted.Render("#"+strconv.FormatInt(d.ID, 10)))
	fmt.Fprintf(&b, "%s\n\n", d.Synopsis)

	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s %s\n", s.Label.Render(fmt.Sprintf("%-12s", label)), value)
		}
	}
	field("Category", d.CategoryName)
	field("Subcategory", d.Subcategory)
	field("File", d.FilePath)
	field("State", s.state(d.KCSState))
	field("Confidence", strconv.Itoa(d.Confidence))
	field("Author", d.Author)
	field("Views", strconv.FormatInt(d.ViewCount, 10))
	if d.LastReviewed != nil {
		field("Reviewed", d.LastReviewed.Format("2006-01-02"))
	}
	if len(d.Tags) > 0 {
		field("Tags", strings.Join(storage.TagNames(d.Tags), ", "))
	}

	if d.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", d.Description)
	}

	if len(d.Parameters) > 0 {
		rows := make([][]string, len(d.Parameters))
		for i, p := range d.Parameters {
			required := ""
			if p.IsRequired {
				required = "yes"
			}
			def := ""
			if p.DefaultValue != nil {
				def = *p.DefaultValue
			}
			rows[i] = []string{p.Name, required, def, p.Description}
		}
		fmt.Fprintf(&b, "\n%s\n", s.table([]string{"PARAMETER", "REQUIRED", "DEFAULT", "DESCRIPTION"}, rows))
	}

	section := func(title, body string) {
		if body != "" {
			fmt.Fprintf(&b, "\n%s\n%s\n", s.Title.Render(title), body)
		}
	}
	section("Environment", d.Environment)
	section("Cause", d.Cause)
	section("Resolution", d.Resolution)

	if len(d.Contributors) > 0 {
		fmt.Fprintf(&b, "\n%s\n", s.Title.Render("Contributors"))
		for _, c := range d.Contributors {
			fmt.Fprintf(&b, "  %s %s %s\n", c.Name, s.Muted.Render(c.Role), s.Muted.Render(c.ContributedAt.Format("2006-01-02")))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func (a *app) renderStats(stats storage.Stats) string {
	s := a.styles
	var b strings.Builder

	line := func(label string, value any) {
		fmt.Fprintf(&b, "%s %v\n", s.Label.Render(fmt.Sprintf("%-18s", label)), value)
	}
	line("Scripts", stats.ScriptCount)
	line("Categories", stats.CategoryCount)
	line("Parameters", stats.ParameterCount)
	line("Docker components", stats.DockerComponentCount)
	line("Published", stats.PublishedCount)
	line("Total views", stats.TotalViews)

	states := make([]string, 0, len(stats.StateCounts))
	for state := range stats.StateCounts {
		states = append(states, state)
	}
	sort.Strings(states)
	for _, state := range states {
		pad := strings.Repeat(" ", max(0, 10-len(state)))
		fmt.Fprintf(&b, "  %s%s %d\n", s.state(state), pad, stats.StateCounts[state])
	}

	return strings.TrimRight(b.String(), "\n")
}
