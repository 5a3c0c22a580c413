package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// styles holds the terminal styles; every style is plain when NO_COLOR is set.
type styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Danger  lipgloss.Style
}

func newStyles() styles {
	if os.Getenv("NO_COLOR") != "" {
		plain := lipgloss.NewStyle()
		return styles{
			Title: plain.Bold(true), Header: plain.Bold(true), Label: plain,
			Muted: plain, Success: plain, Warning: plain, Danger: plain,
		}
	}

	return styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")),
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Padding(0, 1),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		Danger:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// state colours a KCS state or container state.
func (s styles) state(state string) string {
	switch state {
	case "published", "running", "healthy":
		return s.Success.Render(state)
	case "approved", "restarting", "starting":
		return s.Warning.Render(state)
	case "retired", "exited", "dead", "unhealthy", "not_found":
		return s.Danger.Render(state)
	default:
		return s.Muted.Render(state)
	}
}

// table builds a bordered table with styled headers.
func (s styles) table(headers []string, rows [][]string) string {
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Muted).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Header
			}
			return cell
		}).
		String()
}
