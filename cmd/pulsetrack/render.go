package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pbaille/pulsetrack/internal/domain"
	"github.com/pbaille/pulsetrack/internal/prefs"
)

// palette is a color scheme for terminal output
type palette struct {
	Foreground lipgloss.Color
	Dim        lipgloss.Color
	Primary    lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
}

var darkPalette = palette{
	Foreground: lipgloss.Color("#e2e8f0"),
	Dim:        lipgloss.Color("#64748b"),
	Primary:    lipgloss.Color("#38bdf8"),
	Success:    lipgloss.Color("#22c55e"),
	Warning:    lipgloss.Color("#f59e0b"),
	Error:      lipgloss.Color("#f87171"),
}

var lightPalette = palette{
	Foreground: lipgloss.Color("#0f172a"),
	Dim:        lipgloss.Color("#94a3b8"),
	Primary:    lipgloss.Color("#0369a1"),
	Success:    lipgloss.Color("#15803d"),
	Warning:    lipgloss.Color("#b45309"),
	Error:      lipgloss.Color("#b91c1c"),
}

// styles holds the pre-computed output styles
type styles struct {
	Title   lipgloss.Style
	Heading lipgloss.Style
	Muted   lipgloss.Style
	Accent  lipgloss.Style
	OK      lipgloss.Style
	Warn    lipgloss.Style
	Bad     lipgloss.Style
}

func newStyles(theme prefs.Theme) styles {
	p := darkPalette
	if theme == prefs.ThemeLight {
		p = lightPalette
	}
	return styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(p.Primary),
		Heading: lipgloss.NewStyle().Bold(true).Foreground(p.Foreground),
		Muted:   lipgloss.NewStyle().Foreground(p.Dim),
		Accent:  lipgloss.NewStyle().Foreground(p.Primary),
		OK:      lipgloss.NewStyle().Foreground(p.Success),
		Warn:    lipgloss.NewStyle().Foreground(p.Warning),
		Bad:     lipgloss.NewStyle().Foreground(p.Error),
	}
}

func (s styles) status(tag domain.StatusTag) string {
	switch tag {
	case domain.StatusUrgent, domain.StatusBlocked:
		return s.Bad.Render(string(tag))
	case domain.StatusInProgress:
		return s.Warn.Render(string(tag))
	case domain.StatusCompleted:
		return s.OK.Render(string(tag))
	}
	return s.Muted.Render(string(tag))
}

func (s styles) level(level domain.WorkloadLevel) lipgloss.Style {
	switch level {
	case domain.WorkloadOverloaded:
		return s.Bad
	case domain.WorkloadManageable:
		return s.Warn
	}
	return s.OK
}

// swatch renders a class name behind a dot in the class color.
func swatch(color, name string) string {
	if color == "" {
		return name
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●") + " " + name
}

// bar draws a horizontal bar of n cells scaled against max in width cells.
func bar(n, max, width int) string {
	if max <= 0 || n <= 0 {
		return ""
	}
	cells := n * width / max
	if cells == 0 {
		cells = 1
	}
	return strings.Repeat("█", cells)
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	// Newlines break the one-line listings
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func formatGrade(g *float64) string {
	if g == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *g)
}
