package main

import (
	"github.com/charmbracelet/lipgloss"

	"tabwarden/internal/budget"
)

// Color palette. Adaptive colors resolve against the terminal background.
var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#1d4ed8", Dark: "#60a5fa"}
	colorText   = lipgloss.AdaptiveColor{Light: "#101F38", Dark: "#f2f2f2"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#9ca3af"}

	colorGood = lipgloss.Color("#8BC34A")
	colorWarn = lipgloss.Color("#FFC107")
	colorBad  = lipgloss.Color("#e53935")
)

// Styles holds the styled components of the dashboard.
type Styles struct {
	Header lipgloss.Style
	Bold   lipgloss.Style
	Muted  lipgloss.Style

	TableHeader  lipgloss.Style
	Row          lipgloss.Style
	ActiveRow    lipgloss.Style
	SuspendedRow lipgloss.Style

	Good lipgloss.Style
	Warn lipgloss.Style
	Bad  lipgloss.Style
}

// DefaultStyles returns the dashboard styles.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Background(colorAccent).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),

		Bold:  lipgloss.NewStyle().Foreground(colorText).Bold(true),
		Muted: lipgloss.NewStyle().Foreground(colorMuted),

		TableHeader: lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true).
			Padding(0, 1),
		Row: lipgloss.NewStyle().
			Foreground(colorText).
			Padding(0, 1),
		ActiveRow: lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true).
			Padding(0, 1),
		SuspendedRow: lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1),

		Good: lipgloss.NewStyle().Foreground(colorGood).Bold(true),
		Warn: lipgloss.NewStyle().Foreground(colorWarn).Bold(true),
		Bad:  lipgloss.NewStyle().Foreground(colorBad).Bold(true),
	}
}

// PressureStyle returns the status style for a pressure level.
func (s Styles) PressureStyle(p budget.MemoryPressure) lipgloss.Style {
	switch p {
	case budget.PressureSevere:
		return s.Bad
	case budget.PressureModerate:
		return s.Warn
	default:
		return s.Good
	}
}
