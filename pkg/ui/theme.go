// Package ui provides the terminal navigator for sitenav.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme holds the adaptive palette and the renderer styles are built with.
// Passing a renderer lets tests render without a terminal.
type Theme struct {
	Renderer *lipgloss.Renderer

	Base      lipgloss.AdaptiveColor
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Current   lipgloss.AdaptiveColor // the page's active node
	Link      lipgloss.AdaptiveColor

	Selected lipgloss.Style
}

// DefaultTheme returns the Dracula-flavoured palette used by the TUI.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer:  r,
		Base:      lipgloss.AdaptiveColor{Light: "#000000", Dark: "#f8f8f2"},
		Primary:   lipgloss.AdaptiveColor{Light: "#7d56f4", Dark: "#bd93f9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#b58900", Dark: "#f1fa8c"},
		Highlight: lipgloss.AdaptiveColor{Light: "#0087af", Dark: "#8be9fd"},
		Muted:     lipgloss.AdaptiveColor{Light: "#8a8a8a", Dark: "#6272a4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#555555", Dark: "#bfbfbf"},
		Border:    lipgloss.AdaptiveColor{Light: "#d0d0d0", Dark: "#44475a"},
		Current:   lipgloss.AdaptiveColor{Light: "#00875f", Dark: "#50fa7b"},
		Link:      lipgloss.AdaptiveColor{Light: "#005f87", Dark: "#8be9fd"},
	}
	t.Selected = r.NewStyle().
		Background(lipgloss.AdaptiveColor{Light: "#e4e4e4", Dark: "#44475a"}).
		Bold(true)
	return t
}
