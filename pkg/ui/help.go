package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// helpContent is the quick reference shown by "?". It is markdown so the
// overlay can be rendered with glamour.
const helpContent = `## Navigation

| Key | Action |
|---|---|
| ↑ / k | Previous visible item |
| ↓ / j | Next visible item |
| Home / g | First item |
| End / G | Last item |
| PgUp / PgDn | Half page |

## Tree

| Key | Action |
|---|---|
| → / l | Expand, or move to first child |
| ← / h | Collapse, or move to parent |
| Enter | Toggle a section, or open a link |
| Space | Toggle the focused section |
| E / C | Expand / collapse everything |

## Other

| Key | Action |
|---|---|
| / | Jump to any item by name |
| y | Copy the focused link |
| ? | Close this help |
| q | Quit |

The current page is marked with ●. Expand state is saved between runs.`

// RenderHelp renders the help modal. The markdown renderer may be nil, in
// which case the raw markdown is shown.
func RenderHelp(md *MarkdownRenderer, theme Theme, width int) string {
	r := theme.Renderer

	modalWidth := 64
	if modalWidth > width-4 {
		modalWidth = width - 4
	}
	if modalWidth < 20 {
		modalWidth = 20
	}

	body := helpContent
	if md != nil {
		md.SetWidth(modalWidth - 6)
		if rendered, err := md.Render(helpContent); err == nil {
			body = strings.TrimSpace(rendered)
		}
	}

	titleStyle := r.NewStyle().Bold(true).Foreground(theme.Primary)
	footerStyle := r.NewStyle().Foreground(theme.Muted).Italic(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Quick Reference"))
	b.WriteString("\n")
	b.WriteString(r.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", modalWidth-6)))
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("? or Esc to close"))

	modalStyle := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(1, 2).
		Width(modalWidth)

	return modalStyle.Render(b.String())
}
