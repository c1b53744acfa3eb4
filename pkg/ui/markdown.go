package ui

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/lipgloss"
)

// MarkdownRenderer wraps glamour with a width and an optional theme-derived
// style. A nil inner renderer passes markdown through untouched.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
	useTheme bool
	theme    *Theme
	dark     bool
}

// NewMarkdownRenderer uses glamour's auto-detected style.
func NewMarkdownRenderer(width int) *MarkdownRenderer {
	mr := &MarkdownRenderer{width: width, dark: lipgloss.HasDarkBackground()}
	mr.rebuild()
	return mr
}

// NewMarkdownRendererWithTheme derives the style from theme colors.
func NewMarkdownRendererWithTheme(width int, theme Theme) *MarkdownRenderer {
	mr := &MarkdownRenderer{
		width:    width,
		useTheme: true,
		theme:    &theme,
		dark:     theme.Renderer.HasDarkBackground(),
	}
	mr.rebuild()
	return mr
}

func (mr *MarkdownRenderer) rebuild() {
	var (
		r   *glamour.TermRenderer
		err error
	)
	if mr.useTheme && mr.theme != nil {
		r, err = glamour.NewTermRenderer(
			glamour.WithStyles(buildStyleFromTheme(*mr.theme, mr.dark)),
			glamour.WithWordWrap(mr.width),
		)
	} else {
		r, err = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(mr.width),
		)
	}
	if err != nil {
		r = nil
	}
	mr.renderer = r
}

// Render renders markdown, or returns it unchanged without a renderer.
func (mr *MarkdownRenderer) Render(markdown string) (string, error) {
	if mr.renderer == nil {
		return markdown, nil
	}
	return mr.renderer.Render(markdown)
}

// SetWidth rebuilds the renderer when the width actually changes.
func (mr *MarkdownRenderer) SetWidth(width int) {
	if width <= 0 || width == mr.width {
		return
	}
	mr.width = width
	mr.rebuild()
}

// SetWidthWithTheme switches to a theme-derived style at the given width.
func (mr *MarkdownRenderer) SetWidthWithTheme(width int, theme Theme) {
	if width > 0 {
		mr.width = width
	}
	mr.useTheme = true
	mr.theme = &theme
	mr.dark = theme.Renderer.HasDarkBackground()
	mr.rebuild()
}

// IsDarkMode reports which side of the adaptive palette is in use.
func (mr *MarkdownRenderer) IsDarkMode() bool {
	return mr.dark
}

func extractHex(c lipgloss.AdaptiveColor, dark bool) string {
	if dark {
		return c.Dark
	}
	return c.Light
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func uintPtr(u uint) *uint    { return &u }

// buildStyleFromTheme maps the palette onto a glamour style.
func buildStyleFromTheme(theme Theme, dark bool) ansi.StyleConfig {
	base := extractHex(theme.Base, dark)
	primary := extractHex(theme.Primary, dark)
	highlight := extractHex(theme.Highlight, dark)
	muted := extractHex(theme.Muted, dark)
	link := extractHex(theme.Link, dark)

	return ansi.StyleConfig{
		Document: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: strPtr(base)},
			Margin:         uintPtr(1),
		},
		Heading: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: strPtr(primary), Bold: boolPtr(true)},
		},
		H1: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Prefix: "# ", Color: strPtr(primary), Bold: boolPtr(true)},
		},
		H2: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Prefix: "## ", Color: strPtr(primary)},
		},
		H3: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Prefix: "### ", Color: strPtr(highlight)},
		},
		Strong:   ansi.StylePrimitive{Bold: boolPtr(true)},
		Emph:     ansi.StylePrimitive{Italic: boolPtr(true)},
		Link:     ansi.StylePrimitive{Color: strPtr(link), Underline: boolPtr(true)},
		LinkText: ansi.StylePrimitive{Color: strPtr(highlight)},
		Code: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: strPtr(highlight)},
		},
		BlockQuote: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: strPtr(muted)},
			Indent:         uintPtr(1),
			IndentToken:    strPtr("│ "),
		},
		List: ansi.StyleList{
			LevelIndent: 2,
		},
		Item: ansi.StylePrimitive{BlockPrefix: "• "},
	}
}
