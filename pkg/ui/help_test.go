package ui

import (
	"strings"
	"testing"
)

func TestRenderHelpRaw(t *testing.T) {
	out := RenderHelp(nil, newTreeTestTheme(), 100)
	for _, want := range []string{"Quick Reference", "Expand, or move to first child", "Esc to close"} {
		if !strings.Contains(out, want) {
			t.Errorf("help missing %q", want)
		}
	}
}

func TestRenderHelpNarrow(t *testing.T) {
	theme := newTreeTestTheme()
	out := RenderHelp(NewMarkdownRendererWithTheme(40, theme), theme, 10)
	if out == "" {
		t.Fatal("empty help output")
	}
}
