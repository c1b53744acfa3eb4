// Package export renders the navigation tree for consumption outside the
// TUI: a markdown sitemap, and a live-reload hub for the preview server.
package export

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vanderheijden86/sitenav/pkg/tree"
)

// MarkdownOptions controls GenerateMarkdown.
type MarkdownOptions struct {
	// VisibleOnly omits nodes inside collapsed sections.
	VisibleOnly bool
	// Diagram appends a mermaid graph of the hierarchy.
	Diagram bool
	// Now stamps the header; zero means time.Now.
	Now time.Time
}

// GenerateMarkdown creates a markdown sitemap of the tree: a summary, a
// nested link list with the current page in bold, and optionally a mermaid
// diagram.
func GenerateMarkdown(t *tree.Tree, title string, opts MarkdownOptions) (string, error) {
	if t == nil {
		return "", fmt.Errorf("no navigation tree")
	}
	if title == "" {
		title = "Site Navigation"
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format(time.RFC1123)))

	nodes := t.Preorder()
	visible := t.Visible()
	sections := 0
	for _, n := range nodes {
		if n.HasChildren() {
			sections++
		}
	}

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Items**: %d\n", len(nodes)))
	sb.WriteString(fmt.Sprintf("- **Sections**: %d\n", sections))
	sb.WriteString(fmt.Sprintf("- **Visible**: %d\n", len(visible)))
	if active := t.Active(); active != nil {
		sb.WriteString(fmt.Sprintf("- **Current**: %s\n", active.Label))
	}
	sb.WriteString("\n## Pages\n\n")

	var walk func(nodes []*tree.Node)
	walk = func(nodes []*tree.Node) {
		for _, n := range nodes {
			if n.Hidden {
				continue
			}
			sb.WriteString(strings.Repeat("  ", n.Depth))
			sb.WriteString("- ")
			sb.WriteString(markdownLink(n))
			sb.WriteString("\n")
			if !opts.VisibleOnly || n.Expanded {
				walk(n.Children)
			}
		}
	}
	walk(t.Roots())

	if opts.Diagram {
		sb.WriteString("\n## Structure\n\n")
		sb.WriteString("```mermaid\ngraph TD\n")
		for _, n := range nodes {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", mermaidID(n.ID), mermaidLabel(n.Label)))
		}
		for _, n := range nodes {
			for _, c := range n.Children {
				sb.WriteString(fmt.Sprintf("    %s --> %s\n", mermaidID(n.ID), mermaidID(c.ID)))
			}
		}
		sb.WriteString("```\n")
	}

	return sb.String(), nil
}

func markdownLink(n *tree.Node) string {
	label := escapeMarkdown(n.Label)
	if n.URL != "" {
		label = fmt.Sprintf("[%s](%s)", label, n.URL)
	}
	if n.Active {
		label = "**" + label + "** (current)"
	}
	return label
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "[", `\[`, "]", `\]`, "*", `\*`, "_", `\_`, "`", "\\`",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// mermaidID keeps IDs to characters mermaid accepts unquoted.
func mermaidID(id string) string {
	var b strings.Builder
	b.WriteString("n_")
	for _, r := range id {
		if r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		} else {
			b.WriteString(fmt.Sprintf("_%x", r))
		}
	}
	return b.String()
}

func mermaidLabel(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	if r := []rune(s); len(r) > 30 {
		s = string(r[:27]) + "..."
	}
	return s
}

// SaveMarkdownToFile writes the generated markdown to a file
func SaveMarkdownToFile(t *tree.Tree, title, filename string, opts MarkdownOptions) error {
	content, err := GenerateMarkdown(t, title, opts)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, []byte(content), 0644)
}
