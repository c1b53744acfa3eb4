package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/sitenav/pkg/tree"
)

// maxJumpResults caps the result lines shown under the filter input.
const maxJumpResults = 8

// JumpEntry is one node offered by the jump filter.
type JumpEntry struct {
	ID    string
	Label string
	URL   string
	Trail string // ancestor labels, root first, joined with " › "
}

// JumpToNodeMsg is sent when the user picks a node in the jump filter.
type JumpToNodeMsg struct {
	ID string
}

// JumpModel is a one-line filter over every node of the tree, including
// nodes inside collapsed sections. Picking a result reveals and focuses it.
type JumpModel struct {
	entries     []JumpEntry
	filtered    []int // indices into entries
	cursor      int
	width       int
	filterInput textinput.Model
	active      bool
	theme       Theme
}

// NewJumpModel creates an inactive jump filter.
func NewJumpModel(theme Theme) JumpModel {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.CharLimit = 80
	ti.Width = 30
	ti.Prompt = "/ "

	return JumpModel{
		filterInput: ti,
		theme:       theme,
	}
}

// Open activates the filter over the non-hidden nodes of t.
func (m *JumpModel) Open(t *tree.Tree) tea.Cmd {
	m.entries = nil
	if t != nil {
		for _, n := range t.Preorder() {
			if entry, ok := jumpEntry(n); ok {
				m.entries = append(m.entries, entry)
			}
		}
	}
	m.active = true
	m.cursor = 0
	m.filterInput.SetValue("")
	m.applyFilter()
	return m.filterInput.Focus()
}

func jumpEntry(n *tree.Node) (JumpEntry, bool) {
	if n.Hidden {
		return JumpEntry{}, false
	}
	var trail []string
	for _, a := range n.Ancestors() {
		if a.Hidden {
			return JumpEntry{}, false
		}
		trail = append(trail, a.Label)
	}
	return JumpEntry{
		ID:    n.ID,
		Label: n.Label,
		URL:   n.URL,
		Trail: strings.Join(trail, " › "),
	}, true
}

// Close deactivates the filter.
func (m *JumpModel) Close() {
	m.active = false
	m.filterInput.Blur()
	m.filterInput.SetValue("")
}

// Active reports whether the filter has keyboard focus.
func (m JumpModel) Active() bool {
	return m.active
}

// SetWidth sets the render width.
func (m *JumpModel) SetWidth(w int) {
	m.width = w
	if w > 10 {
		m.filterInput.Width = w - 6
	}
}

// Update handles keys while the filter is active.
func (m JumpModel) Update(msg tea.KeyMsg) (JumpModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.Close()
		return m, nil
	case "enter":
		entry := m.SelectedEntry()
		m.Close()
		if entry == nil {
			return m, nil
		}
		id := entry.ID
		return m, func() tea.Msg { return JumpToNodeMsg{ID: id} }
	case "up", "ctrl+p":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "ctrl+n":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.applyFilter()
		return m, cmd
	}
}

// applyFilter updates the filtered indices based on the current filter input.
func (m *JumpModel) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(m.filterInput.Value()))
	if query == "" {
		m.filtered = make([]int, len(m.entries))
		for i := range m.entries {
			m.filtered[i] = i
		}
		m.clampCursor()
		return
	}

	type scored struct {
		index int
		score int
	}
	var matches []scored
	for i, entry := range m.entries {
		best := fuzzyScore(strings.ToLower(entry.Label), query)
		if s := fuzzyScore(strings.ToLower(entry.URL), query) / 2; s > best {
			best = s
		}
		if best > 0 {
			matches = append(matches, scored{i, best})
		}
	}

	// Stable keeps document order among equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	m.filtered = make([]int, len(matches))
	for i, match := range matches {
		m.filtered[i] = match.index
	}
	m.clampCursor()
}

func (m *JumpModel) clampCursor() {
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
}

// fuzzyScore rates how well query matches s: a prefix beats a substring,
// which beats an in-order subsequence. Zero means no match.
func fuzzyScore(s, query string) int {
	if query == "" || s == "" {
		return 0
	}
	if strings.HasPrefix(s, query) {
		return 300 + len(query)
	}
	if strings.Contains(s, query) {
		return 200 + len(query)
	}
	q := []rune(query)
	qi := 0
	for _, r := range s {
		if qi < len(q) && r == q[qi] {
			qi++
		}
	}
	if qi == len(q) {
		return 100 + len(q)
	}
	return 0
}

// View renders the input line and the top results.
func (m JumpModel) View() string {
	if !m.active {
		return ""
	}
	t := m.theme
	inputStyle := t.Renderer.NewStyle().Foreground(t.Primary)
	lines := []string{inputStyle.Render(m.filterInput.View())}

	if len(m.filtered) == 0 {
		lines = append(lines, t.Renderer.NewStyle().Foreground(t.Muted).Italic(true).Render("  no matching items"))
		return strings.Join(lines, "\n")
	}

	start := 0
	if m.cursor >= maxJumpResults {
		start = m.cursor - maxJumpResults + 1
	}
	end := min(start+maxJumpResults, len(m.filtered))
	for i := start; i < end; i++ {
		entry := m.entries[m.filtered[i]]
		text := entry.Label
		if entry.Trail != "" {
			text = entry.Trail + " › " + text
		}
		if m.width > 0 {
			text = truncateLabel(text, m.width-4)
		}
		if i == m.cursor {
			lines = append(lines, t.Selected.Render("> "+text))
		} else {
			lines = append(lines, t.Renderer.NewStyle().Foreground(t.Subtext).Render("  "+text))
		}
	}
	if len(m.filtered) > end-start {
		lines = append(lines, t.Renderer.NewStyle().Foreground(t.Muted).
			Render(fmt.Sprintf("  %d/%d", m.cursor+1, len(m.filtered))))
	}
	return strings.Join(lines, "\n")
}

// Height returns the number of lines View uses.
func (m JumpModel) Height() int {
	if !m.active {
		return 0
	}
	if len(m.filtered) == 0 {
		return 2
	}
	shown := min(len(m.filtered), maxJumpResults)
	lines := 1 + shown
	if len(m.filtered) > shown {
		lines++
	}
	return lines
}

// FilteredCount returns the number of entries matching the current filter.
func (m JumpModel) FilteredCount() int {
	return len(m.filtered)
}

// SelectedEntry returns the highlighted entry, or nil if none.
func (m JumpModel) SelectedEntry() *JumpEntry {
	if len(m.filtered) == 0 || m.cursor >= len(m.filtered) {
		return nil
	}
	entry := m.entries[m.filtered[m.cursor]]
	return &entry
}
