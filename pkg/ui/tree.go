// tree.go - terminal rendering of the navigation tree
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/vanderheijden86/sitenav/pkg/tree"
)

// TreeModel renders a *tree.Tree and tracks the focused node. All key
// handling is delegated to the tree's state machine; this type only keeps
// the visible list and the scroll window in sync with it.
type TreeModel struct {
	tree           *tree.Tree
	flatList       []*tree.Node // visible nodes, recomputed after every change
	focused        string       // ID of the focused node ("" = nothing focused)
	theme          Theme
	width          int
	height         int
	viewportOffset int // index of first rendered node

	statePath string // tree-state.json; empty disables persistence
	logger    *zap.Logger
}

// NewTreeModel creates an empty tree model
func NewTreeModel(theme Theme) TreeModel {
	return TreeModel{
		theme:  theme,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger used for persistence warnings.
func (t *TreeModel) SetLogger(l *zap.Logger) {
	if l != nil {
		t.logger = l
	}
}

// SetStatePath enables expand/collapse persistence at path. Call before
// SetTree so the saved state is applied to the first tree.
func (t *TreeModel) SetStatePath(path string) {
	t.statePath = path
}

// SetTree replaces the displayed tree. Focus is kept on the same node ID
// when it still exists, otherwise it moves to the roving tab stop.
func (t *TreeModel) SetTree(nt *tree.Tree) {
	t.tree = nt
	if nt == nil {
		t.flatList = nil
		t.focused = ""
		return
	}
	if t.statePath != "" {
		if err := nt.LoadState(t.statePath); err != nil {
			t.logger.Warn("ignoring tree state", zap.Error(err))
		}
	}
	if t.focused == "" || nt.Node(t.focused) == nil {
		t.focused = ""
		if stop := nt.RovingTabStop(); stop != nil {
			t.focused = stop.ID
		}
	}
	t.rebuildFlatList()
}

// Tree returns the underlying tree (may be nil).
func (t *TreeModel) Tree() *tree.Tree {
	return t.tree
}

// SetSize sets the available width and height.
func (t *TreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureCursorVisible()
}

// HandleKey feeds one key to the tree and updates focus and the visible
// list from the result.
func (t *TreeModel) HandleKey(k tree.Key) tree.Result {
	if t.tree == nil {
		return tree.Result{}
	}
	res := t.tree.HandleKey(t.focused, k)
	t.focused = res.Focus
	if res.Changed {
		t.rebuildFlatList()
		t.saveState()
	}
	t.ensureCursorVisible()
	return res
}

// ToggleFocused expands or collapses the focused node.
func (t *TreeModel) ToggleFocused() bool {
	if t.tree == nil || !t.tree.Toggle(t.focused) {
		return false
	}
	t.rebuildFlatList()
	t.saveState()
	return true
}

// ExpandAll expands all nodes in the tree.
func (t *TreeModel) ExpandAll() {
	if t.tree == nil {
		return
	}
	t.tree.ExpandAll()
	t.rebuildFlatList()
	t.saveState()
}

// CollapseAll collapses all nodes in the tree.
func (t *TreeModel) CollapseAll() {
	if t.tree == nil {
		return
	}
	t.tree.CollapseAll()
	t.rebuildFlatList()
	t.saveState()
}

// PageDown moves focus down by half a viewport.
func (t *TreeModel) PageDown() {
	t.moveBy(t.pageSize())
}

// PageUp moves focus up by half a viewport.
func (t *TreeModel) PageUp() {
	t.moveBy(-t.pageSize())
}

func (t *TreeModel) pageSize() int {
	pageSize := t.height / 2
	if pageSize < 1 {
		pageSize = 5
	}
	return pageSize
}

func (t *TreeModel) moveBy(delta int) {
	if len(t.flatList) == 0 {
		return
	}
	i := t.Cursor() + delta
	if i < 0 {
		i = 0
	}
	if i >= len(t.flatList) {
		i = len(t.flatList) - 1
	}
	t.focused = t.flatList[i].ID
	t.ensureCursorVisible()
}

// FocusedNode returns the focused node, or nil.
func (t *TreeModel) FocusedNode() *tree.Node {
	if t.tree == nil || t.focused == "" {
		return nil
	}
	return t.tree.Node(t.focused)
}

// FocusedID returns the focused node ID, or "".
func (t *TreeModel) FocusedID() string {
	return t.focused
}

// SelectByID focuses the node with the given ID if it is visible.
func (t *TreeModel) SelectByID(id string) bool {
	if t.tree == nil || !t.tree.IsVisible(id) {
		return false
	}
	t.focused = id
	t.ensureCursorVisible()
	return true
}

// Reveal expands every collapsed ancestor of id and focuses it. Hidden
// nodes cannot be revealed.
func (t *TreeModel) Reveal(id string) bool {
	if t.tree == nil {
		return false
	}
	n := t.tree.Node(id)
	if n == nil || n.Hidden {
		return false
	}
	changed := false
	for _, a := range n.Ancestors() {
		if a.Hidden {
			return false
		}
		if t.tree.SetExpanded(a.ID, true) {
			changed = true
		}
	}
	if changed {
		t.rebuildFlatList()
		t.saveState()
	}
	return t.SelectByID(id)
}

// Cursor returns the index of the focused node in the visible list, or -1.
func (t *TreeModel) Cursor() int {
	for i, n := range t.flatList {
		if n.ID == t.focused {
			return i
		}
	}
	return -1
}

// VisibleIDs returns the IDs currently shown, top to bottom.
func (t *TreeModel) VisibleIDs() []string {
	ids := make([]string, len(t.flatList))
	for i, n := range t.flatList {
		ids[i] = n.ID
	}
	return ids
}

// NodeCount returns the number of visible nodes.
func (t *TreeModel) NodeCount() int {
	return len(t.flatList)
}

// rebuildFlatList recomputes the visible list. A focused node that became
// hidden hands focus to its nearest visible ancestor.
func (t *TreeModel) rebuildFlatList() {
	t.flatList = t.tree.Visible()
	if t.focused == "" || t.tree.IsVisible(t.focused) {
		return
	}
	if n := t.tree.Node(t.focused); n != nil {
		ancestors := n.Ancestors()
		for i := len(ancestors) - 1; i >= 0; i-- {
			if t.tree.IsVisible(ancestors[i].ID) {
				t.focused = ancestors[i].ID
				return
			}
		}
	}
	t.focused = ""
	if stop := t.tree.RovingTabStop(); stop != nil {
		t.focused = stop.ID
	}
}

func (t *TreeModel) saveState() {
	if t.statePath == "" || t.tree == nil {
		return
	}
	if err := t.tree.SaveState(t.statePath); err != nil {
		t.logger.Warn("failed to save tree state", zap.String("path", t.statePath), zap.Error(err))
	}
}

// ensureCursorVisible scrolls so the focused row is inside the window.
func (t *TreeModel) ensureCursorVisible() {
	cursor := t.Cursor()
	if cursor < 0 {
		return
	}
	visibleCount := t.visibleCount()
	if cursor < t.viewportOffset {
		t.viewportOffset = cursor
	} else if cursor >= t.viewportOffset+visibleCount {
		t.viewportOffset = cursor - visibleCount + 1
	}
}

func (t *TreeModel) visibleCount() int {
	if t.height <= 0 {
		return 20
	}
	return t.height
}

// visibleRange returns the [start, end) slice of flatList to render.
func (t *TreeModel) visibleRange() (start, end int) {
	if len(t.flatList) == 0 {
		return 0, 0
	}
	visibleCount := t.visibleCount()
	start = t.viewportOffset
	end = start + visibleCount
	if end > len(t.flatList) {
		end = len(t.flatList)
		start = end - visibleCount
	}
	if start < 0 {
		start = 0
	}
	return start, end
}

// View renders the visible window of the tree.
func (t *TreeModel) View() string {
	if t.tree == nil || len(t.flatList) == 0 {
		return t.renderEmptyState()
	}

	var sb strings.Builder
	start, end := t.visibleRange()
	for _, node := range t.flatList[start:end] {
		isSelected := node.ID == t.focused
		line := t.renderNode(node)
		if isSelected {
			line = t.theme.Selected.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (t *TreeModel) renderEmptyState() string {
	r := t.theme.Renderer
	titleStyle := r.NewStyle().Foreground(t.theme.Primary).Bold(true)
	mutedStyle := r.NewStyle().Foreground(t.theme.Muted)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Site Navigation"))
	sb.WriteString("\n\n")
	sb.WriteString(mutedStyle.Render("No navigation items to display."))
	sb.WriteString("\n\n")
	sb.WriteString(mutedStyle.Render("Add items to the nav file, e.g.:"))
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render("  items:\n    - id: home\n      label: Home\n      url: /"))
	return sb.String()
}

// renderNode renders one row: branch prefix, indicator, label, URL.
func (t *TreeModel) renderNode(node *tree.Node) string {
	r := t.theme.Renderer
	var sb strings.Builder

	prefix := t.buildTreePrefix(node)
	sb.WriteString(prefix)

	indicator := t.getExpandIndicator(node)
	sb.WriteString(r.NewStyle().Foreground(t.theme.Secondary).Render(indicator))
	sb.WriteString(" ")

	labelStyle := r.NewStyle().Foreground(t.theme.Base)
	if node.Active {
		labelStyle = r.NewStyle().Foreground(t.theme.Current).Bold(true)
	}

	urlWidth := 0
	if node.URL != "" && t.width > 60 {
		urlWidth = runewidth.StringWidth(node.URL) + 2
	}
	maxLabel := t.width - lipgloss.Width(prefix) - 2 - urlWidth
	if node.Active {
		maxLabel -= 2
	}
	if maxLabel < 10 {
		maxLabel = 10
	}
	sb.WriteString(labelStyle.Render(truncateLabel(node.Label, maxLabel)))

	if node.Active {
		sb.WriteString(r.NewStyle().Foreground(t.theme.Current).Render(" ●"))
	}
	if urlWidth > 0 {
		sb.WriteString("  ")
		sb.WriteString(r.NewStyle().Foreground(t.theme.Muted).Render(node.URL))
	}
	return sb.String()
}

// buildTreePrefix builds the indentation and branch characters for a node.
func (t *TreeModel) buildTreePrefix(node *tree.Node) string {
	if node.Depth == 0 {
		return ""
	}
	treeStyle := t.theme.Renderer.NewStyle().Foreground(t.theme.Muted)
	roots := t.tree.Roots()

	var parts []string
	// Ancestors below the root level decide whether a vertical rule
	// continues through this row.
	ancestors := node.Ancestors()
	for _, a := range ancestors[1:] {
		if a.IsLastChild(roots) {
			parts = append(parts, "    ")
		} else {
			parts = append(parts, "│   ")
		}
	}
	if node.IsLastChild(roots) {
		parts = append(parts, "└── ")
	} else {
		parts = append(parts, "├── ")
	}
	return treeStyle.Render(strings.Join(parts, ""))
}

// getExpandIndicator returns the expand/collapse indicator for a node.
func (t *TreeModel) getExpandIndicator(node *tree.Node) string {
	if !node.HasChildren() {
		return "•"
	}
	if node.Expanded {
		return "▾"
	}
	return "▸"
}

// truncateLabel shortens s to maxWidth display cells with an ellipsis.
func truncateLabel(s string, maxWidth int) string {
	if maxWidth <= 1 {
		return "…"
	}
	return runewidth.Truncate(s, maxWidth, "…")
}
