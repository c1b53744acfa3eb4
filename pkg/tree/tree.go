// Package tree holds the in-memory site navigation tree: the node
// structure built from caller-supplied items, the active record marker,
// per-node collapse state and the keyboard navigation over visible nodes.
package tree

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/vanderheijden86/sitenav/pkg/model"
)

// Node is one navigable item in the tree.
type Node struct {
	ID         string
	Label      string
	URL        string
	RecordType string
	RecordID   string

	Depth    int     // Nesting level (0 = root)
	Index    int     // Position among siblings
	Children []*Node // Display order
	Parent   *Node   // Back-reference for navigation

	Expanded bool // Local collapse state
	Hidden   bool // Never shown, regardless of ancestors
	Active   bool // Matches the current page

	defaultExpanded bool // Expanded state the item was supplied with
}

// HasChildren reports whether the node has any children.
func (n *Node) HasChildren() bool {
	return len(n.Children) > 0
}

// Ancestors returns the node's ancestors ordered from root to parent.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for p := n.Parent; p != nil; p = p.Parent {
		out = append(out, p)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// IsLastChild reports whether no non-hidden sibling follows the node.
func (n *Node) IsLastChild(roots []*Node) bool {
	siblings := roots
	if n.Parent != nil {
		siblings = n.Parent.Children
	}
	for i := len(siblings) - 1; i >= 0; i-- {
		if siblings[i] == n {
			return true
		}
		if !siblings[i].Hidden {
			return false
		}
	}
	return false
}

// Tree is the navigation tree built from a whole set of items.
// There is no structural mutation API: a new item set means a new Tree.
type Tree struct {
	roots       []*Node
	byID        map[string]*Node
	active      *Node
	collapsible bool
	logger      *zap.Logger
}

// Build constructs the tree. It is a pure function of its inputs: one root
// per top-level item at depth 0, at most one node flagged active (the
// first match in document order) and every ancestor of the active node
// expanded. A non-collapsible tree has every node expanded.
func Build(items []model.NavItem, active model.ActiveRecord, collapsible bool) (*Tree, error) {
	if err := model.ValidateItems(items); err != nil {
		return nil, fmt.Errorf("build tree: %w", err)
	}

	t := &Tree{
		byID:        make(map[string]*Node, model.CountItems(items)),
		collapsible: collapsible,
		logger:      zap.NewNop(),
	}
	for i := range items {
		t.roots = append(t.roots, t.buildNode(&items[i], i, 0, nil))
	}
	t.markActive(active)
	// Opening the active chain is a default, not a user choice.
	if t.active != nil {
		for p := t.active.Parent; p != nil; p = p.Parent {
			p.defaultExpanded = p.Expanded
		}
	}
	return t, nil
}

func (t *Tree) buildNode(item *model.NavItem, index, depth int, parent *Node) *Node {
	expanded := !item.Collapsed || !t.collapsible
	node := &Node{
		ID:              item.ID,
		Label:           item.Label,
		URL:             item.URL,
		RecordType:      item.RecordType,
		RecordID:        item.RecordID,
		Depth:           depth,
		Index:           index,
		Parent:          parent,
		Expanded:        expanded,
		Hidden:          item.Hidden,
		defaultExpanded: expanded,
	}
	t.byID[item.ID] = node

	for i := range item.Children {
		node.Children = append(node.Children, t.buildNode(&item.Children[i], i, depth+1, node))
	}
	return node
}

// markActive flags the first matching node and opens its ancestor chain.
func (t *Tree) markActive(active model.ActiveRecord) {
	if active.IsZero() {
		return
	}
	t.walk(func(n *Node) bool {
		if !active.Matches(model.NavItem{RecordType: n.RecordType, RecordID: n.RecordID}) {
			return true
		}
		n.Active = true
		t.active = n
		t.expandAncestors(n)
		return false
	})
}

func (t *Tree) expandAncestors(n *Node) {
	for p := n.Parent; p != nil; p = p.Parent {
		p.Expanded = true
	}
}

// walk visits every node in document order until fn returns false.
func (t *Tree) walk(fn func(*Node) bool) {
	var visit func(nodes []*Node) bool
	visit = func(nodes []*Node) bool {
		for _, n := range nodes {
			if !fn(n) {
				return false
			}
			if !visit(n.Children) {
				return false
			}
		}
		return true
	}
	visit(t.roots)
}

// SetLogger replaces the tree's logger. A nil logger disables logging.
func (t *Tree) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	t.logger = l
}

// Roots returns the top-level nodes.
func (t *Tree) Roots() []*Node {
	return t.roots
}

// Node returns the node with the given ID, or nil.
func (t *Tree) Node(id string) *Node {
	return t.byID[id]
}

// Active returns the node matching the active record, or nil.
func (t *Tree) Active() *Node {
	return t.active
}

// Collapsible reports whether nodes may be collapsed.
func (t *Tree) Collapsible() bool {
	return t.collapsible
}

// Len returns the total number of nodes, visible or not.
func (t *Tree) Len() int {
	return len(t.byID)
}

// Preorder returns every node in document order.
func (t *Tree) Preorder() []*Node {
	out := make([]*Node, 0, len(t.byID))
	t.walk(func(n *Node) bool {
		out = append(out, n)
		return true
	})
	return out
}

// Visible returns the visible nodes in document order. The list is
// recomputed on every call so that it always reflects the current
// collapse state.
func (t *Tree) Visible() []*Node {
	var out []*Node
	var visit func(nodes []*Node)
	visit = func(nodes []*Node) {
		for _, n := range nodes {
			if n.Hidden {
				continue
			}
			out = append(out, n)
			if n.Expanded {
				visit(n.Children)
			}
		}
	}
	visit(t.roots)
	return out
}

// IsVisible reports whether the node exists, is not hidden and every
// ancestor is expanded and not hidden.
func (t *Tree) IsVisible(id string) bool {
	n := t.byID[id]
	if n == nil || n.Hidden {
		return false
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if !p.Expanded || p.Hidden {
			return false
		}
	}
	return true
}

// FirstVisible returns the first visible node, or nil for an empty tree.
func (t *Tree) FirstVisible() *Node {
	visible := t.Visible()
	if len(visible) == 0 {
		return nil
	}
	return visible[0]
}

// LastVisible returns the last visible node, or nil for an empty tree.
func (t *Tree) LastVisible() *Node {
	visible := t.Visible()
	if len(visible) == 0 {
		return nil
	}
	return visible[len(visible)-1]
}

// RovingTabStop returns the single node that should be reachable with Tab:
// the active node when it is visible, otherwise the first visible node.
func (t *Tree) RovingTabStop() *Node {
	if t.active != nil && t.IsVisible(t.active.ID) {
		return t.active
	}
	return t.FirstVisible()
}

// Toggle flips the collapse state of a parent node. It returns false when
// nothing changed (unknown ID, leaf, or non-collapsible tree).
func (t *Tree) Toggle(id string) bool {
	n := t.byID[id]
	if n == nil {
		return false
	}
	return t.SetExpanded(id, !n.Expanded)
}

// SetExpanded sets the collapse state of a parent node and reports whether
// it changed.
func (t *Tree) SetExpanded(id string, expanded bool) bool {
	n := t.byID[id]
	if n == nil || !n.HasChildren() {
		return false
	}
	if !t.collapsible && !expanded {
		return false
	}
	if n.Expanded == expanded {
		return false
	}
	n.Expanded = expanded
	return true
}

// ExpandAll expands every parent node.
func (t *Tree) ExpandAll() {
	t.walk(func(n *Node) bool {
		if n.HasChildren() {
			n.Expanded = true
		}
		return true
	})
}

// CollapseAll collapses every parent node. No-op for a non-collapsible tree.
func (t *Tree) CollapseAll() {
	if !t.collapsible {
		return
	}
	t.walk(func(n *Node) bool {
		if n.HasChildren() {
			n.Expanded = false
		}
		return true
	})
}
