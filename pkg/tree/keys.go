package tree

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrStructuralMismatch is returned by Step when the focused element
// cannot be located in the tree. HandleKey swallows it.
var ErrStructuralMismatch = errors.New("focused element is not part of the tree")

// Key is a navigation key.
type Key int

const (
	KeyNone Key = iota
	KeyArrowUp
	KeyArrowDown
	KeyHome
	KeyEnd
	KeyArrowLeft
	KeyArrowRight
	KeyEnter
)

var keyNames = map[Key]string{
	KeyArrowUp:    "ArrowUp",
	KeyArrowDown:  "ArrowDown",
	KeyHome:       "Home",
	KeyEnd:        "End",
	KeyArrowLeft:  "ArrowLeft",
	KeyArrowRight: "ArrowRight",
	KeyEnter:      "Enter",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "None"
}

// IsRootKey reports whether the key is handled at the tree root rather
// than by the focused node.
func (k Key) IsRootKey() bool {
	switch k {
	case KeyArrowUp, KeyArrowDown, KeyHome, KeyEnd:
		return true
	}
	return false
}

// ParseKey maps a DOM KeyboardEvent.key value to a Key. Matching is
// case-insensitive and accepts the legacy "Up"/"Down"/"Left"/"Right" names.
func ParseKey(name string) (Key, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "arrowup", "up":
		return KeyArrowUp, true
	case "arrowdown", "down":
		return KeyArrowDown, true
	case "home":
		return KeyHome, true
	case "end":
		return KeyEnd, true
	case "arrowleft", "left":
		return KeyArrowLeft, true
	case "arrowright", "right":
		return KeyArrowRight, true
	case "enter":
		return KeyEnter, true
	}
	return KeyNone, false
}

// Result is the outcome of one key press.
type Result struct {
	Focus    string `json:"focus"`              // ID of the node holding focus afterwards ("" = none)
	Handled  bool   `json:"handled"`            // Default action and propagation should be suppressed
	Changed  bool   `json:"changed,omitempty"`  // A node's collapse state changed
	Activate bool   `json:"activate,omitempty"` // A leaf was activated; follow URL
	URL      string `json:"url,omitempty"`
}

// HandleKey runs the keyboard state machine for one key press while the
// node with ID focused holds focus ("" = nothing focused). It never fails:
// a focus that cannot be located in the tree leaves everything unchanged.
func (t *Tree) HandleKey(focused string, k Key) Result {
	res, err := t.dispatch(focused, k)
	if err != nil {
		t.logger.Debug("navigation key ignored",
			zap.Stringer("key", k),
			zap.String("focused", focused),
			zap.Error(err))
		return Result{Focus: focused}
	}
	return res
}

// Step is HandleKey without error recovery. It returns the new focus or
// ErrStructuralMismatch.
func (t *Tree) Step(focused string, k Key) (string, error) {
	res, err := t.dispatch(focused, k)
	if err != nil {
		return focused, err
	}
	return res.Focus, nil
}

func (t *Tree) dispatch(focused string, k Key) (Result, error) {
	res := Result{Focus: focused}

	switch k {
	case KeyHome:
		res.Handled = true
		if first := t.FirstVisible(); first != nil {
			res.Focus = first.ID
		}
		return res, nil
	case KeyEnd:
		res.Handled = true
		if last := t.LastVisible(); last != nil {
			res.Focus = last.ID
		}
		return res, nil
	case KeyNone:
		return res, nil
	}

	// Every other key needs a focused node inside the tree.
	if focused == "" {
		return res, nil
	}
	node := t.byID[focused]
	if node == nil {
		return res, fmt.Errorf("%w: %q", ErrStructuralMismatch, focused)
	}
	res.Handled = true

	switch k {
	case KeyArrowDown:
		if next := t.adjacentVisible(node, true); next != nil {
			res.Focus = next.ID
		}
	case KeyArrowUp:
		if prev := t.adjacentVisible(node, false); prev != nil {
			res.Focus = prev.ID
		}
	case KeyArrowRight:
		t.expandOrMoveToChild(node, &res)
	case KeyArrowLeft:
		t.collapseOrMoveToParent(node, &res)
	case KeyEnter:
		if node.HasChildren() && t.collapsible {
			res.Changed = t.Toggle(node.ID)
		} else {
			res.Activate = true
			res.URL = node.URL
		}
	}
	return res, nil
}

// adjacentVisible returns the visible node following (or preceding) n in
// document order. n itself need not be visible: focus left behind inside
// a collapsed subtree still moves relative to its document position.
func (t *Tree) adjacentVisible(n *Node, forward bool) *Node {
	rank := make(map[*Node]int, len(t.byID))
	for i, node := range t.Preorder() {
		rank[node] = i
	}
	pos := rank[n]

	visible := t.Visible()
	if forward {
		for _, v := range visible {
			if rank[v] > pos {
				return v
			}
		}
		return nil
	}
	for i := len(visible) - 1; i >= 0; i-- {
		if rank[visible[i]] < pos {
			return visible[i]
		}
	}
	return nil
}

// expandOrMoveToChild handles ArrowRight:
// - collapsed parent: expand it
// - expanded parent: move to the first visible child
// - leaf: nothing
func (t *Tree) expandOrMoveToChild(n *Node, res *Result) {
	if !n.HasChildren() {
		return
	}
	if !n.Expanded {
		res.Changed = t.SetExpanded(n.ID, true)
		return
	}
	for _, child := range n.Children {
		if !child.Hidden {
			res.Focus = child.ID
			return
		}
	}
}

// collapseOrMoveToParent handles ArrowLeft:
// - expanded parent in a collapsible tree: collapse it
// - otherwise: move to the parent, if any
func (t *Tree) collapseOrMoveToParent(n *Node, res *Result) {
	if n.HasChildren() && n.Expanded && t.collapsible {
		res.Changed = t.SetExpanded(n.ID, false)
		return
	}
	if n.Parent != nil {
		res.Focus = n.Parent.ID
	}
}
