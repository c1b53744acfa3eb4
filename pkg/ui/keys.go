package ui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/sitenav/pkg/tree"
)

// KeyMap holds the navigator's bindings.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Home        key.Binding
	End         key.Binding
	Left        key.Binding
	Right       key.Binding
	Enter       key.Binding
	Toggle      key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	ExpandAll   key.Binding
	CollapseAll key.Binding
	CopyURL     key.Binding
	Jump        key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func (km KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Up, km.Down, km.Left, km.Right, km.Enter, km.Help, km.Quit}
}

func (km KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Up, km.Down, km.Home, km.End, km.PageUp, km.PageDown},
		{km.Left, km.Right, km.Enter, km.Toggle, km.ExpandAll, km.CollapseAll},
		{km.Jump, km.CopyURL, km.Help, km.Quit},
	}
}

var _ help.KeyMap = KeyMap{}

// DefaultKeyMap mirrors the browser tree keys, plus vim motions.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Home: key.NewBinding(
		key.WithKeys("home", "g"),
		key.WithHelp("home/g", "first"),
	),
	End: key.NewBinding(
		key.WithKeys("end", "G"),
		key.WithHelp("end/G", "last"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "collapse/parent"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "expand/child"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "toggle/open"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "toggle"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup", "ctrl+u"),
		key.WithHelp("pgup", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown", "ctrl+d"),
		key.WithHelp("pgdn", "page down"),
	),
	ExpandAll: key.NewBinding(
		key.WithKeys("E"),
		key.WithHelp("E", "expand all"),
	),
	CollapseAll: key.NewBinding(
		key.WithKeys("C"),
		key.WithHelp("C", "collapse all"),
	),
	CopyURL: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy url"),
	),
	Jump: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "jump to item"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// treeKey maps a key press to the tree state machine key, if it is one.
func (km KeyMap) treeKey(msg tea.KeyMsg) (tree.Key, bool) {
	switch {
	case key.Matches(msg, km.Up):
		return tree.KeyArrowUp, true
	case key.Matches(msg, km.Down):
		return tree.KeyArrowDown, true
	case key.Matches(msg, km.Home):
		return tree.KeyHome, true
	case key.Matches(msg, km.End):
		return tree.KeyEnd, true
	case key.Matches(msg, km.Left):
		return tree.KeyArrowLeft, true
	case key.Matches(msg, km.Right):
		return tree.KeyArrowRight, true
	case key.Matches(msg, km.Enter):
		return tree.KeyEnter, true
	}
	return tree.KeyNone, false
}
