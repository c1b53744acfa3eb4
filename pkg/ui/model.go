package ui

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/vanderheijden86/sitenav/pkg/model"
	"github.com/vanderheijden86/sitenav/pkg/tree"
)

// Options configures the navigator model.
type Options struct {
	Title       string
	Active      model.ActiveRecord // overrides the document's active record when set
	Collapsible bool
	StatePath   string
	Theme       *Theme
	Logger      *zap.Logger

	// CopyToClipboard defaults to the system clipboard.
	CopyToClipboard func(string) error
}

// Model is the top-level bubbletea model: a tree pane, a status bar and a
// help overlay.
type Model struct {
	tree  TreeModel
	jump  JumpModel
	keys  KeyMap
	help  help.Model
	md    *MarkdownRenderer
	theme Theme
	opts  Options

	showHelp  bool
	ready     bool
	width     int
	height    int
	status    string
	statusErr bool
	activated string // URL of the last activated link
}

// NewModel wraps t. t may be nil until the first NavReloadedMsg arrives.
func NewModel(t *tree.Tree, opts Options) Model {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.CopyToClipboard == nil {
		opts.CopyToClipboard = clipboard.WriteAll
	}
	if opts.Title == "" {
		opts.Title = "Site Navigation"
	}

	tm := NewTreeModel(theme)
	tm.SetLogger(opts.Logger)
	tm.SetStatePath(opts.StatePath)
	tm.SetTree(t)

	return Model{
		tree:  tm,
		jump:  NewJumpModel(theme),
		keys:  DefaultKeyMap,
		help:  help.New(),
		md:    NewMarkdownRendererWithTheme(60, theme),
		theme: theme,
		opts:  opts,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.help.Width = msg.Width
		m.jump.SetWidth(msg.Width)
		m.tree.SetSize(msg.Width, m.bodyHeight())

	case JumpToNodeMsg:
		if m.tree.Reveal(msg.ID) {
			m.setStatus("", false)
		} else {
			m.setStatus(fmt.Sprintf("cannot show %s", msg.ID), true)
		}

	case NavReloadedMsg:
		m.applyDocument(msg.Doc)

	case NavErrorMsg:
		m.setStatus(fmt.Sprintf("reload failed: %v", msg.Err.Cause), true)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		switch {
		case key.Matches(msg, m.keys.Help), msg.String() == "esc":
			m.showHelp = false
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		}
		return m, nil
	}

	if m.jump.Active() {
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.jump, cmd = m.jump.Update(msg)
		m.tree.SetSize(m.width, m.bodyHeight())
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.Jump):
		cmd := m.jump.Open(m.tree.Tree())
		m.tree.SetSize(m.width, m.bodyHeight())
		return m, cmd
	case key.Matches(msg, m.keys.Toggle):
		m.tree.ToggleFocused()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.tree.PageDown()
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.tree.PageUp()
		return m, nil
	case key.Matches(msg, m.keys.ExpandAll):
		m.tree.ExpandAll()
		return m, nil
	case key.Matches(msg, m.keys.CollapseAll):
		m.tree.CollapseAll()
		return m, nil
	case key.Matches(msg, m.keys.CopyURL):
		m.copyFocusedURL()
		return m, nil
	}

	if k, ok := m.keys.treeKey(msg); ok {
		res := m.tree.HandleKey(k)
		if res.Activate {
			m.activated = res.URL
			if res.URL != "" {
				m.setStatus("open "+res.URL, false)
			}
		}
	}
	return m, nil
}

// applyDocument rebuilds the tree from a reloaded document, keeping focus.
func (m *Model) applyDocument(doc *model.Document) {
	if doc == nil {
		return
	}
	active := doc.Active
	if !m.opts.Active.IsZero() {
		active = m.opts.Active
	}
	nt, err := tree.Build(doc.Items, active, m.opts.Collapsible)
	if err != nil {
		m.setStatus(fmt.Sprintf("invalid navigation: %v", err), true)
		return
	}
	nt.SetLogger(m.opts.Logger)
	if doc.Title != "" {
		m.opts.Title = doc.Title
	}
	m.tree.SetTree(nt)
	m.tree.SetSize(m.width, m.bodyHeight())
	m.setStatus(fmt.Sprintf("reloaded %d items", nt.Len()), false)
}

func (m *Model) copyFocusedURL() {
	n := m.tree.FocusedNode()
	if n == nil || n.URL == "" {
		m.setStatus("nothing to copy", true)
		return
	}
	if err := m.opts.CopyToClipboard(n.URL); err != nil {
		m.setStatus(fmt.Sprintf("clipboard: %v", err), true)
		return
	}
	m.setStatus("copied "+n.URL, false)
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

// bodyHeight leaves room for the header, the jump filter and the status bar.
func (m Model) bodyHeight() int {
	h := m.height - 3 - m.jump.Height()
	if h < 1 {
		h = 1
	}
	return h
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	r := m.theme.Renderer

	header := r.NewStyle().Bold(true).Foreground(m.theme.Primary).Render(m.opts.Title)
	if t := m.tree.Tree(); t != nil {
		header += r.NewStyle().Foreground(m.theme.Muted).
			Render(fmt.Sprintf("  %d/%d shown", m.tree.NodeCount(), t.Len()))
	}

	body := m.tree.View()
	if m.showHelp {
		body = lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center,
			RenderHelp(m.md, m.theme, m.width))
	}

	parts := []string{header, body}
	if m.jump.Active() {
		parts = append(parts, m.jump.View())
	}
	parts = append(parts, m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderFooter() string {
	r := m.theme.Renderer
	if m.status == "" {
		return m.help.View(m.keys)
	}
	style := r.NewStyle().Foreground(m.theme.Current)
	if m.statusErr {
		style = r.NewStyle().Foreground(m.theme.Secondary).Bold(true)
	}
	return style.Render(m.status) + "  " + m.help.View(m.keys)
}

// FocusedID returns the focused node ID (exposed for testing).
func (m Model) FocusedID() string {
	return m.tree.FocusedID()
}

// Activated returns the URL of the last activated link.
func (m Model) Activated() string {
	return m.activated
}

// Status returns the status bar message.
func (m Model) Status() string {
	return m.status
}

// VisibleIDs returns the visible node IDs (exposed for testing).
func (m Model) VisibleIDs() []string {
	return m.tree.VisibleIDs()
}
