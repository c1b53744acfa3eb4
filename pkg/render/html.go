// Package render turns a navigation tree into accessible HTML: a <nav>
// landmark holding a role="tree" list with one role="treeitem" per node.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/google/uuid"

	"github.com/vanderheijden86/sitenav/pkg/tree"
)

// NodeClass is the marker class carried by every tree item. Keyboard
// handlers on the page locate items with it.
const NodeClass = "siteNavNode"

// DefaultTitle is the accessible name of the navigation landmark.
const DefaultTitle = "Site Navigation"

const navTemplate = `{{define "nav"}}<nav class="siteNav{{with .ClassName}} {{.}}{{end}}" id="{{.ID}}" data-collapsible="{{.Collapsible}}">
<h2 id="{{.TitleID}}" class="sr-only">{{.Title}}</h2>
<ul class="siteNav-children hasDepth-0" role="tree" aria-labelledby="{{.TitleID}}">
{{range .Roots}}{{template "node" .}}{{end}}</ul>
</nav>
{{end}}
{{define "node"}}<li class="siteNavNode hasDepth-{{.Depth}}{{if .Active}} isCurrent{{end}}{{if .Hidden}} isHidden{{end}}" id="{{.DOMID}}" role="treeitem" aria-level="{{.Level}}"{{if .HasChildren}} aria-expanded="{{.Expanded}}"{{end}} aria-selected="{{.Active}}"{{if .Active}} aria-current="page"{{end}} tabindex="{{.TabIndex}}" data-node-id="{{.NodeID}}">
{{if .URL}}<a class="siteNavNode-link" href="{{.URL}}" tabindex="-1">{{.Label}}</a>{{else}}<span class="siteNavNode-label">{{.Label}}</span>{{end}}
{{if .Children}}<ul class="siteNav-children hasDepth-{{.ChildDepth}}" role="group"{{if not .Expanded}} hidden{{end}}>
{{range .Children}}{{template "node" .}}{{end}}</ul>
{{end}}</li>
{{end}}`

// Options control the outer markup.
type Options struct {
	ID        string // DOM id of the <nav>; generated when empty
	Title     string // Accessible name; DefaultTitle when empty
	ClassName string // Extra classes for the <nav>
}

// Renderer renders trees with a parsed template. It is safe for
// concurrent use.
type Renderer struct {
	tmpl *template.Template
}

// New parses the navigation template.
func New() (*Renderer, error) {
	tmpl, err := template.New("sitenav").Parse(navTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse nav template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// RequiredID returns id, or a fresh "<prefix>-<random>" id when id is empty.
func RequiredID(id, prefix string) string {
	if id != "" {
		return id
	}
	return prefix + "-" + uuid.NewString()[:8]
}

type navView struct {
	ID          string
	TitleID     string
	Title       string
	ClassName   string
	Collapsible bool
	Roots       []nodeView
}

type nodeView struct {
	DOMID       string
	NodeID      string
	Label       string
	URL         string
	Depth       int
	Level       int
	ChildDepth  int
	HasChildren bool
	Expanded    bool
	Active      bool
	Hidden      bool
	TabIndex    int
	Children    []nodeView
}

// Render writes the tree's markup to w.
func (r *Renderer) Render(w io.Writer, t *tree.Tree, opts Options) error {
	view := r.buildView(t, opts)
	if err := r.tmpl.ExecuteTemplate(w, "nav", view); err != nil {
		return fmt.Errorf("render nav: %w", err)
	}
	return nil
}

// HTML renders the tree to a string safe to embed in a page.
func (r *Renderer) HTML(t *tree.Tree, opts Options) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, t, opts); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (r *Renderer) buildView(t *tree.Tree, opts Options) navView {
	id := RequiredID(opts.ID, "siteNav")
	title := opts.Title
	if title == "" {
		title = DefaultTitle
	}

	tabStop := t.RovingTabStop()
	var convert func(n *tree.Node) nodeView
	convert = func(n *tree.Node) nodeView {
		v := nodeView{
			DOMID:       id + "-node-" + n.ID,
			NodeID:      n.ID,
			Label:       n.Label,
			URL:         n.URL,
			Depth:       n.Depth,
			Level:       n.Depth + 1,
			ChildDepth:  n.Depth + 1,
			HasChildren: n.HasChildren(),
			Expanded:    n.Expanded,
			Active:      n.Active,
			Hidden:      !t.IsVisible(n.ID),
			TabIndex:    -1,
		}
		if n == tabStop {
			v.TabIndex = 0
		}
		for _, c := range n.Children {
			v.Children = append(v.Children, convert(c))
		}
		return v
	}

	view := navView{
		ID:          id,
		TitleID:     id + "-title",
		Title:       title,
		ClassName:   opts.ClassName,
		Collapsible: t.Collapsible(),
	}
	for _, root := range t.Roots() {
		view.Roots = append(view.Roots, convert(root))
	}
	return view
}
