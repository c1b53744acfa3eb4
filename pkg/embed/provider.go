package embed

import (
	"context"
	"fmt"
	"html/template"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProviderLoadError reports that a provider's script could not be used:
// either the fetch failed or the script loaded without exposing the
// provider's global API.
type ProviderLoadError struct {
	Provider  string
	ScriptURL string
	Cause     error
}

func (e *ProviderLoadError) Error() string {
	return fmt.Sprintf("the %s embed failed to load from %s: %v", e.Provider, e.ScriptURL, e.Cause)
}

func (e *ProviderLoadError) Unwrap() error {
	return e.Cause
}

// Data is the embed metadata stored with a post.
type Data struct {
	PostID  string `json:"postID"`
	IsAlbum bool   `json:"isAlbum,omitempty"`
}

// Placeholder is the element a provider script replaces on the page.
type Placeholder struct {
	Tag       string
	Class     string
	Lang      string
	DataID    string
	Href      string
	ScriptURL string
	Provider  string
	HTML      template.HTML
}

// Provider describes one third-party embed source.
type Provider interface {
	Name() string
	ScriptURL() string
	// Bind verifies the loaded script exposes the provider's global API.
	Bind(script *Script) error
	// Placeholder builds the markup the provider script will hydrate.
	Placeholder(data Data) (Placeholder, error)
}

// Registry maps provider names to providers and renders embeds through a
// shared Loader.
type Registry struct {
	loader *Loader
	logger *zap.Logger

	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry backed by loader.
func NewRegistry(loader *Loader, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		loader:    loader,
		logger:    logger,
		providers: make(map[string]Provider),
	}
}

// Register adds or replaces a provider.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Provider returns the named provider.
func (r *Registry) Provider(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render ensures the provider script is loaded, checks its global and
// returns the placeholder for data. Load failures surface as
// *ProviderLoadError.
func (r *Registry) Render(ctx context.Context, name string, data Data) (Placeholder, error) {
	p, ok := r.Provider(name)
	if !ok {
		return Placeholder{}, fmt.Errorf("unknown embed provider %q", name)
	}
	if data.PostID == "" {
		return Placeholder{}, fmt.Errorf("%s embed: postID is required", name)
	}

	script, err := r.loader.Ensure(ctx, p.ScriptURL())
	if err != nil {
		return Placeholder{}, &ProviderLoadError{Provider: name, ScriptURL: p.ScriptURL(), Cause: err}
	}
	if err := p.Bind(script); err != nil {
		return Placeholder{}, &ProviderLoadError{Provider: name, ScriptURL: p.ScriptURL(), Cause: err}
	}
	return p.Placeholder(data)
}

// Request is one embed to render in a batch.
type Request struct {
	Provider string
	Data     Data
}

// RenderAll renders a batch of embeds concurrently. Results keep the
// order of reqs; the first error cancels the rest.
func (r *Registry) RenderAll(ctx context.Context, reqs []Request) ([]Placeholder, error) {
	out := make([]Placeholder, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, req := range reqs {
		g.Go(func() error {
			ph, err := r.Render(gctx, req.Provider, req.Data)
			if err != nil {
				return err
			}
			out[i] = ph
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Warn("embed batch failed", zap.Int("requests", len(reqs)), zap.Error(err))
		return nil, err
	}
	return out, nil
}
