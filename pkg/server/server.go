// Package server exposes the navigation tree over HTTP: the rendered
// markup, a JSON API driving the keyboard state machine, embed
// placeholders and a live-reload event stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vanderheijden86/sitenav/pkg/embed"
	"github.com/vanderheijden86/sitenav/pkg/export"
	"github.com/vanderheijden86/sitenav/pkg/model"
	"github.com/vanderheijden86/sitenav/pkg/render"
	"github.com/vanderheijden86/sitenav/pkg/tree"
)

// Config holds server configuration.
type Config struct {
	Addr            string
	AllowAllOrigins bool               // allow all CORS origins (dev mode)
	Active          model.ActiveRecord // overrides the document's active record
	Collapsible     bool
	StatePath       string // tree-state.json; empty disables persistence
	WatchPath       string // nav file to watch for live reload; empty disables it
}

// LoadFunc returns the current navigation document.
type LoadFunc func(ctx context.Context) (*model.Document, error)

// Server serves one navigation tree. Handlers run concurrently, so every
// tree access holds mu.
type Server struct {
	cfg      Config
	load     LoadFunc
	renderer *render.Renderer
	embeds   *embed.Registry
	hub      *export.LiveReloadHub
	logger   *zap.Logger

	mu    sync.Mutex
	tree  *tree.Tree
	title string

	router     chi.Router
	httpServer *http.Server
}

// New creates a server and loads the initial tree. embeds may be nil, in
// which case the /embed routes answer 404.
func New(cfg Config, load LoadFunc, embeds *embed.Registry, logger *zap.Logger) (*Server, error) {
	if load == nil {
		return nil, errors.New("server: load function is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	renderer, err := render.New()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		load:     load,
		renderer: renderer,
		embeds:   embeds,
		logger:   logger,
	}
	if err := s.Reload(context.Background()); err != nil {
		return nil, err
	}

	hub, err := export.NewLiveReloadHub(cfg.WatchPath,
		export.WithLogger(logger),
		export.WithOnChange(func() {
			if err := s.Reload(context.Background()); err != nil {
				s.logger.Warn("nav reload failed", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("live reload: %w", err)
	}
	s.hub = hub

	s.router = s.buildRouter()
	return s, nil
}

// Reload rebuilds the tree from the load function and reapplies the saved
// collapse state. On error the previous tree stays in place.
func (s *Server) Reload(ctx context.Context) error {
	doc, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("load navigation: %w", err)
	}
	active := doc.Active
	if !s.cfg.Active.IsZero() {
		active = s.cfg.Active
	}
	t, err := tree.Build(doc.Items, active, s.cfg.Collapsible)
	if err != nil {
		return err
	}
	t.SetLogger(s.logger)
	if s.cfg.StatePath != "" {
		if err := t.LoadState(s.cfg.StatePath); err != nil {
			s.logger.Warn("ignoring tree state", zap.Error(err))
		}
	}

	s.mu.Lock()
	s.tree = t
	s.title = doc.Title
	s.mu.Unlock()
	s.logger.Info("navigation loaded", zap.Int("items", t.Len()))
	return nil
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAllOrigins {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// The event stream is long lived and must stay outside the timeout.
	r.Get("/events", s.hub.SSEHandler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.With(export.InjectLiveReload).Get("/nav", s.handleNav)

		r.Route("/api/nav", func(r chi.Router) {
			r.Get("/visible", s.handleVisible)
			r.Post("/key", s.handleKey)
			r.Post("/toggle/{id}", s.handleToggle)
		})

		r.Get("/embed/{provider}/{postID}", s.handleEmbed)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// Router returns the chi router.
func (s *Server) Router() chi.Router { return s.router }

// Hub returns the live-reload hub.
func (s *Server) Hub() *export.LiveReloadHub { return s.hub }

// Start begins watching the nav file and listening on the configured
// address. It blocks until the server stops.
func (s *Server) Start() error {
	if err := s.hub.Start(); err != nil {
		return err
	}
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("sitenav server listening", zap.String("addr", s.cfg.Addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown disconnects event clients and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>.sr-only{position:absolute;width:1px;height:1px;overflow:hidden;clip:rect(0,0,0,0)}.isHidden{display:none}</style>
</head>
<body>
{{.Nav}}
</body>
</html>
`))

func (s *Server) handleNav(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	title := s.title
	opts := render.Options{ID: r.URL.Query().Get("id"), Title: title}
	nav, err := s.renderer.HTML(s.tree, opts)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.URL.Query().Get("fragment") != "" {
		_, _ = w.Write([]byte(nav))
		return
	}
	if title == "" {
		title = render.DefaultTitle
	}
	data := struct {
		Title string
		Nav   template.HTML
	}{title, nav}
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Warn("write nav page", zap.Error(err))
	}
}

// VisibleNode is one row of the visible list.
type VisibleNode struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	URL         string `json:"url,omitempty"`
	Depth       int    `json:"depth"`
	HasChildren bool   `json:"hasChildren"`
	Expanded    bool   `json:"expanded"`
	Active      bool   `json:"active,omitempty"`
}

// VisibleResponse is the body of GET /api/nav/visible.
type VisibleResponse struct {
	TabStop string        `json:"tabStop"`
	Nodes   []VisibleNode `json:"nodes"`
}

func (s *Server) handleVisible(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := VisibleSnapshot(s.tree)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

// VisibleSnapshot captures the visible list of t and its roving tab stop.
func VisibleSnapshot(t *tree.Tree) VisibleResponse {
	resp := VisibleResponse{Nodes: []VisibleNode{}}
	if stop := t.RovingTabStop(); stop != nil {
		resp.TabStop = stop.ID
	}
	for _, n := range t.Visible() {
		resp.Nodes = append(resp.Nodes, VisibleNode{
			ID:          n.ID,
			Label:       n.Label,
			URL:         n.URL,
			Depth:       n.Depth,
			HasChildren: n.HasChildren(),
			Expanded:    n.Expanded,
			Active:      n.Active,
		})
	}
	return resp
}

// KeyRequest is the body of POST /api/nav/key.
type KeyRequest struct {
	Focused string `json:"focused"`
	Key     string `json:"key"`
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	var req KeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	k, ok := tree.ParseKey(req.Key)
	if !ok {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("unsupported key %q", req.Key))
		return
	}

	s.mu.Lock()
	res := s.tree.HandleKey(req.Focused, k)
	if res.Changed {
		s.saveStateLocked()
	}
	s.mu.Unlock()

	if res.Changed {
		s.hub.Notify(export.Event{Name: "reload", Data: `{"action":"toggle"}`})
	}
	writeJSON(w, http.StatusOK, res)
}

// ToggleResponse is the body returned by POST /api/nav/toggle/{id}.
type ToggleResponse struct {
	ID       string `json:"id"`
	Expanded bool   `json:"expanded"`
	Changed  bool   `json:"changed"`
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	n := s.tree.Node(id)
	if n == nil {
		s.mu.Unlock()
		s.fail(w, http.StatusNotFound, fmt.Errorf("unknown nav item %q", id))
		return
	}
	changed := s.tree.Toggle(id)
	if changed {
		s.saveStateLocked()
	}
	resp := ToggleResponse{ID: id, Expanded: n.Expanded, Changed: changed}
	s.mu.Unlock()

	if changed {
		s.hub.Notify(export.Event{Name: "reload", Data: `{"action":"toggle"}`})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	if s.embeds == nil {
		s.fail(w, http.StatusNotFound, errors.New("embeds are disabled"))
		return
	}
	if _, ok := s.embeds.Provider(name); !ok {
		s.fail(w, http.StatusNotFound, fmt.Errorf("unknown embed provider %q", name))
		return
	}

	album := r.URL.Query().Get("album")
	data := embed.Data{
		PostID:  chi.URLParam(r, "postID"),
		IsAlbum: album == "1" || strings.EqualFold(album, "true"),
	}
	ph, err := s.embeds.Render(r.Context(), name, data)
	if err != nil {
		var loadErr *embed.ProviderLoadError
		if errors.As(err, &loadErr) {
			s.fail(w, http.StatusBadGateway, err)
			return
		}
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(ph.HTML))
}

// saveStateLocked persists collapse state. Caller holds mu.
func (s *Server) saveStateLocked() {
	if s.cfg.StatePath == "" {
		return
	}
	if err := s.tree.SaveState(s.cfg.StatePath); err != nil {
		s.logger.Warn("failed to save tree state", zap.Error(err))
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
