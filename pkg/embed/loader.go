// Package embed loads third-party embed scripts and renders the
// placeholder markup those scripts hydrate on the page.
//
// Every script URL moves through uninitialized -> loading -> ready or
// failed. Loads are deduplicated: concurrent callers for the same URL
// share one fetch and all return once it completes.
package embed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ScriptState is the lifecycle state of one script URL.
type ScriptState int

const (
	StateUninitialized ScriptState = iota
	StateLoading
	StateReady
	StateFailed
)

func (s ScriptState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// Script is a loaded third-party script.
type Script struct {
	URL      string
	Body     []byte
	LoadedAt time.Time
}

// Fetcher retrieves a script body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches scripts over HTTP. Protocol-relative URLs
// ("//host/path") are requested over https.
type HTTPFetcher struct {
	Client  *http.Client
	MaxSize int64 // Body limit in bytes; 0 = 4 MiB
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	maxSize := f.MaxSize
	if maxSize <= 0 {
		maxSize = 4 << 20
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ResolveURL(url), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}

// ResolveURL turns a protocol-relative URL into an https one.
func ResolveURL(url string) string {
	if strings.HasPrefix(url, "//") {
		return "https:" + url
	}
	return url
}

type scriptEntry struct {
	state  ScriptState
	script *Script
	err    error
}

// Loader ensures scripts are loaded at most once per process. The zero
// value is not usable; create one with NewLoader.
type Loader struct {
	fetcher Fetcher
	timeout time.Duration
	logger  *zap.Logger

	group singleflight.Group

	mu      sync.RWMutex
	scripts map[string]*scriptEntry
}

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	Fetcher Fetcher       // Defaults to an HTTPFetcher
	Timeout time.Duration // Per-fetch timeout; 0 = 15s
	Logger  *zap.Logger
}

// NewLoader creates a loader with an empty script table.
func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.Fetcher == nil {
		cfg.Fetcher = &HTTPFetcher{}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Loader{
		fetcher: cfg.Fetcher,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
		scripts: make(map[string]*scriptEntry),
	}
}

// State returns the lifecycle state of url.
func (l *Loader) State(url string) ScriptState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if e, ok := l.scripts[url]; ok {
		return e.state
	}
	return StateUninitialized
}

// Ensure returns the script at url, loading it if needed. A ready script
// is returned without fetching. Concurrent calls share one in-flight
// fetch that is not cancelled when one of them gives up. A failed load
// is retried by the next call.
func (l *Loader) Ensure(ctx context.Context, url string) (*Script, error) {
	l.mu.RLock()
	if e, ok := l.scripts[url]; ok && e.state == StateReady {
		l.mu.RUnlock()
		return e.script, nil
	}
	l.mu.RUnlock()

	// The shared fetch outlives any single caller; only the loader
	// timeout bounds it. A caller whose ctx ends stops waiting.
	ch := l.group.DoChan(url, func() (interface{}, error) {
		return l.load(context.WithoutCancel(ctx), url)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			l.logger.Debug("embed script load shared", zap.String("url", url))
		}
		return res.Val.(*Script), nil
	}
}

func (l *Loader) load(ctx context.Context, url string) (*Script, error) {
	// Another caller may have finished between the read check and DoChan.
	l.mu.Lock()
	if e, ok := l.scripts[url]; ok && e.state == StateReady {
		l.mu.Unlock()
		return e.script, nil
	}
	l.scripts[url] = &scriptEntry{state: StateLoading}
	l.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	body, err := l.fetcher.Fetch(fetchCtx, url)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.scripts[url] = &scriptEntry{state: StateFailed, err: err}
		l.logger.Warn("embed script load failed", zap.String("url", url), zap.Error(err))
		return nil, err
	}
	script := &Script{URL: url, Body: body, LoadedAt: time.Now()}
	l.scripts[url] = &scriptEntry{state: StateReady, script: script}
	l.logger.Info("embed script loaded",
		zap.String("url", url),
		zap.Int("bytes", len(body)),
		zap.Duration("took", time.Since(start)))
	return script, nil
}
