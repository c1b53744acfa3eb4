// This file implements the BackgroundWorker that reloads the navigation
// document off the UI thread when its file changes.
package ui

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vanderheijden86/sitenav/pkg/model"
	"github.com/vanderheijden86/sitenav/pkg/watcher"
)

// WorkerState represents the current state of the background worker.
type WorkerState int

const (
	// WorkerIdle means the worker is waiting for file changes.
	WorkerIdle WorkerState = iota
	// WorkerProcessing means the worker is reloading the document.
	WorkerProcessing
	// WorkerStopped means the worker has been stopped.
	WorkerStopped
)

// WorkerError wraps errors with phase and retry context.
type WorkerError struct {
	Phase   string    // "load" or "hash"
	Cause   error     // The underlying error
	Time    time.Time // When the error occurred
	Retries int       // Consecutive failures so far
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("%s failed: %v (retries: %d)", e.Phase, e.Cause, e.Retries)
}

func (e WorkerError) Unwrap() error {
	return e.Cause
}

var errNoDocument = errors.New("loader returned no document")

// Sender delivers messages to the running program. *tea.Program
// satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// LoadFunc produces a fresh navigation document.
type LoadFunc func(ctx context.Context) (*model.Document, error)

// NavReloadedMsg is sent to the UI when the document changed on disk.
type NavReloadedMsg struct {
	Doc  *model.Document
	Hash string
}

// NavErrorMsg is sent to the UI when reloading fails. The previous tree
// stays on screen.
type NavErrorMsg struct {
	Err *WorkerError
}

// BackgroundWorker owns the file watcher, coalesces bursts of changes and
// reloads the document without blocking the UI.
type BackgroundWorker struct {
	path          string
	load          LoadFunc
	debounceDelay time.Duration
	logger        *zap.Logger

	mu         sync.RWMutex
	state      WorkerState
	dirty      bool // a change arrived while processing
	started    bool
	doc        *model.Document
	lastHash   string
	lastError  *WorkerError
	errorCount int

	watcher *watcher.Watcher
	sender  Sender

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

// WorkerConfig configures the BackgroundWorker.
type WorkerConfig struct {
	Path          string // file to watch; empty disables watching
	Load          LoadFunc
	DebounceDelay time.Duration
	Sender        Sender
	Logger        *zap.Logger
}

// NewBackgroundWorker creates a new background worker.
func NewBackgroundWorker(cfg WorkerConfig) (*BackgroundWorker, error) {
	if cfg.Load == nil {
		return nil, fmt.Errorf("background worker: Load is required")
	}
	if cfg.DebounceDelay == 0 {
		cfg.DebounceDelay = watcher.DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &BackgroundWorker{
		path:          cfg.Path,
		load:          cfg.Load,
		debounceDelay: cfg.DebounceDelay,
		logger:        cfg.Logger,
		sender:        cfg.Sender,
		state:         WorkerIdle,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}

	if cfg.Path != "" {
		fw, err := watcher.NewWatcher(cfg.Path, watcher.WithDebounceDuration(cfg.DebounceDelay))
		if err != nil {
			cancel()
			return nil, err
		}
		w.watcher = fw
	}
	return w, nil
}

// Start begins watching for file changes. It is idempotent.
func (w *BackgroundWorker) Start() error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	if w.watcher == nil {
		close(w.done)
		return nil
	}
	if err := w.watcher.Start(); err != nil {
		close(w.done)
		return err
	}
	go w.processLoop()
	return nil
}

// Stop halts the worker and waits for in-flight reloads. It is idempotent.
func (w *BackgroundWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	wasStarted := w.started
	w.mu.Unlock()

	w.cancel()
	if w.watcher != nil {
		w.watcher.Stop()
	}
	if wasStarted {
		select {
		case <-w.done:
		case <-time.After(2 * time.Second):
		}
	}
	w.wg.Wait()
}

// TriggerRefresh reloads now. If a reload is running, another one follows it.
func (w *BackgroundWorker) TriggerRefresh() {
	w.mu.Lock()
	switch w.state {
	case WorkerStopped:
		w.mu.Unlock()
		return
	case WorkerProcessing:
		w.dirty = true
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.process()
	}()
}

// Document returns the last successfully loaded document (may be nil).
func (w *BackgroundWorker) Document() *model.Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.doc
}

// State returns the current worker state.
func (w *BackgroundWorker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// LastError returns the most recent error (nil if the last reload succeeded).
func (w *BackgroundWorker) LastError() *WorkerError {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

// LastHash returns the content hash of the last loaded document.
func (w *BackgroundWorker) LastHash() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastHash
}

func (w *BackgroundWorker) processLoop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.watcher.Changed():
			w.process()
		}
	}
}

// process reloads once, then again while changes keep arriving.
func (w *BackgroundWorker) process() {
	for {
		w.mu.Lock()
		if w.state != WorkerIdle {
			if w.state == WorkerProcessing {
				w.dirty = true
			}
			w.mu.Unlock()
			return
		}
		w.state = WorkerProcessing
		w.dirty = false
		w.mu.Unlock()

		doc, hash := w.reload()

		w.mu.Lock()
		if w.state == WorkerStopped {
			w.mu.Unlock()
			return
		}
		if doc != nil {
			w.doc = doc
			w.lastHash = hash
		}
		again := w.dirty
		w.state = WorkerIdle
		w.mu.Unlock()

		if doc != nil && w.sender != nil {
			w.sender.Send(NavReloadedMsg{Doc: doc, Hash: hash})
		}
		if !again {
			return
		}
	}
}

// reload returns nil when loading failed or the content is unchanged.
func (w *BackgroundWorker) reload() (*model.Document, string) {
	start := time.Now()

	var doc *model.Document
	if werr := w.safeCompute("load", func() error {
		var err error
		doc, err = w.load(w.ctx)
		if err == nil && doc == nil {
			err = errNoDocument
		}
		return err
	}); werr != nil {
		w.fail(werr)
		return nil, ""
	}

	var hash string
	if werr := w.safeCompute("hash", func() error {
		var err error
		hash, err = documentHash(doc)
		return err
	}); werr != nil {
		w.fail(werr)
		return nil, ""
	}

	w.recordError(nil)
	if hash == w.LastHash() {
		w.logger.Debug("nav document unchanged, skipping reload", zap.String("hash", hashPrefix(hash)))
		return nil, ""
	}

	w.logger.Info("nav document reloaded",
		zap.Int("items", model.CountItems(doc.Items)),
		zap.Duration("took", time.Since(start)),
		zap.String("hash", hashPrefix(hash)))
	return doc, hash
}

func (w *BackgroundWorker) fail(werr *WorkerError) {
	w.recordError(werr)
	w.logger.Warn("nav reload failed", zap.String("phase", werr.Phase), zap.Error(werr.Cause))
	if w.sender != nil {
		w.sender.Send(NavErrorMsg{Err: werr})
	}
}

// safeCompute executes fn and recovers from any panics.
func (w *BackgroundWorker) safeCompute(phase string, fn func() error) *WorkerError {
	var result *WorkerError
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = &WorkerError{
					Phase: phase,
					Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
					Time:  time.Now(),
				}
			}
		}()
		if err := fn(); err != nil {
			result = &WorkerError{Phase: phase, Cause: err, Time: time.Now()}
		}
	}()
	return result
}

func (w *BackgroundWorker) recordError(err *WorkerError) {
	w.mu.Lock()
	w.lastError = err
	if err != nil {
		w.errorCount++
		err.Retries = w.errorCount
	} else {
		w.errorCount = 0
	}
	w.mu.Unlock()
}

func documentHash(doc *model.Document) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func hashPrefix(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
