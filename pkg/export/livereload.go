// This file implements live-reload via Server-Sent Events (SSE). When the
// navigation file changes, connected browsers receive a reload event; the
// server can also push its own events (for example after a key press).
package export

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/vanderheijden86/sitenav/pkg/watcher"
)

// Event is one SSE message.
type Event struct {
	Name string
	Data string // single line of JSON
}

// LiveReloadHub manages SSE connections and file watching for live-reload.
type LiveReloadHub struct {
	watcher  *watcher.Watcher
	onChange func()
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[chan Event]struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	started   bool
}

// HubOption configures a LiveReloadHub.
type HubOption func(*LiveReloadHub)

// WithOnChange runs fn after a file change and before clients are told to
// reload, so the server can rebuild its tree first.
func WithOnChange(fn func()) HubOption {
	return func(h *LiveReloadHub) { h.onChange = fn }
}

// WithLogger sets the hub logger.
func WithLogger(l *zap.Logger) HubOption {
	return func(h *LiveReloadHub) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewLiveReloadHub creates a hub. path is the file to watch; empty means
// the hub only relays events passed to Notify.
func NewLiveReloadHub(path string, opts ...HubOption) (*LiveReloadHub, error) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := &LiveReloadHub{
		clients: make(map[chan Event]struct{}),
		logger:  zap.NewNop(),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(hub)
	}
	if path != "" {
		w, err := watcher.NewWatcher(path)
		if err != nil {
			cancel()
			return nil, err
		}
		hub.watcher = w
	}
	return hub, nil
}

// Start begins watching for changes.
func (h *LiveReloadHub) Start() error {
	var err error
	h.startOnce.Do(func() {
		h.mu.Lock()
		h.started = true
		h.mu.Unlock()
		if h.watcher == nil {
			close(h.done)
			return
		}
		if err = h.watcher.Start(); err != nil {
			close(h.done)
			err = fmt.Errorf("watch nav file: %w", err)
			return
		}
		go h.watchLoop()
	})
	return err
}

// Stop shuts down the hub and disconnects all clients.
func (h *LiveReloadHub) Stop() {
	h.cancel()
	if h.watcher != nil {
		h.watcher.Stop()
	}

	h.mu.Lock()
	started := h.started
	h.mu.Unlock()
	if started {
		<-h.done
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		close(ch)
	}
	h.clients = make(map[chan Event]struct{})
}

// ClientCount returns the number of connected clients.
func (h *LiveReloadHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *LiveReloadHub) watchLoop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.watcher.Changed():
			h.logger.Debug("nav file changed", zap.String("path", h.watcher.Path()))
			if h.onChange != nil {
				h.onChange()
			}
			h.Notify(Event{Name: "reload", Data: `{"action":"reload"}`})
		}
	}
}

// Notify sends ev to every connected client without blocking. Clients that
// are still busy with a previous event miss this one.
func (h *LiveReloadHub) Notify(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SSEHandler returns an HTTP handler for the SSE endpoint.
func (h *LiveReloadHub) SSEHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		clientCh := make(chan Event, 4)
		h.mu.Lock()
		h.clients[clientCh] = struct{}{}
		h.mu.Unlock()

		defer func() {
			h.mu.Lock()
			delete(h.clients, clientCh)
			h.mu.Unlock()
		}()

		writeEvent(w, Event{Name: "connected", Data: `{"status":"connected"}`})
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-h.ctx.Done():
				return
			case ev, ok := <-clientCh:
				if !ok {
					return
				}
				writeEvent(w, ev)
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, ev Event) {
	data := strings.ReplaceAll(ev.Data, "\n", " ")
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
}

// LiveReloadScript connects to /events and reloads the page on "reload".
const LiveReloadScript = `<script>
(function() {
  if (typeof(EventSource) === 'undefined') return;
  var reconnectDelay = 1000;
  var maxReconnectDelay = 30000;

  function connect() {
    var es = new EventSource('/events');

    es.addEventListener('connected', function() {
      reconnectDelay = 1000;
    });

    es.addEventListener('reload', function() {
      location.reload();
    });

    es.onerror = function() {
      es.close();
      setTimeout(connect, reconnectDelay);
      reconnectDelay = Math.min(reconnectDelay * 2, maxReconnectDelay);
    };
  }

  connect();
})();
</script>`

// InjectLiveReload injects LiveReloadScript before </body> of HTML responses.
func InjectLiveReload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		irw := &injectingResponseWriter{
			ResponseWriter: w,
			inject:         []byte(LiveReloadScript),
		}
		next.ServeHTTP(irw, r)
		irw.Flush()
	})
}

// injectingResponseWriter buffers HTML bodies and inserts the script.
// Non-HTML responses pass straight through.
type injectingResponseWriter struct {
	http.ResponseWriter
	inject      []byte
	injected    bool
	buf         []byte
	committed   bool
	passthrough bool
	decided     bool
}

func (w *injectingResponseWriter) decide() {
	if w.decided {
		return
	}
	w.decided = true
	ct := w.Header().Get("Content-Type")
	w.passthrough = ct != "" && !strings.HasPrefix(ct, "text/html")
	if !w.passthrough {
		w.Header().Del("Content-Length")
	}
}

func (w *injectingResponseWriter) WriteHeader(code int) {
	w.decide()
	w.ResponseWriter.WriteHeader(code)
}

func (w *injectingResponseWriter) Write(b []byte) (int, error) {
	w.decide()
	if w.passthrough || w.committed {
		return w.ResponseWriter.Write(b)
	}

	w.buf = append(w.buf, b...)
	if idx := bytes.LastIndex(w.buf, []byte("</body>")); idx >= 0 && !w.injected {
		newBuf := make([]byte, 0, len(w.buf)+len(w.inject))
		newBuf = append(newBuf, w.buf[:idx]...)
		newBuf = append(newBuf, w.inject...)
		newBuf = append(newBuf, w.buf[idx:]...)
		w.buf = newBuf
		w.injected = true
	}

	if bytes.Contains(w.buf, []byte("</html>")) {
		w.committed = true
		_, err := w.ResponseWriter.Write(w.buf)
		return len(b), err
	}
	return len(b), nil
}

// Flush writes any buffered content, appending the script if no </body>
// was seen.
func (w *injectingResponseWriter) Flush() {
	if !w.committed && len(w.buf) > 0 {
		w.committed = true
		if !w.injected {
			w.buf = append(w.buf, w.inject...)
		}
		_, _ = w.ResponseWriter.Write(w.buf)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
