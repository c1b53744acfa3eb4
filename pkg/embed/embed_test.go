package embed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingFetcher counts fetches and holds each one open for delay.
type countingFetcher struct {
	calls atomic.Int32
	delay time.Duration
	body  []byte
	err   error
}

func (f *countingFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.calls.Add(1)
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

// TestEnsureConcurrentSingleFetch: concurrent callers for one URL share a
// single fetch and all resolve after it.
func TestEnsureConcurrentSingleFetch(t *testing.T) {
	f := &countingFetcher{delay: 50 * time.Millisecond, body: []byte("window.imgurEmbed = {}")}
	l := NewLoader(LoaderConfig{Fetcher: f})

	const callers = 10
	var wg sync.WaitGroup
	start := make(chan struct{})
	scripts := make([]*Script, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			scripts[i], errs[i] = l.Ensure(context.Background(), ImgurScriptURL)
		}(i)
	}
	close(start)
	wg.Wait()

	if got := f.calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 fetch, got %d", got)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if scripts[i] != scripts[0] {
			t.Errorf("caller %d got a different script instance", i)
		}
	}
	if st := l.State(ImgurScriptURL); st != StateReady {
		t.Errorf("state = %s, want ready", st)
	}
}

// TestEnsureReadyIsIdempotent verifies a ready script is never fetched again
func TestEnsureReadyIsIdempotent(t *testing.T) {
	f := &countingFetcher{body: []byte("imgurEmbed")}
	l := NewLoader(LoaderConfig{Fetcher: f})

	if l.State("x") != StateUninitialized {
		t.Error("unknown URL should be uninitialized")
	}
	for i := 0; i < 3; i++ {
		if _, err := l.Ensure(context.Background(), "x"); err != nil {
			t.Fatal(err)
		}
	}
	if got := f.calls.Load(); got != 1 {
		t.Errorf("expected 1 fetch, got %d", got)
	}
}

// TestEnsureFailureIsRetried verifies failed loads are marked and retried
func TestEnsureFailureIsRetried(t *testing.T) {
	f := &countingFetcher{err: errors.New("boom")}
	l := NewLoader(LoaderConfig{Fetcher: f})

	if _, err := l.Ensure(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	if st := l.State("x"); st != StateFailed {
		t.Errorf("state = %s, want failed", st)
	}

	f.err = nil
	f.body = []byte("ok")
	if _, err := l.Ensure(context.Background(), "x"); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if got := f.calls.Load(); got != 2 {
		t.Errorf("expected 2 fetches, got %d", got)
	}
}

// TestEnsureCancelledCallerDoesNotFailOthers: one caller giving up leaves
// the shared fetch running for everyone else.
func TestEnsureCancelledCallerDoesNotFailOthers(t *testing.T) {
	f := &countingFetcher{delay: 200 * time.Millisecond, body: []byte("window.imgurEmbed = {}")}
	l := NewLoader(LoaderConfig{Fetcher: f})

	ctx1, cancel1 := context.WithCancel(context.Background())
	defer cancel1()
	firstErr := make(chan error, 1)
	go func() {
		_, err := l.Ensure(ctx1, ImgurScriptURL)
		firstErr <- err
	}()
	deadline := time.Now().Add(time.Second)
	for f.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("fetch never started")
		}
		time.Sleep(time.Millisecond)
	}

	second := make(chan error, 1)
	go func() {
		_, err := l.Ensure(context.Background(), ImgurScriptURL)
		second <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel1()

	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller err = %v, want context.Canceled", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("second caller err = %v", err)
	}
	if st := l.State(ImgurScriptURL); st != StateReady {
		t.Errorf("state = %s, want ready", st)
	}
	if got := f.calls.Load(); got != 1 {
		t.Errorf("expected 1 fetch, got %d", got)
	}
}

// TestRenderImgur verifies the placeholder markup
func TestRenderImgur(t *testing.T) {
	l := NewLoader(LoaderConfig{Fetcher: &countingFetcher{body: []byte("window.imgurEmbed = {createIframe: function(){}}")}})
	r := NewDefaultRegistry(l)

	ph, err := r.Render(context.Background(), "imgur", Data{PostID: "abc123"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if ph.Class != "imgur-embed-pub" || ph.Lang != "en" || ph.DataID != "abc123" || ph.Href != "imgur.com/abc123" {
		t.Errorf("unexpected placeholder: %+v", ph)
	}
	want := `<blockquote class="imgur-embed-pub" lang="en" data-id="abc123" href="imgur.com/abc123"></blockquote>`
	if string(ph.HTML) != want {
		t.Errorf("HTML = %s\nwant %s", ph.HTML, want)
	}

	album, err := r.Render(context.Background(), "imgur", Data{PostID: "xyz", IsAlbum: true})
	if err != nil {
		t.Fatal(err)
	}
	if album.DataID != "a/xyz" || album.Href != "imgur.com/xyz" {
		t.Errorf("album placeholder = %+v", album)
	}
}

// TestRenderMissingGlobal verifies ProviderLoadError when the global never appears
func TestRenderMissingGlobal(t *testing.T) {
	l := NewLoader(LoaderConfig{Fetcher: &countingFetcher{body: []byte("console.log('nothing here')")}})
	r := NewDefaultRegistry(l)

	_, err := r.Render(context.Background(), "imgur", Data{PostID: "abc"})
	var loadErr *ProviderLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected ProviderLoadError, got %v", err)
	}
	if loadErr.Provider != "imgur" || loadErr.ScriptURL != ImgurScriptURL {
		t.Errorf("unexpected error fields: %+v", loadErr)
	}
	if !strings.Contains(err.Error(), "failed to load") {
		t.Errorf("error message = %q", err.Error())
	}
}

// TestRenderFetchFailure verifies fetch errors surface as ProviderLoadError
func TestRenderFetchFailure(t *testing.T) {
	cause := errors.New("network down")
	l := NewLoader(LoaderConfig{Fetcher: &countingFetcher{err: cause}})
	r := NewDefaultRegistry(l)

	_, err := r.Render(context.Background(), "imgur", Data{PostID: "abc"})
	var loadErr *ProviderLoadError
	if !errors.As(err, &loadErr) || !errors.Is(err, cause) {
		t.Fatalf("expected wrapped ProviderLoadError, got %v", err)
	}
}

// TestRenderValidation verifies unknown providers and missing post IDs
func TestRenderValidation(t *testing.T) {
	r := NewDefaultRegistry(NewLoader(LoaderConfig{Fetcher: &countingFetcher{body: []byte("imgurEmbed")}}))
	if _, err := r.Render(context.Background(), "vimeo", Data{PostID: "1"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := r.Render(context.Background(), "imgur", Data{}); err == nil {
		t.Error("expected error for empty postID")
	}
	if names := r.Names(); len(names) != 1 || names[0] != "imgur" {
		t.Errorf("Names() = %v", names)
	}
}

// TestRenderAll verifies batches share one load and keep order
func TestRenderAll(t *testing.T) {
	f := &countingFetcher{delay: 10 * time.Millisecond, body: []byte("imgurEmbed")}
	r := NewDefaultRegistry(NewLoader(LoaderConfig{Fetcher: f}))

	reqs := []Request{
		{Provider: "imgur", Data: Data{PostID: "one"}},
		{Provider: "imgur", Data: Data{PostID: "two"}},
		{Provider: "imgur", Data: Data{PostID: "three", IsAlbum: true}},
	}
	out, err := r.RenderAll(context.Background(), reqs)
	if err != nil {
		t.Fatalf("RenderAll failed: %v", err)
	}
	if len(out) != 3 || out[0].DataID != "one" || out[1].DataID != "two" || out[2].DataID != "a/three" {
		t.Errorf("unexpected results: %+v", out)
	}
	if got := f.calls.Load(); got != 1 {
		t.Errorf("expected 1 fetch for the batch, got %d", got)
	}
}

// TestHTTPFetcher verifies protocol-relative resolution and status handling
func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.js" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("window.imgurEmbed = {}"))
	}))
	defer srv.Close()

	f := &HTTPFetcher{Client: srv.Client()}
	body, err := f.Fetch(context.Background(), srv.URL+"/embed.js")
	if err != nil || !strings.Contains(string(body), "imgurEmbed") {
		t.Fatalf("Fetch = %q, %v", body, err)
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/missing.js"); err == nil {
		t.Error("expected error for 404")
	}

	if got := ResolveURL("//s.imgur.com/min/embed.js"); got != "https://s.imgur.com/min/embed.js" {
		t.Errorf("ResolveURL = %q", got)
	}
	if got := ResolveURL("http://x/y.js"); got != "http://x/y.js" {
		t.Errorf("ResolveURL kept absolute = %q", got)
	}
}
