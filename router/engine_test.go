package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"sitenav/document"
	"sitenav/fetcher"
	"sitenav/history"
	"sitenav/page"
)

const hostHTML = `<!DOCTYPE html>
<html>
<head>
<title>Home</title>
<meta name="description" content="Welcome">
<meta name="keywords" content="cars">
</head>
<body>
<nav><a href="about.html">About</a></nav>
<main><h1>Welcome</h1></main>
</body>
</html>`

func pageHTML(title, content, description string) string {
	meta := ""
	if description != "" {
		meta = fmt.Sprintf(`<meta name="description" content="%s">`, description)
	}
	return fmt.Sprintf(`<!DOCTYPE html><html><head><title>%s</title>%s</head><body><main>%s</main></body></html>`,
		title, meta, content)
}

// scriptedFetcher serves fixed pages. Paths with a gate block until the gate
// is closed, which lets tests choose the order fetches complete in.
type scriptedFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	gates map[string]chan struct{}
	calls []string
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{pages: map[string]string{}, gates: map[string]chan struct{}{}}
}

func (f *scriptedFetcher) gate(path string) chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[path] = ch
	f.mu.Unlock()
	return ch
}

func (f *scriptedFetcher) Fetch(ctx context.Context, target string) (*fetcher.Result, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, &fetcher.FetchError{Reason: fetcher.ReasonNetwork, URL: target, Err: err}
	}

	f.mu.Lock()
	f.calls = append(f.calls, u.Path)
	body, ok := f.pages[u.Path]
	gate := f.gates[u.Path]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, &fetcher.FetchError{Reason: fetcher.ReasonNetwork, URL: target, Err: ctx.Err()}
		}
	}
	if !ok {
		return nil, &fetcher.FetchError{Reason: fetcher.ReasonHTTPStatus, URL: target, Status: 404}
	}
	return &fetcher.Result{HTML: body, FinalURL: target, Status: 200}, nil
}

type recordingIndicator struct {
	mu      sync.Mutex
	loading []string
	done    []string
	failed  []string
}

func (r *recordingIndicator) Loading(url string) {
	r.mu.Lock()
	r.loading = append(r.loading, url)
	r.mu.Unlock()
}

func (r *recordingIndicator) Done(url string) {
	r.mu.Lock()
	r.done = append(r.done, url)
	r.mu.Unlock()
}

func (r *recordingIndicator) Failed(url string, err error) {
	r.mu.Lock()
	r.failed = append(r.failed, url)
	r.mu.Unlock()
}

func (r *recordingIndicator) failures() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.failed...)
}

type harness struct {
	engine    *Engine
	doc       *document.Document
	hist      *history.Stack
	events    chan Event
	indicator *recordingIndicator
}

func newHarness(t *testing.T, origin string, f fetcher.Fetcher, timeout time.Duration) *harness {
	t.Helper()

	doc, err := document.ParseString(hostHTML, "")
	if err != nil {
		t.Fatalf("parsing host document: %v", err)
	}
	parser, err := page.NewParser("")
	if err != nil {
		t.Fatalf("NewParser failed: %v", err)
	}
	u, err := url.Parse(origin)
	if err != nil {
		t.Fatalf("parsing origin: %v", err)
	}

	h := &harness{
		doc:       doc,
		hist:      history.New("/"),
		events:    make(chan Event, 100),
		indicator: &recordingIndicator{},
	}
	h.engine, err = New(doc, h.hist, f, parser, Options{
		Origin:    u,
		Timeout:   timeout,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Indicator: h.indicator,
		OnEvent:   func(ev Event) { h.events <- ev },
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	h.engine.Start()
	t.Cleanup(h.engine.Stop)
	return h
}

// waitFor reads events until one of the given kind for target arrives.
func (h *harness) waitFor(t *testing.T, kind EventKind, target string) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-h.events:
			if ev.Kind == kind && ev.Request.Target == target {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s %s", kind, target)
			return Event{}
		}
	}
}

func TestClickCommitsPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/about.html" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, pageHTML("About Us", "<p>Team</p>", "Our team"))
	}))
	defer srv.Close()

	h := newHarness(t, srv.URL, fetcher.NewHTTP(fetcher.DefaultOptions()), 0)
	h.doc.ScrollTo(300)

	if !h.engine.Click("about.html", "") {
		t.Fatal("same-origin page link was not intercepted")
	}
	ev := h.waitFor(t, EventCommitted, "/about.html")

	if ev.Request.Mode != Push || ev.Request.Seq != 1 {
		t.Errorf("unexpected request %+v", ev.Request)
	}
	if h.doc.Title() != "About Us" {
		t.Errorf("title = %q", h.doc.Title())
	}
	if h.doc.Content() != "<p>Team</p>" {
		t.Errorf("content = %q", h.doc.Content())
	}
	if v, _ := h.doc.Meta("description"); v != "Our team" {
		t.Errorf("description = %q", v)
	}
	if v, _ := h.doc.Meta("keywords"); v != "cars" {
		t.Errorf("keywords should be untouched, got %q", v)
	}
	if h.doc.ScrollY() != 0 {
		t.Errorf("scroll not reset, got %d", h.doc.ScrollY())
	}

	if h.hist.Len() != 2 {
		t.Fatalf("history Len() = %d, expected 2", h.hist.Len())
	}
	cur := h.hist.Current()
	if cur.URL != "/about.html" || !cur.Committed {
		t.Errorf("current entry = %+v", cur)
	}
	if state, _ := h.engine.State(); state != StateIdle {
		t.Errorf("state = %s, expected idle", state)
	}
}

func TestHTTPFailureLeavesDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	h := newHarness(t, srv.URL, fetcher.NewHTTP(fetcher.DefaultOptions()), 0)
	before, _ := h.doc.HTML()

	h.engine.Click("broken.html", "")
	ev := h.waitFor(t, EventFailed, "/broken.html")

	var fe *fetcher.FetchError
	if !errors.As(ev.Err, &fe) || fe.Reason != fetcher.ReasonHTTPStatus || fe.Status != 404 {
		t.Errorf("expected HTTP_STATUS 404, got %v", ev.Err)
	}

	after, _ := h.doc.HTML()
	if before != after {
		t.Errorf("document changed after failed navigation:\n%s", after)
	}
	if h.hist.Len() != 1 {
		t.Errorf("history Len() = %d, expected no new entry", h.hist.Len())
	}
	if got := h.indicator.failures(); len(got) != 1 || got[0] != "/broken.html" {
		t.Errorf("indicator failures = %v", got)
	}
	if state, seq := h.engine.State(); state != StateError || seq != 1 {
		t.Errorf("state = %s/%d, expected error/1", state, seq)
	}
}

func TestLastTriggerWins(t *testing.T) {
	f := newScriptedFetcher()
	f.pages["/a.html"] = pageHTML("A", "<p>a</p>", "")
	f.pages["/b.html"] = pageHTML("B", "<p>b</p>", "")
	gateA := f.gate("/a.html")

	h := newHarness(t, "http://site.test", f, 0)

	h.engine.Click("a.html", "")
	h.engine.Click("b.html", "")

	committed := h.waitFor(t, EventCommitted, "/b.html")
	if committed.Request.Seq != 2 {
		t.Errorf("b.html seq = %d, expected 2", committed.Request.Seq)
	}

	close(gateA)
	stale := h.waitFor(t, EventDiscarded, "/a.html")
	if stale.Request.Seq != 1 {
		t.Errorf("a.html seq = %d, expected 1", stale.Request.Seq)
	}

	if h.doc.Content() != "<p>b</p>" || h.doc.Title() != "B" {
		t.Errorf("document reflects the stale page: title=%q content=%q", h.doc.Title(), h.doc.Content())
	}
	if h.hist.Len() != 2 || h.hist.Current().URL != "/b.html" {
		t.Errorf("history = %+v", h.hist.Entries())
	}
}

func TestStaleFailureIsDiscarded(t *testing.T) {
	f := newScriptedFetcher()
	f.pages["/b.html"] = pageHTML("B", "<p>b</p>", "")
	gateMissing := f.gate("/missing.html")

	h := newHarness(t, "http://site.test", f, 0)

	h.engine.Click("missing.html", "")
	h.engine.Click("b.html", "")
	h.waitFor(t, EventCommitted, "/b.html")

	close(gateMissing)
	ev := h.waitFor(t, EventDiscarded, "/missing.html")
	if ev.Err == nil {
		t.Error("discarded event should carry the stale error")
	}
	if state, _ := h.engine.State(); state != StateIdle {
		t.Errorf("stale failure changed state to %s", state)
	}
	if len(h.indicator.failures()) != 0 {
		t.Error("stale failure must not be surfaced")
	}
}

func TestMissingContentLeavesDocument(t *testing.T) {
	f := newScriptedFetcher()
	f.pages["/nomain.html"] = `<html><head><title>Broken</title></head><body><div>no container</div></body></html>`

	h := newHarness(t, "http://site.test", f, 0)
	title, content := h.doc.Title(), h.doc.Content()

	h.engine.Click("nomain.html", "")
	ev := h.waitFor(t, EventFailed, "/nomain.html")

	if !page.IsMissingContent(ev.Err) {
		t.Errorf("expected MISSING_CONTENT, got %v", ev.Err)
	}
	if h.doc.Title() != title || h.doc.Content() != content {
		t.Errorf("partial commit: title=%q content=%q", h.doc.Title(), h.doc.Content())
	}
	if h.hist.Len() != 1 {
		t.Errorf("history Len() = %d", h.hist.Len())
	}
}

func TestEmptyMetadataKeepsHostValues(t *testing.T) {
	f := newScriptedFetcher()
	f.pages["/plain.html"] = `<html><head></head><body><main>plain</main></body></html>`

	h := newHarness(t, "http://site.test", f, 0)

	h.engine.Click("plain.html", "")
	h.waitFor(t, EventCommitted, "/plain.html")

	if v, _ := h.doc.Meta("description"); v != "Welcome" {
		t.Errorf("description = %q", v)
	}
	if v, _ := h.doc.Meta("keywords"); v != "cars" {
		t.Errorf("keywords = %q", v)
	}
	if h.doc.Title() != "Home" {
		t.Errorf("title without <title> in page should stay, got %q", h.doc.Title())
	}
}

func TestHistoryCounts(t *testing.T) {
	f := newScriptedFetcher()
	for _, p := range []string{"/index.html", "/a.html", "/b.html", "/c.html"} {
		f.pages[p] = pageHTML(p, p, "")
	}

	h := newHarness(t, "http://site.test", f, 0)

	for i, p := range []string{"a.html", "b.html", "c.html"} {
		h.engine.Click(p, "")
		h.waitFor(t, EventCommitted, "/"+p)
		if h.hist.Len() != i+2 {
			t.Fatalf("after %d pushes Len() = %d", i+1, h.hist.Len())
		}
	}

	if err := h.engine.Navigate("/a.html", Replace); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	h.waitFor(t, EventCommitted, "/a.html")
	if h.hist.Len() != 4 {
		t.Errorf("replace changed Len() to %d", h.hist.Len())
	}
	if h.hist.Current().URL != "/a.html" || h.hist.Index() != 3 {
		t.Errorf("replace did not overwrite the top entry: %+v", h.hist.Entries())
	}
}

func TestBackToRoot(t *testing.T) {
	f := newScriptedFetcher()
	f.pages["/index.html"] = pageHTML("Home again", "<h1>Welcome back</h1>", "")
	f.pages["/a.html"] = pageHTML("A", "<p>a</p>", "")

	h := newHarness(t, "http://site.test", f, 0)

	h.engine.Click("a.html", "")
	h.waitFor(t, EventCommitted, "/a.html")

	if !h.hist.Back() {
		t.Fatal("Back() returned false")
	}
	ev := h.waitFor(t, EventCommitted, "/index.html")

	if ev.Request.Mode != Replace || ev.Request.Cause != CausePop {
		t.Errorf("unexpected request %+v", ev.Request)
	}
	if h.hist.Len() != 2 || h.hist.Index() != 0 {
		t.Errorf("history Len()=%d Index()=%d", h.hist.Len(), h.hist.Index())
	}
	if h.doc.Content() != "<h1>Welcome back</h1>" {
		t.Errorf("content = %q", h.doc.Content())
	}

	if !h.hist.Forward() {
		t.Fatal("Forward() returned false")
	}
	h.waitFor(t, EventCommitted, "/a.html")
	if h.hist.Len() != 2 || h.hist.Index() != 1 {
		t.Errorf("after forward Len()=%d Index()=%d", h.hist.Len(), h.hist.Index())
	}
}

func TestClickInterceptionScope(t *testing.T) {
	f := newScriptedFetcher()
	h := newHarness(t, "http://site.test", f, 0)

	tests := []struct {
		href   string
		target string
	}{
		{"https://external.example/x.html", ""},
		{"#section", ""},
		{"mailto:hi@site.test", ""},
		{"tel:+15550100", ""},
		{"about.html", "_blank"},
		{"styles.css", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if h.engine.Click(tt.href, tt.target) {
			t.Errorf("Click(%q, %q) was intercepted", tt.href, tt.target)
		}
	}

	if state, seq := h.engine.State(); state != StateIdle || seq != 0 {
		t.Errorf("non-intercepted clicks produced a request: %s/%d", state, seq)
	}
	if len(f.calls) != 0 {
		t.Errorf("fetcher called for %v", f.calls)
	}
}

func TestRelativeLinksResolveAgainstLocation(t *testing.T) {
	f := newScriptedFetcher()
	f.pages["/models/gt.html"] = pageHTML("GT", "gt", "")
	f.pages["/models/shelby.html"] = pageHTML("Shelby", "shelby", "")

	h := newHarness(t, "http://site.test", f, 0)

	h.engine.Click("models/gt.html", "")
	h.waitFor(t, EventCommitted, "/models/gt.html")

	h.engine.Click("shelby.html", "")
	h.waitFor(t, EventCommitted, "/models/shelby.html")
}

func TestRecoversAfterFailure(t *testing.T) {
	f := newScriptedFetcher()
	f.pages["/a.html"] = pageHTML("A", "a", "")

	h := newHarness(t, "http://site.test", f, 0)

	h.engine.Click("gone.html", "")
	h.waitFor(t, EventFailed, "/gone.html")

	h.engine.Click("a.html", "")
	h.waitFor(t, EventCommitted, "/a.html")
	if state, seq := h.engine.State(); state != StateIdle || seq != 2 {
		t.Errorf("state = %s/%d", state, seq)
	}
}

func TestNavigationTimeout(t *testing.T) {
	f := newScriptedFetcher()
	f.pages["/slow.html"] = pageHTML("Slow", "slow", "")
	f.gate("/slow.html")

	h := newHarness(t, "http://site.test", f, 50*time.Millisecond)

	h.engine.Click("slow.html", "")
	ev := h.waitFor(t, EventFailed, "/slow.html")

	if r, ok := fetcher.ReasonOf(ev.Err); !ok || r != fetcher.ReasonNetwork {
		t.Errorf("expected NETWORK, got %v", ev.Err)
	}
	if !errors.Is(ev.Err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", ev.Err)
	}
}

func TestInitialLoad(t *testing.T) {
	f := newScriptedFetcher()
	f.pages["/about.html"] = pageHTML("About", "about", "")

	h := newHarness(t, "http://site.test", f, 0)

	for _, p := range []string{"", "/", "/index.html"} {
		if h.engine.InitialLoad(p) {
			t.Errorf("InitialLoad(%q) started a navigation", p)
		}
	}

	if !h.engine.InitialLoad("/about.html") {
		t.Fatal("InitialLoad(/about.html) did nothing")
	}
	ev := h.waitFor(t, EventCommitted, "/about.html")
	if ev.Request.Mode != Replace || ev.Request.Cause != CauseInitial {
		t.Errorf("unexpected request %+v", ev.Request)
	}
	if h.hist.Len() != 1 || h.engine.Location() != "/about.html" {
		t.Errorf("history = %+v", h.hist.Entries())
	}
}

func TestNavigateRejectsForeignTargets(t *testing.T) {
	h := newHarness(t, "http://site.test", newScriptedFetcher(), 0)

	err := h.engine.Navigate("https://elsewhere.test/a.html", Push)
	if !errors.Is(err, ErrNotNavigable) {
		t.Errorf("expected ErrNotNavigable, got %v", err)
	}
}

func TestNewValidates(t *testing.T) {
	doc, _ := document.ParseString(hostHTML, "")
	parser, _ := page.NewParser("")

	if _, err := New(doc, history.New("/"), newScriptedFetcher(), parser, Options{}); err == nil {
		t.Error("expected error without origin")
	}
	if _, err := New(nil, history.New("/"), newScriptedFetcher(), parser, Options{Origin: &url.URL{Scheme: "http", Host: "x"}}); err == nil {
		t.Error("expected error without document")
	}
}
