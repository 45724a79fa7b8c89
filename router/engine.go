// Package router performs partial navigations: link activations, history
// moves and the initial page load become fetch, parse and commit sequences
// against a live document.
//
// An Engine owns one loop goroutine, which is the only writer of the
// document and history. Fetching and parsing run on separate goroutines and
// post their outcome back to the loop. Every trigger gets a strictly
// increasing sequence number; only the outcome of the latest trigger may
// touch the document, so a slow early fetch never overwrites a later one.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"sitenav/document"
	"sitenav/fetcher"
	"sitenav/history"
	"sitenav/page"
)

// ErrNotNavigable is returned by Navigate for targets the engine will not
// handle (other origins, non-page paths).
var ErrNotNavigable = errors.New("target is not a same-origin page")

// DefaultRootPage is the canonical root document.
const DefaultRootPage = "index.html"

// Indicator surfaces navigation progress without blocking the engine.
type Indicator interface {
	Loading(url string)
	Done(url string)
	Failed(url string, err error)
}

type nopIndicator struct{}

func (nopIndicator) Loading(string)       {}
func (nopIndicator) Done(string)          {}
func (nopIndicator) Failed(string, error) {}

// Options configures an Engine.
type Options struct {
	Origin        *url.URL      // scheme and host of the site; required
	PageExtension string        // defaults to DefaultPageExtension
	RootPage      string        // defaults to DefaultRootPage
	Timeout       time.Duration // per navigation, zero disables
	Logger        *slog.Logger
	Indicator     Indicator

	// OnEvent is called on the engine loop and must not block.
	OnEvent func(Event)
}

// Engine is the navigation engine.
type Engine struct {
	doc    *document.Document
	hist   *history.Stack
	fetch  fetcher.Fetcher
	parser *page.Parser
	opts   Options
	log    *slog.Logger

	inbox chan func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup // loop goroutine
	loads  sync.WaitGroup // in-flight fetches

	seq uint64 // owned by the loop

	mu      sync.Mutex
	state   State
	current uint64
}

// New creates an engine and subscribes it to history pop notifications.
// Call Start to begin processing triggers.
func New(doc *document.Document, hist *history.Stack, f fetcher.Fetcher, parser *page.Parser, opts Options) (*Engine, error) {
	if doc == nil || hist == nil || f == nil || parser == nil {
		return nil, errors.New("router: document, history, fetcher and parser are required")
	}
	if opts.Origin == nil || opts.Origin.Host == "" {
		return nil, errors.New("router: origin is required")
	}
	origin := *opts.Origin
	origin.Path, origin.RawPath, origin.RawQuery, origin.Fragment = "/", "", "", ""
	opts.Origin = &origin

	if opts.PageExtension == "" {
		opts.PageExtension = DefaultPageExtension
	}
	if opts.RootPage == "" {
		opts.RootPage = DefaultRootPage
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Indicator == nil {
		opts.Indicator = nopIndicator{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		doc:    doc,
		hist:   hist,
		fetch:  f,
		parser: parser,
		opts:   opts,
		log:    opts.Logger.With("component", "router"),
		inbox:  make(chan func(), 64),
		ctx:    ctx,
		cancel: cancel,
	}
	hist.OnPopRequested(e.onPop)
	return e, nil
}

// Start begins the engine loop.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.loop()
}

// Stop shuts the loop down, aborts in-flight fetches and waits for them.
func (e *Engine) Stop() {
	e.cancel()
	e.wg.Wait()
	e.loads.Wait()
}

// State reports the navigation state and the latest sequence number.
func (e *Engine) State() (State, uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.current
}

// Location returns the path of the current history entry.
func (e *Engine) Location() string {
	return e.hist.Current().URL
}

// Click handles activation of a link with the given href and target
// attributes. It returns true when the click was intercepted; the caller
// must then suppress ordinary navigation.
func (e *Engine) Click(href, target string) bool {
	path, ok := Intercept(e.base(), href, target, e.opts.PageExtension)
	if !ok {
		return false
	}
	e.trigger(Request{Target: path, Mode: Push, Cause: CauseClick})
	return true
}

// Navigate starts a navigation to path, resolved against the current
// location.
func (e *Engine) Navigate(path string, mode HistoryMode) error {
	target, ok := Intercept(e.base(), path, "", e.opts.PageExtension)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotNavigable, path)
	}
	e.trigger(Request{Target: target, Mode: mode, Cause: CauseDirect})
	return nil
}

// InitialLoad runs the first-load check: a path other than the canonical
// root is loaded in place of the current entry. It returns whether a
// navigation was started.
func (e *Engine) InitialLoad(path string) bool {
	if e.isRoot(path) {
		return false
	}
	target, ok := Intercept(e.opts.Origin, path, "", e.opts.PageExtension)
	if !ok {
		return false
	}
	e.trigger(Request{Target: target, Mode: Replace, Cause: CauseInitial})
	return true
}

func (e *Engine) onPop(location string) {
	e.trigger(Request{Target: e.popTarget(location), Mode: Replace, Cause: CausePop})
}

// popTarget derives the path to load from the location reached by a
// history move; the site root maps to the root page.
func (e *Engine) popTarget(location string) string {
	u, err := url.Parse(location)
	if err != nil {
		u = &url.URL{Path: location}
	}
	p := strings.TrimPrefix(u.EscapedPath(), "/")
	if p == "" {
		p = e.opts.RootPage
	}
	p = "/" + p
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}

func (e *Engine) isRoot(path string) bool {
	u, err := url.Parse(path)
	if err != nil {
		return false
	}
	p := strings.TrimPrefix(u.Path, "/")
	return p == "" || p == e.opts.RootPage
}

// base is the URL links in the current document resolve against.
func (e *Engine) base() *url.URL {
	ref, err := url.Parse(e.hist.Current().URL)
	if err != nil {
		return e.opts.Origin
	}
	return e.opts.Origin.ResolveReference(ref)
}

func (e *Engine) resolve(target string) string {
	ref, err := url.Parse(target)
	if err != nil {
		return e.opts.Origin.String() + strings.TrimPrefix(target, "/")
	}
	return e.opts.Origin.ResolveReference(ref).String()
}

func (e *Engine) trigger(req Request) {
	e.post(func() { e.begin(req) })
}

func (e *Engine) post(fn func()) bool {
	select {
	case e.inbox <- fn:
		return true
	case <-e.ctx.Done():
		return false
	}
}

func (e *Engine) loop() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		case fn := <-e.inbox:
			fn()
		}
	}
}

// begin assigns the next sequence number, which supersedes any request
// still in flight.
func (e *Engine) begin(req Request) {
	e.seq++
	req.Seq = e.seq
	e.setState(StateLoading, req.Seq)

	e.log.Debug("navigation started", "seq", req.Seq, "url", req.Target, "mode", req.Mode, "cause", req.Cause)
	e.opts.Indicator.Loading(req.Target)
	e.emit(Event{Kind: EventStarted, Request: req})

	e.loads.Add(1)
	go e.load(req)
}

type outcome struct {
	page *page.Page
	err  error
}

func (e *Engine) load(req Request) {
	defer e.loads.Done()

	ctx, cancel := e.ctx, context.CancelFunc(func() {})
	if e.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(e.ctx, e.opts.Timeout)
	}
	defer cancel()

	target := e.resolve(req.Target)
	ch := make(chan outcome, 1)
	go func() {
		pg, err := e.retrieve(ctx, target)
		ch <- outcome{page: pg, err: err}
	}()

	// A fetcher that ignores ctx still cannot hold the navigation past its
	// deadline.
	var out outcome
	select {
	case out = <-ch:
	case <-ctx.Done():
		out.err = &fetcher.FetchError{Reason: fetcher.ReasonNetwork, URL: target, Err: ctx.Err()}
	}

	e.post(func() { e.complete(req, out) })
}

func (e *Engine) retrieve(ctx context.Context, target string) (*page.Page, error) {
	res, err := e.fetch.Fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	return e.parser.ParseString(res.HTML)
}

func (e *Engine) complete(req Request, out outcome) {
	if req.Seq != e.seq {
		e.log.Debug("discarding stale navigation", "seq", req.Seq, "current", e.seq, "url", req.Target)
		e.emit(Event{Kind: EventDiscarded, Request: req, Err: out.err})
		return
	}

	err := out.err
	if err == nil {
		err = e.commit(req, out.page)
	}
	if err != nil {
		e.fail(req, err)
		return
	}

	e.setState(StateIdle, req.Seq)
	e.log.Debug("navigation committed", "seq", req.Seq, "url", req.Target, "mode", req.Mode)
	e.opts.Indicator.Done(req.Target)
	e.emit(Event{Kind: EventCommitted, Request: req})
}

// commit applies the page to the document, then records exactly one
// history entry for it.
func (e *Engine) commit(req Request, pg *page.Page) error {
	if err := e.doc.Commit(pg); err != nil {
		return fmt.Errorf("committing %s: %w", req.Target, err)
	}
	e.doc.ScrollTo(0)

	var entry history.Entry
	if req.Mode == Replace {
		entry = e.hist.Replace(req.Target)
	} else {
		entry = e.hist.Push(req.Target)
	}
	e.hist.MarkCommitted(entry.Key)
	return nil
}

func (e *Engine) fail(req Request, err error) {
	e.setState(StateError, req.Seq)
	e.log.Warn("navigation failed", "seq", req.Seq, "url", req.Target, "error", err)
	e.opts.Indicator.Failed(req.Target, err)
	e.emit(Event{Kind: EventFailed, Request: req, Err: err})
}

func (e *Engine) setState(s State, seq uint64) {
	e.mu.Lock()
	e.state = s
	e.current = seq
	e.mu.Unlock()
}

func (e *Engine) emit(ev Event) {
	if e.opts.OnEvent != nil {
		e.opts.OnEvent(ev)
	}
}
