package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// BrowserFetcher loads pages in headless Chrome with the browser cache
// disabled. It is slower than HTTPFetcher and meant for sites that need a
// real browser to serve their documents.
type BrowserFetcher struct {
	opts Options
}

// NewBrowser builds a headless Chrome fetcher.
func NewBrowser(opts Options) *BrowserFetcher {
	return &BrowserFetcher{opts: opts.withDefaults()}
}

// Fetch navigates a fresh tab to targetURL and returns its serialized DOM.
// Status and emptiness are taken from the document response itself.
func (b *BrowserFetcher) Fetch(ctx context.Context, targetURL string) (*Result, error) {
	start := time.Now()

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-component-update", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-service-autorun", true),
		chromedp.UserAgent(b.opts.UserAgent),
	}
	if b.opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(b.opts.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	// Browser fetches get extra time for startup.
	tabCtx, cancel := context.WithTimeout(allocCtx, b.opts.Timeout()+15*time.Second)
	defer cancel()
	tabCtx, cancel = chromedp.NewContext(tabCtx)
	defer cancel()

	var (
		mu     sync.Mutex
		status int64
		docID  network.RequestID
	)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		e, ok := ev.(*network.EventResponseReceived)
		if !ok || e.Type != network.ResourceTypeDocument {
			return
		}
		mu.Lock()
		if docID == "" {
			docID = e.RequestID
			status = e.Response.Status
		}
		mu.Unlock()
	})

	var html, finalURL string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetCacheDisabled(true),
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			err = ctx.Err()
		}
		return nil, &FetchError{Reason: ReasonNetwork, URL: targetURL, Err: fmt.Errorf("browser fetch: %w", err)}
	}

	mu.Lock()
	code, id := int(status), docID
	mu.Unlock()

	// The serialized DOM is never empty, so emptiness is judged on the raw
	// response body.
	var body []byte
	if id != "" && code >= 200 && code <= 299 {
		err = chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			body, err = network.GetResponseBody(id).Do(ctx)
			return err
		}))
		if err != nil {
			return nil, &FetchError{Reason: ReasonNetwork, URL: targetURL, Status: code, Err: fmt.Errorf("reading response body: %w", err)}
		}
	}
	if err := checkResponse(targetURL, code, body); err != nil {
		return nil, err
	}

	return &Result{
		HTML:        html,
		FinalURL:    finalURL,
		Status:      code,
		UsedBrowser: true,
		FetchTime:   time.Since(start),
	}, nil
}

// checkResponse classifies the document response seen by the browser. A
// zero status means no document response arrived at all.
func checkResponse(url string, status int, body []byte) error {
	switch {
	case status == 0:
		return &FetchError{Reason: ReasonNetwork, URL: url, Err: errors.New("no document response")}
	case status < 200 || status > 299:
		return &FetchError{Reason: ReasonHTTPStatus, URL: url, Status: status}
	case len(bytes.TrimSpace(body)) == 0:
		return &FetchError{Reason: ReasonEmptyBody, URL: url, Status: status}
	}
	return nil
}
