package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sitenav/config"
	"sitenav/document"
	"sitenav/history"
	"sitenav/page"
	"sitenav/router"
	"sitenav/status"
)

var browseCmd = &cobra.Command{
	Use:   "browse <site-url>",
	Short: "Browse a site interactively",
	Long: `Loads the site's root page, then reads commands from stdin:

  links        list the links in the current document
  click N      activate link N
  go PATH      navigate to PATH (e.g. /about.html)
  back         go back in history
  forward      go forward in history
  show         print the title, metadata and content
  history      list history entries
  forget       delete the saved session and stop saving this one
  quit         exit`,
	Args: cobra.ExactArgs(1),
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	start, err := url.Parse(args[0])
	if err != nil || start.Host == "" {
		return fmt.Errorf("invalid site URL %q", args[0])
	}
	origin := &url.URL{Scheme: start.Scheme, Host: start.Host, Path: "/"}

	f := newFetcher(cfg)
	ctx := context.Background()
	res, err := f.Fetch(ctx, origin.String())
	if err != nil {
		return fmt.Errorf("loading site root: %w", err)
	}
	doc, err := document.ParseString(res.HTML, cfg.Site.ContentSelector)
	if err != nil {
		return err
	}
	parser, err := page.NewParser(cfg.Site.ContentSelector)
	if err != nil {
		return err
	}

	sessionPath := cfg.Session.Path
	if sessionPath == "" {
		sessionPath, _ = history.DefaultPath()
	}
	hist, initial := openHistory(cfg, sessionPath, origin, start)

	b := &browser{
		doc:     doc,
		hist:    hist,
		origin:  origin,
		ext:     cfg.Site.PageExtension,
		out:     cmd.OutOrStdout(),
		events:  make(chan router.Event, 64),
		timeout: settleTimeout(cfg),
	}
	if cfg.Session.Restore {
		b.sessionPath = sessionPath
	}
	b.engine, err = router.New(doc, hist, f, parser, router.Options{
		Origin:        origin,
		PageExtension: cfg.Site.PageExtension,
		RootPage:      cfg.Site.RootPage,
		Timeout:       cfg.NavigationTimeout(),
		Logger:        slog.Default(),
		Indicator:     status.NewTerminal(os.Stderr),
		OnEvent:       b.onEvent,
	})
	if err != nil {
		return err
	}
	b.engine.Start()
	defer b.engine.Stop()

	if b.engine.InitialLoad(initial) {
		b.settle(func(ev router.Event) bool { return ev.Request.Cause == router.CauseInitial })
	}

	err = b.repl(cmd.InOrStdin())
	b.saveSession()
	return err
}

// openHistory returns the history stack and the path the first-load check
// runs on. A saved session for the same site resumes where it left off.
func openHistory(cfg *config.Config, path string, origin, start *url.URL) (*history.Stack, string) {
	if cfg.Session.Restore && path != "" {
		sess, err := history.Load(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			slog.Warn("loading session", "path", path, "error", err)
		case sess.Site == origin.String():
			hist, err := history.Restore(sess)
			if err == nil {
				return hist, hist.Current().URL
			}
			slog.Warn("restoring session", "path", path, "error", err)
		}
	}
	return history.New("/"), start.RequestURI()
}

func settleTimeout(cfg *config.Config) time.Duration {
	if d := cfg.NavigationTimeout(); d > 0 {
		return d + 5*time.Second
	}
	return 2 * time.Minute
}

type browser struct {
	engine  *router.Engine
	doc     *document.Document
	hist    *history.Stack
	origin  *url.URL
	ext     string
	out     io.Writer
	events  chan router.Event
	timeout time.Duration

	sessionPath string // empty when the session is not persisted
}

// onEvent runs on the engine loop, so it never blocks.
func (b *browser) onEvent(ev router.Event) {
	select {
	case b.events <- ev:
	default:
	}
}

// settle waits for the outcome of the navigation selected by match.
func (b *browser) settle(match func(router.Event) bool) {
	deadline := time.After(b.timeout)
	for {
		select {
		case ev := <-b.events:
			if ev.Kind == router.EventStarted || !match(ev) {
				continue
			}
			if ev.Kind == router.EventCommitted {
				fmt.Fprintf(b.out, "%s  %s\n", b.doc.Title(), ev.Request.Target)
			}
			return
		case <-deadline:
			fmt.Fprintln(b.out, "still loading")
			return
		}
	}
}

func (b *browser) settleTarget(target string) {
	b.settle(func(ev router.Event) bool { return ev.Request.Target == target })
}

func (b *browser) repl(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(b.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(b.out)
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "links", "l":
			b.listLinks()
		case "click", "c":
			if len(fields) != 2 {
				fmt.Fprintln(b.out, "usage: click N")
				continue
			}
			b.click(fields[1])
		case "go", "g":
			if len(fields) != 2 {
				fmt.Fprintln(b.out, "usage: go PATH")
				continue
			}
			b.navigate(fields[1])
		case "back", "b":
			if !b.hist.Back() {
				fmt.Fprintln(b.out, "no previous page")
				continue
			}
			b.settle(func(ev router.Event) bool { return ev.Request.Cause == router.CausePop })
		case "forward", "f":
			if !b.hist.Forward() {
				fmt.Fprintln(b.out, "no next page")
				continue
			}
			b.settle(func(ev router.Event) bool { return ev.Request.Cause == router.CausePop })
		case "show", "s":
			b.show()
		case "history", "h":
			b.listHistory()
		case "forget":
			b.forgetSession()
		case "quit", "q", "exit":
			return nil
		default:
			fmt.Fprintf(b.out, "unknown command %q\n", fields[0])
		}
	}
}

func (b *browser) base() *url.URL {
	ref, err := url.Parse(b.engine.Location())
	if err != nil {
		return b.origin
	}
	return b.origin.ResolveReference(ref)
}

func (b *browser) listLinks() {
	base := b.base()
	for i, l := range b.doc.Links() {
		mark := " "
		if _, ok := router.Intercept(base, l.Href, l.Target, b.ext); !ok {
			mark = "*"
		}
		fmt.Fprintf(b.out, "%3d %s %-24s %s\n", i+1, mark, l.Text, l.Href)
	}
	fmt.Fprintln(b.out, "  * not handled by partial navigation")
}

func (b *browser) click(arg string) {
	n, err := strconv.Atoi(arg)
	links := b.doc.Links()
	if err != nil || n < 1 || n > len(links) {
		fmt.Fprintf(b.out, "no link %s\n", arg)
		return
	}
	l := links[n-1]
	target, _ := router.Intercept(b.base(), l.Href, l.Target, b.ext)
	if !b.engine.Click(l.Href, l.Target) {
		fmt.Fprintf(b.out, "%s is left to ordinary navigation\n", l.Href)
		return
	}
	b.settleTarget(target)
}

func (b *browser) navigate(path string) {
	target, ok := router.Intercept(b.base(), path, "", b.ext)
	if !ok {
		fmt.Fprintf(b.out, "%s is not a page on this site\n", path)
		return
	}
	if err := b.engine.Navigate(path, router.Push); err != nil {
		fmt.Fprintln(b.out, err)
		return
	}
	b.settleTarget(target)
}

func (b *browser) show() {
	fmt.Fprintf(b.out, "Title: %s\n", b.doc.Title())
	for _, spec := range page.MetaKeys {
		if v, ok := b.doc.Meta(spec.Key); ok {
			fmt.Fprintf(b.out, "  %-15s %s\n", spec.Key, v)
		}
	}
	fmt.Fprintln(b.out)
	fmt.Fprintln(b.out, b.doc.Content())
}

func (b *browser) listHistory() {
	idx := b.hist.Index()
	for i, e := range b.hist.Entries() {
		cur := " "
		if i == idx {
			cur = ">"
		}
		state := ""
		if !e.Committed {
			state = " (pending)"
		}
		fmt.Fprintf(b.out, "%s %2d %s%s\n", cur, i, e.URL, state)
	}
}

func (b *browser) saveSession() {
	if b.sessionPath == "" {
		return
	}
	if err := history.Save(b.sessionPath, b.hist.Snapshot(b.origin.String())); err != nil {
		slog.Warn("saving session", "path", b.sessionPath, "error", err)
	}
}

func (b *browser) forgetSession() {
	if b.sessionPath == "" {
		fmt.Fprintln(b.out, "session saving is off")
		return
	}
	if err := history.Clear(b.sessionPath); err != nil {
		fmt.Fprintln(b.out, err)
		return
	}
	b.sessionPath = ""
	fmt.Fprintln(b.out, "session forgotten")
}
