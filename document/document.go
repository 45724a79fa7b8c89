// Package document holds the live host document that partial navigations
// are committed into.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"sitenav/page"
)

// ErrNoContainer is returned when the host document has no content container.
var ErrNoContainer = errors.New("document has no content container")

var (
	titleSel = cascadia.MustCompile("title")
	headSel  = cascadia.MustCompile("head")
	linkSel  = cascadia.MustCompile("a[href]")
)

// Link represents a clickable anchor in the document.
type Link struct {
	Href   string
	Target string // presentation target, empty for the default
	Text   string
}

// Document is the live page. All mutation goes through Commit and ScrollTo;
// readers may call the accessors from any goroutine.
type Document struct {
	mu        sync.RWMutex
	root      *html.Node
	container cascadia.Selector
	selector  string
	scrollY   int
}

// New wraps an already parsed tree.
func New(root *html.Node, contentSelector string) (*Document, error) {
	if root == nil {
		return nil, errors.New("nil document root")
	}
	if strings.TrimSpace(contentSelector) == "" {
		contentSelector = page.DefaultContentSelector
	}
	sel, err := cascadia.Compile(contentSelector)
	if err != nil {
		return nil, fmt.Errorf("compiling content selector %q: %w", contentSelector, err)
	}
	return &Document{root: root, container: sel, selector: contentSelector}, nil
}

// Parse reads the host document.
func Parse(r io.Reader, contentSelector string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing host document: %w", err)
	}
	return New(root, contentSelector)
}

// ParseString parses the host document from a string.
func ParseString(s, contentSelector string) (*Document, error) {
	return Parse(strings.NewReader(s), contentSelector)
}

// Title returns the document title, or "" without a <title>.
func (d *Document) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	t := d.title()
	if t == nil {
		return ""
	}
	return strings.TrimSpace(textContent(t))
}

// Content returns the inner markup of the content container.
func (d *Document) Content() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c := d.container.MatchFirst(d.root)
	if c == nil {
		return ""
	}
	var buf bytes.Buffer
	for n := c.FirstChild; n != nil; n = n.NextSibling {
		html.Render(&buf, n)
	}
	return buf.String()
}

// Meta returns the value of a metadata key.
func (d *Document) Meta(key string) (string, bool) {
	spec, ok := page.LookupMeta(key)
	if !ok {
		return "", false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	n := findMeta(d.root, spec)
	if n == nil {
		return "", false
	}
	return getAttr(n, spec.ValueAttr())
}

// ScrollY returns the current vertical scroll offset.
func (d *Document) ScrollY() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.scrollY
}

// ScrollTo sets the vertical scroll offset.
func (d *Document) ScrollTo(y int) {
	if y < 0 {
		y = 0
	}
	d.mu.Lock()
	d.scrollY = y
	d.mu.Unlock()
}

// Links returns every anchor with an href, in document order.
func (d *Document) Links() []Link {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var links []Link
	for _, a := range linkSel.MatchAll(d.root) {
		href, _ := getAttr(a, "href")
		target, _ := getAttr(a, "target")
		links = append(links, Link{
			Href:   href,
			Target: target,
			Text:   strings.Join(strings.Fields(textContent(a)), " "),
		})
	}
	return links
}

// HTML renders the whole document.
func (d *Document) HTML() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Commit applies a parsed page: the content container is replaced verbatim,
// the title is set when the page has one, and each metadata key present in
// the page is upserted. Either everything is applied or nothing is.
func (d *Document) Commit(p *page.Page) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c := d.container.MatchFirst(d.root)
	if c == nil {
		return ErrNoContainer
	}

	nodes, err := html.ParseFragment(strings.NewReader(p.Content), c)
	if err != nil {
		return fmt.Errorf("parsing content fragment: %w", err)
	}

	for c.FirstChild != nil {
		c.RemoveChild(c.FirstChild)
	}
	for _, n := range nodes {
		c.AppendChild(n)
	}

	if p.HasTitle {
		d.setTitle(p.Title)
	}

	for _, m := range p.Meta {
		spec, ok := page.LookupMeta(m.Key)
		if !ok {
			continue
		}
		d.upsertMeta(spec, m.Value)
	}

	return nil
}

func (d *Document) head() *html.Node {
	if h := headSel.MatchFirst(d.root); h != nil {
		return h
	}
	return d.root
}

// title finds the HTML <title>; SVG and MathML titles do not count.
func (d *Document) title() *html.Node {
	for _, t := range titleSel.MatchAll(d.root) {
		if t.Namespace == "" {
			return t
		}
	}
	return nil
}

func (d *Document) setTitle(title string) {
	t := d.title()
	if t == nil {
		t = &html.Node{Type: html.ElementNode, Data: "title", DataAtom: atom.Title}
		d.head().AppendChild(t)
	}
	for t.FirstChild != nil {
		t.RemoveChild(t.FirstChild)
	}
	t.AppendChild(&html.Node{Type: html.TextNode, Data: title})
}

// upsertMeta sets the value on the existing tag for spec, creating a tag of
// the same kind in <head> when the host has none.
func (d *Document) upsertMeta(spec page.MetaSpec, value string) {
	n := findMeta(d.root, spec)
	if n == nil {
		n = &html.Node{
			Type:     html.ElementNode,
			Data:     spec.TagName(),
			DataAtom: atom.Lookup([]byte(spec.TagName())),
			Attr:     []html.Attribute{{Key: spec.KeyAttr(), Val: spec.Name}},
		}
		d.head().AppendChild(n)
	}
	setAttr(n, spec.ValueAttr(), value)
}

func findMeta(root *html.Node, spec page.MetaSpec) *html.Node {
	sel, err := cascadia.Compile(spec.Selector())
	if err != nil {
		return nil
	}
	return sel.MatchFirst(root)
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return sb.String()
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
