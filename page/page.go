// Package page extracts the content region, title and discoverability
// metadata from a raw HTML page.
package page

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// DefaultContentSelector matches the content container shared by every page
// of the site.
const DefaultContentSelector = "main"

// Page is the parsed form of a fetched document. It is never modified after
// Parse returns.
type Page struct {
	Title    string
	HasTitle bool     // false when the source has no <title>
	Content  string   // inner markup of the content container, verbatim
	Meta     Metadata // only the keys present in the source
}

// Parser extracts pages using a fixed content-container selector. It holds
// no mutable state and may be shared between goroutines.
type Parser struct {
	selector string
	matcher  cascadia.Selector
}

// NewParser compiles the content-container selector. An empty selector means
// DefaultContentSelector.
func NewParser(selector string) (*Parser, error) {
	if strings.TrimSpace(selector) == "" {
		selector = DefaultContentSelector
	}
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("compiling content selector %q: %w", selector, err)
	}
	return &Parser{selector: selector, matcher: m}, nil
}

// Selector returns the content-container selector.
func (p *Parser) Selector() string {
	return p.selector
}

// Parse reads markup and extracts a Page. Scripts are never executed and no
// subresources are loaded.
func (p *Parser) Parse(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	content := doc.FindMatcher(p.matcher).First()
	if content.Length() == 0 {
		return nil, &ParseError{Kind: MissingContent, Selector: p.selector}
	}
	inner, err := content.Html()
	if err != nil {
		return nil, fmt.Errorf("serialising content: %w", err)
	}

	pg := &Page{Content: inner}

	title := doc.Find("title").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Nodes[0].Namespace == ""
	}).First()
	if title.Length() > 0 {
		pg.Title = strings.TrimSpace(title.Text())
		pg.HasTitle = true
	}

	for _, spec := range MetaKeys {
		tag := doc.Find(spec.Selector()).First()
		if tag.Length() == 0 {
			continue
		}
		val, ok := tag.Attr(spec.ValueAttr())
		if !ok {
			continue
		}
		pg.Meta = append(pg.Meta, MetaEntry{Key: spec.Key, Value: val})
	}

	return pg, nil
}

// ParseString parses markup held in a string.
func (p *Parser) ParseString(s string) (*Page, error) {
	return p.Parse(strings.NewReader(s))
}
