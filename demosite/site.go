// Package demosite serves a small static site with a shared layout, for
// exercising partial navigation by hand and in tests.
package demosite

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Page is one content page of the site.
type Page struct {
	Title       string
	Description string
	Canonical   string
	OGTitle     string
	Content     template.HTML
}

// Pages maps site paths to content pages.
var Pages = map[string]Page{
	"/index.html": {
		Title:       "Classic Cars",
		Description: "Restored classics for sale",
		Canonical:   "/index.html",
		Content:     `<h1>Welcome</h1><p>Browse our <a href="models/gt.html">GT</a> or read <a href="about.html">about us</a>.</p>`,
	},
	"/about.html": {
		Title:       "About Us",
		Description: "Our team",
		OGTitle:     "About the garage",
		Content:     `<p>Team</p>`,
	},
	"/contact.html": {
		Title:   "Contact",
		Content: `<p>Write to <a href="mailto:sales@example.com">sales</a> or call <a href="tel:+15550100">us</a>.</p>`,
	},
	"/models/gt.html": {
		Title:       "GT",
		Description: "The 1967 GT",
		Content:     `<h2>GT</h2><p>See also the <a href="shelby.html">Shelby</a>.</p><p><a href="#specs">Specs</a></p><div id="specs">V8</div>`,
	},
	"/models/shelby.html": {
		Title:   "Shelby",
		Content: `<h2>Shelby</h2><p><a href="../index.html">Home</a></p>`,
	},
}

// NoMainPath serves a page without a content container.
const NoMainPath = "/nomain.html"

// SlowPath delays its response by the "delay" query parameter in
// milliseconds, one second by default.
const SlowPath = "/slow.html"

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{- if .Description}}
<meta name="description" content="{{.Description}}">{{end}}
{{- if .Canonical}}
<link rel="canonical" href="{{.Canonical}}">{{end}}
{{- if .OGTitle}}
<meta property="og:title" content="{{.OGTitle}}">{{end}}
</head>
<body>
<nav>
<a href="/index.html">Home</a>
<a href="/about.html">About</a>
<a href="/models/gt.html">Models</a>
<a href="/contact.html">Contact</a>
<a href="/missing.html">Missing</a>
<a href="/nomain.html">Broken</a>
<a href="/slow.html">Slow</a>
<a href="https://example.com/">Elsewhere</a>
<a href="/about.html" target="_blank">About (new tab)</a>
</nav>
<main>{{.Content}}</main>
<footer>&copy; Classic Cars</footer>
</body>
</html>
`))

// Handler returns the site's router.
func Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		render(w, Pages["/index.html"])
	})
	r.Get(NoMainPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<!DOCTYPE html><html><head><title>Broken</title></head><body><div>No container here</div></body></html>`))
	})
	r.Get(SlowPath, func(w http.ResponseWriter, r *http.Request) {
		delay := time.Second
		if ms, err := strconv.Atoi(r.URL.Query().Get("delay")); err == nil && ms >= 0 {
			delay = time.Duration(ms) * time.Millisecond
		}
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
		render(w, Page{Title: "Slow", Content: `<p>Worth the wait</p>`})
	})
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		p, ok := Pages[r.URL.Path]
		if !ok || !strings.HasSuffix(r.URL.Path, ".html") {
			http.NotFound(w, r)
			return
		}
		render(w, p)
	})

	return r
}

func render(w http.ResponseWriter, p Page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := layout.Execute(w, p); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
