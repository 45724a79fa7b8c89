package router

import (
	"net/url"
	"strings"
)

// DefaultPageExtension is the suffix of content-page paths.
const DefaultPageExtension = ".html"

// Intercept decides whether activating href from a document at base becomes
// a partial navigation. It returns the same-origin target path when it does.
//
// Only links that resolve to base's origin, end in ext, are not fragment-only
// or mailto:/tel: references, and have no target other than _self are
// intercepted. Everything else is left to ordinary navigation.
func Intercept(base *url.URL, href, target, ext string) (string, bool) {
	if base == nil {
		return "", false
	}
	if ext == "" {
		ext = DefaultPageExtension
	}

	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
		return "", false
	}
	if t := strings.TrimSpace(target); t != "" && !strings.EqualFold(t, "_self") {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	u := base.ResolveReference(ref)
	if !sameOrigin(base, u) {
		return "", false
	}
	if !strings.HasSuffix(u.Path, ext) {
		return "", false
	}
	return pathOf(u), true
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) &&
		strings.EqualFold(a.Hostname(), b.Hostname()) &&
		port(a) == port(b)
}

// port returns the explicit port of u, or the scheme's default.
func port(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		return "80"
	case "https":
		return "443"
	}
	return ""
}

// pathOf returns the path and query of u, dropping any fragment.
func pathOf(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}
