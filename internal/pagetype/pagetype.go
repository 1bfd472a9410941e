// Package pagetype maps request URLs to coarse resource categories.
package pagetype

import (
	"path"
	"strings"
)

// Type is a coarse resource category derived from a URL's file extension.
type Type string

// Supported page types.
const (
	Page       Type = "page"
	JavaScript Type = "javascript"
	CSS        Type = "css"
	Image      Type = "image"
	Font       Type = "font"
	XML        Type = "xml"
	JSON       Type = "json"
	PDF        Type = "pdf"
	Other      Type = "other"
)

var byExtension = map[string]Type{}

func init() {
	register(Page, ".html", ".htm", ".php", ".asp", ".aspx", ".jsp", ".shtml")
	register(JavaScript, ".js", ".mjs", ".jsx", ".ts", ".tsx")
	register(CSS, ".css", ".scss", ".less")
	register(Image, ".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico", ".bmp", ".tiff", ".avif")
	register(Font, ".woff", ".woff2", ".ttf", ".eot", ".otf")
	register(XML, ".xml", ".rss", ".atom", ".xsl")
	register(JSON, ".json")
	register(PDF, ".pdf")
}

func register(t Type, exts ...string) {
	for _, ext := range exts {
		byExtension[ext] = t
	}
}

// Classify returns the page type for a URL or path. Query strings and
// fragments are ignored; a path without an extension is a page.
func Classify(rawURL string) Type {
	clean := rawURL
	if i := strings.IndexByte(clean, '?'); i >= 0 {
		clean = clean[:i]
	}
	if i := strings.IndexByte(clean, '#'); i >= 0 {
		clean = clean[:i]
	}
	ext := extension(strings.ToLower(clean))
	if ext == "" {
		return Page
	}
	if t, ok := byExtension[ext]; ok {
		return t
	}
	return Other
}

// extension mirrors splitext semantics: dots leading the final element do
// not start an extension, so "/.well-known" has none.
func extension(p string) string {
	base := path.Base(p)
	if strings.HasSuffix(p, "/") {
		return ""
	}
	trimmed := strings.TrimLeft(base, ".")
	i := strings.LastIndexByte(trimmed, '.')
	if i < 0 {
		return ""
	}
	return trimmed[i:]
}
