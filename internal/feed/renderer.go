package feed

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
)

// ParseFormat accepts "", "xml", "rss" and "json".
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "xml", "rss":
		return FormatXML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported feed format %q", raw)
	}
}

func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json; charset=utf-8"
	}
	return "application/rss+xml; charset=utf-8"
}

// Renderer serializes documents. It is safe for concurrent use.
type Renderer struct {
	// Now supplies the build date of documents without items.
	Now func() time.Time

	htmlPolicy *bluemonday.Policy
	textPolicy *bluemonday.Policy
}

func NewRenderer() *Renderer {
	return &Renderer{
		Now:        time.Now,
		htmlPolicy: bluemonday.UGCPolicy(),
		textPolicy: bluemonday.StrictPolicy(),
	}
}

func (r *Renderer) Render(doc Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return r.JSON(doc)
	case FormatXML, "":
		return r.XML(doc)
	default:
		return nil, fmt.Errorf("unsupported feed format %q", format)
	}
}

func (r *Renderer) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// sanitizeHTML keeps user-generated markup safe to embed in readers.
func (r *Renderer) sanitizeHTML(s string) string {
	return xmlSafe(r.htmlPolicy.Sanitize(xmlSafe(s)))
}

// plainText filters again after unescaping since a numeric reference such
// as &#11; decodes to a control character.
func (r *Renderer) plainText(s string) string {
	return strings.TrimSpace(xmlSafe(html.UnescapeString(r.textPolicy.Sanitize(xmlSafe(s)))))
}

// xmlSafe drops runes outside the XML 1.0 Char production. CDATA sections
// are written verbatim, so they must be filtered before encoding.
func xmlSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r >= 0x20 && r <= 0xD7FF:
			return r
		case r >= 0xE000 && r <= 0xFFFD:
			return r
		case r >= 0x10000 && r <= 0x10FFFF:
			return r
		}
		return -1
	}, s)
}

const rfc1123GMT = "Mon, 02 Jan 2006 15:04:05 GMT"

func formatRSSDate(t time.Time) string {
	return t.UTC().Format(rfc1123GMT)
}

func formatJSONDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func roundSeconds(d *float64) *int {
	if d == nil || *d <= 0 {
		return nil
	}
	v := int(*d + 0.5)
	return &v
}

func dimensions(w, h *int) (*int, *int) {
	if w == nil || h == nil || *w <= 0 || *h <= 0 {
		return nil, nil
	}
	return w, h
}
