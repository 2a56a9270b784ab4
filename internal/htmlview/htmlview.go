// Package htmlview exposes a parsed HTML snapshot through the places.Node
// capability so extraction code can run against rendered pages and fixtures alike.
package htmlview

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/placescraper/internal/places"
)

// Node wraps a goquery selection holding exactly one element.
type Node struct {
	sel *goquery.Selection
}

var _ places.Node = Node{}

// Parse builds a view over an HTML document. Script and style content is
// dropped so Text reflects what a reader sees.
func Parse(html string) (Node, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Node{}, fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript, template").Remove()
	return Node{sel: doc.Selection}, nil
}

// MustParse is Parse for fixtures known to be well formed.
func MustParse(html string) Node {
	n, err := Parse(html)
	if err != nil {
		panic(err)
	}
	return n
}

// Text returns the element's text with runs of whitespace collapsed.
func (n Node) Text() string {
	if n.sel == nil {
		return ""
	}
	return strings.Join(strings.Fields(n.sel.Text()), " ")
}

// Attr returns a trimmed attribute value.
func (n Node) Attr(name string) (string, bool) {
	if n.sel == nil {
		return "", false
	}
	v, ok := n.sel.Attr(name)
	return strings.TrimSpace(v), ok
}

// Find returns every descendant matching selector in document order.
func (n Node) Find(selector string) []places.Node {
	if n.sel == nil {
		return nil
	}
	matches := n.sel.Find(selector)
	out := make([]places.Node, 0, matches.Length())
	matches.Each(func(_ int, s *goquery.Selection) {
		out = append(out, Node{sel: s})
	})
	return out
}

// Closest returns the nearest ancestor (or self) matching selector.
func (n Node) Closest(selector string) (places.Node, bool) {
	if n.sel == nil {
		return nil, false
	}
	c := n.sel.Closest(selector)
	if c.Length() == 0 {
		return nil, false
	}
	return Node{sel: c.First()}, true
}
