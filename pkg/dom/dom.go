// Package dom provides the query primitives extraction strategies use to read
// a page. The same Surface interface is implemented over a parsed HTML
// snapshot (this package) and over a live browser tab (internal/browser), so
// a strategy written against Surface runs unchanged on either.
package dom

import (
	"context"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Row is a key/value pair read from a repeated row element.
type Row struct {
	Key   string
	Value string
}

// Surface is a read-only, selector-addressable view of a page.
type Surface interface {
	// Texts returns the trimmed text of every element matching selector,
	// in document order.
	Texts(ctx context.Context, selector string) ([]string, error)

	// LabeledValue finds the first element matching labelSelector whose
	// trimmed text equals label, and returns the trimmed text of the next
	// element in document order matching valueSelector. When no such element
	// follows, the first match inside the label's parent is used.
	LabeledValue(ctx context.Context, labelSelector, label, valueSelector string) (string, bool, error)

	// Rows returns, for every element matching rowSelector that contains
	// both a keySelector and a valueSelector descendant, their trimmed text.
	Rows(ctx context.Context, rowSelector, keySelector, valueSelector string) ([]Row, error)
}

// Document is a Surface over a parsed HTML snapshot.
type Document struct {
	raw string
	doc *goquery.Document
}

// Parse reads and parses an HTML document.
func Parse(r io.Reader) (*Document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseString(string(b))
}

// ParseString parses an HTML document held in memory.
func ParseString(s string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return nil, err
	}
	return &Document{raw: s, doc: doc}, nil
}

// HTML returns the raw markup the document was parsed from.
func (d *Document) HTML() string { return d.raw }

// Find runs a selector against the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Texts implements Surface.
func (d *Document) Texts(_ context.Context, selector string) ([]string, error) {
	var out []string
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out, nil
}

// LabeledValue implements Surface.
func (d *Document) LabeledValue(_ context.Context, labelSelector, label, valueSelector string) (string, bool, error) {
	// A grouped selector yields labels and values interleaved in document order.
	nodes := d.doc.Find(labelSelector + ", " + valueSelector)

	var (
		value   string
		found   bool
		labelAt = -1
	)
	nodes.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if labelAt < 0 {
			if s.Is(labelSelector) && strings.TrimSpace(s.Text()) == label {
				labelAt = i
			}
			return true
		}
		if s.Is(valueSelector) {
			value, found = strings.TrimSpace(s.Text()), true
			return false
		}
		return true
	})
	if found || labelAt < 0 {
		return value, found, nil
	}

	v := nodes.Eq(labelAt).Parent().Find(valueSelector).First()
	if v.Length() == 0 {
		return "", false, nil
	}
	return strings.TrimSpace(v.Text()), true, nil
}

// Rows implements Surface.
func (d *Document) Rows(_ context.Context, rowSelector, keySelector, valueSelector string) ([]Row, error) {
	var rows []Row
	d.doc.Find(rowSelector).Each(func(_ int, s *goquery.Selection) {
		k := s.Find(keySelector).First()
		v := s.Find(valueSelector).First()
		if k.Length() == 0 || v.Length() == 0 {
			return
		}
		rows = append(rows, Row{
			Key:   strings.TrimSpace(k.Text()),
			Value: strings.TrimSpace(v.Text()),
		})
	})
	return rows, nil
}

// skipText lists elements whose text never carries visible page content.
var skipText = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// TextNodes returns every visible text node containing substr, in document order.
func (d *Document) TextNodes(substr string) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipText[n.Data] {
			return
		}
		if n.Type == html.TextNode && strings.Contains(n.Data, substr) {
			out = append(out, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range d.doc.Nodes {
		walk(n)
	}
	return out
}

var _ Surface = (*Document)(nil)
