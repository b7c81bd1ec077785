package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is a parsed page snapshot.
type Document struct {
	doc *goquery.Document
}

// Parse builds a Document from an HTML snapshot.
func Parse(html string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return &Document{doc: doc}, nil
}

// FirstText returns the trimmed text of the first element matched by the
// first selector that matches anything. found is false when no selector
// matches; text may be empty when found is true.
func (d *Document) FirstText(selectors []string) (text string, found bool) {
	for _, sel := range selectors {
		s := d.doc.Find(sel)
		if s.Length() > 0 {
			return strings.TrimSpace(s.First().Text()), true
		}
	}
	return "", false
}

// Has reports whether selector matches at least one element.
func (d *Document) Has(selector string) bool {
	return d.doc.Find(selector).Length() > 0
}
