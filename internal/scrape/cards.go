package scrape

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/nextdoor-crawler/pkg/utils"
)

// Card is one rendered search result.
type Card struct {
	Link string // absolute, the post identity
	Href string // attribute value as rendered, used to click the card
}

// ParseCards returns the cards rendered in html, in document order. Cards
// without a usable link are left out.
func ParseCards(html string, base *url.URL) ([]Card, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	var cards []Card
	doc.Find(FeedCard).Each(func(i int, s *goquery.Selection) {
		href, ok := s.Find(CardLink).First().Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		link, err := utils.ToAbsoluteURL(base, href)
		if err != nil {
			return
		}
		cards = append(cards, Card{Link: link, Href: href})
	})
	return cards, nil
}

var cssStringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// CardLinkSelector selects the anchor of the card whose href attribute is href.
func CardLinkSelector(href string) string {
	return fmt.Sprintf(`%s[href="%s"]`, CardLink, cssStringEscaper.Replace(href))
}
