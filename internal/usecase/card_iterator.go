package usecase

import (
	"context"
	"fmt"
	"net/url"

	"github.com/user/nextdoor-crawler/internal/repository"
	"github.com/user/nextdoor-crawler/internal/scrape"
)

// CardPoll is one look at the rendered result list.
type CardPoll struct {
	// Fresh holds cards whose link had not been seen in this run, in page order.
	Fresh    []scrape.Card
	Rendered int
	Seen     int
}

// cardIterator yields result cards by link identity. The list re-renders as
// the crawl clicks and navigates back, so positions are never trusted; each
// poll re-reads the page and diffs it against the run's seen set.
type cardIterator struct {
	browser repository.Browser
	seen    repository.SeenSet
	base    *url.URL
}

func newCardIterator(b repository.Browser, seen repository.SeenSet, base *url.URL) *cardIterator {
	return &cardIterator{browser: b, seen: seen, base: base}
}

// Poll marks every returned card as seen. Loading more cards is up to the
// caller.
func (it *cardIterator) Poll(ctx context.Context) (CardPoll, error) {
	html, err := it.browser.HTML(ctx)
	if err != nil {
		return CardPoll{}, fmt.Errorf("snapshot results: %w", err)
	}
	cards, err := scrape.ParseCards(html, it.base)
	if err != nil {
		return CardPoll{}, fmt.Errorf("parse results: %w", err)
	}

	poll := CardPoll{Rendered: len(cards)}
	for _, c := range cards {
		isNew, err := it.seen.MarkSeen(ctx, c.Link)
		if err != nil {
			return CardPoll{}, fmt.Errorf("mark seen: %w", err)
		}
		if !isNew {
			poll.Seen++
			continue
		}
		poll.Fresh = append(poll.Fresh, c)
	}
	return poll, nil
}
