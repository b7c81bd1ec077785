package scrape_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/nextdoor-crawler/internal/scrape"
)

const resultsPage = `<html><body>
<div data-testid="dwell-tracker-searchFeedItem-0"><a class="BaseLink__kjvg670" href="/p/AAA?init_source=search">A</a></div>
<div data-testid="dwell-tracker-searchFeedItem-1"><span>no link here</span></div>
<div data-testid="dwell-tracker-searchFeedItem-2"><a class="BaseLink__kjvg670 other" href="https://nextdoor.com/p/BBB">B</a></div>
<div data-testid="unrelated"><a class="BaseLink__kjvg670" href="/p/ZZZ">Z</a></div>
<div data-testid="dwell-tracker-searchFeedItem-3"><a class="BaseLink__kjvg670" href="  ">blank</a></div>
</body></html>`

func TestParseCards(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://nextdoor.com/search/posts/?query=plumbing")
	require.NoError(t, err)

	cards, err := scrape.ParseCards(resultsPage, base)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	assert.Equal(t, "https://nextdoor.com/p/AAA?init_source=search", cards[0].Link)
	assert.Equal(t, "/p/AAA?init_source=search", cards[0].Href)
	assert.Equal(t, "https://nextdoor.com/p/BBB", cards[1].Link)
	assert.Equal(t, cards[1].Link, cards[1].Href)
}

func TestParseCards_Empty(t *testing.T) {
	t.Parallel()

	cards, err := scrape.ParseCards("<html><body><p>No results</p></body></html>", nil)
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestCardLinkSelector(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `a.BaseLink__kjvg670[href="/p/AAA"]`, scrape.CardLinkSelector("/p/AAA"))
	assert.Equal(t, `a.BaseLink__kjvg670[href="/p/\"q\""]`, scrape.CardLinkSelector(`/p/"q"`))

	doc, err := scrape.Parse(resultsPage)
	require.NoError(t, err)
	assert.True(t, doc.Has(scrape.CardLinkSelector("/p/AAA?init_source=search")))
	assert.False(t, doc.Has(scrape.CardLinkSelector("/p/CCC")))
}
