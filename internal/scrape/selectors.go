// Package scrape holds the site's DOM selectors and the HTML parsing of
// search results and post pages.
package scrape

// Selectors are isolated here because the site reshuffles its markup often.
// Update them when extraction starts returning placeholders.
const (
	SearchInput    = "#search-input-field"
	PostsTab       = "a[data-testid='tab-posts']"
	ProfilePicture = "img[alt*='Profile picture']"

	LoginEmail    = "input[name='email']"
	LoginPassword = "input[name='password']"

	FeedCard = "div[data-testid^='dwell-tracker-searchFeedItem']"
	CardLink = "a.BaseLink__kjvg670"

	DetailContent = "div.blocks-uj7zvs span div span span"

	CommentForm   = "form.comment-body-container"
	CommentInput  = "textarea[data-testid='comment-add-reply-input']"
	CommentSubmit = "button[data-testid='inline-composer-reply-button']"
)

// Alternatives per field, tried in order.
var (
	AuthorSelectors = []string{
		"a._3I7vNNNM.E7NPJ3WK",
		"[data-testid='author-children-test'] a",
	}
	LocationSelectors = []string{
		"a.post-byline-redesign.post-byline-truncated",
	}
	DateSelectors = []string{
		"a.post-byline-redesign:not(.post-byline-truncated)",
	}
	ContentSelectors = []string{
		DetailContent,
		"[data-testid='post-body'] span",
	}
)
