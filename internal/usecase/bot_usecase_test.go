package usecase_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/nextdoor-crawler/internal/entity"
	"github.com/user/nextdoor-crawler/internal/repository"
	"github.com/user/nextdoor-crawler/internal/usecase"
)

type fakeSessions struct {
	browsers []*fakeBrowser
	logins   int
	err      error

	// loggedOut is how many upcoming VerifyLogin calls report false.
	loggedOut int
	verified  int
}

func (s *fakeSessions) Login(context.Context) (*usecase.Session, error) {
	s.logins++
	if s.err != nil || s.logins > len(s.browsers) {
		return nil, usecase.ErrLoginFailed
	}
	return &usecase.Session{Browser: s.browsers[s.logins-1], State: usecase.StateAuthenticated}, nil
}

func (s *fakeSessions) CheckLoginSuccess(context.Context, repository.Browser, int, time.Duration) bool {
	return true
}

func (s *fakeSessions) VerifyLogin(context.Context, *usecase.Session) bool {
	s.verified++
	if s.loggedOut > 0 {
		s.loggedOut--
		return false
	}
	return true
}

type searchCall struct {
	query string
}

type fakeNavigator struct {
	calls   []searchCall
	results []entity.SearchResult
}

func (n *fakeNavigator) Search(_ context.Context, _ *usecase.Session, query string) entity.SearchResult {
	n.calls = append(n.calls, searchCall{query: query})
	if len(n.results) == 0 {
		return entity.SearchResult{Submitted: true, Filtered: true}
	}
	r := n.results[0]
	n.results = n.results[1:]
	return r
}

type extractCall struct {
	maxItems   int
	maxRuntime time.Duration
}

type fakeExtractor struct {
	calls    []extractCall
	outcomes []entity.CrawlOutcome
}

func (e *fakeExtractor) Extract(_ context.Context, _ *usecase.Session, maxItems int, maxRuntime time.Duration) (entity.CrawlOutcome, entity.CrawlStats) {
	e.calls = append(e.calls, extractCall{maxItems: maxItems, maxRuntime: maxRuntime})
	if len(e.outcomes) == 0 {
		return entity.CrawlCompleted, entity.CrawlStats{}
	}
	o := e.outcomes[0]
	e.outcomes = e.outcomes[1:]
	return o, entity.CrawlStats{}
}

func newBot(t *testing.T, console *fakeConsole, sessions *fakeSessions, nav *fakeNavigator, ext *fakeExtractor) *usecase.Bot {
	t.Helper()
	return usecase.NewBot(console, sessions, nav, ext, noopPacer{}, usecase.BotConfig{
		DefaultMaxPosts:   50,
		DefaultMaxRuntime: 1200 * time.Second,
		RestartDelay:      5 * time.Second,
	}, testLogger(t))
}

func TestBot_QueryThenExit(t *testing.T) {
	t.Parallel()

	b := newFakeBrowser()
	console := &fakeConsole{answers: []string{
		"  ", // ignored
		"plumbing", "", "",
		"lawn", "10", "abc",
		"exit", "no",
		"EXIT", "yes",
	}}
	sessions := &fakeSessions{browsers: []*fakeBrowser{b}}
	nav := &fakeNavigator{}
	ext := &fakeExtractor{}

	err := newBot(t, console, sessions, nav, ext).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []searchCall{{"plumbing"}, {"lawn"}}, nav.calls)
	assert.Equal(t, 2, sessions.verified)
	assert.Equal(t, []extractCall{
		{maxItems: 50, maxRuntime: 1200 * time.Second},
		{maxItems: 10, maxRuntime: 1200 * time.Second},
	}, ext.calls)
	assert.True(t, b.closed)
	assert.Empty(t, console.answers)
}

func TestBot_FailedSearchDoesNotRestart(t *testing.T) {
	t.Parallel()

	b := newFakeBrowser()
	console := &fakeConsole{answers: []string{"plumbing", "", ""}}
	sessions := &fakeSessions{browsers: []*fakeBrowser{b}}
	nav := &fakeNavigator{results: []entity.SearchResult{{Submitted: true}}}
	ext := &fakeExtractor{}

	err := newBot(t, console, sessions, nav, ext).Run(context.Background())

	// The script runs out after the failed search.
	assert.ErrorIs(t, err, errEndOfScript)
	assert.Empty(t, ext.calls)
	assert.Equal(t, 1, sessions.logins)
}

func TestBot_AbortRestartsSession(t *testing.T) {
	t.Parallel()

	first, second := newFakeBrowser(), newFakeBrowser()
	console := &fakeConsole{answers: []string{
		"plumbing", "", "",
		"plumbing", "", "",
		"exit", "yes",
	}}
	sessions := &fakeSessions{browsers: []*fakeBrowser{first, second}}
	nav := &fakeNavigator{}
	ext := &fakeExtractor{outcomes: []entity.CrawlOutcome{entity.CrawlAborted, entity.CrawlCompleted}}

	err := newBot(t, console, sessions, nav, ext).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sessions.logins)
	assert.True(t, first.closed)
	assert.True(t, second.closed)
	assert.Len(t, ext.calls, 2)
}

func TestBot_LoggedOutSessionRestartsBeforeSearch(t *testing.T) {
	t.Parallel()

	first, second := newFakeBrowser(), newFakeBrowser()
	console := &fakeConsole{answers: []string{
		"plumbing", "", "",
		"exit", "yes",
	}}
	sessions := &fakeSessions{browsers: []*fakeBrowser{first, second}, loggedOut: 1}
	nav := &fakeNavigator{}
	ext := &fakeExtractor{}

	err := newBot(t, console, sessions, nav, ext).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sessions.verified)
	assert.Equal(t, 2, sessions.logins)
	assert.True(t, first.closed)
	assert.True(t, second.closed)
	assert.Equal(t, []searchCall{{"plumbing"}}, nav.calls)
	assert.Len(t, ext.calls, 1)
}

func TestBot_RestartLoginFailureStops(t *testing.T) {
	t.Parallel()

	b := newFakeBrowser()
	console := &fakeConsole{answers: []string{"plumbing", "", ""}}
	sessions := &fakeSessions{browsers: []*fakeBrowser{b}}
	ext := &fakeExtractor{outcomes: []entity.CrawlOutcome{entity.CrawlAborted}}

	err := newBot(t, console, sessions, &fakeNavigator{}, ext).Run(context.Background())

	assert.ErrorIs(t, err, usecase.ErrLoginFailed)
	assert.True(t, b.closed)
}

func TestBot_InitialLoginFailure(t *testing.T) {
	t.Parallel()

	console := &fakeConsole{}
	sessions := &fakeSessions{err: errors.New("no")}

	err := newBot(t, console, sessions, &fakeNavigator{}, &fakeExtractor{}).Run(context.Background())

	assert.ErrorIs(t, err, usecase.ErrLoginFailed)
	assert.Empty(t, console.questions)
}

type eofConsole struct{}

func (eofConsole) Ask(context.Context, string) (string, error) { return "", io.EOF }

func TestBot_EndOfInputIsClean(t *testing.T) {
	t.Parallel()

	b := newFakeBrowser()
	bot := usecase.NewBot(eofConsole{}, &fakeSessions{browsers: []*fakeBrowser{b}}, &fakeNavigator{}, &fakeExtractor{},
		noopPacer{}, usecase.BotConfig{}, testLogger(t))

	require.NoError(t, bot.Run(context.Background()))
	assert.True(t, b.closed)
}
