package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/user/nextdoor-crawler/internal/entity"
	"github.com/user/nextdoor-crawler/internal/repository"
	"github.com/user/nextdoor-crawler/internal/scrape"
	"github.com/user/nextdoor-crawler/pkg/metrics"
)

const baseURL = "https://nextdoor.com"

func newMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

// noopPacer never sleeps.
type noopPacer struct{}

func (noopPacer) Pause(ctx context.Context, _, _ time.Duration) error { return ctx.Err() }

// fakeClock advances only when told to.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.March, 4, 15, 30, 0, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakePost struct {
	href     string
	author   string
	location string
	date     string
	content  string
	// noContent keeps the detail selector from ever rendering.
	noContent bool
}

func (p fakePost) link() string { return baseURL + p.href }

func post(n int) fakePost {
	return fakePost{
		href:     fmt.Sprintf("/p/%d", n),
		author:   fmt.Sprintf("Author %d", n),
		location: "Maple Heights",
		date:     "2 hr ago",
		content:  fmt.Sprintf("Post body %d", n),
	}
}

// fakeBrowser renders a search result list revealed in batches by scrolling,
// plus a detail page for whichever post is open.
type fakeBrowser struct {
	mu       sync.Mutex
	batches  [][]fakePost
	revealed int
	current  *fakePost

	present  map[string]bool
	errs     map[string]error
	attrs    map[string]string
	dead     bool
	closed   bool
	scrolls  int
	calls    []string
	typed    strings.Builder
	clickJSN map[string]int
}

func newFakeBrowser(batches ...[]fakePost) *fakeBrowser {
	return &fakeBrowser{
		batches:  batches,
		revealed: 1,
		present:  map[string]bool{},
		errs:     map[string]error{},
		attrs:    map[string]string{},
		clickJSN: map[string]int{},
	}
}

func (b *fakeBrowser) record(method, arg string) error {
	b.calls = append(b.calls, method+":"+arg)
	if b.dead {
		return repository.ErrSessionClosed
	}
	if err, ok := b.errs[method+":"+arg]; ok {
		return err
	}
	return b.errs[method]
}

func (b *fakeBrowser) visible() []fakePost {
	var out []fakePost
	for i := 0; i < b.revealed && i < len(b.batches); i++ {
		out = append(out, b.batches[i]...)
	}
	return out
}

func (b *fakeBrowser) find(match func(fakePost) bool) *fakePost {
	for _, batch := range b.batches {
		for i := range batch {
			if match(batch[i]) {
				p := batch[i]
				return &p
			}
		}
	}
	return nil
}

func (b *fakeBrowser) Navigate(_ context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("Navigate", url); err != nil {
		return err
	}
	b.current = b.find(func(p fakePost) bool { return p.link() == url })
	return nil
}

func (b *fakeBrowser) Click(_ context.Context, selector string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.record("Click", selector)
}

func (b *fakeBrowser) ClickJS(_ context.Context, selector string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("ClickJS", selector); err != nil {
		return err
	}
	b.clickJSN[selector]++
	if b.current == nil {
		for _, p := range b.visible() {
			if scrape.CardLinkSelector(p.href) == selector {
				p := p
				b.current = &p
				return nil
			}
		}
	}
	if selector == scrape.CommentForm && b.current != nil {
		return nil
	}
	return fmt.Errorf("%w: %s", repository.ErrElementNotFound, selector)
}

func (b *fakeBrowser) SendKeys(_ context.Context, selector, keys string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("SendKeys", selector); err != nil {
		return err
	}
	if selector == scrape.CommentInput {
		b.typed.WriteString(keys)
	}
	return nil
}

func (b *fakeBrowser) PressEnter(_ context.Context, selector string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.record("PressEnter", selector)
}

func (b *fakeBrowser) DispatchInput(_ context.Context, selector string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.record("DispatchInput", selector)
}

func (b *fakeBrowser) Evaluate(_ context.Context, script string, _ any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.record("Evaluate", script)
}

func (b *fakeBrowser) ScrollToBottom(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("ScrollToBottom", ""); err != nil {
		return err
	}
	b.scrolls++
	if b.current == nil && b.revealed < len(b.batches) {
		b.revealed++
	}
	return nil
}

func (b *fakeBrowser) WaitVisible(_ context.Context, selector string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("WaitVisible", selector); err != nil {
		return err
	}
	if selector == scrape.DetailContent && b.current != nil && !b.current.noContent {
		return nil
	}
	if b.present[selector] {
		return nil
	}
	return fmt.Errorf("%w: %s", repository.ErrElementNotFound, selector)
}

func (b *fakeBrowser) Exists(_ context.Context, selector string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("Exists", selector); err != nil {
		return false, err
	}
	if selector == scrape.CommentForm && b.current != nil {
		return !b.present["no-comment-form"], nil
	}
	return b.present[selector], nil
}

func (b *fakeBrowser) Attribute(_ context.Context, selector, name string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("Attribute", selector); err != nil {
		return "", false, err
	}
	v, ok := b.attrs[selector+"@"+name]
	return v, ok, nil
}

func (b *fakeBrowser) HTML(context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("HTML", ""); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("<html><body>")
	if b.current == nil {
		for i, p := range b.visible() {
			fmt.Fprintf(&sb, `<div data-testid="dwell-tracker-searchFeedItem-%d"><a class="BaseLink__kjvg670" href="%s">card</a></div>`, i, p.href)
		}
	} else {
		p := b.current
		fmt.Fprintf(&sb, `<a class="_3I7vNNNM E7NPJ3WK">%s</a>`, p.author)
		fmt.Fprintf(&sb, `<a class="post-byline-redesign post-byline-truncated">%s</a>`, p.location)
		fmt.Fprintf(&sb, `<a class="post-byline-redesign">%s</a>`, p.date)
		if !p.noContent {
			fmt.Fprintf(&sb, `<div class="blocks-uj7zvs"><span><div><span><span>%s</span></span></div></span></div>`, p.content)
		}
	}
	sb.WriteString("</body></html>")
	return sb.String(), nil
}

func (b *fakeBrowser) Back(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("Back", ""); err != nil {
		return err
	}
	b.current = nil
	return nil
}

func (b *fakeBrowser) Screenshot(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.record("Screenshot", path)
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *fakeBrowser) count(call string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if strings.HasPrefix(c, call) {
			n++
		}
	}
	return n
}

// fakeFactory hands out prepared browsers in order.
type fakeFactory struct {
	browsers []*fakeBrowser
	err      error
	opened   int
}

func (f *fakeFactory) Open(context.Context) (repository.Browser, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.opened >= len(f.browsers) {
		return nil, errors.New("no more browsers")
	}
	b := f.browsers[f.opened]
	f.opened++
	return b, nil
}

// fakeOracle answers with fn and counts calls.
type fakeOracle struct {
	mu    sync.Mutex
	calls [][]repository.Message
	fn    func(n int, msgs []repository.Message) (string, error)
}

func (o *fakeOracle) Chat(_ context.Context, msgs []repository.Message) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, msgs)
	return o.fn(len(o.calls), msgs)
}

// fakeClassifier records every post it sees.
type fakeClassifier struct {
	mu     sync.Mutex
	seen   []string
	draft  func(content string) entity.Draft
	onCall func()
}

func (c *fakeClassifier) Classify(_ context.Context, content, _ string) entity.Draft {
	c.mu.Lock()
	c.seen = append(c.seen, content)
	c.mu.Unlock()
	if c.onCall != nil {
		c.onCall()
	}
	if c.draft == nil {
		return entity.Draft{}
	}
	return c.draft(content)
}

// fakeApprover answers from a fixed list, then "no".
type fakeApprover struct {
	answers []bool
	asked   []string
}

func (a *fakeApprover) Approve(_ context.Context, message string) (bool, error) {
	a.asked = append(a.asked, message)
	if len(a.answers) == 0 {
		return false, nil
	}
	ok := a.answers[0]
	a.answers = a.answers[1:]
	return ok, nil
}

type fakeReplier struct {
	posted []string
	err    error
}

func (r *fakeReplier) Post(_ context.Context, _ repository.Browser, message string) error {
	if r.err != nil {
		return r.err
	}
	r.posted = append(r.posted, message)
	return nil
}

// fakePostRepo is an in-memory repository.PostRepository.
type fakePostRepo struct {
	mu         sync.Mutex
	posts      map[string]*entity.Post
	order      []string
	failAll    error
	failInsert error
}

func newFakePostRepo(existing ...string) *fakePostRepo {
	r := &fakePostRepo{posts: map[string]*entity.Post{}}
	for _, link := range existing {
		r.posts[link] = &entity.Post{Link: link, ServiceRequest: entity.ServiceRequestNo}
		r.order = append(r.order, link)
	}
	return r
}

func (r *fakePostRepo) Exists(_ context.Context, link string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return false, r.failAll
	}
	_, ok := r.posts[link]
	return ok, nil
}

func (r *fakePostRepo) Insert(_ context.Context, p *entity.Post) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return false, r.failAll
	}
	if r.failInsert != nil {
		return false, r.failInsert
	}
	if _, ok := r.posts[p.Link]; ok {
		return false, nil
	}
	cp := *p
	r.posts[p.Link] = &cp
	r.order = append(r.order, p.Link)
	return true, nil
}

func (r *fakePostRepo) MarkProcessed(_ context.Context, link string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return r.failAll
	}
	if p, ok := r.posts[link]; ok {
		p.Processed = true
	}
	return nil
}

func (r *fakePostRepo) ListUnprocessed(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, r.failAll
	}
	out := []string{}
	for _, link := range r.order {
		if !r.posts[link].Processed {
			out = append(out, link)
		}
	}
	return out, nil
}

func (r *fakePostRepo) FindByLink(_ context.Context, link string) (*entity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, r.failAll
	}
	p, ok := r.posts[link]
	if !ok {
		return nil, repository.ErrPostNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePostRepo) Ping(context.Context) error { return r.failAll }
func (r *fakePostRepo) Close() error               { return nil }

func (r *fakePostRepo) get(link string) *entity.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.posts[link]
}

func (r *fakePostRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.posts)
}

// fakeConsole replays scripted answers.
type fakeConsole struct {
	answers   []string
	questions []string
}

func (c *fakeConsole) Ask(_ context.Context, question string) (string, error) {
	c.questions = append(c.questions, question)
	if len(c.answers) == 0 {
		return "", errEndOfScript
	}
	a := c.answers[0]
	c.answers = c.answers[1:]
	return a, nil
}

var errEndOfScript = errors.New("end of script")

type fakeSecondFactor struct {
	decisions []repository.SecondFactorDecision
	onAsk     func()
	asked     int
}

func (s *fakeSecondFactor) AwaitSecondFactor(context.Context) (repository.SecondFactorDecision, error) {
	s.asked++
	if s.onAsk != nil {
		s.onAsk()
	}
	if len(s.decisions) == 0 {
		return repository.SecondFactorDeclined, nil
	}
	d := s.decisions[0]
	s.decisions = s.decisions[1:]
	return d, nil
}

func testLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zap.NewNop()
}
