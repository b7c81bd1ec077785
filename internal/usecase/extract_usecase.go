package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/user/nextdoor-crawler/internal/entity"
	"github.com/user/nextdoor-crawler/internal/repository"
	"github.com/user/nextdoor-crawler/internal/scrape"
	"github.com/user/nextdoor-crawler/pkg/metrics"
	"github.com/user/nextdoor-crawler/pkg/utils"
)

const (
	StopMaxPosts    = "max_posts"
	StopMaxRuntime  = "max_runtime"
	StopNoNewPosts  = "no_new_posts"
	StopOuterFault  = "outer_fault"
	StopSessionDead = "session_dead"
)

// Extractor walks the search results of a session, processing each post once.
type Extractor interface {
	Extract(ctx context.Context, s *Session, maxItems int, maxRuntime time.Duration) (entity.CrawlOutcome, entity.CrawlStats)
}

// ExtractorParams wires the collaborators of the crawl loop.
type ExtractorParams struct {
	Seen       repository.SeenSetProvider
	Posts      PostManager
	Classifier Classifier
	Approver   repository.Approver
	Replier    ReplyPoster
	Pacer      Pacer
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	// BaseURL resolves relative card links.
	BaseURL string
	// DetailTimeout bounds the wait for a post's content to render.
	DetailTimeout time.Duration
	// FieldAttempts and FieldDelay control per-field extraction retries.
	FieldAttempts int
	FieldDelay    time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type extractUseCase struct {
	ExtractorParams
	base *url.URL
}

func NewExtractor(p ExtractorParams) (Extractor, error) {
	base, err := url.Parse(p.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if p.DetailTimeout <= 0 {
		p.DetailTimeout = 10 * time.Second
	}
	if p.FieldAttempts <= 0 {
		p.FieldAttempts = 3
	}
	if p.FieldDelay <= 0 {
		p.FieldDelay = time.Second
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &extractUseCase{ExtractorParams: p, base: base}, nil
}

// Extract runs until maxItems posts are saved, maxRuntime elapses, a pass
// finds nothing new, or the outer loop faults; all of these are Completed.
// Aborted means the session is gone and the caller should log in again.
func (uc *extractUseCase) Extract(ctx context.Context, s *Session, maxItems int, maxRuntime time.Duration) (outcome entity.CrawlOutcome, stats entity.CrawlStats) {
	start := uc.Now()
	defer func() {
		stats.Elapsed = uc.Now().Sub(start)
		uc.Metrics.CrawlDuration.Observe(stats.Elapsed.Seconds())
		uc.Logger.Info("completed parsing",
			zap.Int("processed", stats.Processed),
			zap.Int("max_posts", maxItems),
			zap.Int("passes", stats.Passes),
			zap.Int("distinct_links", stats.DistinctLinks),
			zap.Int("item_errors", stats.ItemErrors),
			zap.String("stop_reason", stats.StopReason),
			zap.Duration("elapsed", stats.Elapsed))
	}()

	seen, err := uc.Seen.NewRun(ctx)
	if err != nil {
		uc.Logger.Error("could not start seen set", zap.Error(err))
		stats.StopReason = StopOuterFault
		return entity.CrawlCompleted, stats
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		if n, err := seen.Len(cleanupCtx); err != nil {
			uc.Logger.Warn("counting seen links", zap.Error(err))
		} else {
			stats.DistinctLinks = n
		}
		if err := seen.Release(cleanupCtx); err != nil {
			uc.Logger.Warn("releasing seen set", zap.Error(err))
		}
	}()

	it := newCardIterator(s.Browser, seen, uc.base)
	uc.Logger.Info("extracting posts from the search results")

	for {
		if stats.Processed >= maxItems {
			stats.StopReason = StopMaxPosts
			return entity.CrawlCompleted, stats
		}
		if uc.Now().Sub(start) >= maxRuntime {
			stats.StopReason = StopMaxRuntime
			return entity.CrawlCompleted, stats
		}

		stats.Passes++
		uc.Metrics.CrawlPasses.Inc()
		poll, err := it.Poll(ctx)
		if err != nil {
			return uc.outerFault(ctx, &stats, err)
		}
		uc.Logger.Info("fetched result cards",
			zap.Int("rendered", poll.Rendered), zap.Int("new", len(poll.Fresh)))
		if poll.Seen > 0 {
			stats.SkippedSeen += poll.Seen
			uc.Metrics.PostsSkipped.WithLabelValues("seen").Add(float64(poll.Seen))
		}

		if len(poll.Fresh) == 0 {
			uc.Logger.Info("no new posts found, stopping scrolling")
			stats.StopReason = StopNoNewPosts
			return entity.CrawlCompleted, stats
		}
		stats.NewLinks += len(poll.Fresh)

		for i, card := range poll.Fresh {
			if uc.Now().Sub(start) >= maxRuntime {
				stats.StopReason = StopMaxRuntime
				return entity.CrawlCompleted, stats
			}
			log := uc.Logger.With(zap.String("link", card.Link), zap.Int("card", i+1), zap.Int("cards", len(poll.Fresh)))
			err := uc.processCard(ctx, s.Browser, card, &stats, log)
			if err != nil {
				if sessionDead(ctx, err) {
					log.Error("session lost while processing post", zap.Error(err))
					stats.StopReason = StopSessionDead
					return entity.CrawlAborted, stats
				}
				stats.ItemErrors++
				uc.Metrics.ItemErrors.WithLabelValues(itemErrorType(err)).Inc()
				log.Warn("skipping post", zap.Error(err))
				continue
			}
			if stats.Processed >= maxItems {
				uc.Logger.Info("reached max posts limit, stopping extraction", zap.Int("max_posts", maxItems))
				stats.StopReason = StopMaxPosts
				return entity.CrawlCompleted, stats
			}
		}

		uc.Logger.Info("scrolling down to load more posts")
		if err := s.Browser.ScrollToBottom(ctx); err != nil {
			return uc.outerFault(ctx, &stats, err)
		}
		if err := uc.Pacer.Pause(ctx, 3*time.Second, 6*time.Second); err != nil {
			return uc.outerFault(ctx, &stats, err)
		}
	}
}

func (uc *extractUseCase) outerFault(ctx context.Context, stats *entity.CrawlStats, err error) (entity.CrawlOutcome, entity.CrawlStats) {
	if sessionDead(ctx, err) {
		uc.Logger.Error("session lost during post parsing", zap.Error(err))
		stats.StopReason = StopSessionDead
		return entity.CrawlAborted, *stats
	}
	uc.Logger.Error("general error in post parsing", zap.Error(err))
	stats.StopReason = StopOuterFault
	return entity.CrawlCompleted, *stats
}

// processCard handles one new link. A returned error means the item was
// skipped; the page is taken back to the result list where possible.
func (uc *extractUseCase) processCard(ctx context.Context, b repository.Browser, card scrape.Card, stats *entity.CrawlStats, log *zap.Logger) error {
	if uc.Posts.Exists(ctx, card.Link) {
		stats.SkippedExisting++
		uc.Metrics.PostsSkipped.WithLabelValues("exists").Inc()
		log.Info("skipping post already in store")
		return nil
	}

	log.Info("opening post")
	if err := uc.open(ctx, b, card); err != nil {
		return fmt.Errorf("open post: %w", err)
	}

	err := uc.handleOpened(ctx, b, card.Link, stats, log)
	if err != nil && sessionDead(ctx, err) {
		return err
	}

	log.Debug("returning to search results")
	if backErr := b.Back(ctx); backErr != nil {
		if err == nil {
			err = fmt.Errorf("back to results: %w", backErr)
		}
		return err
	}
	if pauseErr := uc.Pacer.Pause(ctx, 2*time.Second, 5*time.Second); pauseErr != nil && err == nil {
		err = pauseErr
	}
	return err
}

func (uc *extractUseCase) open(ctx context.Context, b repository.Browser, card scrape.Card) error {
	err := b.ClickJS(ctx, scrape.CardLinkSelector(card.Href))
	if errors.Is(err, repository.ErrElementNotFound) {
		err = b.Navigate(ctx, card.Link)
	}
	if err != nil {
		return err
	}
	return uc.Pacer.Pause(ctx, 2*time.Second, 5*time.Second)
}

func (uc *extractUseCase) handleOpened(ctx context.Context, b repository.Browser, link string, stats *entity.CrawlStats, log *zap.Logger) error {
	if err := b.WaitVisible(ctx, scrape.DetailContent, uc.DetailTimeout); err != nil {
		return fmt.Errorf("wait for post content: %w", err)
	}

	reader := &fieldReader{
		browser:  b,
		pacer:    uc.Pacer,
		attempts: uc.FieldAttempts,
		delay:    uc.FieldDelay,
		logger:   log,
	}
	post, err := reader.readPost(ctx, link)
	if err != nil {
		return fmt.Errorf("read post: %w", err)
	}
	post.AbsoluteDate = utils.NormalizeRelativeTime(post.Date, uc.Now(), log)

	log.Info("post extracted",
		zap.String("author", post.Author),
		zap.String("location", post.Location),
		zap.String("date", post.AbsoluteDate),
		zap.String("content", truncate(post.Content, 100)))

	draft := uc.Classifier.Classify(ctx, post.Content, post.Author)
	post.ServiceRequest = entity.ServiceRequestFrom(draft.IsServiceRequest)
	log.Info("classified post", zap.String("service_request", string(post.ServiceRequest)))

	res := uc.Posts.Insert(ctx, post)
	switch {
	case res.Saved():
		stats.Processed++
		log.Info("post saved", zap.Int("processed", stats.Processed))
		if draft.HasReply() {
			uc.offerReply(ctx, b, link, draft.Message, stats, log)
		}
	case res == entity.Duplicate:
		stats.Duplicates++
		uc.Metrics.PostsSkipped.WithLabelValues("duplicate").Inc()
	default:
		log.Warn("post not saved", zap.Stringer("result", res))
	}
	return nil
}

// offerReply asks for approval and posts the reply. Its result is logged,
// never returned.
func (uc *extractUseCase) offerReply(ctx context.Context, b repository.Browser, link, message string, stats *entity.CrawlStats, log *zap.Logger) {
	approved, err := uc.Approver.Approve(ctx, message)
	if err != nil {
		log.Warn("approval prompt failed, comment not posted", zap.Error(err))
		uc.Metrics.Replies.WithLabelValues("declined").Inc()
		return
	}
	if !approved {
		log.Info("comment not posted")
		uc.Metrics.Replies.WithLabelValues("declined").Inc()
		return
	}

	log.Info("posting the comment")
	if err := uc.Replier.Post(ctx, b, message); err != nil {
		log.Error("comment failed", zap.Error(err))
		uc.Metrics.Replies.WithLabelValues("failed").Inc()
		return
	}
	stats.RepliesPosted++
	uc.Metrics.Replies.WithLabelValues("posted").Inc()
	uc.Posts.MarkProcessed(ctx, link)
	log.Info("comment posted")
}

func sessionDead(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, repository.ErrSessionClosed)
}

func itemErrorType(err error) string {
	switch {
	case errors.Is(err, repository.ErrElementNotFound):
		return "element_not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "unknown"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
