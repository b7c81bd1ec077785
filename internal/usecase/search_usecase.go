package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/user/nextdoor-crawler/internal/entity"
	"github.com/user/nextdoor-crawler/internal/scrape"
)

const postsTabTimeout = 10 * time.Second

// Navigator submits a search and narrows the results to posts.
type Navigator interface {
	Search(ctx context.Context, s *Session, query string) entity.SearchResult
}

type searchUseCase struct {
	pacer  Pacer
	logger *zap.Logger
}

func NewNavigator(pacer Pacer, logger *zap.Logger) Navigator {
	return &searchUseCase{pacer: pacer, logger: logger}
}

// Search reports the submit and filter stages separately; failures are logged
// and never returned.
func (uc *searchUseCase) Search(ctx context.Context, s *Session, query string) entity.SearchResult {
	var res entity.SearchResult
	if query == "" {
		uc.logger.Warn("no search term entered")
		return res
	}
	log := uc.logger.With(zap.String("query", query))

	log.Info("searching")
	if err := uc.submit(ctx, s, query); err != nil {
		log.Error("failed to execute search", zap.Error(err))
		return res
	}
	res.Submitted = true
	log.Info("search executed")

	if err := uc.filterPosts(ctx, s); err != nil {
		log.Warn("could not apply posts filter", zap.Error(err))
		return res
	}
	res.Filtered = true
	log.Info("filter applied, viewing posts only")
	return res
}

func (uc *searchUseCase) submit(ctx context.Context, s *Session, query string) error {
	b := s.Browser
	steps := []func() error{
		func() error { return uc.pacer.Pause(ctx, time.Second, 3*time.Second) },
		func() error { return b.Click(ctx, scrape.SearchInput) },
		func() error { return uc.pacer.Pause(ctx, time.Second, 3*time.Second) },
		func() error { return b.SendKeys(ctx, scrape.SearchInput, query) },
		func() error { return uc.pacer.Pause(ctx, time.Second, 3*time.Second) },
		func() error { return b.PressEnter(ctx, scrape.SearchInput) },
		func() error { return uc.pacer.Pause(ctx, 3*time.Second, 5*time.Second) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (uc *searchUseCase) filterPosts(ctx context.Context, s *Session) error {
	if err := s.Browser.WaitVisible(ctx, scrape.PostsTab, postsTabTimeout); err != nil {
		return err
	}
	if err := s.Browser.Click(ctx, scrape.PostsTab); err != nil {
		return err
	}
	return uc.pacer.Pause(ctx, 3*time.Second, 3*time.Second)
}
