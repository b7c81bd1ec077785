package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/user/nextdoor-crawler/internal/entity"
	"github.com/user/nextdoor-crawler/internal/repository"
	"github.com/user/nextdoor-crawler/internal/scrape"
)

// fieldReader reads post fields from page snapshots. A snapshot is reused
// across fields and only refreshed when a field is missing from it.
type fieldReader struct {
	browser  repository.Browser
	pacer    Pacer
	attempts int
	delay    time.Duration
	logger   *zap.Logger
	doc      *scrape.Document
}

// read returns the trimmed text of the first selector that matches, or
// placeholder once all attempts are spent. Only a dead session is an error.
func (r *fieldReader) read(ctx context.Context, field string, selectors []string, placeholder string) (string, error) {
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if r.doc == nil || attempt > 1 {
			if err := r.refresh(ctx); err != nil {
				return "", err
			}
		}
		if r.doc != nil {
			if text, found := r.doc.FirstText(selectors); found {
				if text == "" {
					return placeholder, nil
				}
				return text, nil
			}
		}
		if attempt < r.attempts {
			if err := r.pacer.Pause(ctx, r.delay, r.delay); err != nil {
				return "", err
			}
		}
	}
	r.logger.Warn("giving up on field extraction", zap.String("field", field), zap.String("default", placeholder))
	return placeholder, nil
}

func (r *fieldReader) refresh(ctx context.Context) error {
	html, err := r.browser.HTML(ctx)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, repository.ErrSessionClosed) {
			return err
		}
		r.logger.Warn("could not snapshot post page", zap.Error(err))
		r.doc = nil
		return nil
	}
	doc, err := scrape.Parse(html)
	if err != nil {
		r.logger.Warn("could not parse post page", zap.Error(err))
		r.doc = nil
		return nil
	}
	r.doc = doc
	return nil
}

// readPost fills every field of a post, falling back to placeholders.
func (r *fieldReader) readPost(ctx context.Context, link string) (*entity.Post, error) {
	post := &entity.Post{Link: link, ServiceRequest: entity.ServiceRequestNo}
	fields := []struct {
		name        string
		selectors   []string
		placeholder string
		dst         *string
	}{
		{"author", scrape.AuthorSelectors, entity.UnknownAuthor, &post.Author},
		{"location", scrape.LocationSelectors, entity.UnknownLocation, &post.Location},
		{"date", scrape.DateSelectors, entity.UnknownDate, &post.Date},
		{"content", scrape.ContentSelectors, entity.ContentNotFound, &post.Content},
	}
	for _, f := range fields {
		v, err := r.read(ctx, f.name, f.selectors, f.placeholder)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	return post, nil
}
