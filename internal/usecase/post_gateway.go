package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/user/nextdoor-crawler/internal/entity"
	"github.com/user/nextdoor-crawler/internal/repository"
	"github.com/user/nextdoor-crawler/pkg/metrics"
)

const (
	StatusProcessed   = "processed"
	StatusUnprocessed = "unprocessed"
	StatusNotFound    = "not_found"
)

// PostManager is the crawl's view of the post store. Storage faults never
// escape it; every operation degrades to a safe default and logs.
type PostManager interface {
	Exists(ctx context.Context, link string) bool
	Insert(ctx context.Context, post *entity.Post) entity.InsertResult
	MarkProcessed(ctx context.Context, link string)
	ListUnprocessed(ctx context.Context) []string
	// GetStatus is the one read that reports storage errors, for the ops API.
	GetStatus(ctx context.Context, link string) (*entity.PostStatus, error)
	Ping(ctx context.Context) error
}

type postGateway struct {
	repo    repository.PostRepository
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewPostGateway(repo repository.PostRepository, logger *zap.Logger, m *metrics.Metrics) PostManager {
	return &postGateway{repo: repo, logger: logger, metrics: m}
}

// Exists reports false on storage errors, so the post is processed again and
// the insert decides.
func (g *postGateway) Exists(ctx context.Context, link string) bool {
	ok, err := g.repo.Exists(ctx, link)
	if err != nil {
		g.storeError("exists", link, err)
		return false
	}
	return ok
}

func (g *postGateway) Insert(ctx context.Context, post *entity.Post) entity.InsertResult {
	inserted, err := g.repo.Insert(ctx, post)
	switch {
	case err != nil:
		g.storeError("insert", post.Link, err)
		return entity.StorageError
	case !inserted:
		g.logger.Warn("post already stored", zap.String("link", post.Link))
		return entity.Duplicate
	default:
		g.metrics.PostsSaved.Inc()
		return entity.Inserted
	}
}

func (g *postGateway) MarkProcessed(ctx context.Context, link string) {
	if err := g.repo.MarkProcessed(ctx, link); err != nil {
		g.storeError("mark_processed", link, err)
	}
}

func (g *postGateway) ListUnprocessed(ctx context.Context) []string {
	links, err := g.repo.ListUnprocessed(ctx)
	if err != nil {
		g.storeError("list_unprocessed", "", err)
		return []string{}
	}
	return links
}

func (g *postGateway) GetStatus(ctx context.Context, link string) (*entity.PostStatus, error) {
	post, err := g.repo.FindByLink(ctx, link)
	if errors.Is(err, repository.ErrPostNotFound) {
		return &entity.PostStatus{Link: link, CurrentStatus: StatusNotFound}, nil
	}
	if err != nil {
		g.storeError("find", link, err)
		return nil, err
	}

	status := StatusUnprocessed
	if post.Processed {
		status = StatusProcessed
	}
	return &entity.PostStatus{
		Link:           link,
		CurrentStatus:  status,
		ServiceRequest: post.ServiceRequest,
		Date:           post.AbsoluteDate,
	}, nil
}

func (g *postGateway) Ping(ctx context.Context) error {
	return g.repo.Ping(ctx)
}

func (g *postGateway) storeError(op, link string, err error) {
	g.metrics.StoreErrors.WithLabelValues(op).Inc()
	g.logger.Error("post store error", zap.String("op", op), zap.String("link", link), zap.Error(err))
}
