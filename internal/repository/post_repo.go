package repository

import (
	"context"
	"errors"

	"github.com/user/nextdoor-crawler/internal/entity"
)

var ErrPostNotFound = errors.New("post not found")

// PostRepository defines the contract for the post store.
type PostRepository interface {
	// Exists reports whether a post with link is stored.
	Exists(ctx context.Context, link string) (bool, error)
	// Insert stores post if its link is new. It returns false, without error,
	// when the link already exists; the stored row is left untouched.
	Insert(ctx context.Context, post *entity.Post) (bool, error)
	// MarkProcessed sets processed = true for link. Repeated calls are no-ops.
	MarkProcessed(ctx context.Context, link string) error
	// ListUnprocessed returns the links of posts with processed = false.
	ListUnprocessed(ctx context.Context) ([]string, error)
	// FindByLink returns the stored post or ErrPostNotFound.
	FindByLink(ctx context.Context, link string) (*entity.Post, error)
	Ping(ctx context.Context) error
	Close() error
}
