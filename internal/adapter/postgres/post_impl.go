package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/nextdoor-crawler/internal/entity"
	"github.com/user/nextdoor-crawler/internal/repository"
)

const schema = `
	CREATE TABLE IF NOT EXISTS posts (
		id BIGSERIAL PRIMARY KEY,
		link TEXT UNIQUE,
		author TEXT,
		location TEXT,
		date TEXT,
		content TEXT,
		service_request TEXT DEFAULT 'no',
		processed BOOLEAN DEFAULT FALSE
	);
	ALTER TABLE posts ADD COLUMN IF NOT EXISTS service_request TEXT DEFAULT 'no';
	CREATE INDEX IF NOT EXISTS idx_posts_processed ON posts(processed);
`

// Connect opens a pool for connString and ensures the posts table exists.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure posts schema: %w", err)
	}
	return pool, nil
}

// PostRepoImpl implements repository.PostRepository on PostgreSQL.
type PostRepoImpl struct {
	db *pgxpool.Pool
}

// NewPostRepo creates a new instance of PostRepoImpl.
func NewPostRepo(db *pgxpool.Pool) *PostRepoImpl {
	return &PostRepoImpl{db: db}
}

func (r *PostRepoImpl) Exists(ctx context.Context, link string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE link = $1)`, link).Scan(&exists)
	return exists, err
}

// Insert stores post unless its link is already present; conflicting rows
// are left as they are.
func (r *PostRepoImpl) Insert(ctx context.Context, post *entity.Post) (bool, error) {
	sr := post.ServiceRequest
	if sr == "" {
		sr = entity.ServiceRequestNo
	}
	query := `
		INSERT INTO posts (link, author, location, date, content, service_request, processed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (link) DO NOTHING
		RETURNING id;
	`
	err := r.db.QueryRow(ctx, query,
		post.Link,
		post.Author,
		post.Location,
		post.AbsoluteDate,
		post.Content,
		string(sr),
		post.Processed,
	).Scan(&post.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *PostRepoImpl) MarkProcessed(ctx context.Context, link string) error {
	_, err := r.db.Exec(ctx, `UPDATE posts SET processed = TRUE WHERE link = $1`, link)
	return err
}

func (r *PostRepoImpl) ListUnprocessed(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT link FROM posts WHERE processed = FALSE ORDER BY id`)
	if err != nil {
		return nil, err
	}
	links, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if links == nil {
		links = []string{}
	}
	return links, nil
}

func (r *PostRepoImpl) FindByLink(ctx context.Context, link string) (*entity.Post, error) {
	query := `
		SELECT id, link, COALESCE(author, ''), COALESCE(location, ''), COALESCE(date, ''),
		       COALESCE(content, ''), COALESCE(service_request, 'no'), COALESCE(processed, FALSE)
		FROM posts
		WHERE link = $1;
	`
	var (
		p  entity.Post
		sr string
	)
	err := r.db.QueryRow(ctx, query, link).Scan(
		&p.ID,
		&p.Link,
		&p.Author,
		&p.Location,
		&p.AbsoluteDate,
		&p.Content,
		&sr,
		&p.Processed,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	p.ServiceRequest = entity.ServiceRequest(sr)
	return &p, nil
}

func (r *PostRepoImpl) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *PostRepoImpl) Close() error {
	r.db.Close()
	return nil
}
