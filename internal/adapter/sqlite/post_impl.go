package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/user/nextdoor-crawler/internal/entity"
	"github.com/user/nextdoor-crawler/internal/repository"
)

// PostRepoImpl implements repository.PostRepository on SQLite.
type PostRepoImpl struct {
	db *sql.DB
}

// NewPostRepo creates a new instance of PostRepoImpl.
func NewPostRepo(db *sql.DB) *PostRepoImpl {
	return &PostRepoImpl{db: db}
}

func (r *PostRepoImpl) Exists(ctx context.Context, link string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE link = ? LIMIT 1`, link).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert stores post unless its link is already present. The date column
// holds the normalized absolute date.
func (r *PostRepoImpl) Insert(ctx context.Context, post *entity.Post) (bool, error) {
	sr := post.ServiceRequest
	if sr == "" {
		sr = entity.ServiceRequestNo
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (link, author, location, date, content, service_request, processed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(link) DO NOTHING`,
		post.Link, post.Author, post.Location, post.AbsoluteDate, post.Content, string(sr), post.Processed,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if id, err := res.LastInsertId(); err == nil {
		post.ID = id
	}
	return true, nil
}

func (r *PostRepoImpl) MarkProcessed(ctx context.Context, link string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE posts SET processed = TRUE WHERE link = ?`, link)
	return err
}

func (r *PostRepoImpl) ListUnprocessed(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT link FROM posts WHERE processed = FALSE ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []string{}
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (r *PostRepoImpl) FindByLink(ctx context.Context, link string) (*entity.Post, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, link, COALESCE(author, ''), COALESCE(location, ''), COALESCE(date, ''),
		       COALESCE(content, ''), COALESCE(service_request, 'no'), COALESCE(processed, FALSE)
		FROM posts
		WHERE link = ?`, link)

	var (
		p  entity.Post
		sr string
	)
	err := row.Scan(&p.ID, &p.Link, &p.Author, &p.Location, &p.AbsoluteDate, &p.Content, &sr, &p.Processed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	p.ServiceRequest = entity.ServiceRequest(sr)
	return &p, nil
}

func (r *PostRepoImpl) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostRepoImpl) Close() error {
	return r.db.Close()
}
