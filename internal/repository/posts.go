package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tgn-site/internal/domain"
)

const postColumns = `id, title, content, category, image_url, published_at, created_at, updated_at`

// ListPosts returns every post, newest first, preferring the explicit
// publication date over the row creation time.
func (s *Store) ListPosts(ctx context.Context) ([]domain.Post, error) {
	q := `SELECT ` + postColumns + `
		FROM posts
		ORDER BY COALESCE(published_at, to_char(created_at, 'YYYY-MM-DD')) DESC, id DESC`

	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repository: list posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: list posts rows: %w", err)
	}
	return posts, nil
}

// GetPost returns a single post by id, or ErrNotFound.
func (s *Store) GetPost(ctx context.Context, id int64) (domain.Post, error) {
	q := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	p, err := scanPost(s.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Post{}, ErrNotFound
		}
		return domain.Post{}, fmt.Errorf("repository: get post %d: %w", id, err)
	}
	return p, nil
}

// CreatePost inserts a post and returns its new id.
func (s *Store) CreatePost(ctx context.Context, p domain.Post) (int64, error) {
	const q = `
		INSERT INTO posts (title, content, category, image_url, published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING id`

	var id int64
	if err := s.db.QueryRow(ctx, q, p.Title, p.Content, p.Category, p.ImageURL, p.PublishedAt).Scan(&id); err != nil {
		return 0, fmt.Errorf("repository: create post: %w", err)
	}
	return id, nil
}

// UpdatePost replaces the editable fields of a post.
func (s *Store) UpdatePost(ctx context.Context, p domain.Post) error {
	const q = `
		UPDATE posts
		SET title = $1, content = $2, category = $3, image_url = $4, published_at = $5, updated_at = now()
		WHERE id = $6`

	tag, err := s.db.Exec(ctx, q, p.Title, p.Content, p.Category, p.ImageURL, p.PublishedAt, p.ID)
	if err != nil {
		return fmt.Errorf("repository: update post %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePost removes a post by id.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("repository: delete post %d: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (domain.Post, error) {
	var p domain.Post
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Category, &p.ImageURL, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
