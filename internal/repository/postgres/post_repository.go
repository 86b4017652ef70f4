package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/repository"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

// PostRepository is the PostgreSQL implementation of repository.PostRepository
type PostRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostRepository creates a new PostgreSQL post repository
func NewPostRepository(db *pgxpool.Pool, log *logger.Logger) *PostRepository {
	return &PostRepository{db: db, log: log}
}

const postColumns = `id, title, slug, body, author_id, premium, published, created_at, updated_at`

func scanPost(row pgx.Row) (domain.Post, error) {
	var p domain.Post
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Slug,
		&p.Body,
		&p.AuthorID,
		&p.Premium,
		&p.Published,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

// Create inserts a new post
func (r *PostRepository) Create(ctx context.Context, post domain.Post) (domain.Post, error) {
	query := `
		INSERT INTO posts (id, title, slug, body, author_id, premium, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING ` + postColumns

	row := r.db.QueryRow(ctx, query,
		post.ID, post.Title, post.Slug, post.Body, post.AuthorID, post.Premium, post.Published,
	)

	created, err := scanPost(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Post{}, repository.ErrDuplicate
		}
		return domain.Post{}, fmt.Errorf("failed to create post: %w", err)
	}

	return created, nil
}

// Update rewrites a post's editable fields
func (r *PostRepository) Update(ctx context.Context, post domain.Post) (domain.Post, error) {
	query := `
		UPDATE posts
		SET title = $1, slug = $2, body = $3, premium = $4, published = $5, updated_at = now()
		WHERE id = $6
		RETURNING ` + postColumns

	row := r.db.QueryRow(ctx, query,
		post.Title, post.Slug, post.Body, post.Premium, post.Published, post.ID,
	)

	updated, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Post{}, repository.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Post{}, repository.ErrDuplicate
		}
		return domain.Post{}, fmt.Errorf("failed to update post: %w", err)
	}

	return updated, nil
}

// Delete removes a post
func (r *PostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetByID returns a post by primary key
func (r *PostRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Post{}, repository.ErrNotFound
		}
		return domain.Post{}, fmt.Errorf("failed to get post: %w", err)
	}

	return post, nil
}

// GetBySlug returns a post by its URL slug
func (r *PostRepository) GetBySlug(ctx context.Context, slug string) (domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE slug = $1`

	post, err := scanPost(r.db.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Post{}, repository.ErrNotFound
		}
		return domain.Post{}, fmt.Errorf("failed to get post by slug: %w", err)
	}

	return post, nil
}

// ListPublished returns published posts, optionally premium only
func (r *PostRepository) ListPublished(ctx context.Context, premiumOnly bool, limit, offset int) ([]domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE published`
	if premiumOnly {
		query += ` AND premium`
	}
	query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}

	return posts, nil
}

// ListAll returns every post including drafts, oldest first
func (r *PostRepository) ListAll(ctx context.Context) ([]domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}

	return posts, nil
}
