package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/repository"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

const defaultPostPageSize = 20

// ContentService serves posts and enforces the premium gate. The gate lives
// here, not in the handler: a premium post body is never loaded into a
// response for a caller without entitlement.
type ContentService interface {
	ListPublished(ctx context.Context, limit, offset int) ([]domain.Post, error)
	ListPremium(ctx context.Context, limit, offset int) ([]domain.Post, error)
	// GetBySlug returns the post. For a premium post the caller's entitlement
	// decides: no entitlement returns domain.ErrNoActiveSubscription.
	GetBySlug(ctx context.Context, slug string, entitled bool) (domain.Post, error)
	CreatePost(ctx context.Context, authorID uuid.UUID, req domain.PostRequest) (domain.Post, error)
	UpdatePost(ctx context.Context, id uuid.UUID, req domain.PostRequest) (domain.Post, error)
	DeletePost(ctx context.Context, id uuid.UUID) error
}

type contentService struct {
	posts repository.PostRepository
	log   *logger.Logger
}

// NewContentService creates the content service
func NewContentService(posts repository.PostRepository, log *logger.Logger) ContentService {
	return &contentService{posts: posts, log: log}
}

// ListPublished returns the public feed. Premium posts appear in listings
// with their metadata so readers can see what a subscription unlocks; only
// the body read is gated.
func (s *contentService) ListPublished(ctx context.Context, limit, offset int) ([]domain.Post, error) {
	limit, offset = clampPage(limit, offset)
	return s.posts.ListPublished(ctx, false, limit, offset)
}

// ListPremium returns the subscriber feed
func (s *contentService) ListPremium(ctx context.Context, limit, offset int) ([]domain.Post, error) {
	limit, offset = clampPage(limit, offset)
	return s.posts.ListPublished(ctx, true, limit, offset)
}

// GetBySlug returns one post, enforcing the premium gate
func (s *contentService) GetBySlug(ctx context.Context, slug string, entitled bool) (domain.Post, error) {
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return domain.Post{}, err
	}

	if !post.Published {
		// Drafts are invisible outside the admin surface
		return domain.Post{}, repository.ErrNotFound
	}

	if post.Premium && !entitled {
		return domain.Post{}, domain.ErrNoActiveSubscription
	}

	return post, nil
}

// CreatePost creates a post authored by the given admin
func (s *contentService) CreatePost(ctx context.Context, authorID uuid.UUID, req domain.PostRequest) (domain.Post, error) {
	post := domain.Post{
		ID:        uuid.New(),
		Title:     strings.TrimSpace(req.Title),
		Slug:      normalizeSlug(req.Slug),
		Body:      req.Body,
		AuthorID:  authorID,
		Premium:   req.Premium,
		Published: req.Published,
	}

	created, err := s.posts.Create(ctx, post)
	if err != nil {
		return domain.Post{}, err
	}

	s.log.Infow("Post created", "postID", created.ID, "slug", created.Slug, "premium", created.Premium)
	return created, nil
}

// UpdatePost replaces the mutable fields of an existing post
func (s *contentService) UpdatePost(ctx context.Context, id uuid.UUID, req domain.PostRequest) (domain.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return domain.Post{}, err
	}

	post.Title = strings.TrimSpace(req.Title)
	post.Slug = normalizeSlug(req.Slug)
	post.Body = req.Body
	post.Premium = req.Premium
	post.Published = req.Published

	updated, err := s.posts.Update(ctx, post)
	if err != nil {
		return domain.Post{}, err
	}

	s.log.Infow("Post updated", "postID", updated.ID, "slug", updated.Slug)
	return updated, nil
}

// DeletePost removes a post
func (s *contentService) DeletePost(ctx context.Context, id uuid.UUID) error {
	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Infow("Post deleted", "postID", id)
	return nil
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = defaultPostPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
