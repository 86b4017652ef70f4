package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/repository"
)

// PostRepository is an in-memory implementation of repository.PostRepository
type PostRepository struct {
	mu    sync.RWMutex
	posts map[uuid.UUID]domain.Post
}

// NewPostRepository creates an empty in-memory post repository
func NewPostRepository() *PostRepository {
	return &PostRepository{posts: make(map[uuid.UUID]domain.Post)}
}

// Create inserts a new post
func (r *PostRepository) Create(ctx context.Context, post domain.Post) (domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.posts {
		if existing.Slug == post.Slug {
			return domain.Post{}, repository.ErrDuplicate
		}
	}

	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	r.posts[post.ID] = post

	return post, nil
}

// Update rewrites a post's editable fields
func (r *PostRepository) Update(ctx context.Context, post domain.Post) (domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.posts[post.ID]
	if !ok {
		return domain.Post{}, repository.ErrNotFound
	}
	post.AuthorID = existing.AuthorID
	post.CreatedAt = existing.CreatedAt
	post.UpdatedAt = time.Now().UTC()
	r.posts[post.ID] = post

	return post, nil
}

// Delete removes a post
func (r *PostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

// GetByID returns a post by id
func (r *PostRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, ok := r.posts[id]
	if !ok {
		return domain.Post{}, repository.ErrNotFound
	}
	return post, nil
}

// GetBySlug returns a post by its URL slug
func (r *PostRepository) GetBySlug(ctx context.Context, slug string) (domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, post := range r.posts {
		if post.Slug == slug {
			return post, nil
		}
	}
	return domain.Post{}, repository.ErrNotFound
}

// ListPublished returns published posts, newest first
func (r *PostRepository) ListPublished(ctx context.Context, premiumOnly bool, limit, offset int) ([]domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Post
	for _, post := range r.posts {
		if !post.Published {
			continue
		}
		if premiumOnly && !post.Premium {
			continue
		}
		out = append(out, post)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if offset >= len(out) {
		return nil, nil
	}
	end := offset + limit
	if end > len(out) || limit <= 0 {
		end = len(out)
	}
	return out[offset:end], nil
}

// ListAll returns every post including drafts
func (r *PostRepository) ListAll(ctx context.Context) ([]domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Post, 0, len(r.posts))
	for _, post := range r.posts {
		out = append(out, post)
	}
	return out, nil
}
