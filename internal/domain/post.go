package domain

import (
	"time"

	"github.com/google/uuid"
)

// Post is a content page: sermon, article or announcement. Premium posts are
// only served to callers with an entitling subscription.
type Post struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Slug      string     `json:"slug"`
	Body      string     `json:"body"`
	AuthorID  uuid.UUID  `json:"author_id"`
	Premium   bool       `json:"premium"`
	Published bool       `json:"published"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PostRequest is the admin payload for creating or updating a post
type PostRequest struct {
	Title     string `json:"title" binding:"required"`
	Slug      string `json:"slug" binding:"required"`
	Body      string `json:"body" binding:"required"`
	Premium   bool   `json:"premium"`
	Published bool   `json:"published"`
}
