package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/parishkeep/parishkeep/internal/api/rest/middleware"
	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/service"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

// PostHandler serves the public feed, the premium feed and the admin CRUD
type PostHandler struct {
	content service.ContentService
	log     *logger.Logger
}

// NewPostHandler creates the post handler
func NewPostHandler(content service.ContentService, log *logger.Logger) *PostHandler {
	return &PostHandler{content: content, log: log}
}

// ListPublished returns the public feed
func (h *PostHandler) ListPublished(c *gin.Context) {
	limit, offset := pagination(c)
	posts, err := h.content.ListPublished(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// ListPremium returns the subscriber feed. The subscription gate runs as
// middleware before this handler.
func (h *PostHandler) ListPremium(c *gin.Context) {
	limit, offset := pagination(c)
	posts, err := h.content.ListPremium(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// GetBySlug returns one post. The premium gate is decided per post from the
// caller's entitlement, so the route itself stays public.
func (h *PostHandler) GetBySlug(c *gin.Context) {
	entitled := false
	if user, ok := middleware.UserFromContext(c); ok {
		entitled = user.Role != domain.UserRoleUser || user.SubscriptionStatus.Entitles()
	}

	post, err := h.content.GetBySlug(c.Request.Context(), c.Param("slug"), entitled)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// Create creates a post authored by the caller
func (h *PostHandler) Create(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication"})
		return
	}

	var req domain.PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnw("Invalid post request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.content.CreatePost(c.Request.Context(), user.ID, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// Update replaces the mutable fields of a post
func (h *PostHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	var req domain.PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnw("Invalid post request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.content.UpdatePost(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// Delete removes a post
func (h *PostHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	if err := h.content.DeletePost(c.Request.Context(), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func pagination(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}
