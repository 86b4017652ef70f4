package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parishkeep/parishkeep/internal/api/rest/middleware"
	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/service"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

// AuthHandler serves registration, login and the current-user endpoint
type AuthHandler struct {
	auth service.AuthService
	log  *logger.Logger
}

// NewAuthHandler creates the auth handler
func NewAuthHandler(auth service.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

// Register creates an account and returns it with a token
func (h *AuthHandler) Register(c *gin.Context) {
	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnw("Invalid register request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	h.log.Infow("User registered", "userID", resp.User.ID, "email", resp.User.Email)
	c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a fresh token
func (h *AuthHandler) Login(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnw("Invalid login request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me returns the authenticated user
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// Logout acknowledges the logout. Tokens are stateless, so the client simply
// discards its copy; the endpoint exists so the client has a uniform call.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
