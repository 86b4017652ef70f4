package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/repository"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

// writeError maps service errors onto HTTP statuses. Sentinels carry their
// messages to the client; anything else becomes a generic 500 so internals
// never leak.
func writeError(c *gin.Context, log *logger.Logger, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, repository.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "resource already exists"})
	case errors.Is(err, repository.ErrInvalidData):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid data"})
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": domain.ErrInvalidCredentials.Error()})
	case errors.Is(err, domain.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": domain.ErrEmailTaken.Error()})
	case errors.Is(err, domain.ErrNoActiveSubscription):
		c.JSON(http.StatusForbidden, gin.H{"error": domain.ErrNoActiveSubscription.Error()})
	case errors.Is(err, domain.ErrPlanInactive):
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrPlanInactive.Error()})
	default:
		log.Errorw("Request failed", "error", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
