package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parishkeep/parishkeep/internal/service"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

// AdminHandler serves the dashboard aggregates
type AdminHandler struct {
	admin service.AdminService
	log   *logger.Logger
}

// NewAdminHandler creates the admin handler
func NewAdminHandler(admin service.AdminService, log *logger.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, log: log}
}

// Stats returns the platform aggregates
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Backup streams a full export of the mirrored data
func (h *AdminHandler) Backup(c *gin.Context) {
	export, err := h.admin.Export(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, export)
}

// DatabaseStatus returns pool reachability and counters
func (h *AdminHandler) DatabaseStatus(c *gin.Context) {
	status := h.admin.DatabaseStatus(c.Request.Context())
	code := http.StatusOK
	if !status.Reachable {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
