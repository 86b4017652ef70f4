package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parishkeep/parishkeep/internal/api/rest/middleware"
	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/service"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

// DonationHandler starts one-time donation checkouts
type DonationHandler struct {
	billing service.BillingService
	log     *logger.Logger
}

// NewDonationHandler creates the donation handler
func NewDonationHandler(billing service.BillingService, log *logger.Logger) *DonationHandler {
	return &DonationHandler{billing: billing, log: log}
}

// CreateCheckoutSession starts a hosted one-time checkout
func (h *DonationHandler) CreateCheckoutSession(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication"})
		return
	}

	var req domain.DonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnw("Invalid donation request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.billing.CreateDonationCheckout(c.Request.Context(), user, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	h.log.Infow("Donation checkout created", "userID", user.ID, "amountCents", req.AmountCents, "sessionID", resp.SessionID)
	c.JSON(http.StatusCreated, resp)
}
