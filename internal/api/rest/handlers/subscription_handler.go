package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parishkeep/parishkeep/internal/api/rest/middleware"
	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/service"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

// SubscriptionHandler serves the plan catalog and the caller's subscription
type SubscriptionHandler struct {
	billing service.BillingService
	log     *logger.Logger
}

// NewSubscriptionHandler creates the subscription handler
func NewSubscriptionHandler(billing service.BillingService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{billing: billing, log: log}
}

// ListPlans returns the active plans
func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	plans, err := h.billing.ListPlans(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// GetUserSubscription returns the caller's current subscription
func (h *SubscriptionHandler) GetUserSubscription(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication"})
		return
	}

	sub, err := h.billing.GetUserSubscription(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// CreateCheckoutSession starts a hosted recurring checkout for a plan
func (h *SubscriptionHandler) CreateCheckoutSession(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication"})
		return
	}

	var req domain.CheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnw("Invalid checkout request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.billing.CreateSubscriptionCheckout(c.Request.Context(), user, req.PlanID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	h.log.Infow("Checkout session created", "userID", user.ID, "planID", req.PlanID, "sessionID", resp.SessionID)
	c.JSON(http.StatusCreated, resp)
}

// ListPayments returns the caller's settled and attempted payments
func (h *SubscriptionHandler) ListPayments(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication"})
		return
	}

	limit, offset := pagination(c)
	payments, err := h.billing.ListUserPayments(c.Request.Context(), user.ID, limit, offset)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// Cancel flags the caller's subscription to lapse at period end
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication"})
		return
	}

	sub, err := h.billing.CancelSubscription(c.Request.Context(), user)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	h.log.Infow("Subscription cancellation requested", "userID", user.ID, "stripeSubscriptionID", sub.StripeSubscriptionID)
	c.JSON(http.StatusOK, sub)
}
