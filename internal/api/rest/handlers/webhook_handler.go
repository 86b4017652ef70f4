package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	stripeclient "github.com/parishkeep/parishkeep/internal/integration/stripe"
	"github.com/parishkeep/parishkeep/internal/service"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

// maxWebhookBodyBytes caps the webhook payload size (Stripe's own limit is
// well below this).
const maxWebhookBodyBytes = 1 << 16

// WebhookHandler receives provider callbacks. Verification happens on the
// raw body before any JSON parsing.
type WebhookHandler struct {
	verifier *stripeclient.WebhookVerifier
	webhooks service.WebhookService
	log      *logger.Logger
}

// NewWebhookHandler creates the webhook handler
func NewWebhookHandler(verifier *stripeclient.WebhookVerifier, webhooks service.WebhookService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, webhooks: webhooks, log: log}
}

// HandleStripeWebhook verifies and processes one event delivery. 400 means
// the delivery itself is unacceptable, 500 asks the provider to retry, 200
// acknowledges everything else including replays.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		h.log.Warnw("Failed to read webhook body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	event, err := h.verifier.VerifyEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, stripeclient.ErrInvalidSignature) {
			h.log.Warnw("Webhook signature rejected", "clientIP", c.ClientIP())
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}
		h.log.Warnw("Webhook verification failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := h.webhooks.ProcessEvent(c.Request.Context(), event); err != nil {
		h.log.Errorw("Webhook processing failed", "error", err, "eventID", event.ID, "eventType", event.Type)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
