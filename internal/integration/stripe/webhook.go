package stripe

import (
	"errors"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

// ErrInvalidSignature marks a webhook whose signature did not verify.
// Callers must answer 400 without processing the payload.
var ErrInvalidSignature = errors.New("webhook signature verification failed")

// WebhookVerifier checks the Stripe-Signature header against the endpoint
// signing secret.
type WebhookVerifier struct {
	secret string
}

// NewWebhookVerifier creates a verifier for the given signing secret
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// VerifyEvent validates the signature and parses the event envelope
func (v *WebhookVerifier) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, v.secret)
	if err != nil {
		return stripe.Event{}, ErrInvalidSignature
	}
	return event, nil
}
