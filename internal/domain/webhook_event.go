package domain

import "time"

// WebhookEventStatus is the processing outcome of a provider event
type WebhookEventStatus string

const (
	WebhookEventStatusProcessed WebhookEventStatus = "processed"
	WebhookEventStatusSkipped   WebhookEventStatus = "skipped"
)

// WebhookEvent is the idempotency ledger entry for a Stripe event. The
// provider event id is the primary key: inserting a duplicate fails, which is
// how replays are detected before any row mutation happens.
type WebhookEvent struct {
	StripeEventID string             `json:"stripe_event_id"`
	Type          string             `json:"type"`
	Status        WebhookEventStatus `json:"status"`
	Note          string             `json:"note,omitempty"`
	ReceivedAt    time.Time          `json:"received_at"`
}
