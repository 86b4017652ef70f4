package domain

import (
	"time"

	"github.com/google/uuid"
)

// PlanInterval is the recurrence of a subscription plan
type PlanInterval string

const (
	PlanIntervalMonth PlanInterval = "month"
	PlanIntervalYear  PlanInterval = "year"
	PlanIntervalOnce  PlanInterval = "once"
)

// SubscriptionPlan mirrors a Stripe price/product pairing. Rows are created by
// migration seed and treated as read-only at runtime.
type SubscriptionPlan struct {
	ID            uuid.UUID    `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description,omitempty"`
	AmountCents   int64        `json:"amount_cents"`
	Currency      string       `json:"currency"`
	Interval      PlanInterval `json:"interval"`
	Features      []string     `json:"features,omitempty"`
	StripePriceID string       `json:"stripe_price_id"`
	Active        bool         `json:"active"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
