package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus is the lifecycle state mirrored from Stripe
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid   SubscriptionStatus = "unpaid"
	SubscriptionStatusNone     SubscriptionStatus = "none"
)

// Entitles reports whether the status grants access to gated content.
func (s SubscriptionStatus) Entitles() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}

// Subscription joins a user to a plan with the billing lifecycle state.
// StripeSubscriptionID is unique: one Stripe subscription maps to at most one
// row, and every webhook referencing the same id mutates that row.
// ProviderUpdatedAt holds the timestamp of the newest Stripe event applied to
// the row; older events are discarded instead of overwriting fresher state.
type Subscription struct {
	ID                   uuid.UUID          `json:"id"`
	UserID               uuid.UUID          `json:"user_id"`
	PlanID               uuid.UUID          `json:"plan_id"`
	Status               SubscriptionStatus `json:"status"`
	StripeSubscriptionID string             `json:"stripe_subscription_id"`
	CurrentPeriodStart   time.Time          `json:"current_period_start"`
	CurrentPeriodEnd     time.Time          `json:"current_period_end"`
	CancelAtPeriodEnd    bool               `json:"cancel_at_period_end"`
	CanceledAt           *time.Time         `json:"canceled_at,omitempty"`
	ProviderUpdatedAt    time.Time          `json:"provider_updated_at"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// CheckoutSessionRequest asks for a provider-hosted checkout flow
type CheckoutSessionRequest struct {
	PlanID uuid.UUID `json:"plan_id" binding:"required"`
}

// CheckoutSessionResponse returns the redirect target
type CheckoutSessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}
