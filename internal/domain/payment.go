package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the settlement outcome
type PaymentStatus string

const (
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is an immutable record of a single settlement attempt. The Stripe
// invoice id is unique, so a redelivered invoice event cannot create a second
// row for the same settlement.
type Payment struct {
	ID              uuid.UUID     `json:"id"`
	UserID          uuid.UUID     `json:"user_id"`
	SubscriptionID  *uuid.UUID    `json:"subscription_id,omitempty"`
	AmountCents     int64         `json:"amount_cents"`
	Currency        string        `json:"currency"`
	Status          PaymentStatus `json:"status"`
	StripeInvoiceID string        `json:"stripe_invoice_id"`
	FailureMessage  string        `json:"failure_message,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}
