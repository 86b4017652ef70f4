package domain

import (
	"time"

	"github.com/google/uuid"
)

// DonationStatus tracks a one-time contribution through checkout
type DonationStatus string

const (
	DonationStatusPending   DonationStatus = "pending"
	DonationStatusSucceeded DonationStatus = "succeeded"
	DonationStatusFailed    DonationStatus = "failed"
)

// Donation is a one-time contribution. A pending row is inserted when the
// checkout session is created, keyed by the session id, and resolved by the
// completion webhook.
type Donation struct {
	ID                      uuid.UUID      `json:"id"`
	UserID                  *uuid.UUID     `json:"user_id,omitempty"`
	AmountCents             int64          `json:"amount_cents"`
	Currency                string         `json:"currency"`
	Status                  DonationStatus `json:"status"`
	StripeCheckoutSessionID string         `json:"stripe_checkout_session_id"`
	DonorEmail              string         `json:"donor_email,omitempty"`
	Message                 string         `json:"message,omitempty"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
}

// DonationRequest asks for a one-time donation checkout
type DonationRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	Currency    string `json:"currency" binding:"required,len=3"`
	Message     string `json:"message" binding:"max=500"`
}
