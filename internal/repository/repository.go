package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/parishkeep/parishkeep/internal/domain"
)

// UserRepository persists platform accounts
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (domain.User, error)
	SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error
	SetSubscriptionStatus(ctx context.Context, id uuid.UUID, status domain.SubscriptionStatus) error
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Count(ctx context.Context) (int64, error)
	ListAll(ctx context.Context) ([]domain.User, error)
}

// PlanRepository reads the seeded plan catalog
type PlanRepository interface {
	GetAll(ctx context.Context, activeOnly bool) ([]domain.SubscriptionPlan, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.SubscriptionPlan, error)
	GetByStripePriceID(ctx context.Context, priceID string) (domain.SubscriptionPlan, error)
}

// SubscriptionRepository persists mirrored Stripe subscriptions
type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub domain.Subscription) (domain.Subscription, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (domain.Subscription, error)
	GetByStripeID(ctx context.Context, stripeSubscriptionID string) (domain.Subscription, error)
	CountByStatus(ctx context.Context, status domain.SubscriptionStatus) (int64, error)
	ListAll(ctx context.Context) ([]domain.Subscription, error)
}

// PaymentRepository persists immutable settlement records
type PaymentRepository interface {
	Create(ctx context.Context, payment domain.Payment) (domain.Payment, error)
	GetByStripeInvoiceID(ctx context.Context, invoiceID string) (domain.Payment, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Payment, error)
	SumSucceededCents(ctx context.Context) (int64, error)
	ListAll(ctx context.Context) ([]domain.Payment, error)
}

// DonationRepository persists one-time contributions
type DonationRepository interface {
	Create(ctx context.Context, donation domain.Donation) (domain.Donation, error)
	GetByCheckoutSessionID(ctx context.Context, sessionID string) (domain.Donation, error)
	SetStatus(ctx context.Context, sessionID string, status domain.DonationStatus) error
	SumSucceededCents(ctx context.Context) (int64, error)
	ListAll(ctx context.Context) ([]domain.Donation, error)
}

// PostRepository persists content pages
type PostRepository interface {
	Create(ctx context.Context, post domain.Post) (domain.Post, error)
	Update(ctx context.Context, post domain.Post) (domain.Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Post, error)
	GetBySlug(ctx context.Context, slug string) (domain.Post, error)
	ListPublished(ctx context.Context, premiumOnly bool, limit, offset int) ([]domain.Post, error)
	ListAll(ctx context.Context) ([]domain.Post, error)
}

// WebhookEventRepository is the idempotency ledger. Create must return
// ErrDuplicate when the event id was already recorded; Delete releases a
// claim so the provider's retry of a failed event can be reprocessed.
type WebhookEventRepository interface {
	Create(ctx context.Context, event domain.WebhookEvent) error
	UpdateStatus(ctx context.Context, stripeEventID string, status domain.WebhookEventStatus, note string) error
	Delete(ctx context.Context, stripeEventID string) error
	CountByStatus(ctx context.Context, status domain.WebhookEventStatus) (int64, error)
}
