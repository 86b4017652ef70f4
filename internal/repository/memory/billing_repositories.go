package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/repository"
)

// PlanRepository is an in-memory plan catalog
type PlanRepository struct {
	mu    sync.RWMutex
	plans map[uuid.UUID]domain.SubscriptionPlan
}

// NewPlanRepository creates an in-memory plan repository seeded with the
// given plans
func NewPlanRepository(plans ...domain.SubscriptionPlan) *PlanRepository {
	r := &PlanRepository{plans: make(map[uuid.UUID]domain.SubscriptionPlan)}
	for _, p := range plans {
		r.plans[p.ID] = p
	}
	return r
}

// GetAll returns the catalog
func (r *PlanRepository) GetAll(ctx context.Context, activeOnly bool) ([]domain.SubscriptionPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.SubscriptionPlan
	for _, p := range r.plans {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// GetByID returns a plan by id
func (r *PlanRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.SubscriptionPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plans[id]
	if !ok {
		return domain.SubscriptionPlan{}, repository.ErrNotFound
	}
	return p, nil
}

// GetByStripePriceID returns the plan mirroring a Stripe price
func (r *PlanRepository) GetByStripePriceID(ctx context.Context, priceID string) (domain.SubscriptionPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plans {
		if p.StripePriceID == priceID {
			return p, nil
		}
	}
	return domain.SubscriptionPlan{}, repository.ErrNotFound
}

// SubscriptionRepository is an in-memory subscription mirror
type SubscriptionRepository struct {
	mu   sync.RWMutex
	subs map[string]domain.Subscription // keyed by stripe subscription id
}

// NewSubscriptionRepository creates an empty in-memory subscription repository
func NewSubscriptionRepository() *SubscriptionRepository {
	return &SubscriptionRepository{subs: make(map[string]domain.Subscription)}
}

// Upsert inserts or updates the row keyed by the Stripe subscription id,
// rejecting updates older than the stored provider timestamp.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := r.subs[sub.StripeSubscriptionID]; ok {
		if existing.ProviderUpdatedAt.After(sub.ProviderUpdatedAt) {
			return domain.Subscription{}, repository.ErrInvalidData
		}
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	} else {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	r.subs[sub.StripeSubscriptionID] = sub

	return sub, nil
}

// GetByUserID returns the user's most recent subscription
func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *domain.Subscription
	for _, s := range r.subs {
		if s.UserID != userID {
			continue
		}
		if found == nil || s.CreatedAt.After(found.CreatedAt) {
			sCopy := s
			found = &sCopy
		}
	}
	if found == nil {
		return domain.Subscription{}, repository.ErrNotFound
	}
	return *found, nil
}

// GetByStripeID returns the row mirroring a Stripe subscription
func (r *SubscriptionRepository) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.subs[stripeSubscriptionID]
	if !ok {
		return domain.Subscription{}, repository.ErrNotFound
	}
	return s, nil
}

// CountByStatus returns the number of subscriptions in a lifecycle state
func (r *SubscriptionRepository) CountByStatus(ctx context.Context, status domain.SubscriptionStatus) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, s := range r.subs {
		if s.Status == status {
			n++
		}
	}
	return n, nil
}

// ListAll returns every subscription
func (r *SubscriptionRepository) ListAll(ctx context.Context) ([]domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, s)
	}
	return out, nil
}

// PaymentRepository is an in-memory settlement ledger
type PaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]domain.Payment // keyed by stripe invoice id
}

// NewPaymentRepository creates an empty in-memory payment repository
func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{payments: make(map[string]domain.Payment)}
}

// Create inserts a settlement record, rejecting duplicate invoice ids
func (r *PaymentRepository) Create(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.payments[payment.StripeInvoiceID]; ok {
		return domain.Payment{}, repository.ErrDuplicate
	}
	payment.CreatedAt = time.Now().UTC()
	r.payments[payment.StripeInvoiceID] = payment

	return payment, nil
}

// GetByStripeInvoiceID returns the settlement record for a Stripe invoice
func (r *PaymentRepository) GetByStripeInvoiceID(ctx context.Context, invoiceID string) (domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payments[invoiceID]
	if !ok {
		return domain.Payment{}, repository.ErrNotFound
	}
	return p, nil
}

// ListByUserID returns a user's settlement history
func (r *PaymentRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Payment
	for _, p := range r.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	end := offset + limit
	if end > len(out) || limit <= 0 {
		end = len(out)
	}
	return out[offset:end], nil
}

// SumSucceededCents aggregates settled subscription revenue
func (r *PaymentRepository) SumSucceededCents(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sum int64
	for _, p := range r.payments {
		if p.Status == domain.PaymentStatusSucceeded {
			sum += p.AmountCents
		}
	}
	return sum, nil
}

// ListAll returns every settlement record
func (r *PaymentRepository) ListAll(ctx context.Context) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Payment, 0, len(r.payments))
	for _, p := range r.payments {
		out = append(out, p)
	}
	return out, nil
}

// DonationRepository is an in-memory donation ledger
type DonationRepository struct {
	mu        sync.RWMutex
	donations map[string]domain.Donation // keyed by checkout session id
}

// NewDonationRepository creates an empty in-memory donation repository
func NewDonationRepository() *DonationRepository {
	return &DonationRepository{donations: make(map[string]domain.Donation)}
}

// Create inserts a pending donation keyed by the checkout session id
func (r *DonationRepository) Create(ctx context.Context, donation domain.Donation) (domain.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.donations[donation.StripeCheckoutSessionID]; ok {
		return domain.Donation{}, repository.ErrDuplicate
	}
	now := time.Now().UTC()
	donation.CreatedAt = now
	donation.UpdatedAt = now
	r.donations[donation.StripeCheckoutSessionID] = donation

	return donation, nil
}

// GetByCheckoutSessionID returns the donation for a checkout session
func (r *DonationRepository) GetByCheckoutSessionID(ctx context.Context, sessionID string) (domain.Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.donations[sessionID]
	if !ok {
		return domain.Donation{}, repository.ErrNotFound
	}
	return d, nil
}

// SetStatus resolves a donation's outcome
func (r *DonationRepository) SetStatus(ctx context.Context, sessionID string, status domain.DonationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.donations[sessionID]
	if !ok {
		return repository.ErrNotFound
	}
	d.Status = status
	d.UpdatedAt = time.Now().UTC()
	r.donations[sessionID] = d
	return nil
}

// SumSucceededCents aggregates settled donation revenue
func (r *DonationRepository) SumSucceededCents(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sum int64
	for _, d := range r.donations {
		if d.Status == domain.DonationStatusSucceeded {
			sum += d.AmountCents
		}
	}
	return sum, nil
}

// ListAll returns every donation
func (r *DonationRepository) ListAll(ctx context.Context) ([]domain.Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Donation, 0, len(r.donations))
	for _, d := range r.donations {
		out = append(out, d)
	}
	return out, nil
}

// WebhookEventRepository is an in-memory idempotency ledger
type WebhookEventRepository struct {
	mu     sync.Mutex
	events map[string]domain.WebhookEvent
}

// NewWebhookEventRepository creates an empty in-memory event ledger
func NewWebhookEventRepository() *WebhookEventRepository {
	return &WebhookEventRepository{events: make(map[string]domain.WebhookEvent)}
}

// Create records an event id, returning ErrDuplicate on replay
func (r *WebhookEventRepository) Create(ctx context.Context, event domain.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[event.StripeEventID]; ok {
		return repository.ErrDuplicate
	}
	event.ReceivedAt = time.Now().UTC()
	r.events[event.StripeEventID] = event
	return nil
}

// UpdateStatus rewrites the recorded outcome of a claimed event
func (r *WebhookEventRepository) UpdateStatus(ctx context.Context, stripeEventID string, status domain.WebhookEventStatus, note string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[stripeEventID]
	if !ok {
		return repository.ErrNotFound
	}
	e.Status = status
	e.Note = note
	r.events[stripeEventID] = e
	return nil
}

// Delete releases an event claim
func (r *WebhookEventRepository) Delete(ctx context.Context, stripeEventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.events, stripeEventID)
	return nil
}

// CountByStatus returns the number of events with a given outcome
func (r *WebhookEventRepository) CountByStatus(ctx context.Context, status domain.WebhookEventStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, e := range r.events {
		if e.Status == status {
			n++
		}
	}
	return n, nil
}
