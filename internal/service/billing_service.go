package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	stripeclient "github.com/parishkeep/parishkeep/internal/integration/stripe"
	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/repository"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

// BillingService wraps Stripe for checkout, cancellation and the plan catalog
type BillingService interface {
	// ListPlans returns the active plan catalog.
	ListPlans(ctx context.Context) ([]domain.SubscriptionPlan, error)

	// GetUserSubscription returns the caller's current subscription.
	GetUserSubscription(ctx context.Context, userID uuid.UUID) (domain.Subscription, error)

	// CreateSubscriptionCheckout starts a hosted recurring checkout for a plan.
	CreateSubscriptionCheckout(ctx context.Context, user domain.User, planID uuid.UUID) (domain.CheckoutSessionResponse, error)

	// CreateDonationCheckout starts a hosted one-time checkout and pre-inserts
	// the pending donation row keyed by the session id.
	CreateDonationCheckout(ctx context.Context, user domain.User, req domain.DonationRequest) (domain.CheckoutSessionResponse, error)

	// CancelSubscription flags the caller's subscription to lapse at period end.
	CancelSubscription(ctx context.Context, user domain.User) (domain.Subscription, error)

	// ListUserPayments returns the caller's settlement history, newest first.
	ListUserPayments(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Payment, error)
}

type billingService struct {
	users         repository.UserRepository
	plans         repository.PlanRepository
	subscriptions repository.SubscriptionRepository
	payments      repository.PaymentRepository
	donations     repository.DonationRepository
	stripe        stripeclient.Client
	frontendBase  string
	log           *logger.Logger
}

// NewBillingService creates the billing service
func NewBillingService(
	users repository.UserRepository,
	plans repository.PlanRepository,
	subscriptions repository.SubscriptionRepository,
	payments repository.PaymentRepository,
	donations repository.DonationRepository,
	stripe stripeclient.Client,
	frontendBase string,
	log *logger.Logger,
) BillingService {
	return &billingService{
		users:         users,
		plans:         plans,
		subscriptions: subscriptions,
		payments:      payments,
		donations:     donations,
		stripe:        stripe,
		frontendBase:  frontendBase,
		log:           log,
	}
}

// ListPlans returns the active plan catalog
func (s *billingService) ListPlans(ctx context.Context) ([]domain.SubscriptionPlan, error) {
	return s.plans.GetAll(ctx, true)
}

// GetUserSubscription returns the caller's current subscription
func (s *billingService) GetUserSubscription(ctx context.Context, userID uuid.UUID) (domain.Subscription, error) {
	return s.subscriptions.GetByUserID(ctx, userID)
}

// getOrCreateCustomer returns the user's Stripe customer id, creating the
// customer upstream and persisting the id on first use.
func (s *billingService) getOrCreateCustomer(ctx context.Context, user domain.User) (string, error) {
	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}

	customerID, err := s.stripe.CreateCustomer(ctx, user.ID.String(), user.Email, user.Name)
	if err != nil {
		return "", err
	}

	if err := s.users.SetStripeCustomerID(ctx, user.ID, customerID); err != nil {
		return "", fmt.Errorf("failed to persist stripe customer id: %w", err)
	}

	return customerID, nil
}

// CreateSubscriptionCheckout starts a hosted recurring checkout for a plan
func (s *billingService) CreateSubscriptionCheckout(ctx context.Context, user domain.User, planID uuid.UUID) (domain.CheckoutSessionResponse, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return domain.CheckoutSessionResponse{}, err
	}
	if !plan.Active {
		return domain.CheckoutSessionResponse{}, domain.ErrPlanInactive
	}

	customerID, err := s.getOrCreateCustomer(ctx, user)
	if err != nil {
		return domain.CheckoutSessionResponse{}, err
	}

	sess, err := s.stripe.CreateSubscriptionCheckoutSession(ctx, stripeclient.CheckoutParams{
		CustomerID: customerID,
		UserID:     user.ID.String(),
		PriceID:    plan.StripePriceID,
		SuccessURL: s.frontendBase + "/subscribe/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.frontendBase + "/subscribe/canceled",
	})
	if err != nil {
		return domain.CheckoutSessionResponse{}, err
	}

	// No local row yet: the subscription is persisted when the completion
	// webhook arrives.
	return domain.CheckoutSessionResponse{SessionID: sess.ID, URL: sess.URL}, nil
}

// CreateDonationCheckout starts a hosted one-time checkout and pre-inserts
// the pending donation row
func (s *billingService) CreateDonationCheckout(ctx context.Context, user domain.User, req domain.DonationRequest) (domain.CheckoutSessionResponse, error) {
	customerID := user.StripeCustomerID

	sess, err := s.stripe.CreateDonationCheckoutSession(ctx, stripeclient.DonationParams{
		CustomerID:  customerID,
		UserID:      user.ID.String(),
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		SuccessURL:  s.frontendBase + "/give/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   s.frontendBase + "/give/canceled",
	})
	if err != nil {
		return domain.CheckoutSessionResponse{}, err
	}

	userID := user.ID
	donation := domain.Donation{
		ID:                      uuid.New(),
		UserID:                  &userID,
		AmountCents:             req.AmountCents,
		Currency:                req.Currency,
		Status:                  domain.DonationStatusPending,
		StripeCheckoutSessionID: sess.ID,
		DonorEmail:              user.Email,
		Message:                 req.Message,
	}

	if _, err := s.donations.Create(ctx, donation); err != nil {
		// The upstream session exists but we lost the local row; surface the
		// error so the client retries with a fresh session.
		return domain.CheckoutSessionResponse{}, fmt.Errorf("failed to record pending donation: %w", err)
	}

	s.log.Infow("Pending donation recorded", "sessionID", sess.ID, "userID", user.ID, "amountCents", req.AmountCents)
	return domain.CheckoutSessionResponse{SessionID: sess.ID, URL: sess.URL}, nil
}

// CancelSubscription flags the caller's subscription to lapse at period end
func (s *billingService) CancelSubscription(ctx context.Context, user domain.User) (domain.Subscription, error) {
	sub, err := s.subscriptions.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Subscription{}, domain.ErrNoActiveSubscription
		}
		return domain.Subscription{}, err
	}
	if !sub.Status.Entitles() {
		return domain.Subscription{}, domain.ErrNoActiveSubscription
	}

	upstream, err := s.stripe.CancelSubscriptionAtPeriodEnd(ctx, sub.StripeSubscriptionID)
	if err != nil {
		return domain.Subscription{}, err
	}

	// Mirror the flag now; the customer.subscription.updated webhook will
	// confirm the rest of the state.
	sub.CancelAtPeriodEnd = upstream.CancelAtPeriodEnd
	saved, err := s.subscriptions.Upsert(ctx, sub)
	if err != nil {
		return domain.Subscription{}, err
	}

	s.log.Infow("Subscription flagged for cancellation", "userID", user.ID, "stripeSubscriptionID", sub.StripeSubscriptionID)
	return saved, nil
}

// ListUserPayments returns the caller's settlement history
func (s *billingService) ListUserPayments(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.payments.ListByUserID(ctx, userID, limit, offset)
}
