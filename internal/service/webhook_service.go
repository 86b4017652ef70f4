package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v78"

	"github.com/parishkeep/parishkeep/internal/domain"
	stripeclient "github.com/parishkeep/parishkeep/internal/integration/stripe"
	"github.com/parishkeep/parishkeep/internal/kafka"
	"github.com/parishkeep/parishkeep/internal/metrics"
	"github.com/parishkeep/parishkeep/internal/repository"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

// Webhook processing outcomes for metrics
const (
	outcomeProcessed = "processed"
	outcomeSkipped   = "skipped"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)

// errSkip carries the reason an event was acknowledged without effect.
type errSkip struct{ reason string }

func (e errSkip) Error() string { return e.reason }

func skip(format string, args ...any) error {
	return errSkip{reason: fmt.Sprintf(format, args...)}
}

// WebhookService mirrors verified Stripe events into local state. It is the
// single owner of that mapping: every event type is handled here or
// acknowledged as a no-op, never in a second parallel handler.
type WebhookService interface {
	// ProcessEvent applies one verified event. A nil return means the event
	// must be acknowledged with 200, including replays and events this
	// service does not understand. A non-nil return means processing failed
	// midway and the provider should retry.
	ProcessEvent(ctx context.Context, event stripe.Event) error
}

type webhookService struct {
	users         repository.UserRepository
	plans         repository.PlanRepository
	subscriptions repository.SubscriptionRepository
	payments      repository.PaymentRepository
	donations     repository.DonationRepository
	events        repository.WebhookEventRepository
	stripe        stripeclient.Client
	producer      kafka.Producer
	metrics       metrics.BillingMetrics
	log           *logger.Logger
}

// NewWebhookService creates the webhook processor
func NewWebhookService(
	users repository.UserRepository,
	plans repository.PlanRepository,
	subscriptions repository.SubscriptionRepository,
	payments repository.PaymentRepository,
	donations repository.DonationRepository,
	events repository.WebhookEventRepository,
	stripe stripeclient.Client,
	producer kafka.Producer,
	m metrics.BillingMetrics,
	log *logger.Logger,
) WebhookService {
	return &webhookService{
		users:         users,
		plans:         plans,
		subscriptions: subscriptions,
		payments:      payments,
		donations:     donations,
		events:        events,
		stripe:        stripe,
		producer:      producer,
		metrics:       m,
		log:           log,
	}
}

// ProcessEvent applies one verified event
func (s *webhookService) ProcessEvent(ctx context.Context, event stripe.Event) error {
	eventType := string(event.Type)

	// Claim the event id before touching any other row. A concurrent or
	// replayed delivery of the same event loses the claim and is
	// acknowledged without effect.
	claim := domain.WebhookEvent{
		StripeEventID: event.ID,
		Type:          eventType,
		Status:        domain.WebhookEventStatusProcessed,
	}
	if err := s.events.Create(ctx, claim); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.log.Infow("Replayed webhook event acknowledged", "eventID", event.ID, "eventType", eventType)
			s.metrics.IncWebhookEvent(eventType, outcomeDuplicate)
			return nil
		}
		return fmt.Errorf("failed to claim webhook event: %w", err)
	}

	err := s.dispatch(ctx, event)

	var sk errSkip
	switch {
	case err == nil:
		s.metrics.IncWebhookEvent(eventType, outcomeProcessed)
		return nil
	case errors.As(err, &sk):
		s.log.Warnw("Webhook event skipped", "eventID", event.ID, "eventType", eventType, "reason", sk.reason)
		if uerr := s.events.UpdateStatus(ctx, event.ID, domain.WebhookEventStatusSkipped, sk.reason); uerr != nil {
			s.log.Errorw("Failed to record skipped event", "error", uerr, "eventID", event.ID)
		}
		s.metrics.IncWebhookEvent(eventType, outcomeSkipped)
		return nil
	default:
		// Release the claim so Stripe's retry of this event can repair the
		// partial failure.
		if derr := s.events.Delete(ctx, event.ID); derr != nil {
			s.log.Errorw("Failed to release webhook event claim", "error", derr, "eventID", event.ID)
		}
		s.metrics.IncWebhookEvent(eventType, outcomeFailed)
		return err
	}
}

func (s *webhookService) dispatch(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.updated", "customer.subscription.deleted":
		return s.handleSubscriptionChanged(ctx, event)
	case "invoice.payment_succeeded":
		return s.handleInvoice(ctx, event, true)
	case "invoice.payment_failed":
		return s.handleInvoice(ctx, event, false)
	default:
		return skip("unhandled event type %s", event.Type)
	}
}

// handleCheckoutCompleted resolves a finished checkout session into either a
// settled donation or a new subscription mirror.
func (s *webhookService) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return skip("malformed checkout.session payload: %v", err)
	}

	if sess.Metadata[stripeclient.MetadataTypeKey] == stripeclient.MetadataTypeDonation {
		return s.settleDonation(ctx, sess)
	}

	if sess.Subscription == nil || sess.Subscription.ID == "" {
		// Neither a donation tag nor a subscription reference; the intent of
		// the session cannot be determined, record and acknowledge.
		return skip("checkout session %s has no subscription and no donation tag", sess.ID)
	}

	user, err := s.resolveUser(ctx, &sess)
	if err != nil {
		return err
	}

	// The completion payload does not carry subscription state; fetch the
	// authoritative state from Stripe instead of trusting session fields.
	upstream, err := s.stripe.GetSubscription(ctx, sess.Subscription.ID)
	if err != nil {
		return err
	}

	return s.mirrorSubscription(ctx, user, upstream, time.Unix(event.Created, 0).UTC(), "subscription.created")
}

func (s *webhookService) settleDonation(ctx context.Context, sess stripe.CheckoutSession) error {
	err := s.donations.SetStatus(ctx, sess.ID, domain.DonationStatusSucceeded)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return skip("no pending donation for checkout session %s", sess.ID)
		}
		return err
	}

	currency := string(sess.Currency)
	s.metrics.IncDonation(string(domain.DonationStatusSucceeded), currency)
	s.metrics.ObserveSettledAmount(sess.AmountTotal, currency)
	s.log.Infow("Donation settled", "sessionID", sess.ID, "amountCents", sess.AmountTotal, "currency", currency)
	return nil
}

// resolveUser finds the platform account a checkout session belongs to:
// metadata user id first, then the Stripe customer id, then the email on the
// session.
func (s *webhookService) resolveUser(ctx context.Context, sess *stripe.CheckoutSession) (domain.User, error) {
	if raw, ok := sess.Metadata[stripeclient.MetadataUserIDKey]; ok && raw != "" {
		if userID, err := uuid.Parse(raw); err == nil {
			user, err := s.users.GetByID(ctx, userID)
			if err == nil {
				return s.ensureCustomerID(ctx, user, sess)
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return domain.User{}, err
			}
		}
	}

	if sess.Customer != nil && sess.Customer.ID != "" {
		user, err := s.users.GetByStripeCustomerID(ctx, sess.Customer.ID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, err
		}
	}

	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		user, err := s.users.GetByEmail(ctx, sess.CustomerDetails.Email)
		if err == nil {
			return s.ensureCustomerID(ctx, user, sess)
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, err
		}
	}

	return domain.User{}, skip("no user matches checkout session %s", sess.ID)
}

// ensureCustomerID backfills the Stripe customer reference when the session
// reveals one the user row does not have yet.
func (s *webhookService) ensureCustomerID(ctx context.Context, user domain.User, sess *stripe.CheckoutSession) (domain.User, error) {
	if user.StripeCustomerID != "" || sess.Customer == nil || sess.Customer.ID == "" {
		return user, nil
	}
	if err := s.users.SetStripeCustomerID(ctx, user.ID, sess.Customer.ID); err != nil {
		return domain.User{}, err
	}
	user.StripeCustomerID = sess.Customer.ID
	return user, nil
}

// handleSubscriptionChanged mirrors subscription.updated/.deleted events.
func (s *webhookService) handleSubscriptionChanged(ctx context.Context, event stripe.Event) error {
	var upstream stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &upstream); err != nil {
		return skip("malformed subscription payload: %v", err)
	}

	local, err := s.subscriptions.GetByStripeID(ctx, upstream.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return skip("no local subscription for %s", upstream.ID)
		}
		return err
	}

	eventTime := time.Unix(event.Created, 0).UTC()
	local.Status = domain.SubscriptionStatus(upstream.Status)
	local.CurrentPeriodStart = time.Unix(upstream.CurrentPeriodStart, 0).UTC()
	local.CurrentPeriodEnd = time.Unix(upstream.CurrentPeriodEnd, 0).UTC()
	local.CancelAtPeriodEnd = upstream.CancelAtPeriodEnd
	local.ProviderUpdatedAt = eventTime

	eventName := "subscription.updated"
	if event.Type == "customer.subscription.deleted" {
		eventName = "subscription.canceled"
		local.Status = domain.SubscriptionStatusCanceled
		canceledAt := eventTime
		if upstream.CanceledAt > 0 {
			canceledAt = time.Unix(upstream.CanceledAt, 0).UTC()
		}
		local.CanceledAt = &canceledAt
	}

	saved, err := s.subscriptions.Upsert(ctx, local)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidData) {
			return skip("stale event for subscription %s", upstream.ID)
		}
		return err
	}

	if err := s.users.SetSubscriptionStatus(ctx, saved.UserID, saved.Status); err != nil {
		return err
	}

	s.publishSubscription(ctx, eventName, saved)
	s.log.Infow("Subscription mirrored", "stripeSubscriptionID", saved.StripeSubscriptionID, "status", saved.Status)
	return nil
}

// handleInvoice records a settlement attempt and moves the subscription
// lifecycle accordingly.
func (s *webhookService) handleInvoice(ctx context.Context, event stripe.Event, succeeded bool) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return skip("malformed invoice payload: %v", err)
	}

	if invoice.Subscription == nil || invoice.Subscription.ID == "" {
		return skip("invoice %s is not tied to a subscription", invoice.ID)
	}

	local, err := s.subscriptions.GetByStripeID(ctx, invoice.Subscription.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return skip("no local subscription for invoice %s", invoice.ID)
		}
		return err
	}

	amount := invoice.AmountPaid
	status := domain.PaymentStatusSucceeded
	failureMessage := ""
	if !succeeded {
		amount = invoice.AmountDue
		status = domain.PaymentStatusFailed
		failureMessage = "invoice payment failed"
	}

	subID := local.ID
	payment := domain.Payment{
		ID:              uuid.New(),
		UserID:          local.UserID,
		SubscriptionID:  &subID,
		AmountCents:     amount,
		Currency:        string(invoice.Currency),
		Status:          status,
		StripeInvoiceID: invoice.ID,
		FailureMessage:  failureMessage,
	}

	created, err := s.payments.Create(ctx, payment)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// A different event already settled this invoice
			return skip("invoice %s already recorded", invoice.ID)
		}
		return err
	}

	eventTime := time.Unix(event.Created, 0).UTC()
	if succeeded {
		local.Status = domain.SubscriptionStatusActive
		if period := invoicePeriod(&invoice); period != nil {
			local.CurrentPeriodStart = time.Unix(period.Start, 0).UTC()
			local.CurrentPeriodEnd = time.Unix(period.End, 0).UTC()
		}
	} else {
		local.Status = domain.SubscriptionStatusPastDue
	}
	local.ProviderUpdatedAt = eventTime

	saved, err := s.subscriptions.Upsert(ctx, local)
	if err != nil && !errors.Is(err, repository.ErrInvalidData) {
		return err
	}
	if err == nil {
		if err := s.users.SetSubscriptionStatus(ctx, saved.UserID, saved.Status); err != nil {
			return err
		}
	}

	s.metrics.IncPayment(string(status), created.Currency)
	if succeeded {
		s.metrics.ObserveSettledAmount(created.AmountCents, created.Currency)
	}
	s.publishPayment(ctx, "payment."+string(status), created)
	s.log.Infow("Invoice mirrored", "invoiceID", invoice.ID, "status", status, "amountCents", created.AmountCents)
	return nil
}

// mirrorSubscription maps upstream subscription state onto local rows and the
// denormalized user status.
func (s *webhookService) mirrorSubscription(ctx context.Context, user domain.User, upstream *stripe.Subscription, eventTime time.Time, eventName string) error {
	priceID := ""
	if upstream.Items != nil && len(upstream.Items.Data) > 0 && upstream.Items.Data[0].Price != nil {
		priceID = upstream.Items.Data[0].Price.ID
	}

	plan, err := s.plans.GetByStripePriceID(ctx, priceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return skip("no plan mirrors stripe price %q", priceID)
		}
		return err
	}

	sub := domain.Subscription{
		ID:                   uuid.New(),
		UserID:               user.ID,
		PlanID:               plan.ID,
		Status:               domain.SubscriptionStatus(upstream.Status),
		StripeSubscriptionID: upstream.ID,
		CurrentPeriodStart:   time.Unix(upstream.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:     time.Unix(upstream.CurrentPeriodEnd, 0).UTC(),
		CancelAtPeriodEnd:    upstream.CancelAtPeriodEnd,
		ProviderUpdatedAt:    eventTime,
	}

	saved, err := s.subscriptions.Upsert(ctx, sub)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidData) {
			return skip("stale event for subscription %s", upstream.ID)
		}
		return err
	}

	if err := s.users.SetSubscriptionStatus(ctx, saved.UserID, saved.Status); err != nil {
		return err
	}

	s.publishSubscription(ctx, eventName, saved)
	s.log.Infow("Subscription mirrored", "stripeSubscriptionID", saved.StripeSubscriptionID, "status", saved.Status, "userID", user.ID)
	return nil
}

func (s *webhookService) publishSubscription(ctx context.Context, eventName string, sub domain.Subscription) {
	if err := s.producer.PublishSubscriptionEvent(ctx, eventName, sub); err != nil {
		s.log.Warnw("Failed to publish subscription event", "error", err, "event", eventName)
	}
}

func (s *webhookService) publishPayment(ctx context.Context, eventName string, payment domain.Payment) {
	if err := s.producer.PublishPaymentEvent(ctx, eventName, payment); err != nil {
		s.log.Warnw("Failed to publish payment event", "error", err, "event", eventName)
	}
}

func invoicePeriod(invoice *stripe.Invoice) *stripe.Period {
	if invoice.Lines == nil || len(invoice.Lines.Data) == 0 {
		return nil
	}
	return invoice.Lines.Data[0].Period
}
