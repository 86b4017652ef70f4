package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"

	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/kafka"
	"github.com/parishkeep/parishkeep/internal/metrics"
	"github.com/parishkeep/parishkeep/internal/repository/memory"
)

type webhookFixture struct {
	users         *memory.UserRepository
	plans         *memory.PlanRepository
	subscriptions *memory.SubscriptionRepository
	payments      *memory.PaymentRepository
	donations     *memory.DonationRepository
	events        *memory.WebhookEventRepository
	stripe        *fakeStripeClient
	svc           WebhookService
}

func newWebhookFixture(t *testing.T, plans ...domain.SubscriptionPlan) *webhookFixture {
	t.Helper()

	f := &webhookFixture{
		users:         memory.NewUserRepository(),
		plans:         memory.NewPlanRepository(plans...),
		subscriptions: memory.NewSubscriptionRepository(),
		payments:      memory.NewPaymentRepository(),
		donations:     memory.NewDonationRepository(),
		events:        memory.NewWebhookEventRepository(),
		stripe:        &fakeStripeClient{},
	}
	f.svc = NewWebhookService(
		f.users, f.plans, f.subscriptions, f.payments, f.donations, f.events,
		f.stripe, kafka.NoopProducer{}, metrics.NoopMetrics{}, newTestLogger(),
	)
	return f
}

func (f *webhookFixture) addUser(t *testing.T, customerID string) domain.User {
	t.Helper()
	user, err := f.users.Create(context.Background(), domain.User{
		ID:                 uuid.New(),
		Name:               "Anna",
		Email:              fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		Role:               domain.UserRoleUser,
		SubscriptionStatus: domain.SubscriptionStatusNone,
		StripeCustomerID:   customerID,
	})
	require.NoError(t, err)
	return user
}

func rawEvent(t *testing.T, id string, eventType stripe.EventType, created time.Time, payload any) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return stripe.Event{
		ID:      id,
		Type:    eventType,
		Created: created.Unix(),
		Data:    &stripe.EventData{Raw: raw},
	}
}

func testPlan(priceID string) domain.SubscriptionPlan {
	return domain.SubscriptionPlan{
		ID:            uuid.New(),
		Name:          "Supporter",
		AmountCents:   1000,
		Currency:      "usd",
		Interval:      domain.PlanIntervalMonth,
		StripePriceID: priceID,
		Active:        true,
	}
}

func TestWebhookService_DonationSettledExactlyOnce(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	_, err := f.donations.Create(ctx, domain.Donation{
		ID:                      uuid.New(),
		AmountCents:             5000,
		Currency:                "usd",
		Status:                  domain.DonationStatusPending,
		StripeCheckoutSessionID: "cs_don_1",
	})
	require.NoError(t, err)

	event := rawEvent(t, "evt_1", "checkout.session.completed", time.Now(), map[string]any{
		"id":           "cs_don_1",
		"mode":         "payment",
		"metadata":     map[string]string{"type": "one_time_donation"},
		"amount_total": 5000,
		"currency":     "usd",
	})

	require.NoError(t, f.svc.ProcessEvent(ctx, event))

	donation, err := f.donations.GetByCheckoutSessionID(ctx, "cs_don_1")
	require.NoError(t, err)
	assert.Equal(t, domain.DonationStatusSucceeded, donation.Status)

	sum, err := f.donations.SumSucceededCents(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), sum)

	// Redelivery of the same event id is acknowledged without effect
	require.NoError(t, f.svc.ProcessEvent(ctx, event))
	sum, err = f.donations.SumSucceededCents(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), sum)
}

func TestWebhookService_CheckoutCompletedMirrorsSubscription(t *testing.T) {
	plan := testPlan("price_sup_m")
	f := newWebhookFixture(t, plan)
	ctx := context.Background()

	user := f.addUser(t, "")
	now := time.Now().UTC().Truncate(time.Second)

	f.stripe.sub = &stripe.Subscription{
		ID:                 "sub_1",
		Status:             stripe.SubscriptionStatusActive,
		CurrentPeriodStart: now.Unix(),
		CurrentPeriodEnd:   now.Add(30 * 24 * time.Hour).Unix(),
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{Price: &stripe.Price{ID: plan.StripePriceID}},
			},
		},
	}

	event := rawEvent(t, "evt_2", "checkout.session.completed", now, map[string]any{
		"id":           "cs_sub_1",
		"mode":         "subscription",
		"subscription": "sub_1",
		"customer":     "cus_1",
		"metadata":     map[string]string{"user_id": user.ID.String()},
	})

	require.NoError(t, f.svc.ProcessEvent(ctx, event))

	sub, err := f.subscriptions.GetByStripeID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, sub.UserID)
	assert.Equal(t, plan.ID, sub.PlanID)
	assert.Equal(t, domain.SubscriptionStatusActive, sub.Status)

	// The denormalized user mirror follows
	updated, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, updated.SubscriptionStatus)
	// The customer id revealed by the session is backfilled
	assert.Equal(t, "cus_1", updated.StripeCustomerID)
}

func TestWebhookService_CheckoutCompletedUnknownUserSkipped(t *testing.T) {
	f := newWebhookFixture(t, testPlan("price_sup_m"))
	ctx := context.Background()

	event := rawEvent(t, "evt_3", "checkout.session.completed", time.Now(), map[string]any{
		"id":           "cs_sub_x",
		"mode":         "subscription",
		"subscription": "sub_x",
	})

	// Acknowledged, not retried
	require.NoError(t, f.svc.ProcessEvent(ctx, event))

	skipped, err := f.events.CountByStatus(ctx, domain.WebhookEventStatusSkipped)
	require.NoError(t, err)
	assert.Equal(t, int64(1), skipped)
}

func TestWebhookService_SubscriptionDeleted(t *testing.T) {
	plan := testPlan("price_sup_m")
	f := newWebhookFixture(t, plan)
	ctx := context.Background()

	user := f.addUser(t, "cus_1")
	seedTime := time.Now().UTC().Add(-time.Hour)
	_, err := f.subscriptions.Upsert(ctx, domain.Subscription{
		ID:                   uuid.New(),
		UserID:               user.ID,
		PlanID:               plan.ID,
		Status:               domain.SubscriptionStatusActive,
		StripeSubscriptionID: "sub_1",
		ProviderUpdatedAt:    seedTime,
	})
	require.NoError(t, err)
	require.NoError(t, f.users.SetSubscriptionStatus(ctx, user.ID, domain.SubscriptionStatusActive))

	canceledAt := time.Now().UTC().Truncate(time.Second)
	event := rawEvent(t, "evt_4", "customer.subscription.deleted", canceledAt, map[string]any{
		"id":          "sub_1",
		"status":      "canceled",
		"canceled_at": canceledAt.Unix(),
	})

	require.NoError(t, f.svc.ProcessEvent(ctx, event))

	sub, err := f.subscriptions.GetByStripeID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusCanceled, sub.Status)
	require.NotNil(t, sub.CanceledAt)
	assert.Equal(t, canceledAt.Unix(), sub.CanceledAt.Unix())

	updated, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusCanceled, updated.SubscriptionStatus)
}

func TestWebhookService_StaleSubscriptionEventDiscarded(t *testing.T) {
	plan := testPlan("price_sup_m")
	f := newWebhookFixture(t, plan)
	ctx := context.Background()

	user := f.addUser(t, "cus_1")
	fresh := time.Now().UTC()
	_, err := f.subscriptions.Upsert(ctx, domain.Subscription{
		ID:                   uuid.New(),
		UserID:               user.ID,
		PlanID:               plan.ID,
		Status:               domain.SubscriptionStatusActive,
		StripeSubscriptionID: "sub_1",
		ProviderUpdatedAt:    fresh,
	})
	require.NoError(t, err)

	// An event created before the stored provider state must not win
	stale := rawEvent(t, "evt_5", "customer.subscription.updated", fresh.Add(-time.Hour), map[string]any{
		"id":     "sub_1",
		"status": "past_due",
	})

	require.NoError(t, f.svc.ProcessEvent(ctx, stale))

	sub, err := f.subscriptions.GetByStripeID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, sub.Status)

	skipped, err := f.events.CountByStatus(ctx, domain.WebhookEventStatusSkipped)
	require.NoError(t, err)
	assert.Equal(t, int64(1), skipped)
}

func TestWebhookService_InvoicePaymentSucceeded(t *testing.T) {
	plan := testPlan("price_sup_m")
	f := newWebhookFixture(t, plan)
	ctx := context.Background()

	user := f.addUser(t, "cus_1")
	_, err := f.subscriptions.Upsert(ctx, domain.Subscription{
		ID:                   uuid.New(),
		UserID:               user.ID,
		PlanID:               plan.ID,
		Status:               domain.SubscriptionStatusPastDue,
		StripeSubscriptionID: "sub_1",
		ProviderUpdatedAt:    time.Now().UTC().Add(-time.Hour),
	})
	require.NoError(t, err)

	periodStart := time.Now().UTC().Truncate(time.Second)
	periodEnd := periodStart.Add(30 * 24 * time.Hour)
	event := rawEvent(t, "evt_6", "invoice.payment_succeeded", time.Now(), map[string]any{
		"id":           "in_1",
		"subscription": "sub_1",
		"customer":     "cus_1",
		"amount_paid":  1000,
		"currency":     "usd",
		"lines": map[string]any{
			"data": []map[string]any{
				{"period": map[string]int64{"start": periodStart.Unix(), "end": periodEnd.Unix()}},
			},
		},
	})

	require.NoError(t, f.svc.ProcessEvent(ctx, event))

	payment, err := f.payments.GetByStripeInvoiceID(ctx, "in_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), payment.AmountCents)
	assert.Equal(t, domain.PaymentStatusSucceeded, payment.Status)
	assert.Equal(t, user.ID, payment.UserID)

	sub, err := f.subscriptions.GetByStripeID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, periodEnd.Unix(), sub.CurrentPeriodEnd.Unix())
}

func TestWebhookService_InvoiceReplayDoesNotDoubleCount(t *testing.T) {
	plan := testPlan("price_sup_m")
	f := newWebhookFixture(t, plan)
	ctx := context.Background()

	user := f.addUser(t, "cus_1")
	_, err := f.subscriptions.Upsert(ctx, domain.Subscription{
		ID:                   uuid.New(),
		UserID:               user.ID,
		PlanID:               plan.ID,
		Status:               domain.SubscriptionStatusActive,
		StripeSubscriptionID: "sub_1",
		ProviderUpdatedAt:    time.Now().UTC().Add(-time.Hour),
	})
	require.NoError(t, err)

	payload := map[string]any{
		"id":           "in_1",
		"subscription": "sub_1",
		"amount_paid":  1000,
		"currency":     "usd",
	}

	require.NoError(t, f.svc.ProcessEvent(ctx, rawEvent(t, "evt_7", "invoice.payment_succeeded", time.Now(), payload)))

	// Same invoice under a fresh event id: the unique invoice constraint
	// catches what the event ledger cannot
	require.NoError(t, f.svc.ProcessEvent(ctx, rawEvent(t, "evt_8", "invoice.payment_succeeded", time.Now(), payload)))

	sum, err := f.payments.SumSucceededCents(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), sum)
}

func TestWebhookService_InvoicePaymentFailed(t *testing.T) {
	plan := testPlan("price_sup_m")
	f := newWebhookFixture(t, plan)
	ctx := context.Background()

	user := f.addUser(t, "cus_1")
	_, err := f.subscriptions.Upsert(ctx, domain.Subscription{
		ID:                   uuid.New(),
		UserID:               user.ID,
		PlanID:               plan.ID,
		Status:               domain.SubscriptionStatusActive,
		StripeSubscriptionID: "sub_1",
		ProviderUpdatedAt:    time.Now().UTC().Add(-time.Hour),
	})
	require.NoError(t, err)

	event := rawEvent(t, "evt_9", "invoice.payment_failed", time.Now(), map[string]any{
		"id":           "in_2",
		"subscription": "sub_1",
		"amount_due":   1000,
		"currency":     "usd",
	})

	require.NoError(t, f.svc.ProcessEvent(ctx, event))

	payment, err := f.payments.GetByStripeInvoiceID(ctx, "in_2")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, payment.Status)

	sub, err := f.subscriptions.GetByStripeID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusPastDue, sub.Status)

	updated, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusPastDue, updated.SubscriptionStatus)
}

func TestWebhookService_UnknownEventTypeAcknowledged(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	event := rawEvent(t, "evt_10", "customer.created", time.Now(), map[string]any{"id": "cus_1"})
	require.NoError(t, f.svc.ProcessEvent(ctx, event))

	skipped, err := f.events.CountByStatus(ctx, domain.WebhookEventStatusSkipped)
	require.NoError(t, err)
	assert.Equal(t, int64(1), skipped)
}
