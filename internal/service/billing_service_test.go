package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"

	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/repository/memory"
)

type billingFixture struct {
	users         *memory.UserRepository
	plans         *memory.PlanRepository
	subscriptions *memory.SubscriptionRepository
	payments      *memory.PaymentRepository
	donations     *memory.DonationRepository
	stripe        *fakeStripeClient
	svc           BillingService
}

func newBillingFixture(plans ...domain.SubscriptionPlan) *billingFixture {
	f := &billingFixture{
		users:         memory.NewUserRepository(),
		plans:         memory.NewPlanRepository(plans...),
		subscriptions: memory.NewSubscriptionRepository(),
		payments:      memory.NewPaymentRepository(),
		donations:     memory.NewDonationRepository(),
		stripe:        &fakeStripeClient{customerID: "cus_new"},
	}
	f.svc = NewBillingService(
		f.users, f.plans, f.subscriptions, f.payments, f.donations,
		f.stripe, "http://localhost:3000", newTestLogger(),
	)
	return f
}

func (f *billingFixture) addUser(t *testing.T, customerID string) domain.User {
	t.Helper()
	user, err := f.users.Create(context.Background(), domain.User{
		ID:               uuid.New(),
		Name:             "Anna",
		Email:            "anna@example.com",
		Role:             domain.UserRoleUser,
		StripeCustomerID: customerID,
	})
	require.NoError(t, err)
	return user
}

func TestBillingService_ListPlans_ActiveOnly(t *testing.T) {
	active := testPlan("price_active")
	inactive := testPlan("price_inactive")
	inactive.Active = false

	f := newBillingFixture(active, inactive)

	plans, err := f.svc.ListPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "price_active", plans[0].StripePriceID)
}

func TestBillingService_CreateSubscriptionCheckout(t *testing.T) {
	plan := testPlan("price_sup_m")
	f := newBillingFixture(plan)
	user := f.addUser(t, "")

	f.stripe.session = &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.test/cs_1"}

	resp, err := f.svc.CreateSubscriptionCheckout(context.Background(), user, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, "cs_1", resp.SessionID)
	assert.Equal(t, "https://checkout.stripe.test/cs_1", resp.URL)

	// First checkout creates the Stripe customer and persists its id
	assert.Equal(t, 1, f.stripe.createdCustomers)
	stored, err := f.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "cus_new", stored.StripeCustomerID)
}

func TestBillingService_CreateSubscriptionCheckout_ReusesCustomer(t *testing.T) {
	plan := testPlan("price_sup_m")
	f := newBillingFixture(plan)
	user := f.addUser(t, "cus_existing")

	f.stripe.session = &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.test/cs_1"}

	_, err := f.svc.CreateSubscriptionCheckout(context.Background(), user, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, f.stripe.createdCustomers)
}

func TestBillingService_CreateSubscriptionCheckout_InactivePlan(t *testing.T) {
	plan := testPlan("price_old")
	plan.Active = false
	f := newBillingFixture(plan)
	user := f.addUser(t, "cus_1")

	_, err := f.svc.CreateSubscriptionCheckout(context.Background(), user, plan.ID)
	assert.ErrorIs(t, err, domain.ErrPlanInactive)
}

func TestBillingService_CreateDonationCheckout_PendingRow(t *testing.T) {
	f := newBillingFixture()
	user := f.addUser(t, "cus_1")

	f.stripe.session = &stripe.CheckoutSession{ID: "cs_don_1", URL: "https://checkout.stripe.test/cs_don_1"}

	resp, err := f.svc.CreateDonationCheckout(context.Background(), user, domain.DonationRequest{
		AmountCents: 2500,
		Currency:    "usd",
		Message:     "for the roof fund",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_don_1", resp.SessionID)

	donation, err := f.donations.GetByCheckoutSessionID(context.Background(), "cs_don_1")
	require.NoError(t, err)
	assert.Equal(t, domain.DonationStatusPending, donation.Status)
	assert.Equal(t, int64(2500), donation.AmountCents)
	require.NotNil(t, donation.UserID)
	assert.Equal(t, user.ID, *donation.UserID)

	// Pending rows never count as revenue
	sum, err := f.donations.SumSucceededCents(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum)
}

func TestBillingService_CancelSubscription(t *testing.T) {
	plan := testPlan("price_sup_m")
	f := newBillingFixture(plan)
	user := f.addUser(t, "cus_1")

	_, err := f.subscriptions.Upsert(context.Background(), domain.Subscription{
		ID:                   uuid.New(),
		UserID:               user.ID,
		PlanID:               plan.ID,
		Status:               domain.SubscriptionStatusActive,
		StripeSubscriptionID: "sub_1",
		ProviderUpdatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)

	sub, err := f.svc.CancelSubscription(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Equal(t, []string{"sub_1"}, f.stripe.canceledSubs)
	// Still entitling until the deletion webhook arrives
	assert.Equal(t, domain.SubscriptionStatusActive, sub.Status)
}

func TestBillingService_CancelSubscription_NoneActive(t *testing.T) {
	f := newBillingFixture()
	user := f.addUser(t, "cus_1")

	_, err := f.svc.CancelSubscription(context.Background(), user)
	assert.ErrorIs(t, err, domain.ErrNoActiveSubscription)
}

func TestBillingService_ListUserPayments(t *testing.T) {
	f := newBillingFixture()
	user := f.addUser(t, "cus_1")

	ctx := context.Background()
	other, err := f.users.Create(ctx, domain.User{
		ID: uuid.New(), Name: "Ben", Email: "ben@example.com",
		Role: domain.UserRoleUser, StripeCustomerID: "cus_2",
	})
	require.NoError(t, err)
	for i, invoiceID := range []string{"in_1", "in_2"} {
		_, err := f.payments.Create(ctx, domain.Payment{
			ID:              uuid.New(),
			UserID:          user.ID,
			AmountCents:     int64(1000 * (i + 1)),
			Currency:        "usd",
			Status:          domain.PaymentStatusSucceeded,
			StripeInvoiceID: invoiceID,
		})
		require.NoError(t, err)
	}
	_, err = f.payments.Create(ctx, domain.Payment{
		ID: uuid.New(), UserID: other.ID, AmountCents: 500, Currency: "usd",
		Status: domain.PaymentStatusSucceeded, StripeInvoiceID: "in_3",
	})
	require.NoError(t, err)

	payments, err := f.svc.ListUserPayments(ctx, user.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	for _, p := range payments {
		assert.Equal(t, user.ID, p.UserID)
	}

	page, err := f.svc.ListUserPayments(ctx, user.ID, 1, 1)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}
