package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/repository/memory"
)

func TestAdminService_Stats(t *testing.T) {
	users := memory.NewUserRepository()
	plans := memory.NewPlanRepository()
	subscriptions := memory.NewSubscriptionRepository()
	payments := memory.NewPaymentRepository()
	donations := memory.NewDonationRepository()
	posts := memory.NewPostRepository()
	events := memory.NewWebhookEventRepository()
	svc := NewAdminService(users, plans, subscriptions, payments, donations, posts, events, nil, newTestLogger())

	ctx := context.Background()

	user, err := users.Create(ctx, domain.User{ID: uuid.New(), Email: "anna@example.com"})
	require.NoError(t, err)

	_, err = subscriptions.Upsert(ctx, domain.Subscription{
		ID: uuid.New(), UserID: user.ID, PlanID: uuid.New(),
		Status:               domain.SubscriptionStatusActive,
		StripeSubscriptionID: "sub_1",
		ProviderUpdatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)

	_, err = payments.Create(ctx, domain.Payment{
		ID: uuid.New(), UserID: user.ID, AmountCents: 1000, Currency: "usd",
		Status: domain.PaymentStatusSucceeded, StripeInvoiceID: "in_1",
	})
	require.NoError(t, err)
	_, err = payments.Create(ctx, domain.Payment{
		ID: uuid.New(), UserID: user.ID, AmountCents: 1000, Currency: "usd",
		Status: domain.PaymentStatusFailed, StripeInvoiceID: "in_2",
	})
	require.NoError(t, err)

	_, err = donations.Create(ctx, domain.Donation{
		ID: uuid.New(), AmountCents: 2500, Currency: "usd",
		Status: domain.DonationStatusSucceeded, StripeCheckoutSessionID: "cs_1",
	})
	require.NoError(t, err)
	_, err = donations.Create(ctx, domain.Donation{
		ID: uuid.New(), AmountCents: 9999, Currency: "usd",
		Status: domain.DonationStatusPending, StripeCheckoutSessionID: "cs_2",
	})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.ActiveSubscriptions)
	assert.Zero(t, stats.PastDueSubscriptions)
	// Failed payments and pending donations never count as revenue
	assert.Equal(t, int64(1000), stats.PaymentRevenueCents)
	assert.Equal(t, int64(2500), stats.DonationRevenueCents)
	assert.Equal(t, int64(3500), stats.TotalRevenueCents)
}

func TestAdminService_ExportStripsPasswordHashes(t *testing.T) {
	users := memory.NewUserRepository()
	plans := memory.NewPlanRepository(domain.SubscriptionPlan{
		ID: uuid.New(), Name: "Partner", StripePriceID: "price_1", Active: true,
	})
	posts := memory.NewPostRepository()
	svc := NewAdminService(
		users, plans,
		memory.NewSubscriptionRepository(),
		memory.NewPaymentRepository(),
		memory.NewDonationRepository(),
		posts,
		memory.NewWebhookEventRepository(),
		nil,
		newTestLogger(),
	)

	ctx := context.Background()
	_, err := users.Create(ctx, domain.User{
		ID: uuid.New(), Email: "anna@example.com", PasswordHash: "$2a$10$secret",
	})
	require.NoError(t, err)

	export, err := svc.Export(ctx)
	require.NoError(t, err)

	require.Len(t, export.Users, 1)
	assert.Empty(t, export.Users[0].PasswordHash)
	assert.Len(t, export.Plans, 1)
	assert.False(t, export.ExportedAt.IsZero())
}

func TestAdminService_DatabaseStatus_NoPool(t *testing.T) {
	svc := NewAdminService(
		memory.NewUserRepository(),
		memory.NewPlanRepository(),
		memory.NewSubscriptionRepository(),
		memory.NewPaymentRepository(),
		memory.NewDonationRepository(),
		memory.NewPostRepository(),
		memory.NewWebhookEventRepository(),
		nil,
		newTestLogger(),
	)

	status := svc.DatabaseStatus(context.Background())
	assert.False(t, status.Reachable)
	assert.NotEmpty(t, status.Error)
}
