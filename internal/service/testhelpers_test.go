package service

import (
	"context"
	"io"

	"github.com/stripe/stripe-go/v78"

	stripeclient "github.com/parishkeep/parishkeep/internal/integration/stripe"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

func newTestLogger() *logger.Logger {
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)
	return log
}

// fakeStripeClient satisfies the Stripe client interface with canned results
type fakeStripeClient struct {
	customerID string
	session    *stripe.CheckoutSession
	sub        *stripe.Subscription
	err        error

	createdCustomers int
	canceledSubs     []string
}

func (f *fakeStripeClient) CreateCustomer(ctx context.Context, userID, email, name string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.createdCustomers++
	return f.customerID, nil
}

func (f *fakeStripeClient) CreateSubscriptionCheckoutSession(ctx context.Context, p stripeclient.CheckoutParams) (*stripe.CheckoutSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeStripeClient) CreateDonationCheckoutSession(ctx context.Context, p stripeclient.DonationParams) (*stripe.CheckoutSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeStripeClient) GetSubscription(ctx context.Context, stripeSubscriptionID string) (*stripe.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}

func (f *fakeStripeClient) CancelSubscriptionAtPeriodEnd(ctx context.Context, stripeSubscriptionID string) (*stripe.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.canceledSubs = append(f.canceledSubs, stripeSubscriptionID)
	if f.sub != nil {
		return f.sub, nil
	}
	return &stripe.Subscription{ID: stripeSubscriptionID, CancelAtPeriodEnd: true}, nil
}
