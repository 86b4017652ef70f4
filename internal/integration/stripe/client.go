package stripe

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/parishkeep/parishkeep/pkg/logger"
)

// Metadata keys used to reconcile checkout sessions on the completion webhook
const (
	MetadataUserIDKey    = "user_id"
	MetadataPriceIDKey   = "price_id"
	MetadataTypeKey      = "type"
	MetadataTypeDonation = "one_time_donation"
)

// Client defines the Stripe operations the billing service needs.
type Client interface {
	// CreateCustomer creates a Stripe customer and returns its id.
	CreateCustomer(ctx context.Context, userID, email, name string) (string, error)

	// CreateSubscriptionCheckoutSession starts a hosted recurring checkout.
	CreateSubscriptionCheckoutSession(ctx context.Context, p CheckoutParams) (*stripe.CheckoutSession, error)

	// CreateDonationCheckoutSession starts a hosted one-time checkout.
	CreateDonationCheckoutSession(ctx context.Context, p DonationParams) (*stripe.CheckoutSession, error)

	// GetSubscription fetches the current subscription state from Stripe.
	GetSubscription(ctx context.Context, stripeSubscriptionID string) (*stripe.Subscription, error)

	// CancelSubscriptionAtPeriodEnd flags the subscription to lapse upstream.
	CancelSubscriptionAtPeriodEnd(ctx context.Context, stripeSubscriptionID string) (*stripe.Subscription, error)
}

// CheckoutParams describes a recurring checkout session
type CheckoutParams struct {
	CustomerID string
	UserID     string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// DonationParams describes a one-time donation checkout session
type DonationParams struct {
	CustomerID  string
	UserID      string
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// stripeClient implements Client over the official SDK.
type stripeClient struct {
	client *client.API
	log    *logger.Logger
}

// NewClient creates a Stripe API client
func NewClient(apiKey string, log *logger.Logger) Client {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &stripeClient{client: sc, log: log}
}

// CreateCustomer creates a Stripe customer tagged with the platform user id
func (sc *stripeClient) CreateCustomer(ctx context.Context, userID, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
		Metadata: map[string]string{
			MetadataUserIDKey: userID,
		},
	}
	params.Context = ctx

	cus, err := sc.client.Customers.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateCustomer", err)
		return "", fmt.Errorf("stripe: failed to create customer: %w", err)
	}

	sc.log.Infow("Stripe customer created", "stripeCustomerID", cus.ID, "userID", userID)
	return cus.ID, nil
}

// CreateSubscriptionCheckoutSession starts a hosted recurring checkout
func (sc *stripeClient) CreateSubscriptionCheckoutSession(ctx context.Context, p CheckoutParams) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(p.CustomerID),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserIDKey, p.UserID)
	params.AddMetadata(MetadataPriceIDKey, p.PriceID)

	sess, err := sc.client.CheckoutSessions.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateSubscriptionCheckoutSession", err)
		return nil, fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}

	sc.log.Infow("Stripe checkout session created", "sessionID", sess.ID, "userID", p.UserID, "priceID", p.PriceID)
	return sess, nil
}

// CreateDonationCheckoutSession starts a hosted one-time checkout using
// ad hoc price data instead of a catalog price
func (sc *stripeClient) CreateDonationCheckoutSession(ctx context.Context, p DonationParams) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(p.Currency),
					UnitAmount: stripe.Int64(p.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("One-time donation"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	}
	params.AddMetadata(MetadataUserIDKey, p.UserID)
	params.AddMetadata(MetadataTypeKey, MetadataTypeDonation)

	sess, err := sc.client.CheckoutSessions.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateDonationCheckoutSession", err)
		return nil, fmt.Errorf("stripe: failed to create donation session: %w", err)
	}

	sc.log.Infow("Stripe donation session created", "sessionID", sess.ID, "userID", p.UserID)
	return sess, nil
}

// GetSubscription fetches the current subscription state from Stripe
func (sc *stripeClient) GetSubscription(ctx context.Context, stripeSubscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := sc.client.Subscriptions.Get(stripeSubscriptionID, params)
	if err != nil {
		logStripeError(sc.log, "GetSubscription", err)
		return nil, fmt.Errorf("stripe: failed to get subscription: %w", err)
	}

	return sub, nil
}

// CancelSubscriptionAtPeriodEnd flags the subscription to lapse upstream
func (sc *stripeClient) CancelSubscriptionAtPeriodEnd(ctx context.Context, stripeSubscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	sub, err := sc.client.Subscriptions.Update(stripeSubscriptionID, params)
	if err != nil {
		logStripeError(sc.log, "CancelSubscriptionAtPeriodEnd", err)
		return nil, fmt.Errorf("stripe: failed to cancel subscription: %w", err)
	}

	sc.log.Infow("Stripe subscription flagged for cancellation", "stripeSubscriptionID", sub.ID)
	return sub, nil
}

// logStripeError logs the structured Stripe error details when available
func logStripeError(log *logger.Logger, op string, err error) {
	if stripeErr, ok := err.(*stripe.Error); ok {
		log.Errorw("Stripe API error",
			"op", op,
			"code", stripeErr.Code,
			"type", stripeErr.Type,
			"message", stripeErr.Msg,
		)
		return
	}
	log.Errorw("Stripe call failed", "op", op, "error", err)
}
