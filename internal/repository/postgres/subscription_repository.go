package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/repository"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

// SubscriptionRepository is the PostgreSQL implementation of
// repository.SubscriptionRepository
type SubscriptionRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewSubscriptionRepository creates a new PostgreSQL subscription repository
func NewSubscriptionRepository(db *pgxpool.Pool, log *logger.Logger) *SubscriptionRepository {
	return &SubscriptionRepository{db: db, log: log}
}

const subscriptionColumns = `id, user_id, plan_id, status, stripe_subscription_id, current_period_start, current_period_end, cancel_at_period_end, canceled_at, provider_updated_at, created_at, updated_at`

func scanSubscription(row pgx.Row) (domain.Subscription, error) {
	var s domain.Subscription
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.PlanID,
		&s.Status,
		&s.StripeSubscriptionID,
		&s.CurrentPeriodStart,
		&s.CurrentPeriodEnd,
		&s.CancelAtPeriodEnd,
		&s.CanceledAt,
		&s.ProviderUpdatedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

// Upsert inserts or updates the row keyed by the Stripe subscription id.
// The update is guarded on provider_updated_at so an event older than the
// stored state cannot overwrite fresher fields; the stale case surfaces as
// ErrInvalidData.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	query := `
		INSERT INTO subscriptions (
			id, user_id, plan_id, status, stripe_subscription_id,
			current_period_start, current_period_end, cancel_at_period_end,
			canceled_at, provider_updated_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		ON CONFLICT (stripe_subscription_id) DO UPDATE SET
			plan_id              = EXCLUDED.plan_id,
			status               = EXCLUDED.status,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end   = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			canceled_at          = EXCLUDED.canceled_at,
			provider_updated_at  = EXCLUDED.provider_updated_at,
			updated_at           = now()
		WHERE subscriptions.provider_updated_at <= EXCLUDED.provider_updated_at
		RETURNING ` + subscriptionColumns

	row := r.db.QueryRow(ctx, query,
		sub.ID, sub.UserID, sub.PlanID, sub.Status, sub.StripeSubscriptionID,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd,
		sub.CanceledAt, sub.ProviderUpdatedAt,
	)

	saved, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Conflict row exists but the WHERE guard rejected the update
			return domain.Subscription{}, repository.ErrInvalidData
		}
		return domain.Subscription{}, fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return saved, nil
}

// GetByUserID returns the user's most recent subscription
func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (domain.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	sub, err := scanSubscription(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Subscription{}, repository.ErrNotFound
		}
		return domain.Subscription{}, fmt.Errorf("failed to get subscription by user: %w", err)
	}

	return sub, nil
}

// GetByStripeID returns the row mirroring a Stripe subscription
func (r *SubscriptionRepository) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE stripe_subscription_id = $1`

	sub, err := scanSubscription(r.db.QueryRow(ctx, query, stripeSubscriptionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Subscription{}, repository.ErrNotFound
		}
		return domain.Subscription{}, fmt.Errorf("failed to get subscription by stripe id: %w", err)
	}

	return sub, nil
}

// CountByStatus returns the number of subscriptions in a lifecycle state
func (r *SubscriptionRepository) CountByStatus(ctx context.Context, status domain.SubscriptionStatus) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM subscriptions WHERE status = $1`, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return n, nil
}

// ListAll returns every subscription, oldest first
func (r *SubscriptionRepository) ListAll(ctx context.Context) ([]domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriptions: %w", err)
	}

	return subs, nil
}
