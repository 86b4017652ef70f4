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

// PlanRepository is the PostgreSQL implementation of repository.PlanRepository
type PlanRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPlanRepository creates a new PostgreSQL plan repository
func NewPlanRepository(db *pgxpool.Pool, log *logger.Logger) *PlanRepository {
	return &PlanRepository{db: db, log: log}
}

const planColumns = `id, name, description, amount_cents, currency, interval, features, stripe_price_id, active, created_at, updated_at`

func scanPlan(row pgx.Row) (domain.SubscriptionPlan, error) {
	var p domain.SubscriptionPlan
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.AmountCents,
		&p.Currency,
		&p.Interval,
		&p.Features,
		&p.StripePriceID,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

// GetAll returns the plan catalog, optionally filtered to active plans
func (r *PlanRepository) GetAll(ctx context.Context, activeOnly bool) ([]domain.SubscriptionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY amount_cents`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var plans []domain.SubscriptionPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, plan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plans: %w", err)
	}

	return plans, nil
}

// GetByID returns a plan by primary key
func (r *PlanRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.SubscriptionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE id = $1`

	plan, err := scanPlan(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SubscriptionPlan{}, repository.ErrNotFound
		}
		return domain.SubscriptionPlan{}, fmt.Errorf("failed to get plan: %w", err)
	}

	return plan, nil
}

// GetByStripePriceID returns the plan mirroring a Stripe price
func (r *PlanRepository) GetByStripePriceID(ctx context.Context, priceID string) (domain.SubscriptionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE stripe_price_id = $1`

	plan, err := scanPlan(r.db.QueryRow(ctx, query, priceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SubscriptionPlan{}, repository.ErrNotFound
		}
		return domain.SubscriptionPlan{}, fmt.Errorf("failed to get plan by price: %w", err)
	}

	return plan, nil
}
