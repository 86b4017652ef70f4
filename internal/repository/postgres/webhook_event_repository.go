package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/repository"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

// WebhookEventRepository is the PostgreSQL implementation of the idempotency
// ledger for Stripe events
type WebhookEventRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewWebhookEventRepository creates a new PostgreSQL webhook event repository
func NewWebhookEventRepository(db *pgxpool.Pool, log *logger.Logger) *WebhookEventRepository {
	return &WebhookEventRepository{db: db, log: log}
}

// Create records an event id. ON CONFLICT DO NOTHING plus the affected-rows
// check turns a replayed event into ErrDuplicate without racing a second
// delivery of the same event.
func (r *WebhookEventRepository) Create(ctx context.Context, event domain.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (stripe_event_id, type, status, note, received_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (stripe_event_id) DO NOTHING`

	tag, err := r.db.Exec(ctx, query, event.StripeEventID, event.Type, event.Status, event.Note)
	if err != nil {
		return fmt.Errorf("failed to record webhook event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrDuplicate
	}

	return nil
}

// UpdateStatus rewrites the recorded outcome of a claimed event
func (r *WebhookEventRepository) UpdateStatus(ctx context.Context, stripeEventID string, status domain.WebhookEventStatus, note string) error {
	query := `UPDATE webhook_events SET status = $1, note = $2 WHERE stripe_event_id = $3`

	tag, err := r.db.Exec(ctx, query, status, note, stripeEventID)
	if err != nil {
		return fmt.Errorf("failed to update webhook event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete releases an event claim so the provider's retry can reprocess it
func (r *WebhookEventRepository) Delete(ctx context.Context, stripeEventID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM webhook_events WHERE stripe_event_id = $1`, stripeEventID); err != nil {
		return fmt.Errorf("failed to delete webhook event: %w", err)
	}
	return nil
}

// CountByStatus returns the number of events with a given outcome
func (r *WebhookEventRepository) CountByStatus(ctx context.Context, status domain.WebhookEventStatus) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM webhook_events WHERE status = $1`, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count webhook events: %w", err)
	}
	return n, nil
}
