package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/repository"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

// PaymentRepository is the PostgreSQL implementation of
// repository.PaymentRepository
type PaymentRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPaymentRepository creates a new PostgreSQL payment repository
func NewPaymentRepository(db *pgxpool.Pool, log *logger.Logger) *PaymentRepository {
	return &PaymentRepository{db: db, log: log}
}

const paymentColumns = `id, user_id, subscription_id, amount_cents, currency, status, stripe_invoice_id, failure_message, created_at`

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.SubscriptionID,
		&p.AmountCents,
		&p.Currency,
		&p.Status,
		&p.StripeInvoiceID,
		&p.FailureMessage,
		&p.CreatedAt,
	)
	return p, err
}

// Create inserts a settlement record. The unique index on stripe_invoice_id
// makes a redelivered invoice event surface as ErrDuplicate instead of a
// second row.
func (r *PaymentRepository) Create(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	query := `
		INSERT INTO payments (id, user_id, subscription_id, amount_cents, currency, status, stripe_invoice_id, failure_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING ` + paymentColumns

	row := r.db.QueryRow(ctx, query,
		payment.ID, payment.UserID, payment.SubscriptionID, payment.AmountCents,
		payment.Currency, payment.Status, payment.StripeInvoiceID, payment.FailureMessage,
	)

	created, err := scanPayment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Payment{}, repository.ErrDuplicate
		}
		return domain.Payment{}, fmt.Errorf("failed to create payment: %w", err)
	}

	return created, nil
}

// GetByStripeInvoiceID returns the settlement record for a Stripe invoice
func (r *PaymentRepository) GetByStripeInvoiceID(ctx context.Context, invoiceID string) (domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE stripe_invoice_id = $1`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, invoiceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Payment{}, repository.ErrNotFound
		}
		return domain.Payment{}, fmt.Errorf("failed to get payment by invoice: %w", err)
	}

	return payment, nil
}

// ListByUserID returns a user's settlement history
func (r *PaymentRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}

	return payments, nil
}

// SumSucceededCents aggregates settled subscription revenue
func (r *PaymentRepository) SumSucceededCents(ctx context.Context) (int64, error) {
	var sum int64
	query := `SELECT coalesce(sum(amount_cents), 0) FROM payments WHERE status = $1`
	if err := r.db.QueryRow(ctx, query, domain.PaymentStatusSucceeded).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum payments: %w", err)
	}
	return sum, nil
}

// ListAll returns every settlement record, oldest first
func (r *PaymentRepository) ListAll(ctx context.Context) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}

	return payments, nil
}
