package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/repository"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

// DonationRepository is the PostgreSQL implementation of
// repository.DonationRepository
type DonationRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewDonationRepository creates a new PostgreSQL donation repository
func NewDonationRepository(db *pgxpool.Pool, log *logger.Logger) *DonationRepository {
	return &DonationRepository{db: db, log: log}
}

const donationColumns = `id, user_id, amount_cents, currency, status, stripe_checkout_session_id, donor_email, message, created_at, updated_at`

func scanDonation(row pgx.Row) (domain.Donation, error) {
	var d domain.Donation
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.AmountCents,
		&d.Currency,
		&d.Status,
		&d.StripeCheckoutSessionID,
		&d.DonorEmail,
		&d.Message,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}

// Create inserts a pending donation keyed by the checkout session id
func (r *DonationRepository) Create(ctx context.Context, donation domain.Donation) (domain.Donation, error) {
	query := `
		INSERT INTO donations (id, user_id, amount_cents, currency, status, stripe_checkout_session_id, donor_email, message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING ` + donationColumns

	row := r.db.QueryRow(ctx, query,
		donation.ID, donation.UserID, donation.AmountCents, donation.Currency,
		donation.Status, donation.StripeCheckoutSessionID, donation.DonorEmail, donation.Message,
	)

	created, err := scanDonation(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Donation{}, repository.ErrDuplicate
		}
		return domain.Donation{}, fmt.Errorf("failed to create donation: %w", err)
	}

	return created, nil
}

// GetByCheckoutSessionID returns the donation for a checkout session
func (r *DonationRepository) GetByCheckoutSessionID(ctx context.Context, sessionID string) (domain.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE stripe_checkout_session_id = $1`

	donation, err := scanDonation(r.db.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Donation{}, repository.ErrNotFound
		}
		return domain.Donation{}, fmt.Errorf("failed to get donation by session: %w", err)
	}

	return donation, nil
}

// SetStatus resolves a donation's outcome by checkout session id
func (r *DonationRepository) SetStatus(ctx context.Context, sessionID string, status domain.DonationStatus) error {
	query := `UPDATE donations SET status = $1, updated_at = now() WHERE stripe_checkout_session_id = $2`

	tag, err := r.db.Exec(ctx, query, status, sessionID)
	if err != nil {
		return fmt.Errorf("failed to set donation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SumSucceededCents aggregates settled donation revenue
func (r *DonationRepository) SumSucceededCents(ctx context.Context) (int64, error) {
	var sum int64
	query := `SELECT coalesce(sum(amount_cents), 0) FROM donations WHERE status = $1`
	if err := r.db.QueryRow(ctx, query, domain.DonationStatusSucceeded).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum donations: %w", err)
	}
	return sum, nil
}

// ListAll returns every donation, oldest first
func (r *DonationRepository) ListAll(ctx context.Context) ([]domain.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query donations: %w", err)
	}
	defer rows.Close()

	var donations []domain.Donation
	for rows.Next() {
		donation, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		donations = append(donations, donation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating donations: %w", err)
	}

	return donations, nil
}
