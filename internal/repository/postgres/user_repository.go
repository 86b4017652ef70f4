package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/repository"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

const uniqueViolation = "23505"

// UserRepository is the PostgreSQL implementation of repository.UserRepository
type UserRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *pgxpool.Pool, log *logger.Logger) *UserRepository {
	return &UserRepository{db: db, log: log}
}

const userColumns = `id, name, email, password_hash, role, subscription_status, stripe_customer_id, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.SubscriptionStatus,
		&u.StripeCustomerID,
		&u.LastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, subscription_status, stripe_customer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING ` + userColumns

	now := time.Now().UTC()
	row := r.db.QueryRow(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash,
		user.Role, user.SubscriptionStatus, user.StripeCustomerID, now,
	)

	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.User{}, repository.ErrDuplicate
		}
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return created, nil
}

// GetByID returns a user by primary key
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, repository.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByEmail returns a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, repository.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// GetByStripeCustomerID returns the user owning a Stripe customer id
func (r *UserRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE stripe_customer_id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, repository.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("failed to get user by stripe customer: %w", err)
	}

	return user, nil
}

// SetStripeCustomerID persists the billing customer reference
func (r *UserRepository) SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	query := `UPDATE users SET stripe_customer_id = $1, updated_at = now() WHERE id = $2`

	tag, err := r.db.Exec(ctx, query, customerID, id)
	if err != nil {
		return fmt.Errorf("failed to set stripe customer id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetSubscriptionStatus updates the denormalized subscription status mirror
func (r *UserRepository) SetSubscriptionStatus(ctx context.Context, id uuid.UUID, status domain.SubscriptionStatus) error {
	query := `UPDATE users SET subscription_status = $1, updated_at = now() WHERE id = $2`

	tag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to set subscription status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// TouchLastLogin stamps the last successful login time
func (r *UserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE users SET last_login_at = $1, updated_at = now() WHERE id = $2`

	if _, err := r.db.Exec(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to touch last login: %w", err)
	}

	return nil
}

// Count returns the total number of users
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// ListAll returns every user, oldest first. Used by the admin backup export.
func (r *UserRepository) ListAll(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}
