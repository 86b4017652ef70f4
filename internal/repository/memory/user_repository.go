package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/repository"
)

// UserRepository is an in-memory implementation of repository.UserRepository,
// used by tests and local development without a database.
type UserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]domain.User
}

// NewUserRepository creates an empty in-memory user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[uuid.UUID]domain.User)}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return domain.User{}, repository.ErrDuplicate
		}
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user

	return user, nil
}

// GetByID returns a user by id
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return user, nil
}

// GetByEmail returns a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return domain.User{}, repository.ErrNotFound
}

// GetByStripeCustomerID returns the user owning a Stripe customer id
func (r *UserRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.StripeCustomerID != "" && user.StripeCustomerID == customerID {
			return user, nil
		}
	}
	return domain.User{}, repository.ErrNotFound
}

// SetStripeCustomerID persists the billing customer reference
func (r *UserRepository) SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.StripeCustomerID = customerID
	user.UpdatedAt = time.Now().UTC()
	r.users[id] = user
	return nil
}

// SetSubscriptionStatus updates the denormalized status mirror
func (r *UserRepository) SetSubscriptionStatus(ctx context.Context, id uuid.UUID, status domain.SubscriptionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.SubscriptionStatus = status
	user.UpdatedAt = time.Now().UTC()
	r.users[id] = user
	return nil
}

// TouchLastLogin stamps the last successful login time
func (r *UserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.LastLoginAt = &at
	r.users[id] = user
	return nil
}

// Count returns the number of users
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}

// SetRole changes a user's role
func (r *UserRepository) SetRole(ctx context.Context, id uuid.UUID, role domain.UserRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Role = role
	r.users[id] = user
	return nil
}

// Delete removes a user
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// ListAll returns every user
func (r *UserRepository) ListAll(ctx context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, user)
	}
	return out, nil
}
