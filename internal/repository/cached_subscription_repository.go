package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

// CachedSubscriptionRepository decorates a SubscriptionRepository with a
// Redis read-through cache. The subscription gate hits GetByUserID on every
// protected request, which is why this lookup is the one worth caching.
// Cache failures degrade to the underlying repository, never to an error.
type CachedSubscriptionRepository struct {
	inner SubscriptionRepository
	cache *RedisCache
	log   *logger.Logger
}

// NewCachedSubscriptionRepository wraps inner with caching
func NewCachedSubscriptionRepository(inner SubscriptionRepository, cache *RedisCache, log *logger.Logger) *CachedSubscriptionRepository {
	return &CachedSubscriptionRepository{inner: inner, cache: cache, log: log}
}

// Upsert writes through and invalidates both lookup keys
func (r *CachedSubscriptionRepository) Upsert(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	saved, err := r.inner.Upsert(ctx, sub)
	if err != nil {
		return domain.Subscription{}, err
	}

	keys := []string{
		subscriptionKeyPrefix + saved.StripeSubscriptionID,
		userSubscriptionKeyPrefix + saved.UserID.String(),
	}
	if err := r.cache.Delete(ctx, keys...); err != nil {
		r.log.Warnw("Failed to invalidate subscription cache", "error", err, "stripeSubscriptionID", saved.StripeSubscriptionID)
	}

	return saved, nil
}

// GetByUserID reads through the cache
func (r *CachedSubscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (domain.Subscription, error) {
	key := userSubscriptionKeyPrefix + userID.String()

	var cached domain.Subscription
	err := r.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		r.log.Warnw("Subscription cache read failed", "error", err, "userID", userID)
	}

	sub, err := r.inner.GetByUserID(ctx, userID)
	if err != nil {
		return domain.Subscription{}, err
	}

	if err := r.cache.Set(ctx, key, sub); err != nil {
		r.log.Warnw("Subscription cache write failed", "error", err, "userID", userID)
	}

	return sub, nil
}

// GetByStripeID reads through the cache
func (r *CachedSubscriptionRepository) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (domain.Subscription, error) {
	key := subscriptionKeyPrefix + stripeSubscriptionID

	var cached domain.Subscription
	err := r.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		r.log.Warnw("Subscription cache read failed", "error", err, "stripeSubscriptionID", stripeSubscriptionID)
	}

	sub, err := r.inner.GetByStripeID(ctx, stripeSubscriptionID)
	if err != nil {
		return domain.Subscription{}, err
	}

	if err := r.cache.Set(ctx, key, sub); err != nil {
		r.log.Warnw("Subscription cache write failed", "error", err, "stripeSubscriptionID", stripeSubscriptionID)
	}

	return sub, nil
}

// CountByStatus is not cached; it only serves admin stats
func (r *CachedSubscriptionRepository) CountByStatus(ctx context.Context, status domain.SubscriptionStatus) (int64, error) {
	return r.inner.CountByStatus(ctx, status)
}

// ListAll is not cached; it only serves the admin backup export
func (r *CachedSubscriptionRepository) ListAll(ctx context.Context) ([]domain.Subscription, error) {
	return r.inner.ListAll(ctx)
}
