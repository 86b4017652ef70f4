package domain

import "errors"

var (
	// ErrInvalidCredentials wrong email/password pair
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken registration with an already-registered email
	ErrEmailTaken = errors.New("email already registered")

	// ErrNoActiveSubscription caller has no entitling subscription
	ErrNoActiveSubscription = errors.New("no active subscription")

	// ErrPlanInactive checkout requested against a disabled plan
	ErrPlanInactive = errors.New("plan is not active")

	// ErrStaleEvent webhook event is older than the stored provider state
	ErrStaleEvent = errors.New("stale webhook event")
)
