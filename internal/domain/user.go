package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserRole controls access to role-gated routes
type UserRole string

const (
	UserRoleUser       UserRole = "user"
	UserRoleAdmin      UserRole = "admin"
	UserRoleSuperadmin UserRole = "superadmin"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleUser, UserRoleAdmin, UserRoleSuperadmin:
		return true
	}
	return false
}

// User represents a platform account. SubscriptionStatus is a denormalized
// mirror of the user's current subscription, maintained by webhook processing.
type User struct {
	ID                 uuid.UUID          `json:"id"`
	Name               string             `json:"name"`
	Email              string             `json:"email"`
	PasswordHash       string             `json:"-"`
	Role               UserRole           `json:"role"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status,omitempty"`
	StripeCustomerID   string             `json:"stripe_customer_id,omitempty"`
	LastLoginAt        *time.Time         `json:"last_login_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// RegisterRequest is the payload for account creation
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest is the payload for credential login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries the issued token and the public user view
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
