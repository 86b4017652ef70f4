package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/repository"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

// TokenClaims are the JWT claims issued at login. Subject carries the user id.
type TokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService handles registration, login and token verification
type AuthService interface {
	// Register creates an account with role user and returns it with a token.
	Register(ctx context.Context, req domain.RegisterRequest) (domain.AuthResponse, error)

	// Login verifies credentials and returns the user with a fresh token.
	Login(ctx context.Context, req domain.LoginRequest) (domain.AuthResponse, error)

	// ValidateToken checks the signature and expiry, then loads the user row.
	// A token whose user no longer exists is as invalid as a bad signature.
	ValidateToken(ctx context.Context, tokenString string) (domain.User, error)
}

type authService struct {
	users    repository.UserRepository
	secret   []byte
	tokenTTL time.Duration
	cost     int
	log      *logger.Logger
}

// NewAuthService creates the auth service
func NewAuthService(users repository.UserRepository, secret string, tokenTTL time.Duration, bcryptCost int, log *logger.Logger) AuthService {
	return &authService{
		users:    users,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		cost:     bcryptCost,
		log:      log,
	}
}

// Register creates an account with role user and returns it with a token
func (s *authService) Register(ctx context.Context, req domain.RegisterRequest) (domain.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return domain.AuthResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := domain.User{
		ID:                 uuid.New(),
		Name:               strings.TrimSpace(req.Name),
		Email:              email,
		PasswordHash:       string(hash),
		Role:               domain.UserRoleUser,
		SubscriptionStatus: domain.SubscriptionStatusNone,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.AuthResponse{}, domain.ErrEmailTaken
		}
		return domain.AuthResponse{}, err
	}

	token, err := s.issueToken(created)
	if err != nil {
		return domain.AuthResponse{}, err
	}

	s.log.Infow("User registered", "userID", created.ID, "email", created.Email)
	return domain.AuthResponse{Token: token, User: created}, nil
}

// Login verifies credentials and returns the user with a fresh token
func (s *authService) Login(ctx context.Context, req domain.LoginRequest) (domain.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Same error as a wrong password, no account enumeration
			return domain.AuthResponse{}, domain.ErrInvalidCredentials
		}
		return domain.AuthResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return domain.AuthResponse{}, domain.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warnw("Failed to stamp last login", "error", err, "userID", user.ID)
	}
	user.LastLoginAt = &now

	token, err := s.issueToken(user)
	if err != nil {
		return domain.AuthResponse{}, err
	}

	return domain.AuthResponse{Token: token, User: user}, nil
}

// ValidateToken checks signature and expiry, then loads the user row
func (s *authService) ValidateToken(ctx context.Context, tokenString string) (domain.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return domain.User{}, errors.New("malformed token")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return domain.User{}, errors.New("invalid token signature")
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return domain.User{}, errors.New("token expired")
		default:
			return domain.User{}, fmt.Errorf("invalid token: %w", err)
		}
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return domain.User{}, errors.New("invalid token claims")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.User{}, errors.New("invalid subject claim")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, errors.New("user no longer exists")
		}
		return domain.User{}, err
	}

	return user, nil
}

func (s *authService) issueToken(user domain.User) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Email: user.Email,
		Role:  string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
