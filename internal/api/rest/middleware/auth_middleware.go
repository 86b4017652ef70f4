package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/service"
	"github.com/parishkeep/parishkeep/pkg/logger"
	"github.com/parishkeep/parishkeep/pkg/res"
)

// ContextUserKey is where RequireAuth stores the authenticated user
const ContextUserKey = "authUser"

const authHeaderPrefix = "Bearer "

// AuthMiddleware guards routes behind JWT authentication and role or
// subscription requirements.
type AuthMiddleware struct {
	auth service.AuthService
	log  *logger.Logger
}

// NewAuthMiddleware creates the auth middleware
func NewAuthMiddleware(auth service.AuthService, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{auth: auth, log: log}
}

// RequireAuth validates the bearer token and stores the loaded user in the
// request context. The user row is loaded fresh on every request, so a
// deleted account is rejected even while its token is still unexpired.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			m.abortUnauthorized(c, "missing authorization token")
			return
		}
		if len(authHeader) <= len(authHeaderPrefix) || authHeader[:len(authHeaderPrefix)] != authHeaderPrefix {
			m.abortUnauthorized(c, "authorization header is not a bearer token")
			return
		}

		user, err := m.auth.ValidateToken(c.Request.Context(), authHeader[len(authHeaderPrefix):])
		if err != nil {
			m.abortUnauthorized(c, err.Error())
			return
		}

		c.Set(ContextUserKey, user)
		m.log.Debugw("User authenticated", "userID", user.ID, "path", c.Request.URL.Path)
		c.Next()
	}
}

// OptionalAuth stores the user when a valid bearer token is present and
// continues anonymously otherwise. Routes whose behavior varies by
// entitlement but stay public use this instead of RequireAuth.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) > len(authHeaderPrefix) && authHeader[:len(authHeaderPrefix)] == authHeaderPrefix {
			if user, err := m.auth.ValidateToken(c.Request.Context(), authHeader[len(authHeaderPrefix):]); err == nil {
				c.Set(ContextUserKey, user)
			}
		}
		c.Next()
	}
}

// RequireRole allows only callers whose role is in the given set. It must run
// after RequireAuth.
func (m *AuthMiddleware) RequireRole(roles ...domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := UserFromContext(c)
		if !ok {
			m.abortUnauthorized(c, "missing authentication")
			return
		}

		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}

		m.log.Warnw("Role check failed", "userID", user.ID, "role", user.Role, "path", c.Request.URL.Path)
		res.JsonResponse(c.Writer, res.ErrorResponse{
			Error:     "insufficient permissions",
			ErrorCode: http.StatusForbidden,
		}, http.StatusForbidden)
		c.Abort()
	}
}

// RequireActiveSubscription allows only callers with an entitling
// subscription. Admins pass regardless so they can review gated content. It
// must run after RequireAuth.
func (m *AuthMiddleware) RequireActiveSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := UserFromContext(c)
		if !ok {
			m.abortUnauthorized(c, "missing authentication")
			return
		}

		if user.Role != domain.UserRoleUser || user.SubscriptionStatus.Entitles() {
			c.Next()
			return
		}

		m.log.Warnw("Subscription gate rejected request", "userID", user.ID, "status", user.SubscriptionStatus)
		res.JsonResponse(c.Writer, res.ErrorResponse{
			Error:     "an active subscription is required",
			ErrorCode: http.StatusForbidden,
		}, http.StatusForbidden)
		c.Abort()
	}
}

func (m *AuthMiddleware) abortUnauthorized(c *gin.Context, message string) {
	m.log.Warnw("Authentication failed", "path", c.Request.URL.Path, "reason", message)
	res.JsonResponse(c.Writer, res.ErrorResponse{
		Error:     message,
		ErrorCode: http.StatusUnauthorized,
	}, http.StatusUnauthorized)
	c.Abort()
}

// UserFromContext returns the user stored by RequireAuth
func UserFromContext(c *gin.Context) (domain.User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return domain.User{}, false
	}
	user, ok := value.(domain.User)
	return user, ok
}
