package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/repository/memory"
	"github.com/parishkeep/parishkeep/internal/service"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

func newTestLogger() *logger.Logger {
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)
	return log
}

type authFixture struct {
	users *memory.UserRepository
	auth  service.AuthService
	mw    *AuthMiddleware
}

func newAuthFixture() *authFixture {
	users := memory.NewUserRepository()
	auth := service.NewAuthService(users, "test-secret", time.Hour, 4, newTestLogger())
	return &authFixture{
		users: users,
		auth:  auth,
		mw:    NewAuthMiddleware(auth, newTestLogger()),
	}
}

func (f *authFixture) registerUser(t *testing.T, email string) domain.AuthResponse {
	t.Helper()
	resp, err := f.auth.Register(context.Background(), domain.RegisterRequest{
		Name: "Anna", Email: email, Password: "secret123",
	})
	require.NoError(t, err)
	return resp
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func performRequest(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newAuthFixture()
	resp := f.registerUser(t, "anna@example.com")

	r := gin.New()
	r.GET("/protected", f.mw.RequireAuth(), okHandler)

	assert.Equal(t, http.StatusOK, performRequest(r, resp.Token).Code)
	assert.Equal(t, http.StatusUnauthorized, performRequest(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, performRequest(r, "garbage").Code)
}

func TestRequireAuth_DeletedUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newAuthFixture()
	resp := f.registerUser(t, "anna@example.com")
	require.NoError(t, f.users.Delete(context.Background(), resp.User.ID))

	r := gin.New()
	r.GET("/protected", f.mw.RequireAuth(), okHandler)

	assert.Equal(t, http.StatusUnauthorized, performRequest(r, resp.Token).Code)
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newAuthFixture()
	member := f.registerUser(t, "member@example.com")
	admin := f.registerUser(t, "admin@example.com")
	require.NoError(t, f.users.SetRole(context.Background(), admin.User.ID, domain.UserRoleAdmin))

	r := gin.New()
	r.GET("/protected", f.mw.RequireAuth(), f.mw.RequireRole(domain.UserRoleAdmin, domain.UserRoleSuperadmin), okHandler)

	assert.Equal(t, http.StatusForbidden, performRequest(r, member.Token).Code)
	assert.Equal(t, http.StatusOK, performRequest(r, admin.Token).Code)
}

func TestRequireActiveSubscription(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newAuthFixture()
	free := f.registerUser(t, "free@example.com")
	paying := f.registerUser(t, "paying@example.com")
	require.NoError(t, f.users.SetSubscriptionStatus(context.Background(), paying.User.ID, domain.SubscriptionStatusActive))

	r := gin.New()
	r.GET("/protected", f.mw.RequireAuth(), f.mw.RequireActiveSubscription(), okHandler)

	assert.Equal(t, http.StatusForbidden, performRequest(r, free.Token).Code)
	assert.Equal(t, http.StatusOK, performRequest(r, paying.Token).Code)
}

func TestRequireActiveSubscription_AdminBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newAuthFixture()
	admin := f.registerUser(t, "admin@example.com")
	require.NoError(t, f.users.SetRole(context.Background(), admin.User.ID, domain.UserRoleAdmin))

	r := gin.New()
	r.GET("/protected", f.mw.RequireAuth(), f.mw.RequireActiveSubscription(), okHandler)

	assert.Equal(t, http.StatusOK, performRequest(r, admin.Token).Code)
}

func TestOptionalAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newAuthFixture()
	resp := f.registerUser(t, "anna@example.com")

	r := gin.New()
	r.GET("/protected", f.mw.OptionalAuth(), func(c *gin.Context) {
		_, authed := UserFromContext(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": authed})
	})

	w := performRequest(r, resp.Token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":true`)

	w = performRequest(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}
