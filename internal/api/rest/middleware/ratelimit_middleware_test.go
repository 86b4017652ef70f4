package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func limitedRouter(ratePerSecond float64, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(ratePerSecond, burst, newTestLogger())

	r := gin.New()
	r.POST("/login", rl.Middleware(), okHandler)
	return r
}

func postFrom(r *gin.Engine, addr string) int {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = addr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter_BurstThenThrottle(t *testing.T) {
	r := limitedRouter(0.001, 2)

	assert.Equal(t, http.StatusOK, postFrom(r, "10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, postFrom(r, "10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, postFrom(r, "10.0.0.1:1234"))
}

func TestRateLimiter_PerIP(t *testing.T) {
	r := limitedRouter(0.001, 1)

	assert.Equal(t, http.StatusOK, postFrom(r, "10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, postFrom(r, "10.0.0.1:1234"))

	// A different client is not affected
	assert.Equal(t, http.StatusOK, postFrom(r, "10.0.0.2:1234"))
}
