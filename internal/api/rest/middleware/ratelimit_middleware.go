package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/parishkeep/parishkeep/pkg/logger"
	"github.com/parishkeep/parishkeep/pkg/res"
)

// staleLimiterAge is how long an idle per-IP limiter survives before cleanup
const staleLimiterAge = 10 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client IP. Used on the credential
// endpoints to slow down brute force attempts.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	limit    rate.Limit
	burst    int
	log      *logger.Logger
}

// NewRateLimiter allows ratePerSecond sustained requests per IP with the
// given burst.
func NewRateLimiter(ratePerSecond float64, burst int, log *logger.Logger) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*ipLimiter),
		limit:    rate.Limit(ratePerSecond),
		burst:    burst,
		log:      log,
	}
	go rl.cleanupLoop()
	return rl
}

// Middleware rejects over-limit requests with 429
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !rl.allow(ip) {
			rl.log.Warnw("Rate limit exceeded", "clientIP", ip, "path", c.Request.URL.Path)
			res.JsonResponse(c.Writer, res.ErrorResponse{
				Error:     "too many requests",
				ErrorCode: http.StatusTooManyRequests,
			}, http.StatusTooManyRequests)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		for ip, entry := range rl.limiters {
			if time.Since(entry.lastSeen) > staleLimiterAge {
				delete(rl.limiters, ip)
			}
		}
		rl.mu.Unlock()
	}
}
