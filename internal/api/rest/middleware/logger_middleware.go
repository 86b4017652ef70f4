package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parishkeep/parishkeep/pkg/logger"
)

// LoggerMiddleware logs every request, leveled by response status
func LoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()

		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.RequestURI,
			"status", statusCode,
			"latency", latency.String(),
			"clientIP", c.ClientIP(),
		}

		switch {
		case statusCode >= 500:
			log.Errorw("HTTP request", fields...)
		case statusCode >= 400:
			log.Warnw("HTTP request", fields...)
		default:
			log.Infow("HTTP request", fields...)
		}
	}
}
