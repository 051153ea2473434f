package middleware

import (
	"net/http"

	"mint-backend/internal/metrics"
	"mint-backend/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RateLimitMiddleware per-client sliding window rate limiting
type RateLimitMiddleware struct {
	limiter *ratelimit.Limiter
	logger  *logrus.Logger
}

// NewRateLimitMiddleware creates the rate limit middleware
func NewRateLimitMiddleware(limiter *ratelimit.Limiter, logger *logrus.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
	}
}

// Limit rejects requests above the per-IP budget with 429
func (m *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if !m.limiter.Allow(clientIP) {
			m.logger.WithFields(logrus.Fields{
				"client_ip": clientIP,
				"path":      c.Request.URL.Path,
				"method":    c.Request.Method,
			}).Warn("Rate limit exceeded")
			metrics.RateLimited.Inc()

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
