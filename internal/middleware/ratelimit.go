package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/edusignal/edusignal/internal/services"
)

// RateLimit throttles the mutating endpoints per operator. It runs after
// Auth, so the "user" key holds the token subject; unauthenticated probes
// that somehow reach it fall back to the client IP.
func RateLimit(limiter *services.RateLimitService, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := c.GetString("user")
		if caller == "" {
			caller = c.ClientIP()
		}

		result := limiter.Check(c.Request.Context(), caller)

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetAt.Unix()))

		if !result.Allowed {
			logger.WithFields(logrus.Fields{
				"caller": caller,
				"limit":  result.Limit,
			}).Warn("Operator exceeded rate limit")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "RATE_LIMIT_EXCEEDED",
					"message": "Too many requests, slow down",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
