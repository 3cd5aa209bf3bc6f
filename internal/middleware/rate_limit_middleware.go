// internal/middleware/rate_limit_middleware.go
package middleware

import (
	"net/http"
	"time"

	"talenthub-service/internal/pkg/response"
	"talenthub-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware throttles authenticated callers per endpoint. It must
// run after Auth() so the identity is on the context. Redis failures fail
// open: a broken limiter never takes the API down.
func RateLimitMiddleware(limiter *session.RateLimiter, maxRequests int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		identityID, ok := GetIdentityID(c)
		if !ok {
			c.Next()
			return
		}

		allowed, err := limiter.CheckAPIRateLimit(c.Request.Context(), identityID, c.FullPath(), maxRequests, window)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}

		c.Next()
	}
}
