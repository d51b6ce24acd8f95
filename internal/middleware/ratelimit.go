package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/supportdesk/supportgate/internal/pkg/apperrors"
	"golang.org/x/time/rate"
)

// LimiterSource hands out the token bucket for a principal.
type LimiterSource interface {
	LimiterFor(username string) *rate.Limiter
}

// RateLimitMiddleware must run after AuthMiddleware.
func RateLimitMiddleware(limiters LimiterSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			c.Error(apperrors.NewAuthFailed("Not authenticated"))
			c.Abort()
			return
		}

		limiter := limiters.LimiterFor(principal.Username)
		if limiter == nil {
			c.Next()
			return
		}

		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.Error(apperrors.New(apperrors.ErrRateLimited, "rate limit exceeded", nil))
			c.Abort()
			return
		}

		c.Next()
	}
}
