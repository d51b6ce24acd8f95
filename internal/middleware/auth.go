package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/supportdesk/supportgate/internal/pkg/apperrors"
)

// AuthMiddleware requires a valid bearer token and attaches its principal to
// the context under ContextPrincipalKey. A principal that is already attached
// is accepted as is.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		// already verified by the request log's identity step
		if _, ok := PrincipalFrom(c); ok {
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Error(apperrors.NewAuthFailed("Not authenticated"))
			c.Abort()
			return
		}

		principal, err := verifier.Verify(token)
		if err != nil || principal == nil || principal.Username == "" {
			c.Error(apperrors.New(apperrors.ErrAuthFailed, "Invalid token", err))
			c.Abort()
			return
		}

		c.Set(ContextPrincipalKey, principal)
		c.Next()
	}
}
