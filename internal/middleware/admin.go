package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/supportdesk/supportgate/internal/pkg/apperrors"
)

// AdminMiddleware allows only the listed principals. It must run after
// AuthMiddleware.
func AdminMiddleware(adminUsers []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(adminUsers))
	for _, u := range adminUsers {
		if u = strings.TrimSpace(u); u != "" {
			allowed[u] = struct{}{}
		}
	}
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			c.Error(apperrors.NewAuthFailed("Not authenticated"))
			c.Abort()
			return
		}
		if _, ok := allowed[principal.Username]; !ok {
			c.Error(apperrors.New(apperrors.ErrForbidden, "admin privileges required", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}
