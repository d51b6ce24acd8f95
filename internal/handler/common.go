package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/supportdesk/supportgate/internal/pkg/apperrors"
)

// pathID parses a positive integer path parameter. On failure it queues an
// invalid request error and returns false.
func pathID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.Error(apperrors.NewInvalidRequest("invalid " + name + ": " + raw))
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string, def int) int {
	if raw := c.Query(name); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			return parsed
		}
	}
	return def
}

func bindError(c *gin.Context, err error) {
	c.Error(apperrors.NewInvalidRequest(err.Error()))
}
