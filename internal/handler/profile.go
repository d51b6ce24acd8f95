package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/supportdesk/supportgate/internal/middleware"
	"github.com/supportdesk/supportgate/internal/model"
	"github.com/supportdesk/supportgate/internal/service"
)

type ProfileHandler struct {
	svc *service.ProfileService
}

func NewProfileHandler(svc *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

func (h *ProfileHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	middleware.AddAuditContext(c, "action", "get_profile")
	middleware.AddAuditContext(c, "target", fmt.Sprintf("user_id=%d", id))

	profile, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) Put(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	middleware.AddAuditContext(c, "action", "update_profile")
	middleware.AddAuditContext(c, "target", fmt.Sprintf("user_id=%d", id))

	profile, err := h.svc.Upsert(c.Request.Context(), id, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
