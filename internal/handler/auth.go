package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/supportdesk/supportgate/internal/middleware"
	"github.com/supportdesk/supportgate/internal/model"
	"github.com/supportdesk/supportgate/internal/service"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Token accepts credentials as query parameters, a form or a JSON body.
func (h *AuthHandler) Token(c *gin.Context) {
	var req model.TokenRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	if req.Username == "" {
		req.Username = c.Query("username")
	}
	if req.Password == "" {
		req.Password = c.Query("password")
	}

	resp, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		middleware.AddAuditContext(c, "action", "login_failed")
		c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "action", "login")
	c.JSON(http.StatusOK, resp)
}
