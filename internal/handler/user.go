package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/supportdesk/supportgate/internal/middleware"
	"github.com/supportdesk/supportgate/internal/model"
	"github.com/supportdesk/supportgate/internal/service"
)

type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

func (h *UserHandler) Create(c *gin.Context) {
	var req model.UserCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	middleware.AddAuditContext(c, "action", "create_user")
	middleware.AddAuditContext(c, "target", "email="+req.Email)

	user, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, model.NewUserResponse(user))
}

func (h *UserHandler) List(c *gin.Context) {
	skip := queryInt(c, "skip", 0)
	limit := queryInt(c, "limit", 100)
	middleware.AddAuditContext(c, "action", "read_users")
	middleware.AddAuditContext(c, "target", fmt.Sprintf("skip=%d limit=%d", skip, limit))

	users, err := h.svc.List(c.Request.Context(), skip, limit)
	if err != nil {
		c.Error(err)
		return
	}
	out := make([]*model.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, model.NewUserResponse(u))
	}
	c.JSON(http.StatusOK, out)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	middleware.AddAuditContext(c, "action", "get_user_by_id")
	middleware.AddAuditContext(c, "target", fmt.Sprintf("id=%d", id))

	user, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, model.NewUserResponse(user))
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	middleware.AddAuditContext(c, "action", "update_user")
	middleware.AddAuditContext(c, "target", fmt.Sprintf("id=%d", id))

	user, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, model.NewUserResponse(user))
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	middleware.AddAuditContext(c, "action", "delete_user")
	middleware.AddAuditContext(c, "target", fmt.Sprintf("id=%d", id))

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "User deleted"})
}

func (h *UserHandler) SetRoles(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.UserRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	middleware.AddAuditContext(c, "action", "set_user_roles")
	middleware.AddAuditContext(c, "target", fmt.Sprintf("id=%d", id))

	user, err := h.svc.SetRoles(c.Request.Context(), id, req.Roles)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, model.NewUserResponse(user))
}
