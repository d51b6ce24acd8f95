package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/supportdesk/supportgate/internal/middleware"
	"github.com/supportdesk/supportgate/internal/model"
	"github.com/supportdesk/supportgate/internal/service"
)

type OrderHandler struct {
	svc *service.OrderService
}

func NewOrderHandler(svc *service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req model.OrderCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	middleware.AddAuditContext(c, "action", "create_order")
	middleware.AddAuditContext(c, "target", fmt.Sprintf("user_id=%d", req.UserID))

	order, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	middleware.AddAuditContext(c, "action", "get_order")
	middleware.AddAuditContext(c, "target", fmt.Sprintf("id=%d", id))

	order, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListByUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	middleware.AddAuditContext(c, "action", "list_user_orders")
	middleware.AddAuditContext(c, "target", fmt.Sprintf("user_id=%d", id))

	orders, err := h.svc.ListByUser(c.Request.Context(), id, queryInt(c, "skip", 0), queryInt(c, "limit", 100))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.OrderUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	middleware.AddAuditContext(c, "action", "update_order")
	middleware.AddAuditContext(c, "target", fmt.Sprintf("id=%d", id))

	order, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	middleware.AddAuditContext(c, "action", "delete_order")
	middleware.AddAuditContext(c, "target", fmt.Sprintf("id=%d", id))

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Order deleted"})
}
