package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/supportdesk/supportgate/internal/middleware"
	"github.com/supportdesk/supportgate/internal/pkg/apperrors"
	"github.com/supportdesk/supportgate/internal/pkg/logger"
	"github.com/supportdesk/supportgate/internal/service"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type AuditHandler struct {
	svc *service.AuditService
}

func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// List returns recent request log records, newest first.
func (h *AuditHandler) List(c *gin.Context) {
	user := c.Query("user")
	limit := queryInt(c, "limit", 100)
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	middleware.AddAuditContext(c, "action", "list_request_logs")

	records, err := h.svc.List(c.Request.Context(), user, limit)
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrInternal, err.Error(), err))
		return
	}
	c.JSON(http.StatusOK, records)
}

// Stream upgrades to a websocket and sends every record emitted after the
// connection is established, one JSON message per record.
func (h *AuditHandler) Stream(c *gin.Context) {
	// subscribe first so nothing emitted after the handshake is missed
	records, cancel := h.svc.Subscribe(256)
	defer cancel()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("request log stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	middleware.AddAuditContext(c, "action", "stream_request_logs")

	// the read loop only exists to notice the client going away
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case record, ok := <-records:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(streamWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(record); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}
