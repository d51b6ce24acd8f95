package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/supportdesk/supportgate/internal/model"
	"github.com/supportdesk/supportgate/internal/pkg/logger"
	"github.com/supportdesk/supportgate/internal/pkg/metrics"
	"github.com/supportdesk/supportgate/internal/pkg/redact"
)

const (
	ContextAuditLog = "audit_log"
	HeaderRequestID = "X-Request-ID"
)

// RequestLogSink receives exactly one record per completed request.
type RequestLogSink interface {
	Emit(record model.LogRecord)
}

// HandlerPanicError describes a panic recovered from the handler chain.
type HandlerPanicError struct {
	Value any
	Stack []byte
}

func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// auditEntry collects per-request context that handlers add while running.
type auditEntry struct {
	requestID string
	context   map[string]any
}

// AuditMiddleware wraps the rest of the chain and writes one request log
// record per request, whatever the handlers do. Stages run strictly in order:
// capture body, resolve identity, invoke handlers, collect the tapped
// response, redact both bodies, emit. Failures in a stage become data for
// the next stage and never abort the request.
func AuditMiddleware(sink RequestLogSink, policy *redact.Policy, resolver *IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := uuid.New().String()
		c.Header(HeaderRequestID, reqID)

		reqBody := captureBody(c.Request)
		if reqBody.readErr != nil {
			logger.Debug("request body read incomplete", "request_id", reqID, "error", reqBody.readErr)
		}

		user := model.UnknownUser
		if p, err := resolver.Resolve(c); err == nil && p.Username != "" {
			user = p.Username
		}

		entry := &auditEntry{requestID: reqID, context: make(map[string]any)}
		c.Set(ContextAuditLog, entry)

		tap := newResponseTap(c.Writer)
		c.Writer = tap

		failure := invokeChain(c)

		status := tap.Status()
		respRaw := tap.Captured()
		if failure != nil {
			metrics.HandlerPanics.Inc()
			logger.Error("Unhandled exception in request flow",
				"request_id", reqID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", failure.Error(),
				"stack", string(failure.Stack),
			)
			respRaw = tap.substituteInternalError()
			status = http.StatusInternalServerError
		}

		safeRequest := policy.Apply(bodyForLog(reqBody.raw))
		safeResponse := policy.Apply(bodyForLog(respRaw))

		duration := time.Since(start)
		sink.Emit(model.LogRecord{
			ID:              reqID,
			Timestamp:       time.Now().UTC(),
			User:            user,
			Method:          c.Request.Method,
			Path:            c.Request.URL.Path,
			StatusCode:      status,
			DurationSeconds: duration.Seconds(),
			Details:         formatDetails(c.ClientIP(), duration, entry.context),
			RequestBody:     safeRequest,
			ResponseBody:    safeResponse,
		})
	}
}

// invokeChain runs the remaining handlers and converts a panic into an error.
func invokeChain(c *gin.Context) (failure *HandlerPanicError) {
	defer func() {
		if rec := recover(); rec != nil {
			c.Abort()
			failure = &HandlerPanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	c.Next()
	return nil
}

// AddAuditContext lets handlers attach business context to the request log
// record, e.g. AddAuditContext(c, "action", "create_user").
func AddAuditContext(c *gin.Context, key string, value any) {
	if val, exists := c.Get(ContextAuditLog); exists {
		if entry, ok := val.(*auditEntry); ok {
			entry.context[key] = value
		}
	}
}

// RequestID returns the id assigned by AuditMiddleware, or "".
func RequestID(c *gin.Context) string {
	if val, exists := c.Get(ContextAuditLog); exists {
		if entry, ok := val.(*auditEntry); ok {
			return entry.requestID
		}
	}
	return ""
}

func formatDetails(clientIP string, elapsed time.Duration, extra map[string]any) string {
	if clientIP == "" {
		clientIP = "-"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "client_ip: %s, process_time: %.3fs", clientIP, elapsed.Seconds())
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, ", %s: %v", k, extra[k])
	}
	return b.String()
}
