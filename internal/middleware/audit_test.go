package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supportdesk/supportgate/internal/model"
	"github.com/supportdesk/supportgate/internal/pkg/redact"
)

type recordingSink struct {
	mu      sync.Mutex
	records []model.LogRecord
}

func (s *recordingSink) Emit(record model.LogRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

func (s *recordingSink) all() []model.LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.LogRecord(nil), s.records...)
}

type staticVerifier map[string]string

func (v staticVerifier) Verify(token string) (*model.Principal, error) {
	if name, ok := v[token]; ok {
		return &model.Principal{Username: name}, nil
	}
	return nil, errors.New("unknown token")
}

// streamRecorder adds CloseNotify, which c.Stream requires.
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
}

func (r *streamRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func newPipeline(sink RequestLogSink) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	verifier := staticVerifier{"good-token": "alice"}
	r.Use(AuditMiddleware(sink, redact.DefaultPolicy(), NewIdentityResolver(verifier)))
	r.Use(ErrorHandler())
	return r
}

func TestAuditMiddlewareMasksPasswordInLoggedRequest(t *testing.T) {
	sink := &recordingSink{}
	r := newPipeline(sink)

	var seenByHandler map[string]any
	r.POST("/users/", func(c *gin.Context) {
		require.NoError(t, c.ShouldBindJSON(&seenByHandler))
		c.JSON(http.StatusCreated, gin.H{"id": 1, "name": seenByHandler["name"]})
	})

	body := `{"name":"Alice","email":"a@x.io","password":"hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/users/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "hunter2", seenByHandler["password"], "handler must see the original body")
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	records := sink.all()
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "alice", rec.User)
	assert.Equal(t, http.MethodPost, rec.Method)
	assert.Equal(t, "/users/", rec.Path)
	assert.Equal(t, http.StatusCreated, rec.StatusCode)
	assert.Equal(t, w.Header().Get(HeaderRequestID), rec.ID)
	assert.Equal(t, map[string]any{
		"name":     "Alice",
		"email":    "a@x.io",
		"password": redact.DefaultMask,
	}, rec.RequestBody)
	assert.Equal(t, map[string]any{"id": json.Number("1"), "name": "Alice"}, rec.ResponseBody)
	assert.NotContains(t, rec.Details, "hunter2")
	assert.Contains(t, rec.Details, "client_ip: ")
}

func TestAuditMiddlewareAnonymousAndUnverifiableUsers(t *testing.T) {
	sink := &recordingSink{}
	r := newPipeline(sink)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer forged")
	r.ServeHTTP(httptest.NewRecorder(), req)

	records := sink.all()
	require.Len(t, records, 2)
	assert.Equal(t, model.UnknownUser, records[0].User)
	assert.Nil(t, records[0].RequestBody)
	assert.Equal(t, "pong", records[0].ResponseBody)
	assert.Equal(t, AuthenticatedUser, records[1].User)
}

func TestAuditMiddlewarePanicBecomesSingle500Record(t *testing.T) {
	sink := &recordingSink{}
	r := newPipeline(sink)
	r.POST("/boom", func(c *gin.Context) {
		panic("kaboom")
	})

	req := httptest.NewRequest(http.MethodPost, "/boom", strings.NewReader(`{"token":"abc"}`))
	w := httptest.NewRecorder()
	require.NotPanics(t, func() { r.ServeHTTP(w, req) })

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"Internal Server Error"}`, w.Body.String())

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, http.StatusInternalServerError, records[0].StatusCode)
	assert.Equal(t, map[string]any{"detail": "Internal Server Error"}, records[0].ResponseBody)
	assert.Equal(t, map[string]any{"token": redact.DefaultMask}, records[0].RequestBody)
}

func TestAuditMiddlewarePanicAfterPartialWrite(t *testing.T) {
	sink := &recordingSink{}
	r := newPipeline(sink)
	r.GET("/partial", func(c *gin.Context) {
		c.Status(http.StatusOK)
		_, _ = c.Writer.WriteString("partial")
		panic("late failure")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/partial", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "partial", w.Body.String())

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, http.StatusInternalServerError, records[0].StatusCode)
	assert.Equal(t, map[string]any{"detail": "Internal Server Error"}, records[0].ResponseBody)
}

func TestAuditMiddlewareStreamsChunksUnchanged(t *testing.T) {
	sink := &recordingSink{}
	r := newPipeline(sink)
	chunks := []string{"alpha\n", "beta\n", "gamma\n"}
	r.GET("/stream", func(c *gin.Context) {
		i := 0
		c.Stream(func(w io.Writer) bool {
			_, _ = w.Write([]byte(chunks[i]))
			i++
			return i < len(chunks)
		})
	})

	w := newStreamRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stream", nil))

	assert.Equal(t, strings.Join(chunks, ""), w.Body.String())
	assert.True(t, w.Flushed)
	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, strings.Join(chunks, ""), records[0].ResponseBody)
}

func TestAuditMiddlewareNonJSONAndBinaryBodies(t *testing.T) {
	sink := &recordingSink{}
	r := newPipeline(sink)
	r.POST("/echo", func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		require.NoError(t, err)
		c.Data(http.StatusOK, "application/octet-stream", raw)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("plain text")))
	bin := []byte{0xff, 0xfe, 0x00}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(bin)))
	assert.Equal(t, bin, w.Body.Bytes())

	records := sink.all()
	require.Len(t, records, 2)
	assert.Equal(t, "plain text", records[0].RequestBody)
	assert.Equal(t, "<decode_error: body is not valid utf-8>", records[1].RequestBody)
	assert.Equal(t, "<decode_error: body is not valid utf-8>", records[1].ResponseBody)
}

func TestAuditMiddlewareRecordsErrorHandlerResponse(t *testing.T) {
	sink := &recordingSink{}
	r := newPipeline(sink)
	r.GET("/secure", AuthMiddleware(staticVerifier{}), func(c *gin.Context) {
		c.String(http.StatusOK, "never")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secure", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, http.StatusUnauthorized, records[0].StatusCode)
	body, ok := records[0].ResponseBody.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "AUTH_FAILED", body["code"])
	assert.Equal(t, "Not authenticated", body["detail"])
}

func TestAddAuditContextAppendsSortedDetails(t *testing.T) {
	sink := &recordingSink{}
	r := newPipeline(sink)
	r.DELETE("/users/:id", func(c *gin.Context) {
		AddAuditContext(c, "target", "id=7")
		AddAuditContext(c, "action", "delete_user")
		c.JSON(http.StatusOK, gin.H{"detail": "User deleted"})
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/users/7", nil))

	records := sink.all()
	require.Len(t, records, 1)
	assert.Regexp(t, `^client_ip: \S+, process_time: \d+\.\d{3}s, action: delete_user, target: id=7$`, records[0].Details)
}

func TestFormatDetails(t *testing.T) {
	got := formatDetails("", 1500*time.Millisecond, nil)
	assert.Equal(t, "client_ip: -, process_time: 1.500s", got)
}
