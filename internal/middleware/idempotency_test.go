package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supportdesk/supportgate/internal/model"
	"github.com/supportdesk/supportgate/internal/pkg/apperrors"
)

func withPrincipal(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextPrincipalKey, &model.Principal{Username: name})
		c.Next()
	}
}

func TestIdempotencyReplaysCompletedResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	calls := 0
	r := gin.New()
	r.Use(ErrorHandler(), withPrincipal("alice"), IdempotencyMiddleware(NewInMemIdempotencyStore(0)))
	r.POST("/orders", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusCreated, gin.H{"id": calls})
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`))
		req.Header.Set(HeaderIdempotencyKey, "k1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	first := send()
	second := send()

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replay"))
}

func TestIdempotencyDoesNotCacheErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	calls := 0
	r := gin.New()
	r.Use(ErrorHandler(), withPrincipal("alice"), IdempotencyMiddleware(NewInMemIdempotencyStore(0)))
	r.POST("/orders", func(c *gin.Context) {
		calls++
		if calls == 1 {
			c.Error(apperrors.NewInvalidRequest("bad"))
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set(HeaderIdempotencyKey, "k2")
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, calls)
}

func TestInMemIdempotencyStoreLocks(t *testing.T) {
	store := NewInMemIdempotencyStore(0)
	ctx := t.Context()

	rec, hit := store.GetOrLock(ctx, "key")
	assert.False(t, hit)
	assert.Nil(t, rec)

	rec, hit = store.GetOrLock(ctx, "key")
	require.True(t, hit)
	assert.True(t, rec.Processing)

	store.Unlock(ctx, "key")
	_, hit = store.GetOrLock(ctx, "key")
	assert.False(t, hit)
}
