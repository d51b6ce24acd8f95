package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/supportdesk/supportgate/internal/pkg/apperrors"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"

type IdempotencyRecord struct {
	Status      int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
	Processing  bool // a request with this key is still running
}

type IdempotencyStore interface {
	// GetOrLock returns (record, true) if the key exists; (nil, false) if the
	// caller now holds the lock.
	GetOrLock(ctx context.Context, key string) (*IdempotencyRecord, bool)
	Save(ctx context.Context, key string, rec IdempotencyRecord)
	Unlock(ctx context.Context, key string)
}

type InMemIdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	records map[string]*IdempotencyRecord // Key: username:method:path:idempotency-key
}

func NewInMemIdempotencyStore(ttl time.Duration) *InMemIdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &InMemIdempotencyStore{
		ttl:     ttl,
		records: make(map[string]*IdempotencyRecord),
	}
}

func (s *InMemIdempotencyStore) GetOrLock(_ context.Context, key string) (*IdempotencyRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok {
		if time.Since(rec.CreatedAt) < s.ttl {
			copied := *rec
			return &copied, true
		}
		delete(s.records, key)
	}

	s.records[key] = &IdempotencyRecord{
		Processing: true,
		CreatedAt:  time.Now(),
	}
	return nil, false
}

func (s *InMemIdempotencyStore) Save(_ context.Context, key string, rec IdempotencyRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Processing = false
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.records[key] = &rec
}

func (s *InMemIdempotencyStore) Unlock(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
}

// IdempotencyMiddleware replays the stored response for a repeated
// X-Idempotency-Key from the same principal. Must run after AuthMiddleware.
func IdempotencyMiddleware(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		idemKey := c.GetHeader(HeaderIdempotencyKey)
		if idemKey == "" || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		principal, ok := PrincipalFrom(c)
		if !ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		fullKey := principal.Username + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + idemKey

		record, hit := store.GetOrLock(ctx, fullKey)
		if hit {
			if record.Processing {
				c.Error(apperrors.New(apperrors.ErrConflict, "request in progress", nil))
				c.Abort()
				return
			}
			contentType := record.ContentType
			if contentType == "" {
				contentType = "application/json; charset=utf-8"
			}
			c.Header("Idempotent-Replay", "true")
			c.Data(record.Status, contentType, record.Body)
			c.Abort()
			return
		}

		w := newResponseTap(c.Writer)
		c.Writer = w

		saved := false
		defer func() {
			// panics, pending errors and 5xx leave the key free for a retry
			if !saved {
				store.Unlock(ctx, fullKey)
			}
		}()

		c.Next()

		// errors queued with c.Error are rendered later by ErrorHandler, so
		// the body is not known here
		if len(c.Errors) == 0 && c.Writer.Status() < 500 {
			store.Save(ctx, fullKey, IdempotencyRecord{
				Status:      c.Writer.Status(),
				ContentType: c.Writer.Header().Get("Content-Type"),
				Body:        append([]byte(nil), w.Captured()...),
				CreatedAt:   time.Now(),
			})
			saved = true
		}
	}
}
