package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/supportdesk/supportgate/internal/middleware"
	"github.com/supportdesk/supportgate/internal/pkg/logger"
)

type RedisIdempotencyStore struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewRedisIdempotencyStore(client redis.Cmdable, ttl time.Duration) *RedisIdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIdempotencyStore{
		client: client,
		ttl:    ttl,
		prefix: "idem:",
	}
}

type idemWire struct {
	Status      int       `json:"status"`
	ContentType string    `json:"content_type,omitempty"`
	Body        []byte    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
	Processing  bool      `json:"processing"`
}

// GetOrLock fails open: if redis is unreachable the request runs without
// replay protection.
func (s *RedisIdempotencyStore) GetOrLock(ctx context.Context, key string) (*middleware.IdempotencyRecord, bool) {
	lock, _ := json.Marshal(idemWire{CreatedAt: time.Now().UTC(), Processing: true})
	acquired, err := s.client.SetNX(ctx, s.prefix+key, lock, s.ttl).Result()
	if err != nil {
		logger.Warn("idempotency lock failed", "error", err)
		return nil, false
	}
	if acquired {
		return nil, false
	}

	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("idempotency lookup failed", "error", err)
		}
		return nil, false
	}
	var wire idemWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, false
	}
	return &middleware.IdempotencyRecord{
		Status:      wire.Status,
		ContentType: wire.ContentType,
		Body:        wire.Body,
		CreatedAt:   wire.CreatedAt,
		Processing:  wire.Processing,
	}, true
}

func (s *RedisIdempotencyStore) Save(ctx context.Context, key string, rec middleware.IdempotencyRecord) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(idemWire{
		Status:      rec.Status,
		ContentType: rec.ContentType,
		Body:        rec.Body,
		CreatedAt:   rec.CreatedAt.UTC(),
	})
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, s.prefix+key, payload, s.ttl).Err(); err != nil {
		logger.Warn("idempotency save failed", "error", err)
	}
}

func (s *RedisIdempotencyStore) Unlock(ctx context.Context, key string) {
	_ = s.client.Del(ctx, s.prefix+key).Err()
}
