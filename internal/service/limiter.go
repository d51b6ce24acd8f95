package service

import (
	"sync"

	"golang.org/x/time/rate"
)

// LimiterRegistry keeps one token bucket per principal.
type LimiterRegistry struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter // Key: username
}

func NewLimiterRegistry(qps float64, burst int) *LimiterRegistry {
	limit := rate.Limit(qps)
	if qps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &LimiterRegistry{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (r *LimiterRegistry) LimiterFor(username string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[username]; ok {
		return l
	}
	l := rate.NewLimiter(r.limit, r.burst)
	r.limiters[username] = l
	return l
}
