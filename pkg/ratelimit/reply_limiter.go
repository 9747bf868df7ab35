// Package ratelimit throttles reply generation per user, backed by Redis
// when available and by process memory otherwise.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter admits or rejects one request for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// =============================================================================
// SlidingWindowLimiter - Redis sorted-set sliding window
// =============================================================================

var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local max_requests = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local count = redis.call('ZCARD', key)

	if count < max_requests then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window_ms * 2)
		return {1, max_requests - count - 1}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	if #oldest > 0 then
		return {0, oldest[2] + window_ms - now}
	end
	return {0, window_ms}
`)

// SlidingWindowLimiter shares its window across every server instance.
type SlidingWindowLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewSlidingWindowLimiter(client *redis.Client, limit int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		redis:  client,
		limit:  limit,
		window: window,
		prefix: "reply:ratelimit:",
	}
}

func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now()
	vals, err := slidingWindowScript.Run(ctx, l.redis, []string{l.prefix + key},
		now.UnixMilli(),
		now.Add(-l.window).UnixMilli(),
		l.limit,
		l.window.Milliseconds(),
		fmt.Sprintf("%d-%d", now.UnixNano(), now.Nanosecond()%997),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("sliding window: %w", err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("sliding window: unexpected reply %v", vals)
	}

	if vals[0] == 1 {
		return Result{Allowed: true, Limit: l.limit, Remaining: int(vals[1])}, nil
	}
	return Result{
		Allowed:    false,
		Limit:      l.limit,
		RetryAfter: time.Duration(vals[1]) * time.Millisecond,
	}, nil
}

// =============================================================================
// MemoryLimiter - fixed window per key, process local
// =============================================================================

type window struct {
	count     int
	expiresAt time.Time
}

// MemoryLimiter counts requests per key in fixed windows.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

func NewMemoryLimiter(limit int, period time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.sweep(now)
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.period)}
		return Result{Allowed: true, Limit: l.limit, Remaining: l.limit - 1}, nil
	}

	if w.count >= l.limit {
		return Result{
			Allowed:    false,
			Limit:      l.limit,
			RetryAfter: w.expiresAt.Sub(now),
		}, nil
	}
	w.count++
	return Result{Allowed: true, Limit: l.limit, Remaining: l.limit - w.count}, nil
}

// sweep drops expired windows; called with mu held.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if now.After(w.expiresAt) {
			delete(l.windows, k)
		}
	}
}
