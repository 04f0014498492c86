package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/bolt-backend/internal/logger"
	"github.com/AnshRaj112/bolt-backend/pkg/clientip"
)

const (
	// RateLimitWindow is 15 minutes
	RateLimitWindow = 15 * time.Minute
	// RateLimitMaxRequests is the maximum number of requests allowed per IP in the window
	RateLimitMaxRequests = 100
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
)

// RedisRateLimiter is a fixed-window per-IP limiter shared by every instance.
type RedisRateLimiter struct {
	rdb    *redis.Client
	log    *logger.Logger
	limit  int64
	window time.Duration
}

func NewRedisRateLimiter(rdb *redis.Client, log *logger.Logger) *RedisRateLimiter {
	return &RedisRateLimiter{rdb: rdb, log: log, limit: RateLimitMaxRequests, window: RateLimitWindow}
}

// Handler counts the request and returns 429 once the window is spent.
// Without Redis, or when Redis errors, requests pass (fail open).
func (l *RedisRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.rdb == nil {
			next.ServeHTTP(w, r)
			return
		}
		ip := clientip.RealClientIP(r)
		key := RateLimitKeyPrefix + ip

		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		count, err := l.rdb.Incr(ctx, key).Result()
		if err == nil && count == 1 {
			err = l.rdb.Expire(ctx, key, l.window).Err()
		}
		ttl := l.window
		if err == nil {
			if d, terr := l.rdb.TTL(ctx, key).Result(); terr == nil && d > 0 {
				ttl = d
			}
		}
		cancel()

		if err != nil {
			l.log.Warn("rate limiter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		remaining := l.limit - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(l.limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))

		if count > l.limit {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			writeJSONError(w, http.StatusTooManyRequests, "Too many requests from this IP, please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
