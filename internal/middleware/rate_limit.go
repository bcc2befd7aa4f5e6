// path: internal/middleware/rate_limit.go
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/techappsUT/social-scheduler/internal/logging"
)

// RateLimitConfig bounds requests per IP over a sliding window.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
	KeyPrefix         string
}

// DefaultIPRateLimit is the limit applied to the public HTTP surface;
// there is no per-account tier since credentials are operator-scoped,
// not user-scoped.
var DefaultIPRateLimit = RateLimitConfig{
	RequestsPerWindow: 600,
	WindowDuration:    time.Minute,
	KeyPrefix:         "ratelimit:ip",
}

// RateLimiter implements sliding-window rate limiting over Redis, the
// way the teacher's RateLimiter does, scoped to IP since this surface
// has no authenticated user identity to key on.
type RateLimiter struct {
	redis *redis.Client
	log   logging.Logger
}

func NewRateLimiter(client *redis.Client, log logging.Logger) *RateLimiter {
	return &RateLimiter{redis: client, log: log}
}

// RateLimitByIP limits requests per client IP address.
func (rl *RateLimiter) RateLimitByIP(config RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := extractIP(r)
			key := fmt.Sprintf("%s:%s", config.KeyPrefix, ip)

			allowed, remaining, resetAt, err := rl.checkRateLimit(r.Context(), key, config)
			if err != nil {
				rl.log.Warn("rate limit check failed, allowing request", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				w.Header().Set("Retry-After", strconv.FormatInt(int64(time.Until(resetAt).Seconds()), 10))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error":      "rate limit exceeded",
					"retryAfter": int(time.Until(resetAt).Seconds()),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) checkRateLimit(ctx context.Context, key string, config RateLimitConfig) (allowed bool, remaining int, resetAt time.Time, err error) {
	now := time.Now()
	windowStart := now.Add(-config.WindowDuration)

	pipe := rl.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: fmt.Sprintf("%d", now.UnixNano())})
	pipe.Expire(ctx, key, config.WindowDuration+time.Minute)

	if _, err = pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limit pipeline: %w", err)
	}

	count := int(countCmd.Val())
	if count >= config.RequestsPerWindow {
		return false, 0, now.Add(config.WindowDuration), nil
	}

	return true, config.RequestsPerWindow - count - 1, now.Add(config.WindowDuration), nil
}

func extractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ips := strings.Split(xff, ","); len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
