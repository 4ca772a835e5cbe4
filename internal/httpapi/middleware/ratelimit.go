package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vpnpanel/auth-service/internal/httpapi"
)

// RateLimiter enforces fixed-window request limits backed by Redis. It
// throttles request volume only; the per-identity lockout policy is a
// separate security state and composes with it.
type RateLimiter struct {
	redis     *redis.Client
	namespace string
	logger    *zap.Logger
}

// NewRateLimiter creates a limiter using the given Redis client.
func NewRateLimiter(redisClient *redis.Client, namespace string, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		redis:     redisClient,
		namespace: namespace,
		logger:    logger,
	}
}

// Limit returns middleware allowing at most limit requests per window
// per key. Redis failures fail open: the request proceeds and the
// failure is logged, since the lockout policy still bounds abuse.
func (l *RateLimiter) Limit(name string, limit int, window time.Duration, keyFn func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("%s:rl:%s:%s", l.namespace, name, keyFn(r))

			count, err := l.redis.Incr(r.Context(), key).Result()
			if err != nil {
				l.logger.Warn("rate limiter unavailable, failing open", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				if err := l.redis.Expire(r.Context(), key, window).Err(); err != nil {
					l.logger.Warn("rate limiter expire failed", zap.Error(err))
				}
			}

			if count > int64(limit) {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
				httpapi.Error(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
