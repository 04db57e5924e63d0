package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimit is a fixed window budget. Scope separates the counters of route groups.
type RateLimit struct {
	Scope  string
	Limit  int
	Window time.Duration
}

// ClientKey identifies the caller: the authenticated user when known, else the client IP.
func ClientKey(c *gin.Context) string {
	if id, ok := GetUserID(c); ok {
		return "user:" + id
	}
	return "ip:" + c.ClientIP()
}

// RateLimiterMiddleware counts requests per caller in redis. It fails open when redis
// is unreachable.
func RateLimiterMiddleware(rdb redis.Cmdable, rl RateLimit, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := fmt.Sprintf("regen:ratelimit:%s:%s", rl.Scope, ClientKey(c))

		var incr *redis.IntCmd
		var ttl *redis.DurationCmd
		_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			pipe.ExpireNX(ctx, key, rl.Window)
			ttl = pipe.TTL(ctx, key)
			return nil
		})
		if err != nil {
			logger.Warn("rate limiter skipped", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		count := incr.Val()
		remaining := ttl.Val()
		if remaining <= 0 {
			remaining = rl.Window
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.Limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(rl.Limit)-count), 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(remaining).Unix(), 10))

		if count > int64(rl.Limit) {
			c.Header("Retry-After", strconv.Itoa(int(remaining.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "too many requests",
				"retry_in_s": int(remaining.Seconds()),
			})
			return
		}
		c.Next()
	}
}
