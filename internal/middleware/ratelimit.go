package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/thereayou/score-rooms/internal/handlers/dto"
)

// RateLimit ограничивает число запросов с одного IP в окне window.
// Счетчик живет в Redis, поэтому лимит общий для всех экземпляров сервера.
func RateLimit(redisClient *redis.Client, prefix string, maxRequests int, window time.Duration) gin.HandlerFunc {
	if redisClient == nil {
		panic("Redis client cannot be nil for RateLimit middleware")
	}
	if maxRequests <= 0 {
		panic("maxRequests must be positive for RateLimit middleware")
	}
	if window <= 0 {
		panic("window duration must be positive for RateLimit middleware")
	}

	return func(c *gin.Context) {
		key := prefix + "ratelimit:" + c.FullPath() + ":" + c.ClientIP()
		ctx := c.Request.Context()

		// INCR и EXPIRE одним пайплайном
		pipe := redisClient.Pipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		if _, err := pipe.Exec(ctx); err != nil {
			// Лимитер не должен ронять запись: без Redis пропускаем запрос
			logrus.WithError(err).Error("RateLimit: Redis pipeline failed")
			c.Next()
			return
		}

		count := incr.Val()
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		if remaining := int64(maxRequests) - count; remaining > 0 {
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		} else {
			c.Header("X-RateLimit-Remaining", "0")
		}

		if count > int64(maxRequests) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
				Error: "too many requests",
				Kind:  "rate_limited",
			})
			return
		}

		c.Next()
	}
}
