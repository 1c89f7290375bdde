package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	loginRateLimitMax    = 10
	loginRateLimitWindow = time.Minute
)

// LoginRateLimit returns a middleware throttling credential-guessing by IP.
// It is a per-IP window on top of the per-account lockout counter, so a
// distributed guesser cannot burn an account's five attempts from one line.
func LoginRateLimit(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		windowKey := time.Now().Unix() / int64(loginRateLimitWindow.Seconds())
		key := fmt.Sprintf("pgdeck:login_rate:%s:%d", ip, windowKey)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// Redis being down should not lock operators out of the console.
			c.Next()
			return
		}
		if count == 1 {
			rdb.PExpire(ctx, key, loginRateLimitWindow+time.Second)
		}

		if count > loginRateLimitMax {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"ok":      0,
				"code":    http.StatusTooManyRequests,
				"message": "too many login attempts, slow down",
			})
			return
		}

		c.Next()
	}
}
