package middlewares

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const rateWindow = 24 * time.Hour

// IssueRateLimiter caps how many issues one user may report per day. It must
// run after AuthMiddleware.
func IssueRateLimiter(client *redis.Client, prefix string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := CurrentSession(c)
		if !ok || sess.UserID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated", "code": "not_authorized"})
			return
		}

		ctx := c.Request.Context()

		// Create individual key for each user
		userKey := prefix + ":" + sess.UserID

		count, err := client.Incr(ctx, userKey).Result()
		if err != nil {
			log.Printf("rate limiter: incr %s: %v", userKey, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "redis error incrementing count"})
			return
		}

		// Set TTL only for the first increment (when count = 1)
		if count == 1 {
			if err := client.Expire(ctx, userKey, rateWindow).Err(); err != nil {
				log.Printf("rate limiter: expire %s: %v", userKey, err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "redis error setting TTL"})
				return
			}
		}

		if count > int64(limit) {
			retryAfter, _ := client.TTL(ctx, userKey).Result()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"code":        "rate_limited",
				"retry_after": retryAfter.Seconds(),
			})
			return
		}

		c.Next()
	}
}
