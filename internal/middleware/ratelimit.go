package middleware

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit applies a token bucket per caller: the API key set by the auth
// middleware, or the client IP when there is none. rps <= 0 disables limiting.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(c *gin.Context) {
		caller := "ip:" + c.ClientIP()
		if key := c.GetString(ContextKeyAPIKey); key != "" {
			caller = "key:" + key
		}

		mu.Lock()
		limiter, ok := limiters[caller]
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(rps), burst)
			limiters[caller] = limiter
		}
		mu.Unlock()

		r := limiter.Reserve()
		if delay := r.Delay(); delay > 0 {
			r.Cancel()
			c.Header("Retry-After", strconv.Itoa(int(delay.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		c.Next()
	}
}
