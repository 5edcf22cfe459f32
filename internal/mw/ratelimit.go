package mw

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ipLimiters lazily creates one token bucket per client IP.
type ipLimiters struct {
	mu    sync.Mutex
	perIP map[string]*rate.Limiter
	limit rate.Limit
	burst int
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.perIP[ip]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.perIP[ip] = limiter
	}
	return limiter
}

// RateLimiter is a middleware for IP-based rate limiting.
func RateLimiter(limit rate.Limit, burst int) gin.HandlerFunc {
	limiters := &ipLimiters{
		perIP: make(map[string]*rate.Limiter),
		limit: limit,
		burst: burst,
	}
	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}
