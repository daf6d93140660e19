package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an unused client limiter is kept.
const limiterIdleTTL = 10 * time.Minute

// ClientLimiters hands out one token bucket per client IP. Buckets of clients
// that stay quiet for limiterIdleTTL are dropped.
type ClientLimiters struct {
	mu      sync.Mutex
	buckets *cache.Cache
	limit   rate.Limit
	burst   int
}

// NewClientLimiters creates buckets refilling at limit with the given burst.
func NewClientLimiters(limit rate.Limit, burst int) *ClientLimiters {
	return &ClientLimiters{
		buckets: cache.New(limiterIdleTTL, 2*limiterIdleTTL),
		limit:   limit,
		burst:   burst,
	}
}

// Get returns the bucket for ip, creating it on first use and extending its lifetime.
func (l *ClientLimiters) Get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	var limiter *rate.Limiter
	if v, ok := l.buckets.Get(ip); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(l.limit, l.burst)
	}
	l.buckets.SetDefault(ip, limiter)
	return limiter
}

// RateLimiter rejects clients that exceed their bucket with 429.
func RateLimiter(limit rate.Limit, burst int) gin.HandlerFunc {
	limiters := NewClientLimiters(limit, burst)
	return func(c *gin.Context) {
		if limiters.Get(c.ClientIP()).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	}
}
