// Package ratelimit guards the public API with a per-client token bucket.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per client IP. Buckets idle for longer
// than ttl are dropped by a lazy sweep so the map does not grow without
// bound under address churn.
type Limiter struct {
	mu      sync.Mutex
	perSec  rate.Limit
	burst   int
	ttl     time.Duration
	clients map[string]*client
	swept   time.Time
}

type client struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

func New(perSec float64, burst int) *Limiter {
	return &Limiter{
		perSec:  rate.Limit(perSec),
		burst:   burst,
		ttl:     10 * time.Minute,
		clients: make(map[string]*client),
		swept:   time.Now(),
	}
}

// Allow reports whether the client identified by key may proceed.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.swept) > l.ttl {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > l.ttl {
				delete(l.clients, k)
			}
		}
		l.swept = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &client{bucket: rate.NewLimiter(l.perSec, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.bucket.Allow()
}

// Middleware rejects over-budget clients with 429 before any handler runs.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}
