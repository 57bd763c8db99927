package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// ClientLimiter tracks a token-bucket limiter per client key. Idle
// clients are evicted so the map does not grow without bound.
type ClientLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientEntry
	limit   rate.Limit
	burst   int
	maxIdle time.Duration
	done    chan struct{}
	once    sync.Once
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter creates a limiter allowing rps requests per second
// with the given burst per client
func NewClientLimiter(rps float64, burst int) *ClientLimiter {
	cl := &ClientLimiter{
		clients: make(map[string]*clientEntry),
		limit:   rate.Limit(rps),
		burst:   burst,
		maxIdle: 3 * time.Minute,
		done:    make(chan struct{}),
	}
	go cl.evictIdle()
	return cl
}

// Allow reports whether the client identified by key may proceed
func (cl *ClientLimiter) Allow(key string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	entry, ok := cl.clients[key]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.clients[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// Close stops the background eviction goroutine
func (cl *ClientLimiter) Close() {
	cl.once.Do(func() { close(cl.done) })
}

func (cl *ClientLimiter) evictIdle() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
			cl.mu.Lock()
			cutoff := time.Now().Add(-cl.maxIdle)
			for key, entry := range cl.clients {
				if entry.lastSeen.Before(cutoff) {
					delete(cl.clients, key)
				}
			}
			cl.mu.Unlock()
		}
	}
}

// RateLimit returns a middleware limiting requests per client IP
func RateLimit(limiter *ClientLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string {
		return c.ClientIP()
	})
}

// RateLimitByKey returns a rate limiting middleware with a custom key
// extractor
func RateLimitByKey(limiter *ClientLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(keyFunc(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewErrorResponse(dto.ErrCodeTooManyRequests, "Too many requests, slow down"))
			return
		}
		c.Next()
	}
}
