package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Limiter entries idle for longer than staleAfter are swept every sweepEvery.
const (
	sweepEvery = 5 * time.Minute
	staleAfter = 10 * time.Minute
)

// LimitOption configures RateLimiter.
type LimitOption func(*limitConfig)

type limitConfig struct {
	onLimit gin.HandlerFunc
}

// OnLimit replaces the default 429 response for callers over their budget.
// fn must abort the context.
func OnLimit(fn gin.HandlerFunc) LimitOption {
	return func(cfg *limitConfig) {
		cfg.onLimit = fn
	}
}

func tooManyRequests(c *gin.Context) {
	c.Header("Retry-After", "1")
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"status":  "fail",
		"message": "rate limit exceeded",
	})
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter returns a Gin middleware that enforces per-IP token-bucket
// rate limiting. rps is the steady-state requests per second; burst is the
// maximum burst size. Over-limit requests get a 429 unless OnLimit is given.
// The sweeper goroutine exits when ctx is done.
func RateLimiter(ctx context.Context, rps, burst int, opts ...LimitOption) gin.HandlerFunc {
	cfg := limitConfig{onLimit: tooManyRequests}
	for _, o := range opts {
		o(&cfg)
	}

	var mu sync.Mutex
	limiters := make(map[string]*ipLimiter)

	go func() {
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mu.Lock()
				for ip, l := range limiters {
					if time.Since(l.lastSeen) > staleAfter {
						delete(limiters, ip)
					}
				}
				mu.Unlock()
			}
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		l, ok := limiters[ip]
		if !ok {
			l = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			limiters[ip] = l
		}
		l.lastSeen = time.Now()
		mu.Unlock()

		if !l.limiter.Allow() {
			cfg.onLimit(c)
			return
		}
		c.Next()
	}
}
