package http

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/contarehq/erp-backend/internal/util"
)

type windowEntry struct {
	mu       sync.Mutex
	requests []time.Time
}

// RateLimiter is a per-IP sliding window limiter for the reset endpoints,
// which are unauthenticated and attacker-facing.
type RateLimiter struct {
	max    int
	window time.Duration
	store  sync.Map
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{max: max, window: window}
}

func (rl *RateLimiter) allow(ip string) bool {
	now := time.Now()
	cutoff := now.Add(-rl.window)

	v, _ := rl.store.LoadOrStore(ip, &windowEntry{})
	entry := v.(*windowEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	filtered := entry.requests[:0]
	for _, t := range entry.requests {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	entry.requests = filtered

	if len(entry.requests) >= rl.max {
		return false
	}

	entry.requests = append(entry.requests, now)
	return true
}

func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				host := c.Request().RemoteAddr
				if idx := strings.LastIndex(host, ":"); idx > 0 {
					host = host[:idx]
				}
				ip = host
			}
			if !rl.allow(ip) {
				return c.JSON(http.StatusTooManyRequests, util.Error("too many requests, try again later"))
			}
			return next(c)
		}
	}
}
