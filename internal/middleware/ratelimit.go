package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dco-chess/analysis-service/configs"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter manages rate limiting per IP address
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	config   configs.RateLimitConfig
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config configs.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		config:   config,
	}
}

// getLimiter returns or creates a rate limiter for an IP address
func (rl *RateLimiter) getLimiter(ip string, limit int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[ip]
	if !exists {
		perSecondRate := rate.Limit(float64(limit) / 3600.0)
		limiter = rate.NewLimiter(perSecondRate, 5) // allow a burst of 5
		rl.limiters[ip] = limiter
	}

	return limiter
}

// Allow checks if a request should be allowed
func (rl *RateLimiter) Allow(ip string, limit int) bool {
	limiter := rl.getLimiter(ip, limit)
	return limiter.Allow()
}

// cleanupOldLimiters removes inactive limiters, run periodically
func (rl *RateLimiter) cleanupOldLimiters() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.limiters) > 1000 {
		for ip := range rl.limiters {
			delete(rl.limiters, ip)
			if len(rl.limiters) <= 500 {
				break
			}
		}
	}
}

// RateLimit returns a gin middleware bucketing requests per IP against the
// hourly limit for whichever of this service's endpoint groups the request
// falls into: game analysis, position probes, chess.com import, or a
// practice session draw.
func RateLimit(config configs.RateLimitConfig) gin.HandlerFunc {
	limiter := NewRateLimiter(config)

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			limiter.cleanupOldLimiters()
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()
		path := c.FullPath()

		var limit int
		var limitType string

		switch {
		case path == "/api/games/:id/analyze":
			limit = config.GameAnalysisPerHour
			limitType = "game_analysis"
		case path == "/api/positions/analyze":
			limit = config.PositionAnalysisPerHour
			limitType = "position_analysis"
		case path == "/api/import/chesscom":
			limit = config.ImportPerHour
			limitType = "import"
		case path == "/api/practice/session":
			limit = config.PracticeSessionsPerHour
			limitType = "practice_session"
		default:
			limit = 1000
			limitType = "general"
		}

		if !limiter.Allow(ip+"|"+limitType, limit) {
			c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(time.Hour).Unix()))

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"message":     fmt.Sprintf("too many %s requests, limit %d per hour", limitType, limit),
				"retry_after": 3600,
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
		c.Header("X-RateLimit-Type", limitType)

		c.Next()
	}
}
