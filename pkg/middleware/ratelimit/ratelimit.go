package ratelimit

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/heritage-api/pkg/errors"
	"github.com/noah-isme/heritage-api/pkg/response"
)

// Limiter is a process-wide budget of max requests per window, refilled continuously.
type Limiter struct {
	limiter *rate.Limiter
	max     int
}

// New builds a limiter allowing bursts of max requests and refilling max tokens per window.
func New(window time.Duration, max int) *Limiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	every := rate.Every(window / time.Duration(max))
	return &Limiter{limiter: rate.NewLimiter(every, max), max: max}
}

// Allow consumes one token when available.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Middleware rejects requests with 429 once the global budget is exhausted.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed := l.limiter.Allow()
		remaining := int(math.Max(0, math.Floor(l.limiter.Tokens())))
		c.Header("X-RateLimit-Limit", strconv.Itoa(l.max))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
