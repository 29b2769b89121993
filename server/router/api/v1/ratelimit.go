package v1

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/mindwell-app/mindwell/server/auth"
)

// turnLimiter applies a per-user token bucket to turn submissions. The
// completion provider is the expensive hop; everything else stays unlimited.
type turnLimiter struct {
	mu       sync.Mutex
	limiters map[int32]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// newTurnLimiter builds a limiter allowing perMinute submissions per user.
// perMinute <= 0 disables limiting.
func newTurnLimiter(perMinute int) *turnLimiter {
	if perMinute <= 0 {
		return &turnLimiter{}
	}
	return &turnLimiter{
		limiters: make(map[int32]*rate.Limiter),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
	}
}

func (l *turnLimiter) allow(userID int32) bool {
	if l.limiters == nil {
		return true
	}
	l.mu.Lock()
	limiter, ok := l.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

func (l *turnLimiter) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := auth.UserFromContext(c)
			if user != nil && !l.allow(user.ID) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many turns, slow down")
			}
			return next(c)
		}
	}
}
