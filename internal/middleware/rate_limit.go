package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"fixwala-backend/internal/cache"
	"fixwala-backend/internal/logger"
	"fixwala-backend/internal/metrics"
	"fixwala-backend/pkg/utils"
)

const rateLimitMessage = "Too many requests from this IP, please try again later."

// RateLimiter caps requests per client IP in fixed windows
type RateLimiter struct {
	limiter cache.Limiter
	scope   string
	limit   int
	window  time.Duration
	methods map[string]bool
}

// NewRateLimiter counts every request, or only those using one of methods
// when any are given.
func NewRateLimiter(limiter cache.Limiter, scope string, limit int, window time.Duration, methods ...string) *RateLimiter {
	rl := &RateLimiter{
		limiter: limiter,
		scope:   scope,
		limit:   limit,
		window:  window,
	}
	if len(methods) > 0 {
		rl.methods = make(map[string]bool, len(methods))
		for _, m := range methods {
			rl.methods[m] = true
		}
	}
	return rl
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.methods != nil && !rl.methods[r.Method] {
			next.ServeHTTP(w, r)
			return
		}

		res, err := rl.limiter.Allow(r.Context(), rl.scope+":"+getClientIP(r), rl.limit, rl.window)
		if err != nil {
			// Fail open when the counter store is unreachable
			logger.FromContext(r.Context()).Warn().Err(err).Str("scope", rl.scope).Msg("Rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}

		reset := int(math.Ceil(time.Until(res.ResetAt).Seconds()))
		if reset < 0 {
			reset = 0
		}
		h := w.Header()
		h.Set("RateLimit-Limit", strconv.Itoa(res.Limit))
		h.Set("RateLimit-Remaining", strconv.Itoa(res.Remaining))
		h.Set("RateLimit-Reset", strconv.Itoa(reset))

		if !res.Allowed {
			metrics.RateLimited.WithLabelValues(rl.scope).Inc()
			h.Set("Retry-After", strconv.Itoa(reset))
			utils.Message(w, http.StatusTooManyRequests, rateLimitMessage)
			return
		}
		next.ServeHTTP(w, r)
	})
}
