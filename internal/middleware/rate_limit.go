package middleware

import (
	"net/http"
	"strconv"
	"time"

	pkghttp "github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig bounds requests per client IP on the ops listener
type RateLimitConfig struct {
	RequestsPerMinute int
	Window            time.Duration
}

// DefaultOpsRateLimit allows a scraper and a few probes per client
func DefaultOpsRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 120,
		Window:            time.Minute,
	}
}

// RateLimitByIP rejects a client that exceeds the budget with a JSON 429 and Retry-After
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	window := config.Window
	if window <= 0 {
		window = time.Minute
	}

	return httprate.Limit(
		config.RequestsPerMinute,
		window,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			retryAfter := int(window.Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			pkghttp.WriteJSON(w, http.StatusTooManyRequests, pkghttp.ErrorResponse{
				Error:      "rate_limit_exceeded",
				Message:    "too many requests",
				RetryAfter: retryAfter,
			})
		}),
	)
}
