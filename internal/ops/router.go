// Package ops serves the worker's operational endpoints.
package ops

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/middleware"
	pkghttp "github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/pkg/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Check reports whether a dependency is reachable
type Check func(ctx context.Context) error

// Config tunes the router
type Config struct {
	Env               string
	RequestsPerMinute int
	CheckTimeout      time.Duration
}

// HealthResponse is the body of /health
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// NewRouter mounts /health and /metrics
func NewRouter(config Config, checks map[string]Check, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	if config.CheckTimeout <= 0 {
		config.CheckTimeout = 2 * time.Second
	}
	limit := middleware.DefaultOpsRateLimit()
	if config.RequestsPerMinute > 0 {
		limit.RequestsPerMinute = config.RequestsPerMinute
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: config.Env}))
	router.Use(middleware.SecureLogger(logger, "/health", "/metrics"))
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.RateLimitByIP(limit))

	router.Get("/health", healthHandler(checks, config.CheckTimeout, logger))
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return router
}

func healthHandler(checks map[string]Check, timeout time.Duration, logger *slog.Logger) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		resp := HealthResponse{Status: "healthy", Checks: make(map[string]string, len(names))}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				logger.Warn("health check failed", slog.String("check", name), slog.Any("error", err))
				resp.Checks[name] = "down"
				resp.Status = "unhealthy"
				continue
			}
			resp.Checks[name] = "up"
		}

		status := http.StatusOK
		if resp.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		pkghttp.WriteJSON(w, status, resp)
	}
}
