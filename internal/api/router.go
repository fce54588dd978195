// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moodloop/moodloop/internal/metrics"
	"github.com/moodloop/moodloop/internal/middleware"
)

// RouterConfig tunes the boundary middleware.
type RouterConfig struct {
	// CORSAllowedOrigins is empty by default; wildcard CORS must be opted
	// into explicitly.
	CORSAllowedOrigins []string

	// Per-IP request allowances per minute.
	RecommendPerMinute int
	AnalyzePerMinute   int
	ReadPerMinute      int

	// RateLimitDisabled turns all limiters into pass-throughs (tests).
	RateLimitDisabled bool
}

// DefaultRouterConfig matches the published limits: 60/min for recommend
// and feedback, 30/min for analyze, a permissive tier for reads.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CORSAllowedOrigins: []string{},
		RecommendPerMinute: 60,
		AnalyzePerMinute:   30,
		ReadPerMinute:      1000,
	}
}

// NewRouter assembles the chi router around the handler set.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		MaxAge:         86400,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)

		r.With(limit(cfg, cfg.AnalyzePerMinute, "/api/v1/emotion/analyze")).
			Post("/emotion/analyze", h.AnalyzeEmotion)

		r.With(limit(cfg, cfg.RecommendPerMinute, "/api/v1/recommend")).
			Post("/recommend", h.Recommend)

		r.With(limit(cfg, cfg.RecommendPerMinute, "/api/v1/feedback")).
			Post("/feedback", h.Feedback)

		r.Route("/progress/{user_id}", func(r chi.Router) {
			r.Use(limit(cfg, cfg.ReadPerMinute, "/api/v1/progress"))
			r.Get("/", h.Progress)
			r.Get("/summary", h.ProgressSummary)
		})

		r.With(limit(cfg, cfg.ReadPerMinute, "/api/v1/catalog/reload")).
			Post("/catalog/reload", h.CatalogReload)

		r.With(limit(cfg, cfg.ReadPerMinute, "/api/v1/policy/reset")).
			Post("/policy/{user_id}/reset", h.PolicyReset)

		r.Route("/health", func(r chi.Router) {
			r.Use(limit(cfg, cfg.ReadPerMinute, "/api/v1/health"))
			r.Get("/live", h.HealthLive)
			r.Get("/ready", h.HealthReady)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// limit builds an httprate limiter for one endpoint, keyed by client IP.
// Rejections are counted and answered with the standard envelope.
func limit(cfg RouterConfig, perMinute int, endpoint string) func(http.Handler) http.Handler {
	if cfg.RateLimitDisabled || perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		perMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.APIRateLimitHits.WithLabelValues(endpoint).Inc()
			respondError(w, http.StatusTooManyRequests, CodeInternal, "rate limit exceeded", nil)
		}),
	)
}
