// Package api exposes the review service over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/review"
)

// Config tunes the HTTP surface.
type Config struct {
	MaxBodyBytes   int64
	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string
	MetricsEnabled bool
	MetricsPath    string
}

// Server holds the handlers' dependencies.
type Server struct {
	svc *review.Service
	cfg Config
}

// NewHandler builds the router for svc.
func NewHandler(svc *review.Service, cfg Config) http.Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	s := &Server{svc: svc, cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(recordMetrics)
	if cfg.RateLimitRPS > 0 {
		r.Use(rateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}
	r.Use(limitBody(cfg.MaxBodyBytes))

	r.Get("/health", s.health)
	if cfg.MetricsEnabled {
		r.Handle(cfg.MetricsPath, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/config", s.getConfig)
		r.Post("/plan", s.plan)
		r.Post("/review", s.review)
		r.Post("/review/export", s.exportReview)

		r.Get("/reviews", s.listReviews)
		r.Get("/reviews/{id}", s.getReview)
		r.Get("/reviews/{id}/export", s.exportStoredReview)

		r.Get("/templates", s.listTemplates)
		r.Post("/templates", s.saveTemplate)
		r.Get("/templates/{id}", s.getTemplate)
		r.Delete("/templates/{id}", s.deleteTemplate)
	})
	return r
}
