// Package api assembles the HTTP surface: routing, middleware and handlers.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/spectramin/orescout/internal/api/handler"
	"github.com/spectramin/orescout/internal/api/middleware"
	"github.com/spectramin/orescout/internal/cache"
	"github.com/spectramin/orescout/internal/config"
	"github.com/spectramin/orescout/internal/metrics"
)

// NewRouter wires the full route tree. Health and metrics bypass the rate
// limiter; the scan routes sit behind it.
func NewRouter(cfg *config.Config, svc handler.ScanService, db handler.Pinger, ca cache.Cache, m *metrics.ScanMetrics) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recovery)

	health := handler.NewHealthHandler(db, ca)
	scans := handler.NewScanHandler(svc)

	r.Get("/api/v1/health", health.Check)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api/v1/scans", func(r chi.Router) {
		r.Use(middleware.RateLimit(ca, cfg.Server.RateLimitPerMin))

		r.Post("/", scans.Submit)
		r.Get("/", scans.List)
		r.Get("/{id}", scans.Get)
		r.Get("/{id}/status", scans.Status)
		r.Delete("/{id}", scans.Delete)
	})

	return r
}
