package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/spectramin/orescout/internal/api/response"
)

// Pinger is a connectivity probe on a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db    Pinger
	cache Pinger
}

func NewHealthHandler(db, cache Pinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Check reports liveness of the database and cache. Any failing dependency
// turns the endpoint into a 503.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok", "cache": "ok"}
	healthy := true

	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	}
	if err := h.cache.Ping(ctx); err != nil {
		checks["cache"] = err.Error()
		healthy = false
	}

	body := healthResponse{Status: "ok", Checks: checks}
	if !healthy {
		body.Status = "degraded"
		response.Error(w, http.StatusServiceUnavailable, "UNHEALTHY", "One or more dependencies are down", checks)
		return
	}
	response.JSON(w, body)
}
