// Package handler implements the HTTP endpoints of the scan API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/spectramin/orescout/internal/api/response"
	"github.com/spectramin/orescout/internal/geo"
	"github.com/spectramin/orescout/internal/scan"
	"github.com/spectramin/orescout/internal/store"
	"github.com/spectramin/orescout/pkg/models"
)

// ScanService is the slice of the scan service the handlers need.
type ScanService interface {
	Submit(ctx context.Context, params scan.SubmitParams) (*models.ScanJob, error)
	Get(ctx context.Context, id uuid.UUID) (*scan.JobDetail, error)
	Status(ctx context.Context, id uuid.UUID) (string, error)
	List(ctx context.Context, filter store.ScanFilter) ([]*models.ScanJob, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ScanHandler struct {
	svc ScanService
}

func NewScanHandler(svc ScanService) *ScanHandler {
	return &ScanHandler{svc: svc}
}

type submitScanRequest struct {
	Kind          string     `json:"kind"`
	Latitude      *float64   `json:"latitude"`
	Longitude     *float64   `json:"longitude"`
	Country       string     `json:"country"`
	Region        string     `json:"region"`
	RadiusKm      *float64   `json:"radius_km"`
	GridSpacingM  *float64   `json:"grid_spacing_m"`
	Minerals      []string   `json:"minerals"`
	Sensor        string     `json:"sensor"`
	Resolution    string     `json:"resolution"`
	MaxCloudCover int        `json:"max_cloud_cover_percent"`
	DateStart     *time.Time `json:"date_start"`
	DateEnd       *time.Time `json:"date_end"`
}

type submitScanResponse struct {
	*models.ScanJob
	LocationDescription string `json:"location_description"`
}

type scanDetailResponse struct {
	Job        *models.ScanJob          `json:"job"`
	Detections []*models.PixelDetection `json:"detections,omitempty"`
	Summary    *models.ScanSummary      `json:"summary,omitempty"`
}

type scanStatusResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Status string    `json:"status"`
}

// Submit queues a scan and returns 202 with the pending job. Geometry problems
// are rejected synchronously; nothing is persisted for them.
func (h *ScanHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be valid JSON", err.Error())
		return
	}

	job, err := h.svc.Submit(r.Context(), scan.SubmitParams{
		Kind:          req.Kind,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Country:       req.Country,
		Region:        req.Region,
		RadiusKm:      req.RadiusKm,
		GridSpacingM:  req.GridSpacingM,
		Minerals:      req.Minerals,
		Sensor:        req.Sensor,
		Resolution:    req.Resolution,
		MaxCloudCover: req.MaxCloudCover,
		DateStart:     req.DateStart,
		DateEnd:       req.DateEnd,
	})
	if err != nil {
		switch {
		case errors.Is(err, geo.ErrInvalidGeometry):
			response.Error(w, http.StatusBadRequest, "INVALID_GEOMETRY", err.Error(), nil)
		case errors.Is(err, scan.ErrNoMinerals):
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		default:
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to submit scan", nil)
		}
		return
	}

	response.Accepted(w, submitScanResponse{
		ScanJob:             job,
		LocationDescription: job.LocationDescription(),
	})
}

// Get returns the job, with detections and summary once completed.
func (h *ScanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	detail, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "SCAN_NOT_FOUND", "No scan with that id", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load scan", nil)
		return
	}

	response.JSON(w, scanDetailResponse{
		Job:        detail.Job,
		Detections: detail.Detections,
		Summary:    detail.Summary,
	})
}

// Status is the lightweight poll endpoint.
func (h *ScanHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	status, err := h.svc.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "SCAN_NOT_FOUND", "No scan with that id", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load scan status", nil)
		return
	}

	response.JSON(w, scanStatusResponse{JobID: id, Status: status})
}

var listableStatuses = map[string]bool{
	models.ScanStatusPending:   true,
	models.ScanStatusRunning:   true,
	models.ScanStatusCompleted: true,
	models.ScanStatusFailed:    true,
}

// List returns jobs newest first, optionally filtered by status.
func (h *ScanHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !listableStatuses[status] {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Unknown status filter", status)
		return
	}

	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := queryInt(r, "limit", 20)
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	jobs, total, err := h.svc.List(r.Context(), store.ScanFilter{
		Status: status,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list scans", nil)
		return
	}
	if jobs == nil {
		jobs = []*models.ScanJob{}
	}

	response.Collection(w, jobs, response.NewPaginationMeta(page, limit, total))
}

// Delete archives the job and purges its results.
func (h *ScanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "SCAN_NOT_FOUND", "No scan with that id", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete scan", nil)
		return
	}

	response.NoContent(w)
}

func jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Scan id must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}
