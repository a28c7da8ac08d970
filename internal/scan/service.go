// Package scan owns the job lifecycle: submission, inspection, deletion and
// the background scheduler that executes pending scans.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spectramin/orescout/internal/cache"
	"github.com/spectramin/orescout/internal/geo"
	"github.com/spectramin/orescout/internal/store"
	"github.com/spectramin/orescout/pkg/models"
)

// ErrNoMinerals rejects submissions without any target mineral.
var ErrNoMinerals = errors.New("at least one target mineral is required")

const statusCacheTTL = time.Hour

// Service is the public scan API: submit, inspect, list and delete jobs.
// Execution belongs to the Scheduler; the service never mutates a job's
// status after creation.
type Service struct {
	store     store.Store
	cache     cache.Cache
	gridBoxKm float64
}

func NewService(st store.Store, ca cache.Cache, gridBoxKm float64) *Service {
	return &Service{store: st, cache: ca, gridBoxKm: gridBoxKm}
}

// SubmitParams is a validated-on-entry scan submission.
type SubmitParams struct {
	Kind          string
	Latitude      *float64
	Longitude     *float64
	Country       string
	Region        string
	RadiusKm      *float64
	GridSpacingM  *float64
	Minerals      []string
	Sensor        string
	Resolution    string
	MaxCloudCover int
	DateStart     *time.Time
	DateEnd       *time.Time
}

// JobDetail is the inspection view: detections and summary are populated only
// for completed jobs.
type JobDetail struct {
	Job        *models.ScanJob
	Detections []*models.PixelDetection
	Summary    *models.ScanSummary
}

// Submit validates the request, persists a pending job and returns it.
// Geometry errors surface synchronously; the job is never created.
func (s *Service) Submit(ctx context.Context, params SubmitParams) (*models.ScanJob, error) {
	if len(params.Minerals) == 0 {
		return nil, ErrNoMinerals
	}

	area, err := geo.Resolve(geo.Request{
		Kind:         params.Kind,
		Latitude:     params.Latitude,
		Longitude:    params.Longitude,
		Country:      params.Country,
		Region:       params.Region,
		RadiusKm:     params.RadiusKm,
		GridSpacingM: params.GridSpacingM,
		GridBoxKm:    s.gridBoxKm,
		Sensor:       params.Sensor,
		Resolution:   params.Resolution,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &models.ScanJob{
		ID:            uuid.New(),
		Kind:          params.Kind,
		Latitude:      area.CenterLat,
		Longitude:     area.CenterLon,
		RadiusKm:      params.RadiusKm,
		GridSpacingM:  params.GridSpacingM,
		Minerals:      params.Minerals,
		Sensor:        params.Sensor,
		Resolution:    params.Resolution,
		MaxCloudCover: params.MaxCloudCover,
		DateStart:     params.DateStart,
		DateEnd:       params.DateEnd,
		AreaKm2:       area.AreaKm2,
		Status:        models.ScanStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if params.Country != "" {
		job.Country = &params.Country
	}
	if params.Region != "" {
		job.Region = &params.Region
	}

	if err := s.store.CreateScanJob(ctx, job); err != nil {
		return nil, fmt.Errorf("submit scan: %w", err)
	}

	// Best effort: the store remains the source of truth.
	if err := s.cache.SetJobStatus(ctx, job.ID, job.Status, statusCacheTTL); err != nil {
		slog.Warn("cache job status", "job_id", job.ID, "error", err)
	}

	return job, nil
}

// Get returns the job with its results when completed.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*JobDetail, error) {
	job, err := s.store.GetScanJob(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &JobDetail{Job: job}
	if job.Status != models.ScanStatusCompleted {
		return detail, nil
	}

	detections, err := s.store.ListDetections(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load detections: %w", err)
	}
	detail.Detections = detections

	summary, err := s.store.GetSummary(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load summary: %w", err)
	}
	detail.Summary = summary

	return detail, nil
}

// Status is the cheap poll path: answered from cache when possible, falling
// back to the store (and backfilling the cache) on a miss.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (string, error) {
	if status, found, err := s.cache.GetJobStatus(ctx, id); err == nil && found {
		return status, nil
	}

	job, err := s.store.GetScanJob(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.cache.SetJobStatus(ctx, id, job.Status, statusCacheTTL); err != nil {
		slog.Warn("cache job status", "job_id", id, "error", err)
	}
	return job.Status, nil
}

// List returns jobs newest first with an optional status filter.
func (s *Service) List(ctx context.Context, filter store.ScanFilter) ([]*models.ScanJob, int, error) {
	return s.store.ListScanJobs(ctx, filter)
}

// Delete archives the job and purges its results. Deleting a running job does
// not interrupt an in-flight tick; the run's late writes land as no-ops.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.ArchiveScanJob(ctx, id); err != nil {
		return err
	}
	if err := s.cache.DeleteJobStatus(ctx, id); err != nil {
		slog.Warn("drop cached job status", "job_id", id, "error", err)
	}
	return nil
}
