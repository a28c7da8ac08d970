package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spectramin/orescout/internal/cache"
	"github.com/spectramin/orescout/internal/evaluator"
	"github.com/spectramin/orescout/internal/geo"
	"github.com/spectramin/orescout/internal/metrics"
	"github.com/spectramin/orescout/internal/store"
	"github.com/spectramin/orescout/pkg/models"
)

// Error codes captured into failed jobs.
const (
	errCodeInvalidGeometry      = "INVALID_GEOMETRY"
	errCodeEvaluatorUnavailable = "EVALUATOR_UNAVAILABLE"
	errCodeEvaluationFailed     = "EVALUATION_FAILED"
	errCodePersistence          = "PERSISTENCE_ERROR"
)

// scanError pairs an execution failure with the code recorded on the job.
type scanError struct {
	code string
	err  error
}

func (e *scanError) Error() string { return e.err.Error() }
func (e *scanError) Unwrap() error { return e.err }

func scanErr(code string, err error) *scanError {
	return &scanError{code: code, err: err}
}

// Scheduler drains pending scan jobs on a fixed tick. A single instance per
// process; the CAS guard makes an overlapping tick a no-op rather than a
// queued one. Claiming is transactional in the store, so even multiple
// processes never score the same job twice.
type Scheduler struct {
	store     store.Store
	cache     cache.Cache
	eval      evaluator.Evaluator
	metrics   *metrics.ScanMetrics
	interval  time.Duration
	batchSize int
	gridBoxKm float64

	ticking atomic.Bool
}

func NewScheduler(st store.Store, ca cache.Cache, eval evaluator.Evaluator, m *metrics.ScanMetrics, interval time.Duration, batchSize int, gridBoxKm float64) *Scheduler {
	return &Scheduler{
		store:     st,
		cache:     ca,
		eval:      eval,
		metrics:   m,
		interval:  interval,
		batchSize: batchSize,
		gridBoxKm: gridBoxKm,
	}
}

// Run ticks until the context is cancelled. The first tick fires immediately
// so a restart picks up queued work without waiting a full interval.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("scan scheduler started", "interval", s.interval, "batch_size", s.batchSize, "evaluator", s.eval.Name())

	if err := s.ProcessPending(ctx); err != nil {
		slog.Error("scheduler tick failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scan scheduler stopped")
			return
		case <-ticker.C:
			if err := s.ProcessPending(ctx); err != nil {
				slog.Error("scheduler tick failed", "error", err)
			}
		}
	}
}

// ProcessPending claims up to batchSize pending jobs (oldest first) and runs
// them to completion or failure. Re-entrant calls while a tick is executing
// are skipped, not queued.
func (s *Scheduler) ProcessPending(ctx context.Context) error {
	if !s.ticking.CompareAndSwap(false, true) {
		slog.Debug("previous tick still running, skipping")
		return nil
	}
	defer s.ticking.Store(false)

	jobs, err := s.store.ClaimPendingJobs(ctx, s.batchSize)
	if err != nil {
		return fmt.Errorf("claim pending jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}

	for _, job := range jobs {
		s.runJob(ctx, job)
	}
	return nil
}

// runJob drives one claimed job through tiling and evaluation. All errors are
// captured into the job's failed state; nothing propagates to the tick.
func (s *Scheduler) runJob(ctx context.Context, job *models.ScanJob) {
	start := time.Now()
	s.metrics.StartJob()
	s.setCachedStatus(ctx, job.ID, models.ScanStatusRunning)
	slog.Info("scan job started", "job_id", job.ID, "kind", job.Kind, "minerals", job.Minerals, "area_km2", job.AreaKm2)

	summary, err := s.executeScan(ctx, job)
	if err != nil {
		s.failJob(ctx, job, err)
		s.metrics.FinishJob(models.ScanStatusFailed, time.Since(start))
		return
	}

	summary.DurationSeconds = time.Since(start).Seconds()
	if err := s.store.CreateSummary(ctx, summary); err != nil {
		s.failJob(ctx, job, scanErr(errCodePersistence, fmt.Errorf("persist summary: %w", err)))
		s.metrics.FinishJob(models.ScanStatusFailed, time.Since(start))
		return
	}

	if err := s.store.UpdateJobStatus(ctx, job.ID, models.ScanStatusCompleted); err != nil {
		// A delete racing the run lands here: the tombstoned job rejects the
		// transition and the caller already observes "not found".
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidTransition) {
			slog.Warn("job no longer updatable, likely deleted mid-run", "job_id", job.ID, "error", err)
			s.metrics.FinishJob(models.ScanStatusArchived, time.Since(start))
			return
		}
		// Transient store error on the completion write. Best effort: record a
		// terminal failed state so the client is not left polling a job that
		// will never advance. If the store is down this write fails too and
		// only the log remains.
		s.failJob(ctx, job, scanErr(errCodePersistence, fmt.Errorf("complete scan job: %w", err)))
		s.metrics.FinishJob(models.ScanStatusFailed, time.Since(start))
		return
	}

	s.setCachedStatus(ctx, job.ID, models.ScanStatusCompleted)
	s.metrics.FinishJob(models.ScanStatusCompleted, time.Since(start))
	slog.Info("scan job completed", "job_id", job.ID,
		"cells", summary.PixelCountTotal, "detections", summary.TotalDetections,
		"detection_rate_pct", summary.DetectionRatePercent)
}

// executeScan streams cells through the evaluator fan-out, appending accepted
// detections incrementally so memory stays bounded for arbitrarily large areas.
func (s *Scheduler) executeScan(ctx context.Context, job *models.ScanJob) (*models.ScanSummary, error) {
	area, err := geo.Resolve(geo.Request{
		Kind:         job.Kind,
		Latitude:     &job.Latitude,
		Longitude:    &job.Longitude,
		RadiusKm:     job.RadiusKm,
		GridSpacingM: job.GridSpacingM,
		GridBoxKm:    s.gridBoxKm,
		Sensor:       job.Sensor,
		Resolution:   job.Resolution,
	})
	if err != nil {
		return nil, scanErr(errCodeInvalidGeometry, err)
	}

	var (
		cellCount     int64
		detCount      int64
		mineralCounts = make(map[string]int, len(job.Minerals))
	)

	stream := geo.Cells(area)
	for {
		cell, ok := stream.Next()
		if !ok {
			break
		}
		cellCount++

		for _, mineral := range job.Minerals {
			det, err := s.eval.Evaluate(ctx, cell, mineral)
			if err != nil {
				if errors.Is(err, evaluator.ErrEvaluatorUnavailable) {
					return nil, scanErr(errCodeEvaluatorUnavailable, err)
				}
				return nil, scanErr(errCodeEvaluationFailed, err)
			}
			s.metrics.CellEvaluated()
			if det == nil {
				continue
			}

			tier := models.TierForConfidence(det.Confidence)
			if tier == models.TierRejected {
				continue
			}

			pd := &models.PixelDetection{
				ID:            uuid.New(),
				JobID:         job.ID,
				Latitude:      cell.Latitude,
				Longitude:     cell.Longitude,
				Mineral:       mineral,
				Confidence:    det.Confidence,
				Tier:          tier,
				SpectralMatch: det.SpectralMatch,
				Features:      det.Features,
				DetectedAt:    time.Now().UTC(),
			}
			if err := s.store.CreateDetection(ctx, pd); err != nil {
				return nil, scanErr(errCodePersistence, err)
			}
			detCount++
			mineralCounts[mineral]++
			s.metrics.DetectionAccepted(tier)
		}
	}

	rate := 0.0
	if cellCount > 0 {
		rate = 100 * float64(detCount) / float64(cellCount)
	}

	return &models.ScanSummary{
		JobID:                job.ID,
		TotalDetections:      detCount,
		PixelCountTotal:      cellCount,
		DetectionRatePercent: rate,
		MineralCounts:        mineralCounts,
		CreatedAt:            time.Now().UTC(),
	}, nil
}

// failJob captures an execution error into the job. Detections written before
// the failure stay visible; there is no retry and no rollback.
func (s *Scheduler) failJob(ctx context.Context, job *models.ScanJob, cause error) {
	code := errCodeEvaluationFailed
	var se *scanError
	if errors.As(cause, &se) {
		code = se.code
	}

	slog.Error("scan job failed", "job_id", job.ID, "code", code, "error", cause)

	err := s.store.UpdateJobStatus(ctx, job.ID, models.ScanStatusFailed,
		store.WithJobError(code, cause.Error()))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidTransition) {
			slog.Warn("job no longer updatable, likely deleted mid-run", "job_id", job.ID, "error", err)
			return
		}
		slog.Error("record job failure", "job_id", job.ID, "error", err)
		return
	}
	s.setCachedStatus(ctx, job.ID, models.ScanStatusFailed)
}

func (s *Scheduler) setCachedStatus(ctx context.Context, id uuid.UUID, status string) {
	if err := s.cache.SetJobStatus(ctx, id, status, statusCacheTTL); err != nil {
		slog.Warn("cache job status", "job_id", id, "error", err)
	}
}
