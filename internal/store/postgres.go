package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spectramin/orescout/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const jobColumns = `id, kind, latitude, longitude, country, region, radius_km, grid_spacing_m,
	minerals, sensor, resolution, max_cloud_cover, date_start, date_end, area_km2,
	status, error_code, error_message, started_at, completed_at, duration_seconds,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.ScanJob, error) {
	var j models.ScanJob
	err := row.Scan(&j.ID, &j.Kind, &j.Latitude, &j.Longitude, &j.Country, &j.Region,
		&j.RadiusKm, &j.GridSpacingM, &j.Minerals, &j.Sensor, &j.Resolution,
		&j.MaxCloudCover, &j.DateStart, &j.DateEnd, &j.AreaKm2,
		&j.Status, &j.ErrorCode, &j.ErrorMessage, &j.StartedAt, &j.CompletedAt,
		&j.DurationSeconds, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// --- Scan jobs ---

// CreateScanJob inserts the job and its queue marker in one transaction so a
// pending job is always discoverable by the scheduler.
func (s *PostgresStore) CreateScanJob(ctx context.Context, job *models.ScanJob) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create scan job: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO scan_jobs (id, kind, latitude, longitude, country, region, radius_km, grid_spacing_m,
		   minerals, sensor, resolution, max_cloud_cover, date_start, date_end, area_km2,
		   status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		job.ID, job.Kind, job.Latitude, job.Longitude, job.Country, job.Region,
		job.RadiusKm, job.GridSpacingM, job.Minerals, job.Sensor, job.Resolution,
		job.MaxCloudCover, job.DateStart, job.DateEnd, job.AreaKm2,
		job.Status, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create scan job: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO scan_queue (job_id, enqueued_at) VALUES ($1, $2)`,
		job.ID, job.CreatedAt); err != nil {
		return fmt.Errorf("enqueue scan job: %w", err)
	}

	return tx.Commit(ctx)
}

// GetScanJob returns the job unless it is archived; archived reads as not found.
func (s *PostgresStore) GetScanJob(ctx context.Context, id uuid.UUID) (*models.ScanJob, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM scan_jobs WHERE id = $1 AND status <> 'archived'`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scan job: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) ListScanJobs(ctx context.Context, filter ScanFilter) ([]*models.ScanJob, int, error) {
	conditions := []string{"status <> 'archived'"}
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM scan_jobs WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count scan jobs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	dataQuery := fmt.Sprintf(
		`SELECT `+jobColumns+` FROM scan_jobs WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list scan jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ScanJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, total, rows.Err()
}

// ClaimPendingJobs selects the oldest pending jobs through the queue markers,
// flips them to running and drops the markers, all in one transaction.
// FOR UPDATE SKIP LOCKED keeps concurrent claimers from taking the same job.
func (s *PostgresStore) ClaimPendingJobs(ctx context.Context, limit int) ([]*models.ScanJob, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`UPDATE scan_jobs SET status = 'running', started_at = NOW(), updated_at = NOW()
		 WHERE id IN (
		   SELECT j.id FROM scan_jobs j
		   JOIN scan_queue q ON q.job_id = j.id
		   WHERE j.status = 'pending'
		   ORDER BY j.created_at ASC
		   LIMIT $1
		   FOR UPDATE OF j SKIP LOCKED
		 )
		 RETURNING `+jobColumns, limit)
	if err != nil {
		return nil, fmt.Errorf("claim pending jobs: %w", err)
	}

	var jobs []*models.ScanJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan claimed job: %w", err)
		}
		jobs = append(jobs, j)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim pending jobs: %w", err)
	}

	// RETURNING order is unspecified; callers expect oldest first.
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].CreatedAt.Before(jobs[k].CreatedAt) })

	if len(jobs) > 0 {
		ids := make([]uuid.UUID, len(jobs))
		for i, j := range jobs {
			ids[i] = j.ID
		}
		if _, err := tx.Exec(ctx, `DELETE FROM scan_queue WHERE job_id = ANY($1)`, ids); err != nil {
			return nil, fmt.Errorf("dequeue claimed jobs: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return jobs, nil
}

var validTransitions = map[string][]string{
	models.ScanStatusPending:   {models.ScanStatusRunning, models.ScanStatusArchived},
	models.ScanStatusRunning:   {models.ScanStatusCompleted, models.ScanStatusFailed, models.ScanStatusArchived},
	models.ScanStatusCompleted: {models.ScanStatusArchived},
	models.ScanStatusFailed:    {models.ScanStatusArchived},
	models.ScanStatusArchived:  {},
}

func transitionAllowed(from, to string) bool {
	for _, a := range validTransitions[from] {
		if a == to {
			return true
		}
	}
	return false
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error {
	params := NewJobUpdate(opts...)

	if status == models.ScanStatusFailed {
		if params.ErrorCode == nil || *params.ErrorCode == "" ||
			params.ErrorMessage == nil || *params.ErrorMessage == "" {
			return fmt.Errorf("failed status requires a non-empty error code and message")
		}
	}

	var currentStatus string
	var startedAt *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT status, started_at FROM scan_jobs WHERE id = $1`, id).Scan(&currentStatus, &startedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get scan job status: %w", err)
	}

	if !transitionAllowed(currentStatus, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, currentStatus, status)
	}

	now := time.Now().UTC()
	query := `UPDATE scan_jobs SET status = $2, updated_at = $3`
	args := []any{id, status, now}
	argIdx := 4

	if status == models.ScanStatusRunning {
		query += fmt.Sprintf(", started_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if status == models.ScanStatusCompleted || status == models.ScanStatusFailed {
		query += fmt.Sprintf(", completed_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
		if startedAt != nil {
			query += fmt.Sprintf(", duration_seconds = $%d", argIdx)
			args = append(args, now.Sub(*startedAt).Seconds())
			argIdx++
		}
	}
	if params.ErrorCode != nil {
		query += fmt.Sprintf(", error_code = $%d", argIdx)
		args = append(args, *params.ErrorCode)
		argIdx++
	}
	if params.ErrorMessage != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *params.ErrorMessage)
		argIdx++
	}

	// Conditional on the status we validated against, so a concurrent archive
	// between the check and the write cannot be overwritten. An archived job
	// must stay archived or Get would resurrect a row whose results are purged.
	query += fmt.Sprintf(" WHERE id = $1 AND status = $%d", argIdx)
	args = append(args, currentStatus)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update scan job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var observed string
		err := s.pool.QueryRow(ctx,
			`SELECT status FROM scan_jobs WHERE id = $1`, id).Scan(&observed)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("re-read scan job status: %w", err)
		}
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, observed, status)
	}
	return nil
}

// ArchiveScanJob tombstones the job and purges its detections, summary and
// queue marker. The tombstone keeps the id unusable while Get/List read
// archived rows as absent.
func (s *PostgresStore) ArchiveScanJob(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin archive: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE scan_jobs SET status = 'archived', updated_at = NOW()
		 WHERE id = $1 AND status <> 'archived'`, id)
	if err != nil {
		return fmt.Errorf("archive scan job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM pixel_detections WHERE job_id = $1`, id); err != nil {
		return fmt.Errorf("purge detections: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM scan_summaries WHERE job_id = $1`, id); err != nil {
		return fmt.Errorf("purge summary: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM scan_queue WHERE job_id = $1`, id); err != nil {
		return fmt.Errorf("purge queue marker: %w", err)
	}

	return tx.Commit(ctx)
}

// --- Detections ---

func (s *PostgresStore) CreateDetection(ctx context.Context, d *models.PixelDetection) error {
	features, err := json.Marshal(d.Features)
	if err != nil {
		return fmt.Errorf("marshal detection features: %w", err)
	}

	// Guarded insert: a job archived mid-run stops accumulating detections, so
	// the purge done by ArchiveScanJob stays final.
	_, err = s.pool.Exec(ctx,
		`INSERT INTO pixel_detections (id, job_id, latitude, longitude, mineral, confidence, tier, spectral_match, features, detected_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		 FROM scan_jobs WHERE id = $2 AND status = 'running'`,
		d.ID, d.JobID, d.Latitude, d.Longitude, d.Mineral, d.Confidence, d.Tier,
		d.SpectralMatch, features, d.DetectedAt)
	if err != nil {
		return fmt.Errorf("create detection: %w", err)
	}
	return nil
}

// ListDetections returns a job's detections in append order, which is the
// tiler's row-major cell order interleaved with the requested mineral order.
func (s *PostgresStore) ListDetections(ctx context.Context, jobID uuid.UUID) ([]*models.PixelDetection, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, job_id, latitude, longitude, mineral, confidence, tier, spectral_match, features, detected_at
		 FROM pixel_detections WHERE job_id = $1 ORDER BY seq ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list detections: %w", err)
	}
	defer rows.Close()

	var detections []*models.PixelDetection
	for rows.Next() {
		var d models.PixelDetection
		var features []byte
		if err := rows.Scan(&d.ID, &d.JobID, &d.Latitude, &d.Longitude, &d.Mineral,
			&d.Confidence, &d.Tier, &d.SpectralMatch, &features, &d.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan detection: %w", err)
		}
		if len(features) > 0 {
			if err := json.Unmarshal(features, &d.Features); err != nil {
				return nil, fmt.Errorf("unmarshal detection features: %w", err)
			}
		}
		detections = append(detections, &d)
	}
	return detections, rows.Err()
}

// --- Summaries ---

func (s *PostgresStore) CreateSummary(ctx context.Context, sum *models.ScanSummary) error {
	counts, err := json.Marshal(sum.MineralCounts)
	if err != nil {
		return fmt.Errorf("marshal mineral counts: %w", err)
	}

	// Guarded insert: if the job was archived while the scan was running, the
	// summary write silently lands on nothing instead of resurrecting results.
	_, err = s.pool.Exec(ctx,
		`INSERT INTO scan_summaries (job_id, total_detections, pixel_count_total, detection_rate_percent, mineral_counts, duration_seconds, created_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7
		 FROM scan_jobs WHERE id = $1 AND status = 'running'`,
		sum.JobID, sum.TotalDetections, sum.PixelCountTotal, sum.DetectionRatePercent,
		counts, sum.DurationSeconds, sum.CreatedAt)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSummary(ctx context.Context, jobID uuid.UUID) (*models.ScanSummary, error) {
	var sum models.ScanSummary
	var counts []byte
	err := s.pool.QueryRow(ctx,
		`SELECT job_id, total_detections, pixel_count_total, detection_rate_percent, mineral_counts, duration_seconds, created_at
		 FROM scan_summaries WHERE job_id = $1`, jobID,
	).Scan(&sum.JobID, &sum.TotalDetections, &sum.PixelCountTotal, &sum.DetectionRatePercent,
		&counts, &sum.DurationSeconds, &sum.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	if err := json.Unmarshal(counts, &sum.MineralCounts); err != nil {
		return nil, fmt.Errorf("unmarshal mineral counts: %w", err)
	}
	return &sum, nil
}
