package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/spectramin/orescout/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrInvalidTransition = errors.New("invalid job status transition")

// Store is the data access interface. All database operations go through here.
//
// scan_jobs is the source of truth for job ownership; scan_queue is a marker
// relation that only accelerates the pending lookup and is removed on claim.
type Store interface {
	Ping(ctx context.Context) error

	CreateScanJob(ctx context.Context, job *models.ScanJob) error
	GetScanJob(ctx context.Context, id uuid.UUID) (*models.ScanJob, error)
	ListScanJobs(ctx context.Context, filter ScanFilter) ([]*models.ScanJob, int, error)

	// ClaimPendingJobs atomically moves up to limit pending jobs (oldest first)
	// to running and removes their queue markers. Safe under concurrent callers:
	// a job is returned to exactly one of them.
	ClaimPendingJobs(ctx context.Context, limit int) ([]*models.ScanJob, error)

	// UpdateJobStatus is the sole status mutator outside of claim. It validates
	// the transition, stamps started_at on entry to running and completed_at
	// plus duration on entry to a terminal state.
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error

	// ArchiveScanJob tombstones the job and purges its detections, summary and
	// queue marker in one transaction. Archived jobs read as not found.
	ArchiveScanJob(ctx context.Context, id uuid.UUID) error

	CreateDetection(ctx context.Context, d *models.PixelDetection) error
	ListDetections(ctx context.Context, jobID uuid.UUID) ([]*models.PixelDetection, error)

	CreateSummary(ctx context.Context, s *models.ScanSummary) error
	GetSummary(ctx context.Context, jobID uuid.UUID) (*models.ScanSummary, error)
}

type ScanFilter struct {
	Status string
	Page   int
	Limit  int
}

// JobUpdate collects the optional fields of a status update.
type JobUpdate struct {
	ErrorCode    *string
	ErrorMessage *string
}

type JobUpdateOption func(*JobUpdate)

// NewJobUpdate resolves options into their applied form.
func NewJobUpdate(opts ...JobUpdateOption) JobUpdate {
	var u JobUpdate
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

// WithJobError records why a job failed. Required for the failed status.
func WithJobError(code, msg string) JobUpdateOption {
	return func(u *JobUpdate) {
		u.ErrorCode = &code
		u.ErrorMessage = &msg
	}
}
