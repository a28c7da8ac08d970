package scan

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spectramin/orescout/internal/store"
	"github.com/spectramin/orescout/pkg/models"
)

// memStore is an in-memory store.Store with the same lifecycle semantics as
// the Postgres implementation: transition validation, claim exclusivity, and
// guarded result writes that no-op unless the job is running.
type memStore struct {
	mu         sync.Mutex
	jobs       map[uuid.UUID]*models.ScanJob
	queue      map[uuid.UUID]bool
	detections []*models.PixelDetection
	summaries  map[uuid.UUID]*models.ScanSummary
	claims     map[uuid.UUID]int
	statusErrs map[string]error // one-shot injected errors per target status
}

func newMemStore() *memStore {
	return &memStore{
		jobs:       make(map[uuid.UUID]*models.ScanJob),
		queue:      make(map[uuid.UUID]bool),
		summaries:  make(map[uuid.UUID]*models.ScanSummary),
		claims:     make(map[uuid.UUID]int),
		statusErrs: make(map[string]error),
	}
}

// failNextStatusUpdate makes the next UpdateJobStatus call targeting the given
// status fail once with err.
func (m *memStore) failNextStatusUpdate(status string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusErrs[status] = err
}

var memTransitions = map[string][]string{
	models.ScanStatusPending:   {models.ScanStatusRunning, models.ScanStatusArchived},
	models.ScanStatusRunning:   {models.ScanStatusCompleted, models.ScanStatusFailed, models.ScanStatusArchived},
	models.ScanStatusCompleted: {models.ScanStatusArchived},
	models.ScanStatusFailed:    {models.ScanStatusArchived},
	models.ScanStatusArchived:  {},
}

func (m *memStore) Ping(ctx context.Context) error { return nil }

func (m *memStore) CreateScanJob(ctx context.Context, job *models.ScanJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	m.queue[job.ID] = true
	return nil
}

func (m *memStore) GetScanJob(ctx context.Context, id uuid.UUID) (*models.ScanJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status == models.ScanStatusArchived {
		return nil, store.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *memStore) ListScanJobs(ctx context.Context, filter store.ScanFilter) ([]*models.ScanJob, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ScanJob
	for _, job := range m.jobs {
		if job.Status == models.ScanStatusArchived {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		cp := *job
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, len(out), nil
}

func (m *memStore) ClaimPendingJobs(ctx context.Context, limit int) ([]*models.ScanJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*models.ScanJob
	for id := range m.queue {
		if job := m.jobs[id]; job != nil && job.Status == models.ScanStatusPending {
			pending = append(pending, job)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if len(pending) > limit {
		pending = pending[:limit]
	}

	now := time.Now().UTC()
	var claimed []*models.ScanJob
	for _, job := range pending {
		job.Status = models.ScanStatusRunning
		job.StartedAt = &now
		job.UpdatedAt = now
		delete(m.queue, job.ID)
		m.claims[job.ID]++
		cp := *job
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (m *memStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...store.JobUpdateOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.statusErrs[status]; ok {
		delete(m.statusErrs, status)
		return err
	}
	job, ok := m.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	allowed := false
	for _, next := range memTransitions[job.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return store.ErrInvalidTransition
	}

	u := store.NewJobUpdate(opts...)
	if status == models.ScanStatusFailed {
		if u.ErrorCode == nil || *u.ErrorCode == "" || u.ErrorMessage == nil || *u.ErrorMessage == "" {
			return errors.New("failed status requires an error code and message")
		}
	}

	now := time.Now().UTC()
	job.Status = status
	job.UpdatedAt = now
	switch status {
	case models.ScanStatusCompleted, models.ScanStatusFailed:
		job.CompletedAt = &now
		if job.StartedAt != nil {
			d := now.Sub(*job.StartedAt).Seconds()
			job.DurationSeconds = &d
		}
	}
	if status == models.ScanStatusFailed {
		job.ErrorCode = u.ErrorCode
		job.ErrorMessage = u.ErrorMessage
	}
	return nil
}

func (m *memStore) ArchiveScanJob(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status == models.ScanStatusArchived {
		return store.ErrNotFound
	}
	job.Status = models.ScanStatusArchived
	job.UpdatedAt = time.Now().UTC()
	delete(m.queue, id)
	delete(m.summaries, id)
	kept := m.detections[:0]
	for _, d := range m.detections {
		if d.JobID != id {
			kept = append(kept, d)
		}
	}
	m.detections = kept
	return nil
}

func (m *memStore) CreateDetection(ctx context.Context, d *models.PixelDetection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[d.JobID]
	if !ok || job.Status != models.ScanStatusRunning {
		return nil
	}
	cp := *d
	m.detections = append(m.detections, &cp)
	return nil
}

func (m *memStore) ListDetections(ctx context.Context, jobID uuid.UUID) ([]*models.PixelDetection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PixelDetection
	for _, d := range m.detections {
		if d.JobID == jobID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) CreateSummary(ctx context.Context, sum *models.ScanSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[sum.JobID]
	if !ok || job.Status != models.ScanStatusRunning {
		return nil
	}
	cp := *sum
	m.summaries[sum.JobID] = &cp
	return nil
}

func (m *memStore) GetSummary(ctx context.Context, jobID uuid.UUID) (*models.ScanSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum, ok := m.summaries[jobID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *sum
	return &cp, nil
}

func (m *memStore) claimCount(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claims[id]
}

func (m *memStore) detectionCount(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, d := range m.detections {
		if d.JobID == id {
			n++
		}
	}
	return n
}

// memCache is an in-memory cache.Cache. TTLs are ignored.
type memCache struct {
	mu       sync.Mutex
	values   map[string][]byte
	statuses map[uuid.UUID]string
	counters map[string]int64
}

func newMemCache() *memCache {
	return &memCache{
		values:   make(map[string][]byte),
		statuses: make(map[uuid.UUID]string),
		counters: make(map[string]int64),
	}
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

func (c *memCache) Ping(ctx context.Context) error { return nil }

func (c *memCache) SetJobStatus(ctx context.Context, jobID uuid.UUID, status string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[jobID] = status
	return nil
}

func (c *memCache) GetJobStatus(ctx context.Context, jobID uuid.UUID) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.statuses[jobID]
	return s, ok, nil
}

func (c *memCache) DeleteJobStatus(ctx context.Context, jobID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.statuses, jobID)
	return nil
}

func (c *memCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key]++
	return c.counters[key], nil
}
