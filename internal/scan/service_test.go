package scan

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spectramin/orescout/internal/geo"
	"github.com/spectramin/orescout/internal/store"
	"github.com/spectramin/orescout/pkg/models"
)

func ptrF(v float64) *float64 { return &v }

func newTestService() (*Service, *memStore, *memCache) {
	st := newMemStore()
	ca := newMemCache()
	return NewService(st, ca, geo.DefaultGridBoxKm), st, ca
}

func TestSubmitCreatesPendingJob(t *testing.T) {
	svc, st, ca := newTestService()
	ctx := context.Background()

	job, err := svc.Submit(ctx, SubmitParams{
		Kind:       models.ScanKindRadius,
		Latitude:   ptrF(-22.5),
		Longitude:  ptrF(119.0),
		RadiusKm:   ptrF(25),
		Minerals:   []string{"gold", "copper"},
		Sensor:     "sentinel-2",
		Resolution: "standard",
	})
	require.NoError(t, err)
	require.NotNil(t, job)

	assert.Equal(t, models.ScanStatusPending, job.Status)
	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.InDelta(t, math.Pi*25*25, job.AreaKm2, 1e-9)

	stored, err := st.GetScanJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScanStatusPending, stored.Status)

	status, found, err := ca.GetJobStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, models.ScanStatusPending, status)
}

func TestSubmitRequiresMinerals(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Submit(context.Background(), SubmitParams{
		Kind:      models.ScanKindPoint,
		Latitude:  ptrF(-22.5),
		Longitude: ptrF(119.0),
	})
	assert.ErrorIs(t, err, ErrNoMinerals)
}

func TestSubmitRejectsInvalidGeometry(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitParams{
		Kind:      models.ScanKindRadius,
		Latitude:  ptrF(-22.5),
		Longitude: ptrF(119.0),
		RadiusKm:  ptrF(500),
		Minerals:  []string{"gold"},
	})
	assert.ErrorIs(t, err, geo.ErrInvalidGeometry)

	_, total, err := st.ListScanJobs(ctx, store.ScanFilter{})
	require.NoError(t, err)
	assert.Zero(t, total, "rejected submission must not create a job")
}

func TestSubmitResolvesNamedRegion(t *testing.T) {
	svc, _, _ := newTestService()

	job, err := svc.Submit(context.Background(), SubmitParams{
		Kind:     models.ScanKindRadius,
		Region:   "pilbara",
		Country:  "australia",
		RadiusKm: ptrF(10),
		Minerals: []string{"iron"},
	})
	require.NoError(t, err)

	wantLat, wantLon, ok := geo.LookupRegion("pilbara")
	require.True(t, ok)
	assert.Equal(t, wantLat, job.Latitude)
	assert.Equal(t, wantLon, job.Longitude)
	require.NotNil(t, job.Region)
	assert.Equal(t, "pilbara", *job.Region)
}

func TestStatusServedFromCache(t *testing.T) {
	svc, _, ca := newTestService()
	ctx := context.Background()

	job, err := svc.Submit(ctx, SubmitParams{
		Kind:      models.ScanKindPoint,
		Latitude:  ptrF(-22.5),
		Longitude: ptrF(119.0),
		Minerals:  []string{"gold"},
	})
	require.NoError(t, err)

	// The cache can run ahead of the store while the scheduler works.
	require.NoError(t, ca.SetJobStatus(ctx, job.ID, models.ScanStatusRunning, time.Hour))

	status, err := svc.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScanStatusRunning, status)
}

func TestStatusBackfillsCacheOnMiss(t *testing.T) {
	svc, _, ca := newTestService()
	ctx := context.Background()

	job, err := svc.Submit(ctx, SubmitParams{
		Kind:      models.ScanKindPoint,
		Latitude:  ptrF(-22.5),
		Longitude: ptrF(119.0),
		Minerals:  []string{"gold"},
	})
	require.NoError(t, err)

	require.NoError(t, ca.DeleteJobStatus(ctx, job.ID))

	status, err := svc.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScanStatusPending, status)

	cached, found, err := ca.GetJobStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, models.ScanStatusPending, cached)
}

func TestStatusUnknownJob(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Status(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetReturnsResultsOnlyWhenCompleted(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()

	job, err := svc.Submit(ctx, SubmitParams{
		Kind:      models.ScanKindPoint,
		Latitude:  ptrF(-22.5),
		Longitude: ptrF(119.0),
		Minerals:  []string{"gold"},
	})
	require.NoError(t, err)

	detail, err := svc.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScanStatusPending, detail.Job.Status)
	assert.Empty(t, detail.Detections)
	assert.Nil(t, detail.Summary)

	// Drive the job to completed with one detection and a summary.
	claimed, err := st.ClaimPendingJobs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	require.NoError(t, st.CreateDetection(ctx, &models.PixelDetection{
		ID:         uuid.New(),
		JobID:      job.ID,
		Latitude:   -22.5,
		Longitude:  119.0,
		Mineral:    "gold",
		Confidence: 0.9,
		Tier:       models.TierDrillReady,
		DetectedAt: time.Now().UTC(),
	}))
	require.NoError(t, st.CreateSummary(ctx, &models.ScanSummary{
		JobID:                job.ID,
		TotalDetections:      1,
		PixelCountTotal:      9,
		DetectionRatePercent: 100.0 / 9.0,
		MineralCounts:        map[string]int{"gold": 1},
		CreatedAt:            time.Now().UTC(),
	}))
	require.NoError(t, st.UpdateJobStatus(ctx, job.ID, models.ScanStatusCompleted))

	detail, err = svc.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScanStatusCompleted, detail.Job.Status)
	require.Len(t, detail.Detections, 1)
	assert.Equal(t, "gold", detail.Detections[0].Mineral)
	require.NotNil(t, detail.Summary)
	assert.Equal(t, int64(1), detail.Summary.TotalDetections)
}

func TestDeleteArchivesJob(t *testing.T) {
	svc, _, ca := newTestService()
	ctx := context.Background()

	job, err := svc.Submit(ctx, SubmitParams{
		Kind:      models.ScanKindPoint,
		Latitude:  ptrF(-22.5),
		Longitude: ptrF(119.0),
		Minerals:  []string{"gold"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, job.ID))

	_, err = svc.Get(ctx, job.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, found, err := ca.GetJobStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, found)

	// Idempotency is the caller's concern: a second delete is not found.
	assert.ErrorIs(t, svc.Delete(ctx, job.ID), store.ErrNotFound)
}
