package models

import (
	"time"

	"github.com/google/uuid"
)

// ScanSummary is the per-job aggregate computed once when a job completes.
// Immutable thereafter; a completed job is terminal and never reprocessed.
type ScanSummary struct {
	JobID                uuid.UUID      `db:"job_id"                 json:"job_id"`
	TotalDetections      int64          `db:"total_detections"       json:"total_detections"`
	PixelCountTotal      int64          `db:"pixel_count_total"      json:"pixel_count_total"`
	DetectionRatePercent float64        `db:"detection_rate_percent" json:"detection_rate_percent"`
	MineralCounts        map[string]int `db:"mineral_counts"         json:"mineral_counts"`
	DurationSeconds      float64        `db:"duration_seconds"       json:"duration_seconds"`
	CreatedAt            time.Time      `db:"created_at"             json:"created_at"`
}
