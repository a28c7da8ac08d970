package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PixelDetection is one accepted detection: a single ground cell scored above the
// acceptance threshold for a single mineral. Deleted en masse with its job.
type PixelDetection struct {
	ID            uuid.UUID          `db:"id"             json:"id"`
	JobID         uuid.UUID          `db:"job_id"         json:"job_id"`
	Latitude      float64            `db:"latitude"       json:"latitude"`
	Longitude     float64            `db:"longitude"      json:"longitude"`
	Mineral       string             `db:"mineral"        json:"mineral"`
	Confidence    float64            `db:"confidence"     json:"confidence"`
	Tier          string             `db:"tier"           json:"tier"`
	SpectralMatch float64            `db:"spectral_match" json:"spectral_match"`
	Features      map[string]float64 `db:"features"       json:"features,omitempty"`
	DetectedAt    time.Time          `db:"detected_at"    json:"detected_at"`
}

func formatCoords(lat, lon float64) string {
	return fmt.Sprintf("%.4f, %.4f", lat, lon)
}
