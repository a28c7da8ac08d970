package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ScanStatusPending   = "pending"
	ScanStatusRunning   = "running"
	ScanStatusCompleted = "completed"
	ScanStatusFailed    = "failed"
	ScanStatusArchived  = "archived"
)

const (
	ScanKindPoint  = "point"
	ScanKindRadius = "radius"
	ScanKindGrid   = "grid"
)

// ScanJob tracks an async mineral scan. The API returns a job_id on POST /api/v1/scans;
// the client polls GET /api/v1/scans/{job_id} until status is completed or failed.
type ScanJob struct {
	ID              uuid.UUID  `db:"id"                json:"id"`
	Kind            string     `db:"kind"              json:"kind"`
	Latitude        float64    `db:"latitude"          json:"latitude"`
	Longitude       float64    `db:"longitude"         json:"longitude"`
	Country         *string    `db:"country"           json:"country,omitempty"`
	Region          *string    `db:"region"            json:"region,omitempty"`
	RadiusKm        *float64   `db:"radius_km"         json:"radius_km,omitempty"`
	GridSpacingM    *float64   `db:"grid_spacing_m"    json:"grid_spacing_m,omitempty"`
	Minerals        []string   `db:"minerals"          json:"minerals"`
	Sensor          string     `db:"sensor"            json:"sensor"`
	Resolution      string     `db:"resolution"        json:"resolution"`
	MaxCloudCover   int        `db:"max_cloud_cover"   json:"max_cloud_cover_percent"`
	DateStart       *time.Time `db:"date_start"        json:"date_start,omitempty"`
	DateEnd         *time.Time `db:"date_end"          json:"date_end,omitempty"`
	AreaKm2         float64    `db:"area_km2"          json:"area_km2"`
	Status          string     `db:"status"            json:"status"`
	ErrorCode       *string    `db:"error_code"        json:"error_code,omitempty"`
	ErrorMessage    *string    `db:"error_message"     json:"error_message,omitempty"`
	StartedAt       *time.Time `db:"started_at"        json:"started_at,omitempty"`
	CompletedAt     *time.Time `db:"completed_at"      json:"completed_at,omitempty"`
	DurationSeconds *float64   `db:"duration_seconds"  json:"duration_seconds,omitempty"`
	CreatedAt       time.Time  `db:"created_at"        json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"        json:"updated_at"`
}

// LocationDescription renders a human-readable label for where the scan runs.
func (j *ScanJob) LocationDescription() string {
	if j.Region != nil && *j.Region != "" {
		if j.Country != nil && *j.Country != "" {
			return *j.Region + ", " + *j.Country
		}
		return *j.Region
	}
	if j.Country != nil && *j.Country != "" {
		return *j.Country
	}
	return formatCoords(j.Latitude, j.Longitude)
}
