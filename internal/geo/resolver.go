// Package geo converts scan requests into canonical area descriptors and
// enumerates the ground cells covering them.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spectramin/orescout/pkg/models"
)

// ErrInvalidGeometry marks a scan request whose geometry cannot be resolved.
// Surfaced synchronously at submission; the job is never created.
var ErrInvalidGeometry = errors.New("invalid scan geometry")

const (
	// MetersPerDegree is a fixed equatorial approximation. Acceptable for
	// exploration-scale tolerances; this is a modeling approximation, not a
	// geodesic solution.
	MetersPerDegree = 111000.0

	// MaxRadiusKm bounds radius scans.
	MaxRadiusKm = 200.0

	// DefaultGridBoxKm is the side length of the bounding box for grid scans
	// when no override is configured.
	DefaultGridBoxKm = 100.0
)

// Native pixel size in meters per supported sensor.
var sensorPixelSizeM = map[string]float64{
	"sentinel-2":  10,
	"landsat-8":   30,
	"landsat-9":   30,
	"aster":       15,
	"worldview-3": 3.7,
}

const defaultPixelSizeM = 10

// Cell size in meters per resolution class for radius scans.
// Grid scans take their cell size from grid_spacing_m instead.
var resolutionCellSizeM = map[string]float64{
	"native":   0, // sensor native pixel size
	"fine":     30,
	"standard": 100,
	"coarse":   1000,
}

// Request is the geometry-relevant slice of a scan submission.
type Request struct {
	Kind         string
	Latitude     *float64
	Longitude    *float64
	Country      string
	Region       string
	RadiusKm     *float64
	GridSpacingM *float64
	GridBoxKm    float64 // 0 means DefaultGridBoxKm
	Sensor       string
	Resolution   string
}

// AreaDescriptor is the canonical description of the ground area a scan covers.
type AreaDescriptor struct {
	Kind       string
	CenterLat  float64
	CenterLon  float64
	RadiusM    float64 // radius scans only
	BoxWidthM  float64 // grid scans only
	BoxHeightM float64 // grid scans only
	CellSizeM  float64
	AreaKm2    float64
}

// Resolve validates a scan request and produces its area descriptor.
func Resolve(req Request) (AreaDescriptor, error) {
	switch req.Kind {
	case models.ScanKindPoint, models.ScanKindRadius, models.ScanKindGrid:
	default:
		return AreaDescriptor{}, fmt.Errorf("%w: unknown scan kind %q", ErrInvalidGeometry, req.Kind)
	}

	lat, lon, err := resolveCenter(req)
	if err != nil {
		return AreaDescriptor{}, err
	}

	pixel := pixelSize(req.Sensor)

	switch req.Kind {
	case models.ScanKindPoint:
		// 3x3 neighborhood at native pixel size.
		side := 3 * pixel / 1000.0
		return AreaDescriptor{
			Kind:      models.ScanKindPoint,
			CenterLat: lat,
			CenterLon: lon,
			CellSizeM: pixel,
			AreaKm2:   side * side,
		}, nil

	case models.ScanKindRadius:
		if req.RadiusKm == nil {
			return AreaDescriptor{}, fmt.Errorf("%w: radius_km is required for radius scans", ErrInvalidGeometry)
		}
		r := *req.RadiusKm
		if r < 0 || r > MaxRadiusKm {
			return AreaDescriptor{}, fmt.Errorf("%w: radius_km %.2f outside [0, %.0f]", ErrInvalidGeometry, r, MaxRadiusKm)
		}
		cell, err := cellSize(req.Resolution, pixel)
		if err != nil {
			return AreaDescriptor{}, err
		}
		return AreaDescriptor{
			Kind:      models.ScanKindRadius,
			CenterLat: lat,
			CenterLon: lon,
			RadiusM:   r * 1000.0,
			CellSizeM: cell,
			AreaKm2:   math.Pi * r * r,
		}, nil

	default: // grid
		if req.GridSpacingM == nil || *req.GridSpacingM <= 0 {
			return AreaDescriptor{}, fmt.Errorf("%w: grid_spacing_m must be positive", ErrInvalidGeometry)
		}
		boxKm := req.GridBoxKm
		if boxKm <= 0 {
			boxKm = DefaultGridBoxKm
		}
		return AreaDescriptor{
			Kind:       models.ScanKindGrid,
			CenterLat:  lat,
			CenterLon:  lon,
			BoxWidthM:  boxKm * 1000.0,
			BoxHeightM: boxKm * 1000.0,
			CellSizeM:  *req.GridSpacingM,
			AreaKm2:    boxKm * boxKm,
		}, nil
	}
}

// resolveCenter picks explicit coordinates when present, otherwise falls back
// to the named region, then the country centroid.
func resolveCenter(req Request) (float64, float64, error) {
	if req.Latitude != nil && req.Longitude != nil {
		lat, lon := *req.Latitude, *req.Longitude
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return 0, 0, fmt.Errorf("%w: coordinates (%.4f, %.4f) out of range", ErrInvalidGeometry, lat, lon)
		}
		return lat, lon, nil
	}
	if req.Region != "" {
		if lat, lon, ok := LookupRegion(req.Region); ok {
			return lat, lon, nil
		}
		return 0, 0, fmt.Errorf("%w: unknown region %q", ErrInvalidGeometry, req.Region)
	}
	if req.Country != "" {
		if lat, lon, ok := LookupCountry(req.Country); ok {
			return lat, lon, nil
		}
		return 0, 0, fmt.Errorf("%w: unknown country %q", ErrInvalidGeometry, req.Country)
	}
	return 0, 0, fmt.Errorf("%w: either coordinates or a named country/region is required", ErrInvalidGeometry)
}

func pixelSize(sensor string) float64 {
	if px, ok := sensorPixelSizeM[strings.ToLower(sensor)]; ok {
		return px
	}
	return defaultPixelSizeM
}

func cellSize(resolution string, pixel float64) (float64, error) {
	if resolution == "" {
		resolution = "standard"
	}
	cell, ok := resolutionCellSizeM[strings.ToLower(resolution)]
	if !ok {
		return 0, fmt.Errorf("%w: unknown resolution class %q", ErrInvalidGeometry, resolution)
	}
	if cell == 0 {
		return pixel, nil
	}
	return cell, nil
}
