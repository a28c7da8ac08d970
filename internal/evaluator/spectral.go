package evaluator

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/spectramin/orescout/internal/geo"
	"github.com/spectramin/orescout/pkg/models"
)

// signature describes a mineral's diagnostic absorption features and how
// readily the library matcher separates it from background.
type signature struct {
	bands         []string // diagnostic wavelengths, micrometers
	detectability float64  // scales the raw match into a confidence
}

// Built-in spectral library. Wavelengths follow the USGS spectral library
// conventions for the short-wave infrared bands most sensors carry.
var spectralLibrary = map[string]signature{
	"chalcopyrite": {bands: []string{"0.55", "0.75", "2.33"}, detectability: 0.92},
	"gold":         {bands: []string{"0.50", "0.75"}, detectability: 0.78},
	"copper":       {bands: []string{"0.58", "0.85", "2.35"}, detectability: 0.90},
	"malachite":    {bands: []string{"0.80", "2.27"}, detectability: 0.88},
	"hematite":     {bands: []string{"0.65", "0.86"}, detectability: 0.95},
	"magnetite":    {bands: []string{"0.48", "1.00"}, detectability: 0.93},
	"lithium":      {bands: []string{"1.41", "1.91", "2.20"}, detectability: 0.82},
	"spodumene":    {bands: []string{"1.41", "2.20"}, detectability: 0.84},
	"kaolinite":    {bands: []string{"2.16", "2.21"}, detectability: 0.96},
	"alunite":      {bands: []string{"1.48", "2.17"}, detectability: 0.94},
	"pyrite":       {bands: []string{"0.55", "0.90"}, detectability: 0.85},
	"sphalerite":   {bands: []string{"0.60", "1.00"}, detectability: 0.80},
	"galena":       {bands: []string{"0.58", "0.95"}, detectability: 0.79},
	"uraninite":    {bands: []string{"0.66", "1.15"}, detectability: 0.76},
	"bauxite":      {bands: []string{"2.20", "2.32"}, detectability: 0.89},
}

// SpectralEvaluator is the built-in offline matcher: it synthesizes a stable
// per-cell reflectance profile and scores it against the spectral library.
// Fully deterministic so repeated scans of the same area agree.
type SpectralEvaluator struct{}

func NewSpectralEvaluator() *SpectralEvaluator {
	return &SpectralEvaluator{}
}

func (e *SpectralEvaluator) Name() string { return "spectral" }

func (e *SpectralEvaluator) Evaluate(_ context.Context, cell geo.Cell, mineral string) (*Detection, error) {
	sig, ok := spectralLibrary[strings.ToLower(mineral)]
	if !ok {
		// Unknown mineral: nothing in the library to match against.
		return nil, nil
	}

	match := 0.0
	features := make(map[string]float64, len(sig.bands))
	for _, band := range sig.bands {
		depth := bandDepth(cell, mineral, band)
		features[band] = depth
		match += depth
	}
	match /= float64(len(sig.bands))

	confidence := match * sig.detectability
	if confidence < models.TierReconnaissanceThreshold {
		return nil, nil
	}

	return &Detection{
		Confidence:    confidence,
		SpectralMatch: match,
		Features:      features,
	}, nil
}

// bandDepth derives a stable pseudo absorption depth in [0,1] for a cell,
// mineral and wavelength. Stand-in for real radiative transfer; the point is
// a reproducible, spatially varying field, not physical accuracy.
func bandDepth(cell geo.Cell, mineral, band string) float64 {
	h := fnv.New64a()
	h.Write([]byte(mineral))
	h.Write([]byte{0})
	h.Write([]byte(band))
	seed := float64(h.Sum64()%10000) / 10000.0

	// Smooth spatial variation keyed on the cell coordinate.
	wave := math.Sin(cell.Latitude*137.1+seed*math.Pi*2) * math.Cos(cell.Longitude*91.7-seed*math.Pi)
	return 0.5 + 0.5*wave*math.Sin(seed*math.Pi*2+float64(cell.Row-cell.Col)*0.31)
}

var _ Evaluator = (*SpectralEvaluator)(nil)
