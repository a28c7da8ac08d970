// Package evaluator defines the per-cell mineral scoring interface the scan
// core fans out to, and the factory for its implementations.
package evaluator

import (
	"context"
	"errors"

	"github.com/spectramin/orescout/internal/geo"
)

// Sentinel errors for evaluator failures.
var (
	ErrEvaluatorUnavailable = errors.New("detection evaluator unavailable")
	ErrInvalidResponse      = errors.New("detection evaluator returned invalid response")
)

// Detection is the raw evaluator output for one (cell, mineral) pair.
// Tier assignment happens in the core, not here.
type Detection struct {
	Confidence    float64
	SpectralMatch float64
	Features      map[string]float64
}

// Evaluator scores one cell for one mineral. A nil Detection with a nil error
// means "no detection" and is silently skipped, never an error.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, cell geo.Cell, mineral string) (*Detection, error)
}
