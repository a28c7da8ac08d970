package mock

import (
	"context"

	"github.com/spectramin/orescout/internal/evaluator"
	"github.com/spectramin/orescout/internal/geo"
)

// MockEvaluator satisfies evaluator.Evaluator for testing.
type MockEvaluator struct {
	Name_        string
	EvaluateFunc func(ctx context.Context, cell geo.Cell, mineral string) (*evaluator.Detection, error)
}

func (m *MockEvaluator) Name() string { return m.Name_ }

func (m *MockEvaluator) Evaluate(ctx context.Context, cell geo.Cell, mineral string) (*evaluator.Detection, error) {
	if m.EvaluateFunc != nil {
		return m.EvaluateFunc(ctx, cell, mineral)
	}
	return nil, nil
}

// NewMockEvaluator returns a MockEvaluator that detects every cell at a fixed
// drill-ready confidence.
func NewMockEvaluator() *MockEvaluator {
	return &MockEvaluator{
		Name_: "mock",
		EvaluateFunc: func(_ context.Context, _ geo.Cell, _ string) (*evaluator.Detection, error) {
			return &evaluator.Detection{
				Confidence:    0.91,
				SpectralMatch: 0.88,
				Features:      map[string]float64{"2.20": 0.74},
			}, nil
		},
	}
}

// NewSilentEvaluator returns a MockEvaluator that never detects anything.
func NewSilentEvaluator() *MockEvaluator {
	return &MockEvaluator{Name_: "mock-silent"}
}

// NewFailingEvaluator returns a MockEvaluator that always returns the given error.
func NewFailingEvaluator(err error) *MockEvaluator {
	return &MockEvaluator{
		Name_: "mock-failing",
		EvaluateFunc: func(_ context.Context, _ geo.Cell, _ string) (*evaluator.Detection, error) {
			return nil, err
		},
	}
}

// Compile-time check that MockEvaluator implements Evaluator.
var _ evaluator.Evaluator = (*MockEvaluator)(nil)
