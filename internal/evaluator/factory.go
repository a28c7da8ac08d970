package evaluator

import (
	"fmt"

	"github.com/spectramin/orescout/internal/config"
)

// NewEvaluator constructs the detection evaluator selected by config.
// Called once at server startup.
func NewEvaluator(cfg config.EvaluatorConfig) (Evaluator, error) {
	switch cfg.Provider {
	case "spectral":
		return NewSpectralEvaluator(), nil
	case "remote":
		return NewRemoteEvaluator(cfg.Remote), nil
	default:
		return nil, fmt.Errorf("unknown evaluator provider %q: must be one of spectral, remote", cfg.Provider)
	}
}
