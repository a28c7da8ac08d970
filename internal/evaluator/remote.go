package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/spectramin/orescout/internal/config"
	"github.com/spectramin/orescout/internal/geo"
)

// RemoteEvaluator scores cells through an external spectral-inversion service
// over HTTP. Transport failures surface as ErrEvaluatorUnavailable so the
// scheduler can fail the job with a meaningful code.
type RemoteEvaluator struct {
	baseURL string
	client  *http.Client
}

func NewRemoteEvaluator(cfg config.RemoteEvaluatorConfig) *RemoteEvaluator {
	return &RemoteEvaluator{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (e *RemoteEvaluator) Name() string { return "remote" }

type remoteRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Mineral   string  `json:"mineral"`
}

type remoteResponse struct {
	Detected      bool               `json:"detected"`
	Confidence    float64            `json:"confidence"`
	SpectralMatch float64            `json:"spectral_match"`
	Features      map[string]float64 `json:"features"`
}

func (e *RemoteEvaluator) Evaluate(ctx context.Context, cell geo.Cell, mineral string) (*Detection, error) {
	body, err := json.Marshal(remoteRequest{
		Latitude:  cell.Latitude,
		Longitude: cell.Longitude,
		Mineral:   mineral,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal evaluate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/evaluate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build evaluate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: request timed out", ErrEvaluatorUnavailable)
		}
		return nil, fmt.Errorf("%w: %v", ErrEvaluatorUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrEvaluatorUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if !out.Detected {
		return nil, nil
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidResponse, out.Confidence)
	}

	return &Detection{
		Confidence:    out.Confidence,
		SpectralMatch: out.SpectralMatch,
		Features:      out.Features,
	}, nil
}

var _ Evaluator = (*RemoteEvaluator)(nil)
