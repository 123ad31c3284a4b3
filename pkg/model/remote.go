package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/mchmarny/defaultrisk/pkg/net"
)

const (
	remoteSchemaPath  = "/schema"
	remotePredictPath = "/predict_proba"
)

type remoteSchema struct {
	Columns []string `json:"columns"`
}

type remoteRequest struct {
	Columns []string    `json:"columns,omitempty"`
	Rows    [][]float64 `json:"rows"`
}

type remoteResponse struct {
	Proba []float64 `json:"proba"`
}

// Remote is a classifier served over HTTP, such as the fitted pipeline
// running in a scoring sidecar.
type Remote struct {
	baseURL string
	client  *http.Client
	columns []string
}

// NewRemote connects to the scoring endpoint at baseURL and reads the
// columns it declares.
func NewRemote(ctx context.Context, baseURL string, client *http.Client) (*Remote, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, errors.New("remote model URL required")
	}
	if client == nil {
		client = net.GetHTTPClient()
	}

	var s remoteSchema
	if err := net.GetJSON(ctx, client, baseURL+remoteSchemaPath, &s); err != nil {
		return nil, fmt.Errorf("error reading remote model schema: %w", err)
	}

	return &Remote{
		baseURL: baseURL,
		client:  client,
		columns: s.Columns,
	}, nil
}

// Columns returns the columns declared by the remote model.
func (r *Remote) Columns() []string {
	if len(r.columns) == 0 {
		return nil
	}
	return slices.Clone(r.columns)
}

// PredictProba sends the frames in a single request.
func (r *Remote) PredictProba(ctx context.Context, frames [][]float64) ([]float64, error) {
	if len(frames) == 0 {
		return []float64{}, nil
	}

	var resp remoteResponse
	req := remoteRequest{Columns: r.columns, Rows: frames}
	if err := net.PostJSON(ctx, r.client, r.baseURL+remotePredictPath, req, &resp); err != nil {
		return nil, fmt.Errorf("error calling remote model: %w", err)
	}

	if len(resp.Proba) != len(frames) {
		return nil, fmt.Errorf("remote model returned %d probabilities for %d rows", len(resp.Proba), len(frames))
	}
	for i, p := range resp.Proba {
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("remote model returned out of range probability %v at %d", p, i)
		}
	}
	return resp.Proba, nil
}
