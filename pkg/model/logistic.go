package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
)

// KindLogistic identifies a logistic regression artifact.
const KindLogistic = "logistic"

// Artifact is the serialized form of a fitted logistic regression with an
// optional standard scaler in front of it.
type Artifact struct {
	Kind         string    `json:"kind" yaml:"kind"`
	Version      string    `json:"version,omitempty" yaml:"version,omitempty"`
	FeatureNames []string  `json:"feature_names,omitempty" yaml:"feature_names,omitempty"`
	Mean         []float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	Scale        []float64 `json:"scale,omitempty" yaml:"scale,omitempty"`
	Coefficients []float64 `json:"coefficients" yaml:"coefficients"`
	Intercept    float64   `json:"intercept" yaml:"intercept"`
}

// Logistic is a read-only logistic regression classifier. It is safe for
// concurrent use.
type Logistic struct {
	columns   []string
	mean      []float64
	scale     []float64
	weights   []float64
	intercept float64
	version   string
}

// NewLogistic validates the artifact and builds the classifier.
// width is the expected input width when the artifact declares no columns.
func NewLogistic(a *Artifact, width int) (*Logistic, error) {
	if a == nil {
		return nil, errors.New("artifact required")
	}
	if a.Kind != "" && a.Kind != KindLogistic {
		return nil, fmt.Errorf("unsupported model kind: %q", a.Kind)
	}

	n := len(a.Coefficients)
	if n == 0 {
		return nil, errors.New("artifact has no coefficients")
	}

	if len(a.FeatureNames) > 0 {
		if len(a.FeatureNames) != n {
			return nil, fmt.Errorf("artifact declares %d feature names but %d coefficients", len(a.FeatureNames), n)
		}
	} else if width > 0 && width != n {
		return nil, fmt.Errorf("artifact has %d coefficients, expected %d", n, width)
	}

	if a.Mean != nil && len(a.Mean) != n {
		return nil, fmt.Errorf("artifact mean has %d values, expected %d", len(a.Mean), n)
	}
	if a.Scale != nil {
		if len(a.Scale) != n {
			return nil, fmt.Errorf("artifact scale has %d values, expected %d", len(a.Scale), n)
		}
		for i, s := range a.Scale {
			if s == 0 || math.IsNaN(s) {
				return nil, fmt.Errorf("artifact scale at %d is not usable: %v", i, s)
			}
		}
	}

	for i, w := range a.Coefficients {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("artifact coefficient at %d is not finite", i)
		}
	}

	return &Logistic{
		columns:   slices.Clone(a.FeatureNames),
		mean:      slices.Clone(a.Mean),
		scale:     slices.Clone(a.Scale),
		weights:   slices.Clone(a.Coefficients),
		intercept: a.Intercept,
		version:   a.Version,
	}, nil
}

// Columns returns the declared input columns.
func (m *Logistic) Columns() []string {
	if len(m.columns) == 0 {
		return nil
	}
	return slices.Clone(m.columns)
}

// Version returns the artifact version, if any.
func (m *Logistic) Version() string {
	return m.version
}

// PredictProba returns the positive-class probability for each frame.
func (m *Logistic) PredictProba(ctx context.Context, frames [][]float64) ([]float64, error) {
	out := make([]float64, len(frames))
	for i, x := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(x) != len(m.weights) {
			return nil, fmt.Errorf("frame %d has %d values, model expects %d", i, len(x), len(m.weights))
		}
		out[i] = sigmoid(m.decision(x))
	}
	return out, nil
}

func (m *Logistic) decision(x []float64) float64 {
	sum := m.intercept
	for j, v := range x {
		if m.mean != nil {
			v -= m.mean[j]
		}
		if m.scale != nil {
			v /= m.scale[j]
		}
		sum += m.weights[j] * v
	}
	return sum
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
