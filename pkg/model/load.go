package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/defaultrisk/pkg/feature"
	"github.com/mchmarny/defaultrisk/pkg/net"
	"gopkg.in/yaml.v3"
)

// Options tune how a model source is loaded.
type Options struct {
	// Token is sent as a bearer token to remote models.
	Token string
}

// Load opens the classifier at source: http(s) URLs are remote scoring
// endpoints, anything else is a local artifact file. Failures are
// returned as *LoadError.
func Load(ctx context.Context, source string, opts Options) (Classifier, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, &LoadError{Source: source, Err: errors.New("model source not specified")}
	}

	if isRemote(source) {
		r, err := NewRemote(ctx, source, net.GetOAuthClient(ctx, opts.Token))
		if err != nil {
			return nil, &LoadError{Source: source, Err: err}
		}
		slog.Debug("remote model loaded", "url", source, "columns", len(r.columns))
		return r, nil
	}

	m, err := LoadFile(source)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	slog.Debug("model artifact loaded", "path", source, "version", m.Version(), "columns", len(m.columns))
	return m, nil
}

// LoadFile reads a logistic regression artifact from a JSON or YAML file.
func LoadFile(path string) (*Logistic, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading model file: %w", err)
	}

	var a Artifact
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &a); err != nil {
			return nil, fmt.Errorf("error decoding model file: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&a); err != nil {
			return nil, fmt.Errorf("error decoding model file: %w", err)
		}
	}

	return NewLogistic(&a, len(feature.AllFeatures))
}

func isRemote(source string) bool {
	s := strings.ToLower(source)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
