// Package scoring runs records through the feature pipeline and the
// classifier.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mchmarny/defaultrisk/pkg/feature"
	"github.com/mchmarny/defaultrisk/pkg/model"
)

// ErrNoRecords is returned for empty batches.
var ErrNoRecords = errors.New("no records to score")

// Service is the immutable handle request handlers score with. It is safe
// for concurrent use as long as the classifier is.
type Service struct {
	classifier model.Classifier
	validator  *feature.Validator
	order      feature.Order
}

// NewService resolves the frame order from the classifier once and
// returns a ready service.
func NewService(classifier model.Classifier, mode feature.Mode) (*Service, error) {
	if classifier == nil {
		return nil, errors.New("classifier required")
	}

	validator := feature.NewValidator(mode)
	order := feature.ResolveOrder(classifier.Columns())
	if unknown := order.Unknown(); len(unknown) > 0 {
		slog.Warn("model declares columns outside the feature schema, they will be zero", "columns", unknown)
	}

	slog.Debug("scoring service ready",
		"order", order.Source(),
		"columns", order.Len(),
		"validation", validator.Mode(),
	)

	return &Service{
		classifier: classifier,
		validator:  validator,
		order:      order,
	}, nil
}

// Order returns the column order frames are assembled in.
func (s *Service) Order() feature.Order {
	return s.order
}

// Mode returns the validation mode.
func (s *Service) Mode() feature.Mode {
	return s.validator.Mode()
}

// RowError ties a pipeline error to the zero-based record it came from.
type RowError struct {
	Index int
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Prepare builds, validates and assembles a single raw record.
func (s *Service) Prepare(lookup feature.Lookup) (feature.Frame, error) {
	row := feature.BuildRow(lookup)
	if err := s.validator.Validate(row); err != nil {
		return feature.Frame{}, err
	}
	return feature.Assemble(row, s.order), nil
}

// ScoreRaw scores loosely typed raw records. The first record failing
// validation aborts the batch with a *RowError wrapping the
// *feature.DomainError.
func (s *Service) ScoreRaw(ctx context.Context, records []feature.Lookup) ([]model.Prediction, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	frames := make([][]float64, len(records))
	for i, lookup := range records {
		f, err := s.Prepare(lookup)
		if err != nil {
			return nil, &RowError{Index: i, Err: err}
		}
		frames[i] = f.Values
	}
	return s.predict(ctx, frames)
}

// ScoreEncoded scores records that already carry every encoded feature
// column. Schema problems across the whole batch are collected into a single
// *feature.SchemaError before anything is validated.
func (s *Service) ScoreEncoded(ctx context.Context, records []map[string]any) ([]model.Prediction, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	rows := make([]feature.Row, len(records))
	var schemaErr *feature.SchemaError
	for i, rec := range records {
		row, err := feature.RowFromEncoded(rec)
		if err != nil {
			var se *feature.SchemaError
			if !errors.As(err, &se) {
				return nil, &RowError{Index: i, Err: err}
			}
			if schemaErr == nil {
				schemaErr = &feature.SchemaError{}
			}
			schemaErr.Merge(se)
			continue
		}
		rows[i] = row
	}
	if schemaErr != nil {
		return nil, schemaErr
	}

	frames := make([][]float64, len(rows))
	for i, row := range rows {
		if err := s.validator.Validate(row); err != nil {
			return nil, &RowError{Index: i, Err: err}
		}
		frames[i] = feature.Assemble(row, s.order).Values
	}
	return s.predict(ctx, frames)
}

func (s *Service) predict(ctx context.Context, frames [][]float64) ([]model.Prediction, error) {
	proba, err := s.classifier.PredictProba(ctx, frames)
	if err != nil {
		return nil, fmt.Errorf("error predicting: %w", err)
	}
	if len(proba) != len(frames) {
		return nil, fmt.Errorf("classifier returned %d probabilities for %d frames", len(proba), len(frames))
	}

	out := make([]model.Prediction, len(proba))
	for i, p := range proba {
		out[i] = model.NewPrediction(p)
	}
	return out, nil
}
