// Package model loads the pre-fit default classifier and turns its
// probabilities into decisions.
package model

import (
	"context"
	"fmt"
)

// DecisionThreshold is the probability at or above which a card holder is
// predicted to default.
const DecisionThreshold = 0.5

// Classifier scores assembled feature frames.
type Classifier interface {
	// PredictProba returns, per frame, the probability of the positive
	// (default) class.
	PredictProba(ctx context.Context, frames [][]float64) ([]float64, error)
	// Columns returns the input columns the classifier declares, nil when
	// it declares none.
	Columns() []string
}

// Prediction is the scored outcome of a single record.
type Prediction struct {
	ProbaDefault float64 `json:"proba_default" yaml:"proba_default"`
	Prediction   int     `json:"prediction" yaml:"prediction"`
}

// Decide thresholds a probability into a 0/1 decision.
func Decide(proba float64) int {
	if proba >= DecisionThreshold {
		return 1
	}
	return 0
}

// NewPrediction builds a Prediction from a probability.
func NewPrediction(proba float64) Prediction {
	return Prediction{ProbaDefault: proba, Prediction: Decide(proba)}
}

// LoadError means the model artifact could not be loaded.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("error loading model from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
