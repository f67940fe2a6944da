package ml

import (
	"errors"
	"fmt"
)

var (
	// ErrModelUnavailable means the artifact could not be loaded. Prediction
	// is never attempted while the model is unavailable.
	ErrModelUnavailable = errors.New("ml: model unavailable")

	// ErrPredictionFailure matches every *PredictionError via errors.Is.
	ErrPredictionFailure = errors.New("ml: prediction failed")

	ErrWeightOutOfRange  = fmt.Errorf("weight must be between %.1f and %.1f", MinWeight, MaxWeight)
	ErrMalformedOutput   = errors.New("model returned malformed output")
	ErrUnsupportedModel  = errors.New("unsupported model type")
	ErrFeatureMismatch   = errors.New("feature count mismatch")
	ErrNotTrained        = errors.New("model not trained")
	ErrInsufficientData  = errors.New("not enough samples to fit")
	ErrDegenerateFeature = errors.New("feature has zero variance")
)

// PredictionError reports a failed inference for one weight.
type PredictionError struct {
	Weight float64
	Err    error
}

func (e *PredictionError) Error() string {
	return e.Err.Error()
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

func (e *PredictionError) Is(target error) bool {
	return target == ErrPredictionFailure
}
