package ml

import (
	"fmt"
	"math"
)

// Predict runs inference for a single weight. Any failure, including a panic
// inside the model, is returned as a *PredictionError.
func Predict(model Regressor, weight float64) (mpg float64, err error) {
	if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < MinWeight || weight > MaxWeight {
		return 0, &PredictionError{Weight: weight, Err: ErrWeightOutOfRange}
	}
	if model == nil {
		return 0, &PredictionError{Weight: weight, Err: ErrModelUnavailable}
	}

	defer func() {
		if r := recover(); r != nil {
			mpg = 0
			err = &PredictionError{Weight: weight, Err: fmt.Errorf("inference panicked: %v", r)}
		}
	}()

	out, err := model.Predict([][]float64{{weight}})
	if err != nil {
		return 0, &PredictionError{Weight: weight, Err: err}
	}
	if len(out) == 0 {
		return 0, &PredictionError{Weight: weight, Err: fmt.Errorf("%w: empty result", ErrMalformedOutput)}
	}
	if math.IsNaN(out[0]) || math.IsInf(out[0], 0) {
		return 0, &PredictionError{Weight: weight, Err: fmt.Errorf("%w: %v", ErrMalformedOutput, out[0])}
	}
	return out[0], nil
}

// Estimate is one displayed prediction.
type Estimate struct {
	Weight float64 `json:"weight"`
	MPG    float64 `json:"mpg"`
}

func (e Estimate) MPGLabel() string {
	return fmt.Sprintf("%.1f", e.MPG)
}

// WeightLabel is the weight in lbs.
func (e Estimate) WeightLabel() string {
	return fmt.Sprintf("%.0f", e.Weight*1000)
}

// Calculate is the prediction path behind the "Calculate MPG" action. An
// unavailable model short-circuits before inference.
func Calculate(res LoadResult, weight float64) (Estimate, error) {
	model, ok := res.Model()
	if !ok {
		return Estimate{}, res.Err()
	}
	mpg, err := Predict(model, weight)
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{Weight: weight, MPG: mpg}, nil
}
