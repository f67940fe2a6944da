package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"
)

// LinearRegression is an ordinary least squares model: y = Intercept + Coef·x.
type LinearRegression struct {
	Coef      []float64
	Intercept float64
	Features  []string
	Target    string
	TrainedAt time.Time
}

const artifactVersion = 1

type artifact struct {
	Type      string    `json:"type"`
	Version   int       `json:"version"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
	Features  []string  `json:"features,omitempty"`
	Target    string    `json:"target,omitempty"`
	TrainedAt time.Time `json:"trained_at,omitempty"`
}

func (lr *LinearRegression) NumFeatures() int {
	return len(lr.Coef)
}

func (lr *LinearRegression) Predict(x [][]float64) ([]float64, error) {
	if len(lr.Coef) == 0 {
		return nil, ErrNotTrained
	}
	out := make([]float64, len(x))
	for i, row := range x {
		if len(row) != len(lr.Coef) {
			return nil, fmt.Errorf("%w: row %d has %d features, model expects %d",
				ErrFeatureMismatch, i, len(row), len(lr.Coef))
		}
		y := lr.Intercept
		for j, v := range row {
			y += lr.Coef[j] * v
		}
		out[i] = y
	}
	return out, nil
}

// Fit solves the single-feature least squares problem in closed form.
func Fit(xs, ys []float64) (*LinearRegression, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %d inputs, %d targets", ErrFeatureMismatch, len(xs), len(ys))
	}
	if len(xs) < 2 {
		return nil, ErrInsufficientData
	}

	var n, sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		x, y := xs[i], ys[i]
		n++
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denominator := n*sumXX - sumX*sumX
	if math.Abs(denominator) < 1e-12 {
		return nil, ErrDegenerateFeature
	}
	slope := (n*sumXY - sumX*sumY) / denominator
	intercept := (sumY - slope*sumX) / n

	return &LinearRegression{
		Coef:      []float64{slope},
		Intercept: intercept,
		Features:  []string{"weight"},
		Target:    "mpg",
		TrainedAt: time.Now().UTC(),
	}, nil
}

// RSquared returns the coefficient of determination of the model on (xs, ys).
func (lr *LinearRegression) RSquared(xs, ys []float64) (float64, error) {
	if len(xs) != len(ys) || len(xs) == 0 {
		return 0, ErrInsufficientData
	}
	rows := make([][]float64, len(xs))
	var mean float64
	for i, x := range xs {
		rows[i] = []float64{x}
		mean += ys[i]
	}
	mean /= float64(len(ys))

	pred, err := lr.Predict(rows)
	if err != nil {
		return 0, err
	}
	var ssRes, ssTot float64
	for i, y := range ys {
		ssRes += (y - pred[i]) * (y - pred[i])
		ssTot += (y - mean) * (y - mean)
	}
	if ssTot == 0 {
		return 0, ErrDegenerateFeature
	}
	return 1 - ssRes/ssTot, nil
}

func (lr *LinearRegression) MarshalJSON() ([]byte, error) {
	return json.Marshal(artifact{
		Type:      ModelTypeLinearRegression,
		Version:   artifactVersion,
		Coef:      lr.Coef,
		Intercept: lr.Intercept,
		Features:  lr.Features,
		Target:    lr.Target,
		TrainedAt: lr.TrainedAt,
	})
}

func (lr *LinearRegression) UnmarshalJSON(data []byte) error {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.Type != "" && a.Type != ModelTypeLinearRegression {
		return fmt.Errorf("%w: %q", ErrUnsupportedModel, a.Type)
	}
	if len(a.Coef) == 0 {
		return ErrNotTrained
	}
	lr.Coef = a.Coef
	lr.Intercept = a.Intercept
	lr.Features = a.Features
	lr.Target = a.Target
	lr.TrainedAt = a.TrainedAt
	return nil
}

func (lr *LinearRegression) Save(path string) error {
	if len(lr.Coef) == 0 {
		return ErrNotTrained
	}
	payload, err := json.MarshalIndent(lr, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (lr *LinearRegression) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, lr)
}
