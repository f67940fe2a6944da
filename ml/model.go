package ml

// Regressor is a fitted model mapping feature rows to one output per row.
type Regressor interface {
	Predict(x [][]float64) ([]float64, error)
	NumFeatures() int
}

const (
	ModelTypeLinearRegression = "linear_regression"

	// Weight is entered in units of 1000 lbs.
	MinWeight = 0.5
	MaxWeight = 10.0
)
