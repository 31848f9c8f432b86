// Package metrics provides regression metrics for evaluating fitted models.
//
// Regression Metrics:
//   - MSE: Mean Squared Error
//   - RMSE: Root Mean Squared Error (square root of MSE)
//   - MAE: Mean Absolute Error
//   - MedianAbsoluteError: median of the absolute residuals
//   - R2Score: coefficient of determination
//
// Inputs are gonum vectors; AsVector converts an n×1 prediction matrix.
//
// Example usage:
//
//	mse, err := metrics.MSE(yTrue, yPred)
//	r2, err := metrics.R2Score(yTrue, yPred)
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	carErrors "github.com/ezoic/carprice/pkg/errors"
)

// AsVector returns m as a vector. m must be a vector or an n×1 matrix.
func AsVector(m mat.Matrix) (*mat.VecDense, error) {
	if v, ok := m.(*mat.VecDense); ok {
		return v, nil
	}
	r, c := m.Dims()
	if c != 1 {
		return nil, carErrors.NewValueError("AsVector", "must be a column vector (n×1 matrix)")
	}
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v, nil
}

func residuals(op string, yTrue, yPred *mat.VecDense) ([]float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return nil, carErrors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return nil, carErrors.NewDimensionError(op, n, yPred.Len(), 0)
	}

	diff := make([]float64, n)
	for i := range diff {
		diff[i] = yTrue.AtVec(i) - yPred.AtVec(i)
	}
	return diff, nil
}

// MSE calculates the Mean Squared Error between true and predicted values.
//
// MSE = (1/n) * Σ(yTrue - yPred)²
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	diff, err := residuals("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return floats.Dot(diff, diff) / float64(len(diff)), nil
}

// RMSE calculates the Root Mean Squared Error between true and predicted values.
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE calculates the Mean Absolute Error between true and predicted values.
//
// MAE = (1/n) * Σ|yTrue - yPred|
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	diff, err := residuals("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return floats.Norm(diff, 1) / float64(len(diff)), nil
}

// MedianAbsoluteError returns the median of |yTrue - yPred|. For an even
// number of samples it is the mean of the two middle values.
//
// Example:
//
//	mad, err := metrics.MedianAbsoluteError(yTrue, yPred)
func MedianAbsoluteError(yTrue, yPred *mat.VecDense) (float64, error) {
	diff, err := residuals("MedianAbsoluteError", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	for i, d := range diff {
		diff[i] = math.Abs(d)
	}
	sort.Float64s(diff)

	n := len(diff)
	if n%2 == 1 {
		return diff[n/2], nil
	}
	return (diff[n/2-1] + diff[n/2]) / 2, nil
}

// R2Score calculates the coefficient of determination (R²) score.
//
// R² = 1 - RSS/TSS. The result is always finite: when yTrue has no variance,
// a perfect prediction scores 1.0 and anything else scores 0.0.
//
// Example:
//
//	r2, err := metrics.R2Score(yTrue, yPred)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("R² Score: %.4f\n", r2)
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	diff, err := residuals("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	values := mat.Col(nil, 0, yTrue)
	yMean := stat.Mean(values, nil)

	var tss float64
	for _, v := range values {
		tss += (v - yMean) * (v - yMean)
	}
	rss := floats.Dot(diff, diff)

	if tss == 0 {
		if rss == 0 {
			return 1.0, nil
		}
		carErrors.Warn(carErrors.NewUndefinedMetricWarning("R^2", "a constant target", 0.0))
		return 0.0, nil
	}
	return 1 - rss/tss, nil
}
