// Package linear provides ordinary least squares regression.
//
// LinearRegression fits an intercept and one coefficient per feature without
// regularization. The problem is solved on centered data with an SVD based
// least squares solver, which returns the minimum-norm solution when the
// design matrix is rank deficient (for example one-hot blocks that sum to one).
//
// Example usage:
//
//	lr := linear.NewLinearRegression()
//	err := lr.Fit(X, y) // X: features, y: target values
//	if err != nil {
//		log.Fatal(err)
//	}
//	predictions, err := lr.Predict(XTest)
package linear

import (
	"encoding/gob"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carprice/core/model"
	"github.com/ezoic/carprice/core/parallel"
	"github.com/ezoic/carprice/metrics"
	carErrors "github.com/ezoic/carprice/pkg/errors"
	"github.com/ezoic/carprice/pkg/log"
)

func init() {
	gob.Register(&LinearRegression{})
}

// Parallelization threshold (use sequential processing for row counts below this value)
const parallelThreshold = 1000

// LinearRegression is a linear regression model
type LinearRegression struct {
	State     *model.StateManager // State manager (composition instead of embedding) - Public for gob encoding
	Weights   []float64           // Model weights (coefficients)
	Intercept float64             // Model intercept
	Rank      int                 // Effective rank of the centered design matrix
	logger    log.Logger
}

// NewLinearRegression creates a new linear regression model for ordinary least squares regression.
//
// Example:
//
//	lr := linear.NewLinearRegression()
//	err := lr.Fit(X, y)
//	predictions, err := lr.Predict(X_test)
func NewLinearRegression() *LinearRegression {
	lr := &LinearRegression{
		State: model.NewStateManager(),
	}

	lr.logger = log.GetLoggerWithName("linear").With(
		log.ModelNameKey, "LinearRegression",
	)

	return lr
}

// Fit trains the linear regression model using the provided training data.
//
// X and y are centered, the least squares problem min ||Xc w - yc|| is solved
// through a thin SVD truncated at the numerical rank, and the intercept is
// recovered as mean(y) - mean(X)·w. A matrix of rank zero (for example a
// single sample, or constant columns) yields all-zero weights and an
// intercept equal to mean(y).
//
// Errors:
//   - ErrEmptyData: if X or y are empty
//   - DimensionError: if the number of samples in X and y don't match
//   - ErrSingularMatrix: if the SVD fails to converge
func (lr *LinearRegression) Fit(X, y mat.Matrix) (err error) {
	defer carErrors.Recover(&err, "LinearRegression.Fit")

	startTime := time.Now()
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return carErrors.NewModelError("LinearRegression.Fit", "empty data", carErrors.ErrEmptyData)
	}
	if ry != r {
		return carErrors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return carErrors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}

	xMean := make([]float64, c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			xMean[j] += X.At(i, j)
		}
		xMean[j] /= float64(r)
	}
	var yMean float64
	for i := 0; i < r; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= float64(r)

	Xc := mat.NewDense(r, c, nil)
	yc := mat.NewVecDense(r, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < c; j++ {
				Xc.Set(i, j, X.At(i, j)-xMean[j])
			}
			yc.SetVec(i, y.At(i, 0)-yMean)
		}
	})

	var svd mat.SVD
	if ok := svd.Factorize(Xc, mat.SVDThin); !ok {
		return carErrors.NewModelError("LinearRegression.Fit", "SVD did not converge", carErrors.ErrSingularMatrix)
	}

	// Same cutoff as LAPACK gelsd with rcond = -1
	rcond := math.Nextafter(1, 2) - 1
	rcond *= float64(max(r, c))
	rank := svd.Rank(rcond)

	weights := make([]float64, c)
	if rank > 0 {
		var w mat.VecDense
		svd.SolveVecTo(&w, yc, rank)
		copy(weights, w.RawVector().Data)
	}

	intercept := yMean
	for j := 0; j < c; j++ {
		intercept -= xMean[j] * weights[j]
	}

	lr.Weights = weights
	lr.Intercept = intercept
	lr.Rank = rank

	if lr.State == nil {
		lr.State = model.NewStateManager()
	}
	lr.State.SetDimensions(c, r)
	lr.State.SetFitted()

	if lr.logger != nil {
		lr.logger.Debug("Training completed",
			log.OperationKey, log.OperationFit,
			log.PhaseKey, log.PhaseTraining,
			log.DurationMsKey, time.Since(startTime).Milliseconds(),
			log.SamplesKey, r,
			log.FeaturesKey, c,
			"rank", rank,
		)
	}

	return nil
}

// Predict generates predictions for the input feature matrix using the trained model.
//
// y_pred = X * weights + intercept, returned as an n×1 matrix.
func (lr *LinearRegression) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer carErrors.Recover(&err, "LinearRegression.Predict")
	if lr.State == nil || !lr.State.IsFitted() {
		return nil, carErrors.NewNotFittedError("LinearRegression", "Predict")
	}

	r, c := X.Dims()
	if err := lr.State.RequireFeatures("LinearRegression.Predict", c); err != nil {
		return nil, err
	}

	predictions := mat.NewDense(r, 1, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			pred := lr.Intercept
			for j := 0; j < c; j++ {
				pred += X.At(i, j) * lr.Weights[j]
			}
			predictions.Set(i, 0, pred)
		}
	})

	if lr.logger != nil {
		lr.logger.Debug("Prediction completed",
			log.OperationKey, log.OperationPredict,
			log.PhaseKey, log.PhaseInference,
			log.PredsKey, r,
		)
	}

	return predictions, nil
}

// Score returns the coefficient of determination (R²) of the predictions on X.
func (lr *LinearRegression) Score(X, y mat.Matrix) (_ float64, err error) {
	defer carErrors.Recover(&err, "LinearRegression.Score")
	yPred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}

	yTrue, err := metrics.AsVector(y)
	if err != nil {
		return 0, err
	}
	yPredVec, err := metrics.AsVector(yPred)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(yTrue, yPredVec)
}

// GetWeights returns a copy of the learned weights (coefficients)
func (lr *LinearRegression) GetWeights() []float64 {
	if lr.Weights == nil {
		return nil
	}
	return append([]float64(nil), lr.Weights...)
}

// GetIntercept returns the learned intercept
func (lr *LinearRegression) GetIntercept() float64 {
	if lr.State == nil || !lr.State.IsFitted() {
		return 0
	}
	return lr.Intercept
}

// IsFitted returns whether the model has been fitted.
func (lr *LinearRegression) IsFitted() bool {
	return lr.State != nil && lr.State.IsFitted()
}

// GetParams returns the model's hyperparameters. Ordinary least squares has none.
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{}
}

// SetParams rejects every key: LinearRegression has no hyperparameters.
func (lr *LinearRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		return carErrors.NewValidationError(key, "unknown parameter for LinearRegression", value)
	}
	return nil
}

// Clone returns an unfitted LinearRegression.
func (lr *LinearRegression) Clone() interface{} {
	clone := &LinearRegression{State: model.NewStateManager()}
	clone.logger = lr.logger
	return clone
}
