package model_selection

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carprice/metrics"
	carErrors "github.com/ezoic/carprice/pkg/errors"
)

// ScoreFunc scores predictions against the truth. Greater is better, so
// error metrics are registered negated.
type ScoreFunc func(yTrue, yPred *mat.VecDense) (float64, error)

func negate(fn func(yTrue, yPred *mat.VecDense) (float64, error)) ScoreFunc {
	return func(yTrue, yPred *mat.VecDense) (float64, error) {
		v, err := fn(yTrue, yPred)
		return -v, err
	}
}

var scorers = map[string]ScoreFunc{
	"neg_mean_absolute_error":     negate(metrics.MAE),
	"neg_mean_squared_error":      negate(metrics.MSE),
	"neg_root_mean_squared_error": negate(metrics.RMSE),
	"neg_median_absolute_error":   negate(metrics.MedianAbsoluteError),
	"r2":                          metrics.R2Score,
}

// GetScorer returns the scorer registered under name.
func GetScorer(name string) (ScoreFunc, error) {
	fn, ok := scorers[name]
	if !ok {
		return nil, carErrors.NewValidationError("scoring", "unknown scorer", name)
	}
	return fn, nil
}

// ScorerNames lists the registered scorer names in sorted order.
func ScorerNames() []string {
	names := make([]string, 0, len(scorers))
	for name := range scorers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
