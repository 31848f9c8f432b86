package feature_selection

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	carErrors "github.com/ezoic/carprice/pkg/errors"
)

// ScoreFunc scores every column of X against y. Higher scores are better.
type ScoreFunc func(X mat.Matrix, y mat.Vector) (scores, pValues []float64, err error)

// scoreFuncs maps the names stored in a SelectKBest to their implementation.
// Function values cannot be gob-encoded, so estimators keep only the name.
var scoreFuncs = map[string]ScoreFunc{
	"f_regression": FRegression,
	"r_regression": func(X mat.Matrix, y mat.Vector) ([]float64, []float64, error) {
		r, err := RRegression(X, y)
		return r, nil, err
	},
}

// LookupScoreFunc returns the score function registered under name.
func LookupScoreFunc(name string) (ScoreFunc, error) {
	fn, ok := scoreFuncs[name]
	if !ok {
		return nil, carErrors.NewValidationError("score_func", "unknown score function", name)
	}
	return fn, nil
}

// RRegression returns Pearson's r between each column of X and y.
// Columns with zero variance, or a constant y, give NaN.
func RRegression(X mat.Matrix, y mat.Vector) ([]float64, error) {
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return nil, carErrors.NewModelError("RRegression", "empty data", carErrors.ErrEmptyData)
	}
	if y.Len() != n {
		return nil, carErrors.NewDimensionError("RRegression", n, y.Len(), 0)
	}

	yc := make([]float64, n)
	for i := range yc {
		yc[i] = y.AtVec(i)
	}
	yMean := floats.Sum(yc) / float64(n)
	floats.AddConst(-yMean, yc)
	yNorm := floats.Norm(yc, 2)

	corr := make([]float64, p)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		mat.Col(col, j, X)
		xMean := floats.Sum(col) / float64(n)
		floats.AddConst(-xMean, col)
		xNorm := floats.Norm(col, 2)

		if xNorm == 0 || yNorm == 0 {
			corr[j] = math.NaN()
			continue
		}
		corr[j] = floats.Dot(col, yc) / xNorm / yNorm
	}
	return corr, nil
}

// FRegression computes the univariate linear regression F-statistic of each
// column of X against y, with n-2 degrees of freedom, and its p-value.
//
// Results are always finite: a column whose statistic is undefined (zero
// variance) gets F=0 and p=1, and a perfectly correlated column gets
// F=math.MaxFloat64 and p=0.
func FRegression(X mat.Matrix, y mat.Vector) (fStats, pValues []float64, err error) {
	defer carErrors.Recover(&err, "FRegression")
	corr, err := RRegression(X, y)
	if err != nil {
		return nil, nil, err
	}

	n, _ := X.Dims()
	dof := float64(n - 2)

	fStats = make([]float64, len(corr))
	pValues = make([]float64, len(corr))
	for j, r := range corr {
		r2 := r * r
		switch {
		case math.IsNaN(r) || dof <= 0:
			fStats[j], pValues[j] = 0, 1
		case r2 >= 1:
			fStats[j], pValues[j] = math.MaxFloat64, 0
		default:
			f := r2 / (1 - r2) * dof
			fStats[j] = f
			pValues[j] = distuv.F{D1: 1, D2: dof}.Survival(f)
		}
	}
	return fStats, pValues, nil
}
