package model_selection_test

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carprice/linear"
	"github.com/ezoic/carprice/preprocessing"
	"github.com/ezoic/carprice/sklearn/feature_selection"
	"github.com/ezoic/carprice/sklearn/model_selection"
	"github.com/ezoic/carprice/sklearn/pipeline"
)

func benchData(samples, features int) (dataframe.DataFrame, *mat.VecDense) {
	rng := rand.New(rand.NewPCG(42, 42))
	cols := make([]series.Series, features)
	y := mat.NewVecDense(samples, nil)
	for j := 0; j < features; j++ {
		vals := make([]float64, samples)
		for i := range vals {
			vals[i] = rng.Float64()
			y.SetVec(i, y.AtVec(i)+float64(j+1)*vals[i])
		}
		cols[j] = series.New(vals, series.Float, fmt.Sprintf("x%d", j))
	}
	for i := 0; i < samples; i++ {
		y.SetVec(i, y.AtVec(i)+rng.NormFloat64()*0.1)
	}
	return dataframe.New(cols...), y
}

// BenchmarkGridSearchCV measures a k search over every feature count with
// 10 folds, sequentially and on all CPUs.
func BenchmarkGridSearchCV(b *testing.B) {
	sizes := []struct {
		name     string
		samples  int
		features int
	}{
		{"300_11", 300, 11},
		{"3000_11", 3000, 11},
		{"3000_50", 3000, 50},
	}

	for _, size := range sizes {
		X, y := benchData(size.samples, size.features)
		for _, jobs := range []int{1, -1} {
			b.Run(fmt.Sprintf("%s/jobs=%d", size.name, jobs), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					pipe := pipeline.New(
						pipeline.Step{Name: "scaler", Estimator: preprocessing.NewMinMaxScalerDefault()},
						pipeline.Step{Name: "feature_selection", Estimator: feature_selection.NewSelectKBest("f_regression", 1)},
						pipeline.Step{Name: "regressor", Estimator: linear.NewLinearRegression()},
					)
					search := model_selection.NewGridSearchCV(pipe, model_selection.ParamGrid{
						"feature_selection__k": model_selection.IntRange(1, size.features),
					})
					search.CV = model_selection.NewKFold(10)
					search.Scoring = "neg_mean_absolute_error"
					search.NJobs = jobs
					if err := search.Fit(X, y); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}
