package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carprice/sklearn/model_selection"
)

func searchResults() model_selection.CVResults {
	return model_selection.CVResults{
		Params: []map[string]interface{}{
			{"feature_selection__k": 1},
			{"feature_selection__k": 2},
			{"feature_selection__k": 3},
		},
		MeanTestScore: []float64{-1.5, -0.8, -0.9},
		StdTestScore:  []float64{0.2, 0.1, 0.15},
	}
}

func TestPlotSearchCurve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plots", "search_curve.png")
	require.NoError(t, PlotSearchCurve(searchResults(), "feature_selection__k", "neg_mean_absolute_error", path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestPlotSearchCurve_Errors(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, PlotSearchCurve(model_selection.CVResults{}, "k", "r2", filepath.Join(dir, "a.png")))

	res := searchResults()
	res.Params[1] = map[string]interface{}{"feature_selection__k": "many"}
	assert.Error(t, PlotSearchCurve(res, "feature_selection__k", "r2", filepath.Join(dir, "b.png")))
}

func TestPlotPredictions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_predictions.png")
	yTrue := mat.NewVecDense(4, []float64{5.6, 9.5, 9.8, 4.1})
	yPred := mat.NewVecDense(4, []float64{5.9, 9.1, 10.2, 4.0})

	require.NoError(t, PlotPredictions(yTrue, yPred, "test set", path))
	assert.FileExists(t, path)

	assert.Error(t, PlotPredictions(yTrue, mat.NewVecDense(2, nil), "bad", path))
}
