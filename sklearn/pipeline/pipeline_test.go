package pipeline_test

import (
	"bytes"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carprice/core/model"
	"github.com/ezoic/carprice/linear"
	carErrors "github.com/ezoic/carprice/pkg/errors"
	"github.com/ezoic/carprice/preprocessing"
	"github.com/ezoic/carprice/sklearn/compose"
	"github.com/ezoic/carprice/sklearn/feature_selection"
	"github.com/ezoic/carprice/sklearn/pipeline"
)

// y = 3*x1 + 2
func trainingData() (dataframe.DataFrame, *mat.VecDense) {
	df := dataframe.New(
		series.New([]float64{1, 2, 3, 4, 5, 6}, series.Float, "x1"),
		series.New([]float64{5, 1, 4, 2, 6, 3}, series.Float, "x2"),
		series.New([]string{"a", "b", "a", "b", "a", "b"}, series.String, "kind"),
	)
	y := mat.NewVecDense(6, []float64{5, 8, 11, 14, 17, 20})
	return df, y
}

func newPipeline(k int) *pipeline.Pipeline {
	return pipeline.New(
		pipeline.Step{Name: "preprocessor", Estimator: compose.NewColumnTransformer(
			compose.ColumnSpec{Name: "num", Transformer: preprocessing.NewMinMaxScalerDefault(), Columns: []string{"x1", "x2"}},
			compose.ColumnSpec{Name: "cat", Transformer: preprocessing.NewOneHotEncoder(), Columns: []string{"kind"}},
		)},
		pipeline.Step{Name: "feature_selection", Estimator: feature_selection.NewSelectKBest("f_regression", k)},
		pipeline.Step{Name: "model", Estimator: linear.NewLinearRegression()},
	)
}

func TestPipeline_FitPredictScore(t *testing.T) {
	df, y := trainingData()
	p := newPipeline(1)

	require.NoError(t, p.Fit(df, y))
	pred, err := p.Predict(df)
	require.NoError(t, err)

	r, c := pred.Dims()
	require.Equal(t, 6, r)
	require.Equal(t, 1, c)
	for i := 0; i < r; i++ {
		assert.InDelta(t, y.AtVec(i), pred.At(i, 0), 1e-9)
	}

	score, err := p.Score(df, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)

	names, err := p.GetFeatureNamesOut()
	require.NoError(t, err)
	assert.Equal(t, []string{"num__x1"}, names)
}

func TestPipeline_UnseenRowsAndCategories(t *testing.T) {
	df, y := trainingData()
	p := newPipeline(1)
	require.NoError(t, p.Fit(df, y))

	test := dataframe.New(
		series.New([]float64{2.5}, series.Float, "x1"),
		series.New([]float64{3}, series.Float, "x2"),
		series.New([]string{"z"}, series.String, "kind"),
	)
	pred, err := p.Predict(test)
	require.NoError(t, err)
	assert.InDelta(t, 9.5, pred.At(0, 0), 1e-9)
}

func TestPipeline_Errors(t *testing.T) {
	df, y := trainingData()

	t.Run("predict before fit", func(t *testing.T) {
		_, err := newPipeline(1).Predict(df)
		var nfe *carErrors.NotFittedError
		assert.True(t, carErrors.As(err, &nfe))
	})

	t.Run("missing column at predict time", func(t *testing.T) {
		p := newPipeline(1)
		require.NoError(t, p.Fit(df, y))
		_, err := p.Predict(df.Drop("kind"))
		assert.True(t, carErrors.Is(err, carErrors.ErrMissingColumn))
	})

	t.Run("final step must be a regressor", func(t *testing.T) {
		p := pipeline.New(pipeline.Step{Name: "scale", Estimator: preprocessing.NewMinMaxScalerDefault()})
		var ve *carErrors.ValidationError
		assert.True(t, carErrors.As(p.Fit(df, y), &ve))
	})

	t.Run("no steps", func(t *testing.T) {
		assert.Error(t, pipeline.New().Fit(df, y))
	})

	t.Run("duplicate step names", func(t *testing.T) {
		p := pipeline.New(
			pipeline.Step{Name: "model", Estimator: preprocessing.NewMinMaxScalerDefault()},
			pipeline.Step{Name: "model", Estimator: linear.NewLinearRegression()},
		)
		assert.Error(t, p.Fit(df.Drop("kind"), y))
	})
}

func TestPipeline_NumericOnly(t *testing.T) {
	df, y := trainingData()
	numeric := df.Drop("kind")

	p := pipeline.New(
		pipeline.Step{Name: "scaler", Estimator: preprocessing.NewMinMaxScalerDefault()},
		pipeline.Step{Name: "model", Estimator: linear.NewLinearRegression()},
	)
	require.NoError(t, p.Fit(numeric, y))
	score, err := p.Score(numeric, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)

	single := pipeline.New(pipeline.Step{Name: "model", Estimator: linear.NewLinearRegression()})
	require.NoError(t, single.Fit(numeric, y))

	_, err = single.Predict(df)
	assert.True(t, carErrors.Is(err, carErrors.ErrNonNumeric))
}

func TestPipeline_Params(t *testing.T) {
	p := newPipeline(1)

	require.NoError(t, p.SetParams(map[string]interface{}{
		"feature_selection__k":              3,
		"preprocessor__cat__handle_unknown": "error",
		"verbose":                           true,
	}))

	params := p.GetParams()
	assert.Equal(t, 3, params["feature_selection__k"])
	assert.Equal(t, "f_regression", params["feature_selection__score_func"])
	assert.Equal(t, true, params["verbose"])

	selector := p.Steps[1].Estimator.(*feature_selection.SelectKBest)
	assert.Equal(t, 3, selector.K)

	assert.Error(t, p.SetParams(map[string]interface{}{"nope__k": 1}))
	assert.Error(t, p.SetParams(map[string]interface{}{"model__fit_intercept": false}))
	assert.Error(t, p.SetParams(map[string]interface{}{"verbose": "yes"}))

	replacement := feature_selection.NewSelectKBest("r_regression", 2)
	require.NoError(t, p.SetParams(map[string]interface{}{"feature_selection": replacement}))
	assert.Same(t, replacement, p.Steps[1].Estimator)
}

func TestPipeline_Clone(t *testing.T) {
	df, y := trainingData()
	p := newPipeline(2)

	clone, ok := p.Clone().(*pipeline.Pipeline)
	require.True(t, ok)
	require.NoError(t, clone.SetParams(map[string]interface{}{"feature_selection__k": 1}))
	require.NoError(t, clone.Fit(df, y))

	assert.False(t, p.State.IsFitted())
	assert.Equal(t, 2, p.GetParams()["feature_selection__k"])
	for i := range p.Steps {
		assert.NotSame(t, p.Steps[i].Estimator, clone.Steps[i].Estimator)
	}
}

func TestPipeline_GobRoundTrip(t *testing.T) {
	df, y := trainingData()
	p := newPipeline(2)
	require.NoError(t, p.Fit(df, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(p, &buf))

	var restored pipeline.Pipeline
	require.NoError(t, model.LoadModelFromReader(&restored, &buf))

	want, err := p.Predict(df)
	require.NoError(t, err)
	got, err := restored.Predict(df)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}
