// Package pricing implements the used-vehicle price model: feature
// engineering, dataset splitting, pipeline construction, hyperparameter
// search and evaluation metrics.
package pricing

import (
	"math"
	"slices"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carprice/internal/config"
	"github.com/ezoic/carprice/linear"
	"github.com/ezoic/carprice/metrics"
	carErrors "github.com/ezoic/carprice/pkg/errors"
	"github.com/ezoic/carprice/preprocessing"
	"github.com/ezoic/carprice/sklearn/compose"
	"github.com/ezoic/carprice/sklearn/feature_selection"
	"github.com/ezoic/carprice/sklearn/model_selection"
	"github.com/ezoic/carprice/sklearn/pipeline"
)

// Pipeline step names. ParamK addresses the number of selected features.
const (
	StepPreprocessor     = "preprocessor"
	StepFeatureSelection = "feature_selection"
	StepRegressor        = "regressor"

	ParamK = StepFeatureSelection + "__k"
)

// defaultK is the selector's k before the search sets it.
const defaultK = 10

// Preprocess returns a copy of df with the age column added as
// ReferenceYear - YearColumn and the DropColumns removed. df is not modified.
func Preprocess(df dataframe.DataFrame, cfg config.FeatureConfig) (dataframe.DataFrame, error) {
	if df.Err != nil {
		return dataframe.DataFrame{}, carErrors.Wrap(df.Err, "invalid input table")
	}
	required := append([]string{cfg.YearColumn}, cfg.DropColumns...)
	if missing, ok := compose.HasColumns(df, required); !ok {
		return dataframe.DataFrame{}, carErrors.NewMissingColumnError("Preprocess", missing)
	}

	years := df.Col(cfg.YearColumn).Float()
	ages := make([]int, len(years))
	for i, y := range years {
		if math.IsNaN(y) || math.IsInf(y, 0) || y != math.Trunc(y) {
			return dataframe.DataFrame{}, carErrors.NewNonNumericError("Preprocess", cfg.YearColumn)
		}
		ages[i] = cfg.ReferenceYear - int(y)
	}

	// Mutate shares column storage with its receiver.
	out := df.Copy().Mutate(series.New(ages, series.Int, cfg.AgeColumn))
	out = out.Drop(cfg.DropColumns)
	if out.Err != nil {
		return dataframe.DataFrame{}, carErrors.Wrap(out.Err, "preprocess failed")
	}
	return out, nil
}

// GetFeatures splits df into the feature table (every column except target)
// and the target values, keeping row order.
func GetFeatures(df dataframe.DataFrame, target string) (dataframe.DataFrame, *mat.VecDense, error) {
	if df.Err != nil {
		return dataframe.DataFrame{}, nil, carErrors.Wrap(df.Err, "invalid input table")
	}
	if _, ok := compose.HasColumns(df, []string{target}); !ok {
		return dataframe.DataFrame{}, nil, carErrors.NewMissingColumnError("GetFeatures", target)
	}

	y, err := compose.FloatMatrix(df, []string{target}, "GetFeatures")
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}

	x := df.Drop(target)
	if x.Err != nil {
		return dataframe.DataFrame{}, nil, carErrors.Wrap(x.Err, "failed to drop target column")
	}
	return x, mat.VecDenseCopyOf(y.ColView(0)), nil
}

// MakePipeline builds the unfitted model pipeline for tables shaped like df:
//
//	preprocessor       num: MinMaxScaler over every non-categorical column
//	                   cat: OneHotEncoder(handle_unknown=ignore)
//	feature_selection  SelectKBest(cfg.ScoreFunc)
//	regressor          LinearRegression
//
// df supplies the column names only. Categorical names are matched exactly.
func MakePipeline(df dataframe.DataFrame, cfg config.PipelineConfig) (*pipeline.Pipeline, error) {
	if missing, ok := compose.HasColumns(df, cfg.CategoricalColumns); !ok {
		return nil, carErrors.NewMissingColumnError("MakePipeline", missing)
	}

	var numeric []string
	for _, name := range df.Names() {
		if !slices.Contains(cfg.CategoricalColumns, name) {
			numeric = append(numeric, name)
		}
	}

	scoreFunc := cfg.ScoreFunc
	if scoreFunc == "" {
		scoreFunc = "f_regression"
	}

	preprocessor := compose.NewColumnTransformer(
		compose.ColumnSpec{Name: "num", Transformer: preprocessing.NewMinMaxScalerDefault(), Columns: numeric},
		compose.ColumnSpec{Name: "cat", Transformer: preprocessing.NewOneHotEncoder(),
			Columns: append([]string(nil), cfg.CategoricalColumns...)},
	)

	return pipeline.New(
		pipeline.Step{Name: StepPreprocessor, Estimator: preprocessor},
		pipeline.Step{Name: StepFeatureSelection, Estimator: feature_selection.NewSelectKBest(scoreFunc, defaultK)},
		pipeline.Step{Name: StepRegressor, Estimator: linear.NewLinearRegression()},
	), nil
}

// OptimizeHyperparameters searches k in [cfg.KMin, cfg.KMax] with
// cfg.CV-fold cross-validation and returns the search refitted on (X, y)
// with the best k. p itself is not fitted.
func OptimizeHyperparameters(p *pipeline.Pipeline, X dataframe.DataFrame, y *mat.VecDense,
	cfg config.SearchConfig) (*model_selection.GridSearchCV, error) {

	search := model_selection.NewGridSearchCV(p, model_selection.ParamGrid{
		ParamK: model_selection.IntRange(cfg.KMin, cfg.KMax),
	})
	search.CV = model_selection.NewKFold(cfg.CV)
	search.Scoring = cfg.Scoring
	search.NJobs = cfg.NJobs
	search.Verbose = cfg.Verbose

	if err := search.Fit(X, y); err != nil {
		return nil, err
	}
	return search, nil
}

// Dataset names used in metrics records.
const (
	DatasetTrain = "train"
	DatasetTest  = "test"
)

// MetricsRecord is one line of the metrics file.
type MetricsRecord struct {
	Type    string  `json:"type"`
	Dataset string  `json:"dataset"`
	R2      float64 `json:"r2"`
	MSE     float64 `json:"mse"`
	MAD     float64 `json:"mad"` // median absolute error
}

// Predictor maps a feature table to predictions.
type Predictor interface {
	Predict(X dataframe.DataFrame) (mat.Matrix, error)
}

// CalculateMetrics evaluates m on both partitions and returns the train
// record followed by the test record.
func CalculateMetrics(m Predictor, xTrain dataframe.DataFrame, yTrain *mat.VecDense,
	xTest dataframe.DataFrame, yTest *mat.VecDense) ([]MetricsRecord, error) {

	train, err := evaluate(m, DatasetTrain, xTrain, yTrain)
	if err != nil {
		return nil, err
	}
	test, err := evaluate(m, DatasetTest, xTest, yTest)
	if err != nil {
		return nil, err
	}
	return []MetricsRecord{train, test}, nil
}

func evaluate(m Predictor, dataset string, X dataframe.DataFrame, y *mat.VecDense) (MetricsRecord, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return MetricsRecord{}, carErrors.Wrapf(err, "predict on %s set", dataset)
	}
	yPred, err := metrics.AsVector(pred)
	if err != nil {
		return MetricsRecord{}, err
	}

	rec := MetricsRecord{Type: "metrics", Dataset: dataset}
	if rec.R2, err = metrics.R2Score(y, yPred); err != nil {
		return MetricsRecord{}, carErrors.Wrapf(err, "r2 on %s set", dataset)
	}
	if rec.MSE, err = metrics.MSE(y, yPred); err != nil {
		return MetricsRecord{}, carErrors.Wrapf(err, "mse on %s set", dataset)
	}
	if rec.MAD, err = metrics.MedianAbsoluteError(y, yPred); err != nil {
		return MetricsRecord{}, carErrors.Wrapf(err, "mad on %s set", dataset)
	}
	return rec, nil
}
