package pricing

import (
	"path/filepath"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carprice/internal/config"
	"github.com/ezoic/carprice/internal/report"
	"github.com/ezoic/carprice/internal/storage"
	"github.com/ezoic/carprice/metrics"
	carErrors "github.com/ezoic/carprice/pkg/errors"
	"github.com/ezoic/carprice/pkg/log"
	"github.com/ezoic/carprice/sklearn/model_selection"
)

// RunResult summarises one training run.
type RunResult struct {
	RunID      string
	Model      *model_selection.GridSearchCV
	Metrics    []MetricsRecord
	TrainScore float64 // R² of the best estimator
	TestScore  float64
	SearchTime time.Duration
	Plots      []string
}

// dataset is one preprocessed partition.
type dataset struct {
	name string
	x    dataframe.DataFrame
	y    *mat.VecDense
}

// Run executes the whole job: load both partitions, preprocess, search,
// save the model, compute and write metrics, and draw the report plots.
// The first error aborts the run and nothing after it is written.
func Run(cfg config.Config) (*RunResult, error) {
	runID := uuid.NewString()
	logger := log.GetLoggerWithName("carprice").With(log.RunIDKey, runID)

	train, err := loadDataset(DatasetTrain, cfg.Paths.TrainData, cfg.Features, logger)
	if err != nil {
		return nil, err
	}
	test, err := loadDataset(DatasetTest, cfg.Paths.TestData, cfg.Features, logger)
	if err != nil {
		return nil, err
	}

	p, err := MakePipeline(train.x, cfg.Pipeline)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	search, err := OptimizeHyperparameters(p, train.x, train.y, cfg.Search)
	if err != nil {
		return nil, carErrors.Wrap(err, "hyperparameter optimization failed")
	}
	searchTime := time.Since(start)

	res := &RunResult{RunID: runID, Model: search, SearchTime: searchTime}
	if res.TrainScore, err = search.Score(train.x, train.y); err != nil {
		return nil, err
	}
	if res.TestScore, err = search.Score(test.x, test.y); err != nil {
		return nil, err
	}
	logger.Info("Hyperparameters optimized",
		log.DurationMsKey, searchTime.Milliseconds(),
		log.BestParamsKey, model_selection.FormatParams(search.BestParams),
		"train_r2", res.TrainScore,
		"test_r2", res.TestScore,
	)

	if err := storage.SaveModel(cfg.Paths.Model, search); err != nil {
		return nil, err
	}
	logger.Info("Model saved", log.PathKey, cfg.Paths.Model)

	records, err := CalculateMetrics(search, train.x, train.y, test.x, test.y)
	if err != nil {
		return nil, err
	}
	res.Metrics = records
	for _, r := range records {
		logger.Info("Metrics", "dataset", r.Dataset, "r2", r.R2, "mse", r.MSE, "mad", r.MAD)
	}

	if err := storage.WriteJSONLines(cfg.Paths.Metrics, records); err != nil {
		return nil, err
	}
	logger.Info("Metrics written", log.PathKey, cfg.Paths.Metrics)

	if cfg.Report.Enabled {
		plots, err := writePlots(cfg.Paths.PlotsDir, search, train, test)
		if err != nil {
			return nil, err
		}
		res.Plots = plots
		logger.Info("Report written", log.PathKey, cfg.Paths.PlotsDir, "plots", len(plots))
	}
	return res, nil
}

func loadDataset(name, path string, cfg config.FeatureConfig, logger log.Logger) (dataset, error) {
	raw, err := storage.LoadZippedCSV(path)
	if err != nil {
		return dataset{}, err
	}
	df, err := Preprocess(raw, cfg)
	if err != nil {
		return dataset{}, carErrors.Wrapf(err, "preprocess %s data", name)
	}
	x, y, err := GetFeatures(df, cfg.Target)
	if err != nil {
		return dataset{}, carErrors.Wrapf(err, "split %s data", name)
	}

	logger.Debug("Dataset loaded",
		"dataset", name,
		log.PathKey, path,
		log.SamplesKey, x.Nrow(),
		log.ColumnsKey, x.Names(),
	)
	return dataset{name: name, x: x, y: y}, nil
}

func writePlots(dir string, search *model_selection.GridSearchCV, parts ...dataset) ([]string, error) {
	curve := filepath.Join(dir, "search_curve.png")
	if err := report.PlotSearchCurve(search.CVResults, ParamK, search.Scoring, curve); err != nil {
		return nil, err
	}
	plots := []string{curve}

	for _, part := range parts {
		pred, err := search.Predict(part.x)
		if err != nil {
			return nil, err
		}
		yPred, err := metrics.AsVector(pred)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, part.name+"_predictions.png")
		if err := report.PlotPredictions(part.y, yPred, part.name+" set", path); err != nil {
			return nil, err
		}
		plots = append(plots, path)
	}
	return plots, nil
}

// LoadModel reads a search saved by Run.
func LoadModel(path string) (*model_selection.GridSearchCV, error) {
	var search model_selection.GridSearchCV
	if err := storage.LoadModel(path, &search); err != nil {
		return nil, err
	}
	return &search, nil
}
