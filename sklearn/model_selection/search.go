// Package model_selection implements scikit-learn compatible cross-validation
// splitters, scorers and exhaustive grid search (GridSearchCV).
package model_selection

import (
	"encoding/gob"
	"fmt"
	"math"
	"time"

	"github.com/go-gota/gota/dataframe"
	gometrics "github.com/rcrowley/go-metrics"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/carprice/core/model"
	"github.com/ezoic/carprice/core/parallel"
	"github.com/ezoic/carprice/metrics"
	carErrors "github.com/ezoic/carprice/pkg/errors"
	"github.com/ezoic/carprice/pkg/log"
)

func init() {
	gob.Register(&GridSearchCV{})
}

// Estimator is what GridSearchCV searches over: a table-in regressor whose
// hyperparameters can be set and which can produce unfitted copies of itself.
// *pipeline.Pipeline satisfies it.
type Estimator interface {
	Fit(X dataframe.DataFrame, y mat.Matrix) error
	Predict(X dataframe.DataFrame) (mat.Matrix, error)
	Score(X dataframe.DataFrame, y mat.Matrix) (float64, error)
	SetParams(params map[string]interface{}) error
	Clone() interface{}
}

// CVResults holds per-candidate cross-validation results, indexed like the
// candidate list.
type CVResults struct {
	Params          []map[string]interface{}
	SplitTestScores [][]float64 // [candidate][fold]
	MeanTestScore   []float64
	StdTestScore    []float64
	RankTestScore   []int
	MeanFitTime     []float64 // seconds
}

// GridSearchCV evaluates every candidate of ParamGrid by k-fold
// cross-validation and refits the best one on the whole training set.
type GridSearchCV struct {
	State     *model.StateManager
	Estimator Estimator
	ParamGrid ParamGrid
	CV        *KFold
	Scoring   string
	NJobs     int // concurrent fits; <= 0 uses every CPU
	Verbose   bool

	// Fitted state
	BestEstimator Estimator
	BestParams    map[string]interface{}
	BestScore     float64
	BestIndex     int
	CVResults     CVResults
	RefitTime     float64 // seconds

	logger   log.Logger
	registry gometrics.Registry
}

// NewGridSearchCV creates a grid search over grid with 5-fold
// cross-validation and R² scoring. Use the exported fields or SetParams-like
// assignment to change CV, Scoring and NJobs before Fit.
//
// Example:
//
//	search := model_selection.NewGridSearchCV(pipe, model_selection.ParamGrid{
//	    "feature_selection__k": model_selection.IntRange(1, 11),
//	})
//	search.CV = model_selection.NewKFold(10)
//	search.Scoring = "neg_mean_absolute_error"
//	err := search.Fit(X, y)
func NewGridSearchCV(estimator Estimator, grid ParamGrid) *GridSearchCV {
	return &GridSearchCV{
		State:     model.NewStateManager(),
		Estimator: estimator,
		ParamGrid: grid,
		CV:        NewKFold(5),
		Scoring:   "r2",
		NJobs:     -1,
		BestIndex: -1,
		logger:    log.GetLoggerWithName("GridSearchCV"),
	}
}

type searchTelemetry struct {
	fits       gometrics.Counter
	failedFits gometrics.Counter
	fitTime    gometrics.Timer
	bestScore  gometrics.GaugeFloat64
}

func newSearchTelemetry(r gometrics.Registry) *searchTelemetry {
	return &searchTelemetry{
		fits:       gometrics.NewRegisteredCounter("search.fits", r),
		failedFits: gometrics.NewRegisteredCounter("search.fits.failed", r),
		fitTime:    gometrics.NewRegisteredTimer("search.fit.time", r),
		bestScore:  gometrics.NewRegisteredGaugeFloat64("search.best_score", r),
	}
}

// Metrics returns the instrumentation registry of the last Fit: the
// counters "search.fits" and "search.fits.failed", the timer
// "search.fit.time" and the gauge "search.best_score".
// It is nil before Fit and after the search has been decoded from disk.
func (gs *GridSearchCV) Metrics() gometrics.Registry {
	return gs.registry
}

// foldData is the row subset of one fold, computed once and shared
// read-only by every candidate.
type foldData struct {
	xTrain, xTest dataframe.DataFrame
	yTrain, yTest *mat.VecDense
}

// Fit runs the search and refits the best candidate on (X, y).
// Every candidate is evaluated on every fold. The first failing fit aborts
// the search.
func (gs *GridSearchCV) Fit(X dataframe.DataFrame, y mat.Matrix) (err error) {
	defer carErrors.Recover(&err, "GridSearchCV.Fit")

	if gs.Estimator == nil {
		return carErrors.NewValidationError("estimator", "grid search needs an estimator", nil)
	}
	if gs.CV == nil {
		gs.CV = NewKFold(5)
	}
	scorer, err := GetScorer(gs.Scoring)
	if err != nil {
		return err
	}
	if X.Err != nil {
		return carErrors.Wrap(X.Err, "invalid input table")
	}
	yVec, err := metrics.AsVector(y)
	if err != nil {
		return err
	}
	n := X.Nrow()
	if yVec.Len() != n {
		return carErrors.NewDimensionError("GridSearchCV.Fit", n, yVec.Len(), 0)
	}

	candidates := gs.ParamGrid.Candidates()
	if len(candidates) == 0 {
		return carErrors.NewValidationError("param_grid", "no candidates; every parameter needs at least one value", gs.ParamGrid)
	}
	splits, err := gs.CV.Split(n)
	if err != nil {
		return err
	}
	data, err := subsetFolds(X, yVec, splits)
	if err != nil {
		return err
	}

	nCand, nFolds := len(candidates), len(splits)
	if gs.logger != nil {
		gs.logger.Info(fmt.Sprintf("Fitting %d folds for each of %d candidates, totalling %d fits",
			nFolds, nCand, nCand*nFolds),
			log.OperationKey, log.OperationSearch,
			log.CandidatesKey, nCand,
			log.FoldsKey, nFolds,
			log.FitsKey, nCand*nFolds,
			log.ScoringKey, gs.Scoring,
		)
	}

	gs.registry = gometrics.NewRegistry()
	tel := newSearchTelemetry(gs.registry)

	scores := make([][]float64, nCand)
	fitTimes := make([][]float64, nCand)
	for c := range scores {
		scores[c] = make([]float64, nFolds)
		fitTimes[c] = make([]float64, nFolds)
	}

	err = parallel.ForEach(nCand*nFolds, gs.NJobs, func(task int) error {
		c, f := task/nFolds, task%nFolds
		score, elapsed, err := gs.evaluate(candidates[c], data[f], scorer)
		if err != nil {
			tel.failedFits.Inc(1)
			return carErrors.Wrapf(err, "candidate %s, fold %d", FormatParams(candidates[c]), f)
		}
		tel.fits.Inc(1)
		tel.fitTime.Update(elapsed)

		// Each task owns its own slot.
		scores[c][f] = score
		fitTimes[c][f] = elapsed.Seconds()

		if gs.Verbose && gs.logger != nil {
			gs.logger.Debug("CV fold scored",
				"candidate", c,
				"fold", f,
				log.ScoreKey, score,
				log.DurationMsKey, elapsed.Milliseconds(),
			)
		}
		return nil
	})
	if err != nil {
		return carErrors.Wrap(err, "grid search failed")
	}

	gs.CVResults = summarize(candidates, scores, fitTimes)
	gs.BestIndex = bestIndex(gs.CVResults.MeanTestScore)
	gs.BestParams = candidates[gs.BestIndex]
	gs.BestScore = gs.CVResults.MeanTestScore[gs.BestIndex]
	tel.bestScore.Update(gs.BestScore)

	start := time.Now()
	best, err := gs.candidate(gs.BestParams)
	if err != nil {
		return err
	}
	if err := best.Fit(X, yVec); err != nil {
		return carErrors.Wrapf(err, "refit with %s failed", FormatParams(gs.BestParams))
	}
	gs.RefitTime = time.Since(start).Seconds()
	gs.BestEstimator = best

	if gs.State == nil {
		gs.State = model.NewStateManager()
	}
	gs.State.SetDimensions(X.Ncol(), n)
	gs.State.SetFitted()

	if gs.logger != nil {
		snap := tel.fitTime.Snapshot()
		gs.logger.Info("Grid search completed",
			log.OperationKey, log.OperationSearch,
			log.BestParamsKey, FormatParams(gs.BestParams),
			log.ScoreKey, gs.BestScore,
			log.FitsKey, tel.fits.Count(),
			"fit_time_mean_ms", snap.Mean()/float64(time.Millisecond),
			"fit_time_p95_ms", snap.Percentile(0.95)/float64(time.Millisecond),
			"refit_time_ms", time.Duration(gs.RefitTime*float64(time.Second)).Milliseconds(),
		)
	}
	return nil
}

// candidate returns an unfitted copy of the template with params applied.
func (gs *GridSearchCV) candidate(params map[string]interface{}) (Estimator, error) {
	est, ok := gs.Estimator.Clone().(Estimator)
	if !ok {
		return nil, carErrors.NewValidationError("estimator", "Clone must return an Estimator",
			fmt.Sprintf("%T", gs.Estimator))
	}
	if err := est.SetParams(params); err != nil {
		return nil, carErrors.Wrapf(err, "cannot set %s", FormatParams(params))
	}
	return est, nil
}

func (gs *GridSearchCV) evaluate(params map[string]interface{}, fold foldData, scorer ScoreFunc) (float64, time.Duration, error) {
	est, err := gs.candidate(params)
	if err != nil {
		return 0, 0, err
	}

	start := time.Now()
	if err := est.Fit(fold.xTrain, fold.yTrain); err != nil {
		return 0, 0, err
	}
	elapsed := time.Since(start)

	pred, err := est.Predict(fold.xTest)
	if err != nil {
		return 0, 0, err
	}
	predVec, err := metrics.AsVector(pred)
	if err != nil {
		return 0, 0, err
	}
	score, err := scorer(fold.yTest, predVec)
	if err != nil {
		return 0, 0, err
	}
	return score, elapsed, nil
}

func subsetFolds(X dataframe.DataFrame, y *mat.VecDense, splits []Fold) ([]foldData, error) {
	data := make([]foldData, len(splits))
	for i, fold := range splits {
		xTrain := X.Subset(fold.TrainIndices)
		if xTrain.Err != nil {
			return nil, carErrors.Wrapf(xTrain.Err, "fold %d", i)
		}
		xTest := X.Subset(fold.TestIndices)
		if xTest.Err != nil {
			return nil, carErrors.Wrapf(xTest.Err, "fold %d", i)
		}
		data[i] = foldData{
			xTrain: xTrain,
			xTest:  xTest,
			yTrain: subsetVec(y, fold.TrainIndices),
			yTest:  subsetVec(y, fold.TestIndices),
		}
	}
	return data, nil
}

func subsetVec(v *mat.VecDense, idx []int) *mat.VecDense {
	out := mat.NewVecDense(len(idx), nil)
	for i, j := range idx {
		out.SetVec(i, v.AtVec(j))
	}
	return out
}

func summarize(candidates []map[string]interface{}, scores, fitTimes [][]float64) CVResults {
	res := CVResults{
		Params:          candidates,
		SplitTestScores: scores,
		MeanTestScore:   make([]float64, len(scores)),
		StdTestScore:    make([]float64, len(scores)),
		MeanFitTime:     make([]float64, len(scores)),
	}
	for c, s := range scores {
		mean, std := stat.PopMeanStdDev(s, nil)
		res.MeanTestScore[c] = mean
		res.StdTestScore[c] = std
		res.MeanFitTime[c] = floats.Sum(fitTimes[c]) / float64(len(fitTimes[c]))
	}
	res.RankTestScore = rank(res.MeanTestScore)
	return res
}

// rank assigns 1 to the best mean score. Equal scores share the lowest rank
// and NaN ranks after every number.
func rank(means []float64) []int {
	ranks := make([]int, len(means))
	for i, m := range means {
		r := 1
		for _, other := range means {
			if better(other, m) {
				r++
			}
		}
		ranks[i] = r
	}
	return ranks
}

func better(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	return math.IsNaN(b) || a > b
}

// bestIndex returns the first index holding the best score.
func bestIndex(means []float64) int {
	best := 0
	for i := 1; i < len(means); i++ {
		if better(means[i], means[best]) {
			best = i
		}
	}
	return best
}

// Predict calls Predict on the refitted best estimator.
func (gs *GridSearchCV) Predict(X dataframe.DataFrame) (mat.Matrix, error) {
	if err := gs.requireFitted("Predict"); err != nil {
		return nil, err
	}
	return gs.BestEstimator.Predict(X)
}

// Score returns the best estimator's own score (R² for a regressor), not the
// search scoring.
func (gs *GridSearchCV) Score(X dataframe.DataFrame, y mat.Matrix) (float64, error) {
	if err := gs.requireFitted("Score"); err != nil {
		return 0, err
	}
	return gs.BestEstimator.Score(X, y)
}

func (gs *GridSearchCV) requireFitted(method string) error {
	if gs.State == nil || gs.BestEstimator == nil {
		return carErrors.NewNotFittedError("GridSearchCV", method)
	}
	return gs.State.RequireFitted("GridSearchCV", method)
}

var _ model.Cloner = (*GridSearchCV)(nil)

// Clone returns an unfitted search with the same configuration.
func (gs *GridSearchCV) Clone() interface{} {
	var cv *KFold
	if gs.CV != nil {
		cv = NewKFold(gs.CV.NSplits)
	}
	return &GridSearchCV{
		State:     model.NewStateManager(),
		Estimator: gs.Estimator,
		ParamGrid: gs.ParamGrid,
		CV:        cv,
		Scoring:   gs.Scoring,
		NJobs:     gs.NJobs,
		Verbose:   gs.Verbose,
		BestIndex: -1,
		logger:    gs.logger,
	}
}
