// Package feature_selection implements scikit-learn compatible univariate
// feature selection: SelectKBest with the f_regression and r_regression
// score functions.
package feature_selection

import (
	"encoding/gob"
	"fmt"
	"math"
	"sort"

	"github.com/spf13/cast"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carprice/core/model"
	carErrors "github.com/ezoic/carprice/pkg/errors"
	"github.com/ezoic/carprice/pkg/log"
)

func init() {
	gob.Register(&SelectKBest{})
}

// KAll selects every feature.
const KAll = -1

// SelectKBest keeps the K columns with the highest scores.
//
// Ranking follows a stable ascending sort of the scores and keeps the last K
// indices, so among tied scores the later columns win. NaN scores rank
// lowest. The selected columns keep their original order.
type SelectKBest struct {
	State         *model.StateManager
	K             int    // number of features to keep, or KAll
	ScoreFuncName string // key into the score function registry

	// Fitted state
	Scores  []float64
	PValues []float64
	Support []int // selected column indices in ascending order

	logger log.Logger
}

// NewSelectKBest creates a selector keeping k columns ranked by the score
// function registered under scoreFunc ("f_regression" or "r_regression").
//
// Example:
//
//	selector := feature_selection.NewSelectKBest("f_regression", 5)
//	err := selector.Fit(X, y)
//	XNew, err := selector.Transform(X)
func NewSelectKBest(scoreFunc string, k int) *SelectKBest {
	return &SelectKBest{
		State:         model.NewStateManager(),
		K:             k,
		ScoreFuncName: scoreFunc,
		logger:        log.GetLoggerWithName("SelectKBest"),
	}
}

func (s *SelectKBest) validateK() error {
	if s.K != KAll && s.K < 1 {
		return carErrors.NewValidationError("k", "must be a positive integer or \"all\"", s.K)
	}
	return nil
}

// Fit scores the columns of X against y and records the selected subset.
// If K exceeds the number of columns, every column is kept and a
// FeatureCountWarning is emitted.
func (s *SelectKBest) Fit(X, y mat.Matrix) (err error) {
	defer carErrors.Recover(&err, "SelectKBest.Fit")
	if err := s.validateK(); err != nil {
		return err
	}
	scoreFunc, err := LookupScoreFunc(s.ScoreFuncName)
	if err != nil {
		return err
	}

	n, p := X.Dims()
	if n == 0 || p == 0 {
		return carErrors.NewModelError("SelectKBest.Fit", "empty data", carErrors.ErrEmptyData)
	}
	yVec, err := columnVector(y)
	if err != nil {
		return err
	}
	if yVec.Len() != n {
		return carErrors.NewDimensionError("SelectKBest.Fit", n, yVec.Len(), 0)
	}

	scores, pValues, err := scoreFunc(X, yVec)
	if err != nil {
		return carErrors.Wrap(err, "score function failed")
	}

	k := s.K
	if k == KAll {
		k = p
	} else if k > p {
		carErrors.Warn(carErrors.NewFeatureCountWarning("SelectKBest", k, p))
		k = p
	}

	s.Scores = scores
	s.PValues = pValues
	s.Support = topK(scores, k)

	if s.State == nil {
		s.State = model.NewStateManager()
	}
	s.State.SetDimensions(p, n)
	s.State.SetFitted()

	if s.logger != nil {
		s.logger.Debug("SelectKBest fitted",
			log.OperationKey, log.OperationFit,
			log.FeaturesKey, p,
			"k", k,
			"support", s.Support,
		)
	}
	return nil
}

// topK returns the indices of the k best scores in ascending index order.
func topK(scores []float64, k int) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	clean := func(v float64) float64 {
		if math.IsNaN(v) {
			return -math.MaxFloat64
		}
		return v
	}
	sort.SliceStable(order, func(a, b int) bool {
		return clean(scores[order[a]]) < clean(scores[order[b]])
	})

	support := append([]int(nil), order[len(order)-k:]...)
	sort.Ints(support)
	return support
}

// Transform keeps the selected columns of X.
func (s *SelectKBest) Transform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer carErrors.Recover(&err, "SelectKBest.Transform")
	if s.State == nil || !s.State.IsFitted() {
		return nil, carErrors.NewNotFittedError("SelectKBest", "Transform")
	}
	r, c := X.Dims()
	if err := s.State.RequireFeatures("SelectKBest.Transform", c); err != nil {
		return nil, err
	}

	out := mat.NewDense(r, len(s.Support), nil)
	for i := 0; i < r; i++ {
		for j, src := range s.Support {
			out.Set(i, j, X.At(i, src))
		}
	}
	return out, nil
}

// FitTransform fits on (X, y) and returns the selected columns of X.
func (s *SelectKBest) FitTransform(X, y mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X, y); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// GetSupport returns a mask over the input columns.
func (s *SelectKBest) GetSupport() []bool {
	if s.State == nil || !s.State.IsFitted() {
		return nil
	}
	nFeatures, _ := s.State.GetDimensions()
	mask := make([]bool, nFeatures)
	for _, idx := range s.Support {
		mask[idx] = true
	}
	return mask
}

// GetFeatureNamesOut returns the names of the selected input columns.
func (s *SelectKBest) GetFeatureNamesOut(inputFeatures []string) []string {
	names := make([]string, 0, len(s.Support))
	for _, idx := range s.Support {
		if idx < len(inputFeatures) {
			names = append(names, inputFeatures[idx])
		} else {
			names = append(names, fmt.Sprintf("x%d", idx))
		}
	}
	return names
}

// GetParams returns k and the score function name.
func (s *SelectKBest) GetParams() map[string]interface{} {
	var k interface{} = s.K
	if s.K == KAll {
		k = "all"
	}
	return map[string]interface{}{
		"k":          k,
		"score_func": s.ScoreFuncName,
	}
}

// SetParams sets "k" (an integer, a numeric string or "all") and
// "score_func" (a registered name).
func (s *SelectKBest) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "k":
			if str, ok := value.(string); ok && str == "all" {
				s.K = KAll
				continue
			}
			k, err := cast.ToIntE(value)
			if err != nil {
				return carErrors.NewValidationError("k", err.Error(), value)
			}
			s.K = k
			if err := s.validateK(); err != nil {
				return err
			}
		case "score_func":
			name := cast.ToString(value)
			if _, err := LookupScoreFunc(name); err != nil {
				return err
			}
			s.ScoreFuncName = name
		default:
			return carErrors.NewValidationError(key, "unknown parameter for SelectKBest", value)
		}
	}
	return nil
}

// Clone returns an unfitted selector with the same k and score function.
func (s *SelectKBest) Clone() interface{} {
	return &SelectKBest{
		State:         model.NewStateManager(),
		K:             s.K,
		ScoreFuncName: s.ScoreFuncName,
		logger:        s.logger,
	}
}

func columnVector(y mat.Matrix) (*mat.VecDense, error) {
	if v, ok := y.(*mat.VecDense); ok {
		return v, nil
	}
	r, c := y.Dims()
	if c != 1 {
		return nil, carErrors.NewValueError("SelectKBest.Fit", "y must be a column vector")
	}
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, y.At(i, 0))
	}
	return v, nil
}
