// Package preprocessing provides data preprocessing utilities for machine learning.
//
// The package contains the transformers used in front of the regression model:
//
//   - MinMaxScaler: Transforms features by scaling each feature to a given range
//   - OneHotEncoder: Encodes categorical string columns as indicator columns
//
// Transformers follow the scikit-learn Fit/Transform/FitTransform pattern and
// are safe to gob-encode once fitted.
//
// Example:
//
//	scaler := preprocessing.NewMinMaxScalerDefault()
//	scaledData, err := scaler.FitTransform(trainingData)
//	testScaled, err := scaler.Transform(testData)
package preprocessing

import (
	"encoding/gob"
	"fmt"
	"math"

	"github.com/spf13/cast"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carprice/core/model"
	carErrors "github.com/ezoic/carprice/pkg/errors"
)

// Ranges below ten machine epsilons count as a constant column.
var constantRange = 10 * (math.Nextafter(1, 2) - 1)

func init() {
	gob.Register(&MinMaxScaler{})
	gob.Register(&OneHotEncoder{})
}

// MinMaxScaler はscikit-learn互換のMin-Maxスケーラー
// 各特徴量を学習データの最小値・最大値に基づいて FeatureRange に線形変換する
type MinMaxScaler struct {
	State *model.StateManager

	// DataMin は学習データの最小値
	DataMin []float64

	// DataMax は学習データの最大値
	DataMax []float64

	// Scale は各特徴量のスケール (max - min)。定数特徴量では1
	Scale []float64

	// FeatureRange はスケーリング後の範囲 [min, max]
	FeatureRange [2]float64
}

// NewMinMaxScaler creates a new MinMaxScaler for feature scaling.
//
// The transformation is given by:
//
//	X_scaled = (X - X.min) / (X.max - X.min) * (max - min) + min
//
// Example:
//
//	scaler := preprocessing.NewMinMaxScaler([2]float64{0.0, 1.0})
//	err := scaler.Fit(trainingData)
//	scaledData, err := scaler.Transform(testData)
func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{
		State:        model.NewStateManager(),
		FeatureRange: featureRange,
	}
}

// NewMinMaxScalerDefault はデフォルト設定([0,1]範囲)でMinMaxScalerを作成する
func NewMinMaxScalerDefault() *MinMaxScaler {
	return NewMinMaxScaler([2]float64{0.0, 1.0})
}

// Fit computes the minimum and maximum values for each feature from training data.
// NaN values are rejected as non-numeric data.
func (m *MinMaxScaler) Fit(X mat.Matrix) (err error) {
	defer carErrors.Recover(&err, "MinMaxScaler.Fit")
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return carErrors.NewModelError("MinMaxScaler.Fit", "empty data", carErrors.ErrEmptyData)
	}
	if m.FeatureRange[0] >= m.FeatureRange[1] {
		return carErrors.NewValidationError("feature_range", "minimum must be smaller than maximum", m.FeatureRange)
	}

	m.DataMin = make([]float64, c)
	m.DataMax = make([]float64, c)
	m.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := 0; i < r; i++ {
			val := X.At(i, j)
			if math.IsNaN(val) {
				return carErrors.NewModelError("MinMaxScaler.Fit",
					fmt.Sprintf("NaN in feature %d", j), carErrors.ErrNonNumeric)
			}
			lo = math.Min(lo, val)
			hi = math.Max(hi, val)
		}

		m.DataMin[j] = lo
		m.DataMax[j] = hi

		dataRange := hi - lo
		if dataRange < constantRange {
			// 定数特徴量の場合、スケールを1に設定
			m.Scale[j] = 1.0
		} else {
			m.Scale[j] = dataRange
		}
	}

	if m.State == nil {
		m.State = model.NewStateManager()
	}
	m.State.SetDimensions(c, r)
	m.State.SetFitted()
	return nil
}

// Transform scales input data to the fitted feature range. Values outside the
// training range map outside FeatureRange; they are not clipped.
func (m *MinMaxScaler) Transform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer carErrors.Recover(&err, "MinMaxScaler.Transform")
	if m.State == nil {
		return nil, carErrors.NewNotFittedError("MinMaxScaler", "Transform")
	}
	if err := m.State.RequireFitted("MinMaxScaler", "Transform"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if err := m.State.RequireFeatures("MinMaxScaler.Transform", c); err != nil {
		return nil, err
	}

	result := mat.NewDense(r, c, nil)
	featureRange := m.FeatureRange[1] - m.FeatureRange[0]
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			scaled := (X.At(i, j)-m.DataMin[j])/m.Scale[j]*featureRange + m.FeatureRange[0]
			result.Set(i, j, scaled)
		}
	}

	return result, nil
}

// FitTransform fits the scaler and transforms the training data in one step.
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer carErrors.Recover(&err, "MinMaxScaler.FitTransform")
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// GetParams はスケーラーのパラメータを取得する
func (m *MinMaxScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"feature_range": m.FeatureRange,
	}
}

// SetParams は "feature_range" を設定する。値は [2]float64 か長さ2のスライス。
func (m *MinMaxScaler) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		if key != "feature_range" {
			return carErrors.NewValidationError(key, "unknown parameter for MinMaxScaler", value)
		}
		switch v := value.(type) {
		case [2]float64:
			m.FeatureRange = v
		case []float64:
			if len(v) != 2 {
				return carErrors.NewValidationError(key, "expected two bounds", value)
			}
			m.FeatureRange = [2]float64{v[0], v[1]}
		default:
			bounds, err := cast.ToSliceE(value)
			if err != nil || len(bounds) != 2 {
				return carErrors.NewValidationError(key, "expected two bounds", value)
			}
			lo, err := cast.ToFloat64E(bounds[0])
			if err != nil {
				return carErrors.NewValidationError(key, err.Error(), value)
			}
			hi, err := cast.ToFloat64E(bounds[1])
			if err != nil {
				return carErrors.NewValidationError(key, err.Error(), value)
			}
			m.FeatureRange = [2]float64{lo, hi}
		}
	}
	return nil
}

// Clone は同じFeatureRangeを持つ未学習のスケーラーを返す
func (m *MinMaxScaler) Clone() interface{} {
	return NewMinMaxScaler(m.FeatureRange)
}
