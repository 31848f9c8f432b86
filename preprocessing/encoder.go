package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carprice/core/model"
	carErrors "github.com/ezoic/carprice/pkg/errors"
)

// HandleUnknown の値
const (
	// HandleUnknownIgnore は未知カテゴリを全て0のブロックに変換する
	HandleUnknownIgnore = "ignore"
	// HandleUnknownError は未知カテゴリをエラーにする
	HandleUnknownError = "error"
)

// OneHotEncoder はscikit-learn互換のOne-Hotエンコーダー
// カテゴリカルな文字列データを0/1のバイナリベクトルに変換する
type OneHotEncoder struct {
	State *model.StateManager

	// HandleUnknown は未知カテゴリの扱い ("ignore" または "error")
	HandleUnknown string

	// Categories は各特徴量のカテゴリ一覧（ソート済み）
	Categories [][]string

	// CategoryToIdx は各特徴量のカテゴリ→インデックスマップ
	CategoryToIdx []map[string]int

	// NOutputs は出力特徴量数（全カテゴリの合計数）
	NOutputs int
}

// NewOneHotEncoder は未知カテゴリを無視するOneHotEncoderを作成する
//
// 使用例:
//
//	encoder := preprocessing.NewOneHotEncoder()
//	err := encoder.Fit(data)
//	encoded, err := encoder.Transform(data)
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{
		State:         model.NewStateManager(),
		HandleUnknown: HandleUnknownIgnore,
	}
}

// Fit は訓練データ (n_samples × n_features) からカテゴリ情報を学習する
func (e *OneHotEncoder) Fit(data [][]string) (err error) {
	defer carErrors.Recover(&err, "OneHotEncoder.Fit")
	if len(data) == 0 {
		return carErrors.NewModelError("OneHotEncoder.Fit", "empty data", carErrors.ErrEmptyData)
	}
	if len(data[0]) == 0 {
		return carErrors.NewModelError("OneHotEncoder.Fit", "empty features", carErrors.ErrEmptyData)
	}
	if e.HandleUnknown != HandleUnknownIgnore && e.HandleUnknown != HandleUnknownError {
		return carErrors.NewValidationError("handle_unknown", "must be 'ignore' or 'error'", e.HandleUnknown)
	}

	nFeatures := len(data[0])
	for _, row := range data {
		if len(row) != nFeatures {
			return carErrors.NewDimensionError("OneHotEncoder.Fit", nFeatures, len(row), 1)
		}
	}

	e.Categories = make([][]string, nFeatures)
	e.CategoryToIdx = make([]map[string]int, nFeatures)
	e.NOutputs = 0

	for j := 0; j < nFeatures; j++ {
		categorySet := make(map[string]struct{})
		for _, row := range data {
			categorySet[row[j]] = struct{}{}
		}

		categories := make([]string, 0, len(categorySet))
		for category := range categorySet {
			categories = append(categories, category)
		}
		sort.Strings(categories)

		categoryToIdx := make(map[string]int, len(categories))
		for idx, category := range categories {
			categoryToIdx[category] = idx
		}

		e.Categories[j] = categories
		e.CategoryToIdx[j] = categoryToIdx
		e.NOutputs += len(categories)
	}

	if e.State == nil {
		e.State = model.NewStateManager()
	}
	e.State.SetDimensions(nFeatures, len(data))
	e.State.SetFitted()
	return nil
}

// Transform は学習済みのカテゴリ情報を使ってデータをone-hot encodingする。
// HandleUnknownが"ignore"なら、未知カテゴリはその特徴量のブロックを全て0にする。
func (e *OneHotEncoder) Transform(data [][]string) (_ mat.Matrix, err error) {
	defer carErrors.Recover(&err, "OneHotEncoder.Transform")
	if e.State == nil {
		return nil, carErrors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	if err := e.State.RequireFitted("OneHotEncoder", "Transform"); err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, carErrors.NewModelError("OneHotEncoder.Transform", "empty data", carErrors.ErrEmptyData)
	}

	nFeatures := len(e.Categories)
	for _, row := range data {
		if err := e.State.RequireFeatures("OneHotEncoder.Transform", len(row)); err != nil {
			return nil, err
		}
	}

	result := mat.NewDense(len(data), e.NOutputs, nil)
	for i, row := range data {
		offset := 0
		for j := 0; j < nFeatures; j++ {
			if idx, ok := e.CategoryToIdx[j][row[j]]; ok {
				result.Set(i, offset+idx, 1.0)
			} else if e.HandleUnknown == HandleUnknownError {
				return nil, carErrors.NewValueError("OneHotEncoder.Transform",
					fmt.Sprintf("found unknown category %q in feature %d", row[j], j))
			}
			offset += len(e.Categories[j])
		}
	}

	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (e *OneHotEncoder) FitTransform(data [][]string) (_ mat.Matrix, err error) {
	defer carErrors.Recover(&err, "OneHotEncoder.FitTransform")
	if err := e.Fit(data); err != nil {
		return nil, err
	}
	return e.Transform(data)
}

// GetFeatureNamesOut は変換後の特徴量の名前を返す
//
// 例:
//   - 入力特徴量名が["Fuel_Type", "Transmission"]の場合
//   - 出力: ["Fuel_Type_CNG", "Fuel_Type_Diesel", ..., "Transmission_Manual"]
func (e *OneHotEncoder) GetFeatureNamesOut(inputFeatures []string) []string {
	if e.State == nil || !e.State.IsFitted() {
		return nil
	}

	var outputFeatures []string
	for i, categories := range e.Categories {
		name := fmt.Sprintf("x%d", i)
		if i < len(inputFeatures) {
			name = inputFeatures[i]
		}
		for _, category := range categories {
			outputFeatures = append(outputFeatures, name+"_"+category)
		}
	}
	return outputFeatures
}

// GetParams はエンコーダーのパラメータを取得する
func (e *OneHotEncoder) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"handle_unknown": e.HandleUnknown,
	}
}

// SetParams は "handle_unknown" を設定する
func (e *OneHotEncoder) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		if key != "handle_unknown" {
			return carErrors.NewValidationError(key, "unknown parameter for OneHotEncoder", value)
		}
		s, ok := value.(string)
		if !ok || (s != HandleUnknownIgnore && s != HandleUnknownError) {
			return carErrors.NewValidationError(key, "must be 'ignore' or 'error'", value)
		}
		e.HandleUnknown = s
	}
	return nil
}

// Clone は同じ設定を持つ未学習のエンコーダーを返す
func (e *OneHotEncoder) Clone() interface{} {
	return &OneHotEncoder{
		State:         model.NewStateManager(),
		HandleUnknown: e.HandleUnknown,
	}
}
