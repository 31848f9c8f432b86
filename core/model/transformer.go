package model

import (
	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"
)

// Transformer は数値行列を変換する教師なし変換器のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// SupervisedTransformer はターゲットを使って学習する変換器（特徴量選択など）
type SupervisedTransformer interface {
	Fit(X, y mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
}

// StringTransformer はカテゴリカルな文字列列を数値行列に変換する
type StringTransformer interface {
	Fit(data [][]string) error
	Transform(data [][]string) (mat.Matrix, error)
}

// FrameTransformer は名前付き列を持つテーブルを数値行列に変換する。
// パイプラインの先頭ステップとして使われる。
type FrameTransformer interface {
	Fit(df dataframe.DataFrame) error
	Transform(df dataframe.DataFrame) (mat.Matrix, error)
}
