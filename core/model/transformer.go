package model

import "gonum.org/v1/gonum/mat"

// Transformer は数値行列を受け取る前処理ステップ。
// preprocessing.ColumnTransformer は数値ブランチをこの型の列として順に適用する。
type Transformer interface {
	// Fit は変換に必要な統計量を学習する
	Fit(X mat.Matrix) error

	// Transform は学習済みの統計量で X を変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform は Fit の後に同じデータを Transform する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}
