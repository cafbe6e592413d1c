package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。y は (サンプル数 × 出力数)。
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator は学習状態を問い合わせられるモデル
type Estimator interface {
	IsFitted() bool
}

// MultiOutputRegressor は複数のターゲットを同時に予測する回帰モデル。
// Predict は (サンプル数 × NOutputs) の行列を返す。
type MultiOutputRegressor interface {
	Estimator
	Fitter
	Predictor

	// NOutputs は学習時に見たターゲット数を返す。未学習なら 0。
	NOutputs() int
}

// FeatureImportancer は特徴量重要度を公開するモデル
type FeatureImportancer interface {
	// FeatureImportances は不純度減少に基づく正規化済み重要度を返す
	FeatureImportances() ([]float64, error)
}

// ParameterGetter はハイパーパラメータを公開するモデル
type ParameterGetter interface {
	// GetParams はハイパーパラメータを返す
	GetParams() map[string]interface{}
}
