// Package preprocessing は記述子の列を回帰モデル用の数値行列に変換する。
//
// ColumnTransformer は 2 つのブランチを並べて実行する:
//
//	categorical: CategoricalImputer (most frequent) -> OneHotEncoder (ignore unknown)
//	numeric:     SimpleImputer (mean)               -> StandardScaler
//
// 出力はカテゴリブロック、続いて数値ブロックの順に連結する。
package preprocessing

import (
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bacpanel/core/model"
	"github.com/YuminosukeSato/bacpanel/pkg/errors"
)

// Frame は前処理への入力。Categorical は (行数 × カテゴリ列数)、欠損は ""。
// Numeric は (行数 × 数値列数)、欠損は NaN。
type Frame struct {
	Categorical [][]string
	Numeric     *mat.Dense
}

// Rows は行数を返す。2 つのブロックの行数が一致しない場合は -1。
func (f Frame) Rows() int {
	n := len(f.Categorical)
	if f.Numeric != nil {
		r, _ := f.Numeric.Dims()
		if r != n {
			return -1
		}
	}
	return n
}

// FittedStats は Fit で確定した統計量のスナップショット。
// 返される値はコピーなので、変更しても変換器には影響しない。
type FittedStats struct {
	CategoricalFeatures []string
	NumericFeatures     []string

	// Modes は各カテゴリ列の最頻値
	Modes []string
	// Categories は各カテゴリ列の既知カテゴリ
	Categories [][]string
	// Means は数値列の補完値
	Means []float64
	// ScaleMeans と Scales は標準化の中心と尺度（補完後のデータで計算）
	ScaleMeans []float64
	Scales     []float64
}

// ColumnTransformer はカテゴリ列と数値列を別々に前処理して連結する
type ColumnTransformer struct {
	model.BaseEstimator

	CategoricalFeatures []string
	NumericFeatures     []string

	CatImputer *CategoricalImputer
	Encoder    *OneHotEncoder
	NumImputer *SimpleImputer
	Scaler     *StandardScaler
}

// NewColumnTransformer は列名を受け取り、未学習の変換器を作る
func NewColumnTransformer(categorical, numeric []string) *ColumnTransformer {
	return &ColumnTransformer{
		CategoricalFeatures: slices.Clone(categorical),
		NumericFeatures:     slices.Clone(numeric),
		CatImputer:          NewCategoricalImputer(),
		Encoder:             NewOneHotEncoder(),
		NumImputer:          NewSimpleImputer(StrategyMean),
		Scaler:              NewStandardScalerDefault(),
	}
}

// numericSteps は数値ブランチを適用順に返す
func (ct *ColumnTransformer) numericSteps() []model.Transformer {
	return []model.Transformer{ct.NumImputer, ct.Scaler}
}

func fitTransformChain(steps []model.Transformer, X mat.Matrix) (mat.Matrix, error) {
	var err error
	for _, step := range steps {
		if X, err = step.FitTransform(X); err != nil {
			return nil, errors.Wrapf(err, "numeric step %T", step)
		}
	}
	return X, nil
}

func transformChain(steps []model.Transformer, X mat.Matrix) (mat.Matrix, error) {
	var err error
	for _, step := range steps {
		if X, err = step.Transform(X); err != nil {
			return nil, err
		}
	}
	return X, nil
}

func (ct *ColumnTransformer) checkFrame(op string, f Frame) error {
	n := f.Rows()
	if n < 0 {
		return errors.NewValueError(op, "categorical and numeric blocks have different row counts")
	}
	if n == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if got := len(f.Categorical[0]); got != len(ct.CategoricalFeatures) {
		return errors.NewDimensionError(op, len(ct.CategoricalFeatures), got, 1)
	}
	if f.Numeric == nil {
		return errors.NewDimensionError(op, len(ct.NumericFeatures), 0, 1)
	}
	if _, c := f.Numeric.Dims(); c != len(ct.NumericFeatures) {
		return errors.NewDimensionError(op, len(ct.NumericFeatures), c, 1)
	}
	return nil
}

// Fit は学習データで両方のブランチを一度だけ学習する
func (ct *ColumnTransformer) Fit(f Frame) error {
	if err := ct.checkFrame("ColumnTransformer.Fit", f); err != nil {
		return err
	}

	if err := ct.CatImputer.Fit(f.Categorical); err != nil {
		return errors.Wrap(err, "categorical imputer")
	}
	imputedCat, err := ct.CatImputer.Transform(f.Categorical)
	if err != nil {
		return err
	}
	if err := ct.Encoder.Fit(imputedCat); err != nil {
		return errors.Wrap(err, "one-hot encoder")
	}

	if _, err := fitTransformChain(ct.numericSteps(), f.Numeric); err != nil {
		return err
	}

	ct.SetFitted()
	return nil
}

// Transform は学習済みの統計量で f を変換する。
// 出力列は one-hot ブロック、続いて標準化済みの数値列。
func (ct *ColumnTransformer) Transform(f Frame) (*mat.Dense, error) {
	if !ct.IsFitted() {
		return nil, errors.NewNotFittedError("ColumnTransformer", "Transform")
	}
	if err := ct.checkFrame("ColumnTransformer.Transform", f); err != nil {
		return nil, err
	}

	cat, err := ct.CatImputer.Transform(f.Categorical)
	if err != nil {
		return nil, err
	}
	encoded, err := ct.Encoder.Transform(cat)
	if err != nil {
		return nil, err
	}
	scaled, err := transformChain(ct.numericSteps(), f.Numeric)
	if err != nil {
		return nil, err
	}

	rows := f.Rows()
	_, nEnc := encoded.Dims()
	_, nNum := scaled.Dims()
	out := mat.NewDense(rows, nEnc+nNum, nil)
	if nEnc > 0 {
		out.Slice(0, rows, 0, nEnc).(*mat.Dense).Copy(encoded)
	}
	out.Slice(0, rows, nEnc, nEnc+nNum).(*mat.Dense).Copy(scaled)
	return out, nil
}

// FitTransform は Fit の後に Transform を行う
func (ct *ColumnTransformer) FitTransform(f Frame) (*mat.Dense, error) {
	if err := ct.Fit(f); err != nil {
		return nil, err
	}
	return ct.Transform(f)
}

// NOutputs は変換後の列数を返す
func (ct *ColumnTransformer) NOutputs() int {
	if !ct.IsFitted() {
		return 0
	}
	return ct.Encoder.NOutputs() + len(ct.NumericFeatures)
}

// FeatureNamesOut は変換後の列名を返す
func (ct *ColumnTransformer) FeatureNamesOut() []string {
	if !ct.IsFitted() {
		return nil
	}
	return append(ct.Encoder.FeatureNamesOut(ct.CategoricalFeatures), ct.NumericFeatures...)
}

// Stats は学習済み統計量のコピーを返す
func (ct *ColumnTransformer) Stats() (FittedStats, error) {
	if !ct.IsFitted() {
		return FittedStats{}, errors.NewNotFittedError("ColumnTransformer", "Stats")
	}
	cats := make([][]string, len(ct.Encoder.Categories))
	for i, c := range ct.Encoder.Categories {
		cats[i] = slices.Clone(c)
	}
	return FittedStats{
		CategoricalFeatures: slices.Clone(ct.CategoricalFeatures),
		NumericFeatures:     slices.Clone(ct.NumericFeatures),
		Modes:               slices.Clone(ct.CatImputer.Modes),
		Categories:          cats,
		Means:               slices.Clone(ct.NumImputer.Statistics),
		ScaleMeans:          slices.Clone(ct.Scaler.Mean),
		Scales:              slices.Clone(ct.Scaler.Scale),
	}, nil
}
