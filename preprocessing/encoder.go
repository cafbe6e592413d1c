package preprocessing

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bacpanel/core/model"
	"github.com/YuminosukeSato/bacpanel/pkg/errors"
)

// OneHotEncoder の未知カテゴリの扱い
const (
	HandleUnknownIgnore = "ignore"
	HandleUnknownError  = "error"
)

// OneHotEncoder は文字列列を one-hot ベクトルに変換する。
// 各列のカテゴリは学習データの値を辞書順に並べたもの。
type OneHotEncoder struct {
	model.BaseEstimator

	// Categories は列ごとのカテゴリ一覧（ソート済み）
	Categories [][]string

	// HandleUnknown が "ignore" の場合、未知のカテゴリは全て 0 の
	// ブロックになる。"error" の場合は ValueError を返す。
	HandleUnknown string
}

// NewOneHotEncoder は未知カテゴリを無視するエンコーダを作成する
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{HandleUnknown: HandleUnknownIgnore}
}

// Fit は各列のカテゴリを収集する
func (e *OneHotEncoder) Fit(X [][]string) error {
	nCols, err := stringColumns("OneHotEncoder.Fit", X)
	if err != nil {
		return err
	}

	e.Categories = make([][]string, nCols)
	for j := 0; j < nCols; j++ {
		seen := make(map[string]struct{})
		for _, row := range X {
			seen[row[j]] = struct{}{}
		}
		cats := make([]string, 0, len(seen))
		for v := range seen {
			cats = append(cats, v)
		}
		slices.Sort(cats)
		e.Categories[j] = cats
	}

	e.SetFitted()
	return nil
}

// NOutputs は変換後の列数を返す
func (e *OneHotEncoder) NOutputs() int {
	n := 0
	for _, cats := range e.Categories {
		n += len(cats)
	}
	return n
}

// Transform は X を (行数 × NOutputs) の行列に変換する
func (e *OneHotEncoder) Transform(X [][]string) (*mat.Dense, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	if len(X) == 0 {
		return nil, errors.NewModelError("OneHotEncoder.Transform", "empty data", errors.ErrEmptyData)
	}

	out := mat.NewDense(len(X), e.NOutputs(), nil)
	for i, row := range X {
		if len(row) != len(e.Categories) {
			return nil, errors.NewDimensionError("OneHotEncoder.Transform", len(e.Categories), len(row), 1)
		}
		offset := 0
		for j, v := range row {
			cats := e.Categories[j]
			if k, found := slices.BinarySearch(cats, v); found {
				out.Set(i, offset+k, 1)
			} else if e.HandleUnknown == HandleUnknownError {
				return nil, errors.NewValueError("OneHotEncoder.Transform", "unknown category "+v)
			}
			offset += len(cats)
		}
	}
	return out, nil
}

// FeatureNamesOut は "<入力名>_<カテゴリ>" 形式の出力列名を返す
func (e *OneHotEncoder) FeatureNamesOut(inputNames []string) []string {
	names := make([]string, 0, e.NOutputs())
	for j, cats := range e.Categories {
		prefix := fmt.Sprintf("x%d", j)
		if j < len(inputNames) {
			prefix = inputNames[j]
		}
		for _, c := range cats {
			names = append(names, prefix+"_"+c)
		}
	}
	return names
}
