package preprocessing

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/bacpanel/core/model"
	"github.com/YuminosukeSato/bacpanel/pkg/errors"
)

// SimpleImputer が対応する補完方法
const (
	StrategyMean   = "mean"
	StrategyMedian = "median"
)

// SimpleImputer は数値列の欠損値 (NaN) を学習データの統計量で補完する
type SimpleImputer struct {
	model.BaseEstimator

	// Strategy は "mean" または "median"
	Strategy string

	// Statistics は各列の補完値。学習後は変更されない。
	Statistics []float64

	NFeatures int
}

// NewSimpleImputer は指定した戦略の SimpleImputer を作成する
func NewSimpleImputer(strategy string) *SimpleImputer {
	return &SimpleImputer{Strategy: strategy}
}

// Fit は各列の NaN 以外の値から補完値を計算する。
// 観測値が一つもない列は ValueError になる。
func (s *SimpleImputer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("SimpleImputer.Fit", "empty data", errors.ErrEmptyData)
	}
	if s.Strategy != StrategyMean && s.Strategy != StrategyMedian {
		return errors.NewValidationError("strategy", "must be mean or median", s.Strategy)
	}

	s.NFeatures = c
	s.Statistics = make([]float64, c)
	observed := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		observed = observed[:0]
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				observed = append(observed, v)
			}
		}
		if len(observed) == 0 {
			return errors.NewValueError("SimpleImputer.Fit", fmt.Sprintf("column %d has no observed values", j))
		}

		switch s.Strategy {
		case StrategyMedian:
			sort.Float64s(observed)
			s.Statistics[j] = median(observed)
		default:
			s.Statistics[j] = stat.Mean(observed, nil)
		}
	}

	s.SetFitted()
	return nil
}

// median はソート済みの値の中央値。偶数個なら中央 2 つの平均。
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Transform は NaN を学習済みの補完値で置き換えた新しい行列を返す
func (s *SimpleImputer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("SimpleImputer", "Transform")
	}
	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("SimpleImputer.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		if math.IsNaN(v) {
			return s.Statistics[j]
		}
		return v
	}, X)
	return result, nil
}

// FitTransform は Fit の後に Transform を行う
func (s *SimpleImputer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// CategoricalImputer は文字列列の欠損値 ("") を最頻値で補完する。
// 最頻値が複数ある場合は辞書順で最小のものを選ぶ。
type CategoricalImputer struct {
	model.BaseEstimator

	// Modes は各列の最頻値
	Modes []string

	NFeatures int
}

// NewCategoricalImputer は最頻値補完器を作成する
func NewCategoricalImputer() *CategoricalImputer {
	return &CategoricalImputer{}
}

// Fit は各列の最頻値を求める
func (c *CategoricalImputer) Fit(X [][]string) error {
	nCols, err := stringColumns("CategoricalImputer.Fit", X)
	if err != nil {
		return err
	}

	c.NFeatures = nCols
	c.Modes = make([]string, nCols)
	for j := 0; j < nCols; j++ {
		counts := make(map[string]int)
		for _, row := range X {
			if row[j] != "" {
				counts[row[j]]++
			}
		}
		if len(counts) == 0 {
			return errors.NewValueError("CategoricalImputer.Fit", fmt.Sprintf("column %d has no observed values", j))
		}

		best, bestCount := "", 0
		for v, n := range counts {
			if n > bestCount || (n == bestCount && v < best) {
				best, bestCount = v, n
			}
		}
		c.Modes[j] = best
	}

	c.SetFitted()
	return nil
}

// Transform は "" を最頻値で置き換えたコピーを返す
func (c *CategoricalImputer) Transform(X [][]string) ([][]string, error) {
	if !c.IsFitted() {
		return nil, errors.NewNotFittedError("CategoricalImputer", "Transform")
	}
	out := make([][]string, len(X))
	for i, row := range X {
		if len(row) != c.NFeatures {
			return nil, errors.NewDimensionError("CategoricalImputer.Transform", c.NFeatures, len(row), 1)
		}
		out[i] = make([]string, len(row))
		for j, v := range row {
			if v == "" {
				v = c.Modes[j]
			}
			out[i][j] = v
		}
	}
	return out, nil
}

// stringColumns は X が空でなく矩形であることを確認し、列数を返す
func stringColumns(op string, X [][]string) (int, error) {
	if len(X) == 0 || len(X[0]) == 0 {
		return 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	n := len(X[0])
	for _, row := range X {
		if len(row) != n {
			return 0, errors.NewDimensionError(op, n, len(row), 1)
		}
	}
	return n, nil
}
