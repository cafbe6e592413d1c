// Package metrics は単一出力と多出力の回帰スコアを提供する。
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/bacpanel/pkg/errors"
)

func checkVectors(op string, yTrue, yPred *mat.VecDense) (int, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkVectors("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score は決定係数（R²）を計算する。
//
// yTrue が定数（全変動 0）の場合は有限値に丸める: 予測が完全一致なら 1、
// そうでなければ 0 を返し、UndefinedMetricWarning を出す。
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkVectors("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	mean := stat.Mean(mat.Col(nil, 0, yTrue), nil)

	var tss, rss float64
	for i := 0; i < n; i++ {
		v := yTrue.AtVec(i)
		d := v - mean
		e := v - yPred.AtVec(i)
		tss += d * d
		rss += e * e
	}

	switch {
	case tss != 0:
		return 1 - rss/tss, nil
	case rss == 0:
		return 1, nil
	default:
		errors.Warn(errors.NewUndefinedMetricWarning("r2", "constant yTrue", 0))
		return 0, nil
	}
}
