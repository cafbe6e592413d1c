package metrics

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/bacpanel/pkg/errors"
)

// MultiOutputScore は出力ごとのスコアと、その一様平均
type MultiOutputScore struct {
	PerTarget []float64
	Average   float64
}

func checkMultiOutput(op string, yTrue, yPred mat.Matrix) (int, int, error) {
	r, c := yTrue.Dims()
	rp, cp := yPred.Dims()
	if r == 0 || c == 0 {
		return 0, 0, errors.NewValueError(op, "empty matrix")
	}
	if rp != r {
		return 0, 0, errors.NewDimensionError(op, r, rp, 0)
	}
	if cp != c {
		return 0, 0, errors.NewDimensionError(op, c, cp, 1)
	}
	return r, c, nil
}

// R2ScoreMultiOutput は列ごとの決定係数と一様平均を計算する。
// 各列は R2Score で評価するので、定数列の扱いも同じになる。
func R2ScoreMultiOutput(yTrue, yPred mat.Matrix) (MultiOutputScore, error) {
	return perColumn("R2ScoreMultiOutput", yTrue, yPred, R2Score)
}

// MAEMultiOutput は列ごとの平均絶対誤差と一様平均を計算する
func MAEMultiOutput(yTrue, yPred mat.Matrix) (MultiOutputScore, error) {
	return perColumn("MAEMultiOutput", yTrue, yPred, MAE)
}

func perColumn(op string, yTrue, yPred mat.Matrix, score func(yTrue, yPred *mat.VecDense) (float64, error)) (MultiOutputScore, error) {
	r, c, err := checkMultiOutput(op, yTrue, yPred)
	if err != nil {
		return MultiOutputScore{}, err
	}

	scores := make([]float64, c)
	bufTrue, bufPred := make([]float64, r), make([]float64, r)
	colTrue, colPred := mat.NewVecDense(r, bufTrue), mat.NewVecDense(r, bufPred)
	for j := 0; j < c; j++ {
		mat.Col(bufTrue, j, yTrue)
		mat.Col(bufPred, j, yPred)
		if scores[j], err = score(colTrue, colPred); err != nil {
			return MultiOutputScore{}, errors.Wrapf(err, "%s: output %d", op, j)
		}
	}
	return MultiOutputScore{PerTarget: scores, Average: stat.Mean(scores, nil)}, nil
}
