package model_selection

import (
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/bacpanel/pkg/errors"
)

// Fold represents a single fold in cross-validation
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold implements k-fold cross-validation splitter
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int, shuffle bool, randomSeed uint64) *KFold {
	return &KFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// Split generates train/test indices for n samples. Without shuffling the
// test folds are consecutive blocks; the first n%k folds get one extra sample.
func (kf *KFold) Split(n int) ([]Fold, error) {
	if kf.NSplits < 2 {
		return nil, errors.NewInvalidArgumentError("KFold.Split", "n_splits", kf.NSplits, "must be >= 2")
	}
	if n < kf.NSplits {
		return nil, errors.NewInvalidArgumentError("KFold.Split", "n_samples", n,
			"cannot be smaller than n_splits")
	}

	var indices []int
	if kf.Shuffle {
		indices = permutation(n, kf.RandomSeed)
	} else {
		indices = make([]int, n)
		for i := range indices {
			indices[i] = i
		}
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := n / kf.NSplits
	remainder := n % kf.NSplits

	current := 0
	for i := range folds {
		testSize := foldSize
		if i < remainder {
			testSize++
		}
		end := current + testSize

		train := make([]int, 0, n-testSize)
		train = append(train, indices[:current]...)
		train = append(train, indices[end:]...)
		folds[i] = Fold{
			TrainIndices: train,
			TestIndices:  append([]int(nil), indices[current:end]...),
		}
		current = end
	}
	return folds, nil
}

// CVResult stores the test score of every fold.
type CVResult struct {
	TestScores []float64
}

// Mean returns the mean test score.
func (cv CVResult) Mean() float64 {
	if len(cv.TestScores) == 0 {
		return 0
	}
	return stat.Mean(cv.TestScores, nil)
}

// Std returns the population standard deviation of the test scores.
func (cv CVResult) Std() float64 {
	if len(cv.TestScores) <= 1 {
		return 0
	}
	return stat.PopStdDev(cv.TestScores, nil)
}
