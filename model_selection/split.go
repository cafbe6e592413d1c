// Package model_selection provides reproducible train/test and k-fold
// splitting of sample indices.
package model_selection

import (
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/bacpanel/pkg/errors"
)

// TrainTestSplit shuffles 0..n-1 with seed and returns train and test
// indices. The test partition holds ceil(testSize·n) samples. Both
// partitions must be non-empty.
func TrainTestSplit(n int, testSize float64, seed uint64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 || math.IsNaN(testSize) {
		return nil, nil, errors.NewInvalidArgumentError("TrainTestSplit", "test_size", testSize, "must be in (0, 1)")
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest < 1 || nTrain < 1 {
		return nil, nil, errors.NewValueError("TrainTestSplit",
			"not enough samples for a non-empty train and test partition")
	}

	perm := permutation(n, seed)
	// sklearn's ShuffleSplit takes the test block first
	return perm[nTest:], perm[:nTest], nil
}

func permutation(n int, seed uint64) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	r := rand.New(rand.NewPCG(seed, seed))
	r.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	return indices
}
