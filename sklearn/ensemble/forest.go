// Package ensemble provides a random forest regressor built from
// multi-output CART trees.
package ensemble

import (
	"fmt"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bacpanel/core/model"
	"github.com/YuminosukeSato/bacpanel/core/parallel"
	"github.com/YuminosukeSato/bacpanel/pkg/errors"
	"github.com/YuminosukeSato/bacpanel/pkg/log"
	"github.com/YuminosukeSato/bacpanel/sklearn/tree"
)

// Defaults of the inhibition panel model.
const (
	DefaultNEstimators = 400
	DefaultRandomState = 42
)

// RandomForestRegressor is a bagging ensemble of multi-output regression trees.
//
// Tree i draws its bootstrap sample and feature order from a source seeded
// with (RandomState, i), so the fitted forest does not depend on goroutine
// scheduling or NJobs.
type RandomForestRegressor struct {
	model.BaseEstimator

	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Bootstrap       bool
	RandomState     uint64
	NJobs           int

	Estimators []*tree.DecisionTreeRegressor
	NFeatures  int
	NOut       int

	logger log.Logger
}

// NewRandomForestRegressor creates a forest with 400 unrestricted trees,
// bootstrap sampling and seed 42.
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	rf := &RandomForestRegressor{
		NEstimators:     DefaultNEstimators,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		RandomState:     DefaultRandomState,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

func (rf *RandomForestRegressor) getLogger() log.Logger {
	if rf.logger == nil {
		rf.logger = log.GetLoggerWithName("RandomForestRegressor")
	}
	return rf.logger
}

// SetLogger replaces the logger, e.g. after the model was decoded from an artifact.
func (rf *RandomForestRegressor) SetLogger(logger log.Logger) {
	rf.logger = logger
}

func (rf *RandomForestRegressor) treeOptions(seed uint64) []tree.Option {
	return []tree.Option{
		tree.WithMaxDepth(rf.MaxDepth),
		tree.WithMinSamplesSplit(rf.MinSamplesSplit),
		tree.WithMinSamplesLeaf(rf.MinSamplesLeaf),
		tree.WithMaxFeatures(rf.MaxFeatures),
		tree.WithRandomState(seed),
	}
}

// Fit trains NEstimators trees on X (samples × features) and Y (samples × outputs).
func (rf *RandomForestRegressor) Fit(X, Y mat.Matrix) error {
	if rf.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", rf.NEstimators)
	}
	data, err := tree.NewDataset(X, Y)
	if err != nil {
		return err
	}

	logger := rf.getLogger()
	n := data.NSamples()
	logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, data.NFeatures(),
		log.TargetsKey, data.NOutputs(),
		log.NEstimatorsKey, rf.NEstimators,
		log.MaxDepthKey, rf.MaxDepth,
		log.RandomSeedKey, rf.RandomState,
	)
	start := time.Now()

	estimators := make([]*tree.DecisionTreeRegressor, rf.NEstimators)
	errs := make([]error, rf.NEstimators)
	parallel.ParallelizeWorkers(rf.NEstimators, rf.NJobs, func(lo, hi int) {
		indices := make([]int, n)
		for i := lo; i < hi; i++ {
			rng := rand.New(rand.NewPCG(rf.RandomState, uint64(i)))
			for j := range indices {
				if rf.Bootstrap {
					indices[j] = rng.IntN(n)
				} else {
					indices[j] = j
				}
			}
			t := tree.NewDecisionTreeRegressor(rf.treeOptions(rng.Uint64())...)
			errs[i] = errors.SafeExecute("RandomForestRegressor.Fit", func() error {
				return t.FitIndices(data, indices)
			})
			estimators[i] = t
		}
	})
	for i, e := range errs {
		if e != nil {
			return errors.Wrapf(e, "tree %d", i)
		}
	}

	rf.Estimators = estimators
	rf.NFeatures = data.NFeatures()
	rf.NOut = data.NOutputs()
	rf.SetFitted()

	logger.Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Predict averages the tree outputs and returns a (samples × outputs) matrix.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !rf.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestRegressor", "Predict")
	}
	r, c := X.Dims()
	if c != rf.NFeatures {
		return nil, errors.NewDimensionError("RandomForestRegressor.Predict", rf.NFeatures, c, 1)
	}

	out := mat.NewDense(r, rf.NOut, nil)
	scale := 1 / float64(len(rf.Estimators))
	parallel.ParallelizeWithThreshold(r, 32, func(start, end int) {
		x := make([]float64, c)
		acc := make([]float64, rf.NOut)
		for i := start; i < end; i++ {
			mat.Row(x, i, X)
			clear(acc)
			for _, t := range rf.Estimators {
				floats.Add(acc, t.Apply(x).Value)
			}
			floats.Scale(scale, acc)
			out.SetRow(i, acc)
		}
	})
	return out, nil
}

// NOutputs returns the number of targets seen during Fit.
func (rf *RandomForestRegressor) NOutputs() int {
	return rf.NOut
}

// FeatureImportances returns the mean of the tree importances, normalised to sum to 1.
func (rf *RandomForestRegressor) FeatureImportances() ([]float64, error) {
	if !rf.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestRegressor", "FeatureImportances")
	}
	total := make([]float64, rf.NFeatures)
	for _, t := range rf.Estimators {
		floats.Add(total, t.Importances)
	}
	if s := floats.Sum(total); s > 0 {
		floats.Scale(1/s, total)
	}
	return total, nil
}

// GetParams returns the hyperparameters.
func (rf *RandomForestRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.NEstimators,
		"max_depth":         rf.MaxDepth,
		"min_samples_split": rf.MinSamplesSplit,
		"min_samples_leaf":  rf.MinSamplesLeaf,
		"max_features":      rf.MaxFeatures,
		"bootstrap":         rf.Bootstrap,
		"random_state":      rf.RandomState,
		"n_jobs":            rf.NJobs,
	}
}

func (rf *RandomForestRegressor) String() string {
	return fmt.Sprintf("RandomForestRegressor(n_estimators=%d, max_depth=%d, random_state=%d)",
		rf.NEstimators, rf.MaxDepth, rf.RandomState)
}
