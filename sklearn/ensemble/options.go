package ensemble

import "github.com/YuminosukeSato/bacpanel/pkg/log"

// Option configures a RandomForestRegressor.
type Option func(*RandomForestRegressor)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(rf *RandomForestRegressor) {
		rf.NEstimators = n
	}
}

// WithMaxDepth limits the depth of every tree. 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(rf *RandomForestRegressor) {
		rf.MaxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(rf *RandomForestRegressor) {
		rf.MinSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples per leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(rf *RandomForestRegressor) {
		rf.MinSamplesLeaf = n
	}
}

// WithMaxFeatures sets the number of features examined per split. 0 means all.
func WithMaxFeatures(n int) Option {
	return func(rf *RandomForestRegressor) {
		rf.MaxFeatures = n
	}
}

// WithBootstrap toggles bootstrap sampling of the training rows.
func WithBootstrap(bootstrap bool) Option {
	return func(rf *RandomForestRegressor) {
		rf.Bootstrap = bootstrap
	}
}

// WithRandomState sets the forest seed.
func WithRandomState(seed uint64) Option {
	return func(rf *RandomForestRegressor) {
		rf.RandomState = seed
	}
}

// WithNJobs caps the number of goroutines used by Fit. 0 means one per CPU.
func WithNJobs(n int) Option {
	return func(rf *RandomForestRegressor) {
		rf.NJobs = n
	}
}

// WithLogger sets the logger used during Fit.
func WithLogger(logger log.Logger) Option {
	return func(rf *RandomForestRegressor) {
		rf.logger = logger
	}
}
