package tree

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// WithMaxDepth limits the depth of the tree. 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.MaxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.MinSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples required in a leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.MinSamplesLeaf = n
	}
}

// WithMaxFeatures sets how many features are examined per split. 0 means all.
func WithMaxFeatures(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.MaxFeatures = n
	}
}

// WithRandomState sets the seed of the feature permutation.
func WithRandomState(seed uint64) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.RandomState = seed
	}
}
