// Package tree implements a CART decision tree regressor with native
// multi-output support.
//
// A single tree predicts every output at once: splits are chosen to
// minimise the squared error summed over all outputs, and each leaf stores
// the mean target vector of its samples.
package tree

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bacpanel/core/model"
	"github.com/YuminosukeSato/bacpanel/core/parallel"
	"github.com/YuminosukeSato/bacpanel/pkg/errors"
)

// leaf marks a node without children.
const leaf = -1

// impurities below this are treated as pure nodes
const minImpurityDecrease = 1e-12

// Node is one node of a fitted tree. Nodes are stored in a flat slice and
// refer to their children by index.
type Node struct {
	Feature   int // leaf (-1) for leaves
	Threshold float64
	Left      int
	Right     int
	Value     []float64 // mean target vector of the node's samples
	NSamples  int
	Impurity  float64 // squared error averaged over outputs
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n.Feature == leaf
}

// DecisionTreeRegressor is a multi-output regression tree.
type DecisionTreeRegressor struct {
	model.BaseEstimator

	// hyperparameters
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	RandomState     uint64

	// fitted state
	Nodes       []Node
	NFeatures   int
	NOut        int
	Importances []float64
}

// NewDecisionTreeRegressor creates a tree with unlimited depth,
// min_samples_split=2, min_samples_leaf=1 and all features per split.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

func (dt *DecisionTreeRegressor) validateParams() error {
	if dt.MaxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 0", dt.MaxDepth)
	}
	if dt.MinSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be >= 2", dt.MinSamplesSplit)
	}
	if dt.MinSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", dt.MinSamplesLeaf)
	}
	if dt.MaxFeatures < 0 {
		return errors.NewValidationError("max_features", "must be >= 0", dt.MaxFeatures)
	}
	return nil
}

// Fit builds the tree from X (samples × features) and Y (samples × outputs).
func (dt *DecisionTreeRegressor) Fit(X, Y mat.Matrix) error {
	data, err := NewDataset(X, Y)
	if err != nil {
		return err
	}
	n := data.NSamples()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return dt.FitIndices(data, indices)
}

// FitIndices builds the tree from the rows of data listed in indices.
// Indices may repeat, which is how bootstrap samples are expressed.
// data is only read, so several trees may fit on the same Dataset concurrently.
func (dt *DecisionTreeRegressor) FitIndices(data *Dataset, indices []int) error {
	if err := dt.validateParams(); err != nil {
		return err
	}
	if len(indices) == 0 {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "empty data", errors.ErrEmptyData)
	}

	b := &builder{
		dt:   dt,
		data: data,
		rng:  rand.New(rand.NewPCG(dt.RandomState, 0x9e3779b97f4a7c15)),
		nOut: data.NOutputs(),
	}
	b.importances = make([]float64, data.NFeatures())
	b.featureOrder = make([]int, data.NFeatures())
	for i := range b.featureOrder {
		b.featureOrder[i] = i
	}

	dt.Nodes = dt.Nodes[:0]
	dt.NFeatures = data.NFeatures()
	dt.NOut = data.NOutputs()
	b.build(slices.Clone(indices), 0)

	if total := floats.Sum(b.importances); total > 0 {
		floats.Scale(1/total, b.importances)
	}
	dt.Importances = b.importances
	dt.SetFitted()
	return nil
}

// builder holds the scratch state of one Fit call.
type builder struct {
	dt           *DecisionTreeRegressor
	data         *Dataset
	rng          *rand.Rand
	nOut         int
	featureOrder []int
	importances  []float64
}

type split struct {
	feature   int
	threshold float64
	pos       int // samples[:pos] go left after sorting by feature
	proxy     float64
}

// build appends the subtree for samples and returns its node index.
func (b *builder) build(samples []int, depth int) int {
	n := len(samples)
	sum := make([]float64, b.nOut)
	sumSq := 0.0
	for _, s := range samples {
		row := b.data.targets[s]
		floats.Add(sum, row)
		sumSq += floats.Dot(row, row)
	}
	value := make([]float64, b.nOut)
	floats.ScaleTo(value, 1/float64(n), sum)
	impurity := (sumSq/float64(n) - floats.Dot(value, value)) / float64(b.nOut)
	if impurity < 0 {
		impurity = 0
	}

	idx := len(b.dt.Nodes)
	b.dt.Nodes = append(b.dt.Nodes, Node{
		Feature:  leaf,
		Left:     leaf,
		Right:    leaf,
		Value:    value,
		NSamples: n,
		Impurity: impurity,
	})

	dt := b.dt
	if (dt.MaxDepth > 0 && depth >= dt.MaxDepth) ||
		n < dt.MinSamplesSplit ||
		n < 2*dt.MinSamplesLeaf ||
		impurity <= minImpurityDecrease {
		return idx
	}

	best, ok := b.bestSplit(samples, sum)
	if !ok {
		return idx
	}

	// reorder samples so that the left partition comes first
	f := b.data.features[best.feature]
	slices.SortStableFunc(samples, func(a, c int) int {
		return cmpFloat(f[a], f[c])
	})
	left := samples[:best.pos]
	right := samples[best.pos:]

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)

	node := &b.dt.Nodes[idx]
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = l
	node.Right = r

	nodeL, nodeR := b.dt.Nodes[l], b.dt.Nodes[r]
	b.importances[best.feature] += float64(n)*impurity -
		float64(nodeL.NSamples)*nodeL.Impurity -
		float64(nodeR.NSamples)*nodeR.Impurity
	return idx
}

// bestSplit scans the candidate features and returns the split maximising
// sum_k(sumL_k²/nL + sumR_k²/nR), which is equivalent to minimising the
// summed squared error of the children.
func (b *builder) bestSplit(samples []int, total []float64) (split, bool) {
	n := len(samples)
	minLeaf := b.dt.MinSamplesLeaf
	parentProxy := floats.Dot(total, total) / float64(n)

	maxFeatures := b.dt.MaxFeatures
	if maxFeatures <= 0 || maxFeatures > len(b.featureOrder) {
		maxFeatures = len(b.featureOrder)
	}
	b.rng.Shuffle(len(b.featureOrder), func(i, j int) {
		b.featureOrder[i], b.featureOrder[j] = b.featureOrder[j], b.featureOrder[i]
	})

	best := split{proxy: parentProxy + minImpurityDecrease}
	found := false
	sorted := make([]int, n)
	leftSum := make([]float64, b.nOut)
	rightSum := make([]float64, b.nOut)

	for _, f := range b.featureOrder[:maxFeatures] {
		x := b.data.features[f]
		copy(sorted, samples)
		slices.SortStableFunc(sorted, func(a, c int) int {
			return cmpFloat(x[a], x[c])
		})
		if x[sorted[0]] == x[sorted[n-1]] {
			continue // constant feature
		}

		clear(leftSum)
		for i := 0; i < n-1; i++ {
			floats.Add(leftSum, b.data.targets[sorted[i]])
			nL := i + 1
			nR := n - nL
			if nL < minLeaf {
				continue
			}
			if nR < minLeaf {
				break
			}
			lo, hi := x[sorted[i]], x[sorted[i+1]]
			if lo == hi {
				continue
			}

			floats.SubTo(rightSum, total, leftSum)
			proxy := floats.Dot(leftSum, leftSum)/float64(nL) + floats.Dot(rightSum, rightSum)/float64(nR)
			if proxy > best.proxy {
				threshold := lo/2 + hi/2
				if threshold == hi || math.IsInf(threshold, 0) {
					threshold = lo
				}
				best = split{feature: f, threshold: threshold, pos: nL, proxy: proxy}
				found = true
			}
		}
	}
	return best, found
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Predict returns a (samples × outputs) matrix of leaf means.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	out, err := dt.PredictDense(X)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PredictDense is Predict with a concrete result type.
func (dt *DecisionTreeRegressor) PredictDense(X mat.Matrix) (*mat.Dense, error) {
	if !dt.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeRegressor", "Predict")
	}
	r, c := X.Dims()
	if c != dt.NFeatures {
		return nil, errors.NewDimensionError("DecisionTreeRegressor.Predict", dt.NFeatures, c, 1)
	}

	out := mat.NewDense(r, dt.NOut, nil)
	parallel.ParallelizeWithThreshold(r, 256, func(start, end int) {
		row := make([]float64, c)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			out.SetRow(i, dt.Apply(row).Value)
		}
	})
	return out, nil
}

// Apply returns the leaf reached by one sample. x must have NFeatures values.
func (dt *DecisionTreeRegressor) Apply(x []float64) *Node {
	node := &dt.Nodes[0]
	for !node.IsLeaf() {
		if x[node.Feature] <= node.Threshold {
			node = &dt.Nodes[node.Left]
		} else {
			node = &dt.Nodes[node.Right]
		}
	}
	return node
}

// NOutputs returns the number of outputs seen during Fit.
func (dt *DecisionTreeRegressor) NOutputs() int {
	return dt.NOut
}

// FeatureImportances returns the normalised total impurity decrease per feature.
func (dt *DecisionTreeRegressor) FeatureImportances() ([]float64, error) {
	if !dt.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeRegressor", "FeatureImportances")
	}
	return slices.Clone(dt.Importances), nil
}

// GetDepth returns the depth of the fitted tree (a lone root has depth 0).
func (dt *DecisionTreeRegressor) GetDepth() int {
	if len(dt.Nodes) == 0 {
		return 0
	}
	var depth func(i int) int
	depth = func(i int) int {
		n := dt.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(depth(n.Left), depth(n.Right))
	}
	return depth(0)
}

// GetNLeaves returns the number of leaves.
func (dt *DecisionTreeRegressor) GetNLeaves() int {
	count := 0
	for i := range dt.Nodes {
		if dt.Nodes[i].IsLeaf() {
			count++
		}
	}
	return count
}

// GetParams returns the hyperparameters.
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         "squared_error",
		"max_depth":         dt.MaxDepth,
		"min_samples_split": dt.MinSamplesSplit,
		"min_samples_leaf":  dt.MinSamplesLeaf,
		"max_features":      dt.MaxFeatures,
		"random_state":      dt.RandomState,
	}
}

// SetParams updates hyperparameters by name.
func (dt *DecisionTreeRegressor) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "max_depth", "min_samples_split", "min_samples_leaf", "max_features":
			v, ok := value.(int)
			if !ok {
				return errors.NewValidationError(key, "must be an int", value)
			}
			switch key {
			case "max_depth":
				dt.MaxDepth = v
			case "min_samples_split":
				dt.MinSamplesSplit = v
			case "min_samples_leaf":
				dt.MinSamplesLeaf = v
			default:
				dt.MaxFeatures = v
			}
		case "random_state":
			v, ok := value.(uint64)
			if !ok {
				return errors.NewValidationError(key, "must be a uint64", value)
			}
			dt.RandomState = v
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return dt.validateParams()
}

func (dt *DecisionTreeRegressor) String() string {
	if !dt.IsFitted() {
		return fmt.Sprintf("DecisionTreeRegressor(max_depth=%d, min_samples_leaf=%d)", dt.MaxDepth, dt.MinSamplesLeaf)
	}
	return fmt.Sprintf("DecisionTreeRegressor(max_depth=%d, min_samples_leaf=%d, n_nodes=%d, n_outputs=%d)",
		dt.MaxDepth, dt.MinSamplesLeaf, len(dt.Nodes), dt.NOut)
}
