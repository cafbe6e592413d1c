package tree

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bacpanel/pkg/errors"
)

// Dataset is the training data laid out for split search: features are
// stored column-major so one feature can be sorted without touching the
// others, targets row-major so one sample's outputs are contiguous.
// A Dataset is read-only after construction and may be shared by trees
// fitted concurrently.
type Dataset struct {
	features [][]float64 // [feature][sample]
	targets  [][]float64 // [sample][output]
}

// NewDataset copies X (samples × features) and Y (samples × outputs).
// Every value must be finite.
func NewDataset(X, Y mat.Matrix) (*Dataset, error) {
	n, p := X.Dims()
	ny, k := Y.Dims()
	if n == 0 || p == 0 || k == 0 {
		return nil, errors.NewModelError("tree.NewDataset", "empty data", errors.ErrEmptyData)
	}
	if ny != n {
		return nil, errors.NewDimensionError("tree.NewDataset", n, ny, 0)
	}
	if err := errors.CheckMatrix("tree.NewDataset(X)", X, n, p); err != nil {
		return nil, err
	}
	if err := errors.CheckMatrix("tree.NewDataset(Y)", Y, n, k); err != nil {
		return nil, err
	}

	d := &Dataset{
		features: make([][]float64, p),
		targets:  make([][]float64, n),
	}
	for j := 0; j < p; j++ {
		d.features[j] = mat.Col(nil, j, X)
	}
	for i := 0; i < n; i++ {
		d.targets[i] = mat.Row(nil, i, Y)
	}
	return d, nil
}

// NSamples returns the number of rows.
func (d *Dataset) NSamples() int { return len(d.targets) }

// NFeatures returns the number of feature columns.
func (d *Dataset) NFeatures() int { return len(d.features) }

// NOutputs returns the number of target columns.
func (d *Dataset) NOutputs() int { return len(d.targets[0]) }
