package tree

import (
	"bytes"
	"encoding/gob"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bacpanel/pkg/errors"
)

// TestDecisionTreeRegressor_FitPredict_Step tests a step function that one split separates
func TestDecisionTreeRegressor_FitPredict_Step(t *testing.T) {
	X := mat.NewDense(8, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
		3, 3,
		3, 4,
		4, 3,
		4, 4,
	})
	Y := mat.NewDense(8, 2, []float64{
		10, -1,
		10, -1,
		10, -1,
		10, -1,
		50, 7,
		50, 7,
		50, 7,
		50, 7,
	})

	dt := NewDecisionTreeRegressor(WithMaxDepth(5))
	if err := dt.Fit(X, Y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	preds, err := dt.Predict(X)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	if !mat.Equal(preds, Y) {
		t.Errorf("training targets should be reproduced exactly:\n%v", mat.Formatted(preds))
	}

	XTest := mat.NewDense(2, 2, []float64{
		0.5, 0.5,
		3.5, 3.5,
	})
	testPreds, err := dt.Predict(XTest)
	if err != nil {
		t.Fatalf("Failed to predict on test data: %v", err)
	}
	if testPreds.At(0, 0) != 10 || testPreds.At(0, 1) != -1 {
		t.Errorf("(0.5,0.5) should land in the low leaf, got %v", mat.Row(nil, 0, testPreds))
	}
	if testPreds.At(1, 0) != 50 || testPreds.At(1, 1) != 7 {
		t.Errorf("(3.5,3.5) should land in the high leaf, got %v", mat.Row(nil, 1, testPreds))
	}

	if dt.GetDepth() != 1 {
		t.Errorf("one split suffices, got depth %d", dt.GetDepth())
	}
	if dt.Nodes[0].Threshold != 2 {
		t.Errorf("threshold should be the midpoint 2, got %v", dt.Nodes[0].Threshold)
	}
}

// TestDecisionTreeRegressor_MultiOutputSharedSplit checks that splits consider all outputs together
func TestDecisionTreeRegressor_MultiOutputSharedSplit(t *testing.T) {
	// output 0 depends on feature 0, output 1 on feature 1
	X := mat.NewDense(4, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
	})
	Y := mat.NewDense(4, 2, []float64{
		0, 0,
		0, 100,
		100, 0,
		100, 100,
	})

	dt := NewDecisionTreeRegressor()
	if err := dt.Fit(X, Y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	preds, _ := dt.Predict(X)
	if !mat.Equal(preds, Y) {
		t.Errorf("unrestricted tree should fit both outputs:\n%v", mat.Formatted(preds))
	}
	if dt.NOutputs() != 2 {
		t.Errorf("NOutputs = %d", dt.NOutputs())
	}
	if dt.GetNLeaves() != 4 {
		t.Errorf("expected 4 leaves, got %d", dt.GetNLeaves())
	}
}

// TestDecisionTreeRegressor_FeatureImportance tests that the informative feature dominates
func TestDecisionTreeRegressor_FeatureImportance(t *testing.T) {
	X := mat.NewDense(8, 3, []float64{
		0, 0, 0,
		0, 1, 1,
		0, 0, 1,
		0, 1, 0,
		1, 0, 0,
		1, 1, 1,
		1, 0, 1,
		1, 1, 0,
	})
	Y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 5, 5, 5, 5})

	dt := NewDecisionTreeRegressor()
	if err := dt.Fit(X, Y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	importances, err := dt.FeatureImportances()
	if err != nil {
		t.Fatal(err)
	}
	if len(importances) != 3 {
		t.Fatalf("Expected 3 feature importances, got %d", len(importances))
	}
	if math.Abs(importances[0]-1) > 1e-12 {
		t.Errorf("Feature 0 should carry all importance: %v", importances)
	}

	sum := 0.0
	for _, imp := range importances {
		sum += imp
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("Feature importances should sum to 1, got %v", sum)
	}
}

// TestDecisionTreeRegressor_MaxDepth tests max depth constraint
func TestDecisionTreeRegressor_MaxDepth(t *testing.T) {
	X := mat.NewDense(16, 2, nil)
	Y := mat.NewDense(16, 1, nil)
	for i := 0; i < 16; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%4))
		Y.Set(i, 0, float64(i*i))
	}

	dt := NewDecisionTreeRegressor(WithMaxDepth(2))
	if err := dt.Fit(X, Y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	if depth := dt.GetDepth(); depth > 2 {
		t.Errorf("Tree depth %d exceeds max_depth=2", depth)
	}
	if dt.GetNLeaves() > 4 {
		t.Errorf("depth 2 allows at most 4 leaves, got %d", dt.GetNLeaves())
	}
}

// TestDecisionTreeRegressor_MinSamples tests minimum samples constraints
func TestDecisionTreeRegressor_MinSamples(t *testing.T) {
	X := mat.NewDense(10, 1, nil)
	Y := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i))
		Y.Set(i, 0, float64(i))
	}

	dt := NewDecisionTreeRegressor(
		WithMinSamplesSplit(5),
		WithMinSamplesLeaf(2),
	)
	if err := dt.Fit(X, Y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	for i, n := range dt.Nodes {
		if n.IsLeaf() && n.NSamples < 2 {
			t.Errorf("leaf %d has %d samples, min_samples_leaf=2", i, n.NSamples)
		}
		if !n.IsLeaf() && n.NSamples < 5 {
			t.Errorf("node %d split with %d samples, min_samples_split=5", i, n.NSamples)
		}
	}
	if nLeaves := dt.GetNLeaves(); nLeaves > 5 {
		t.Errorf("Too many leaves %d for min_samples constraints", nLeaves)
	}
}

// TestDecisionTreeRegressor_FitIndicesBootstrap tests fitting on repeated indices
func TestDecisionTreeRegressor_FitIndicesBootstrap(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	Y := mat.NewDense(4, 1, []float64{10, 20, 30, 40})
	data, err := NewDataset(X, Y)
	if err != nil {
		t.Fatal(err)
	}

	dt := NewDecisionTreeRegressor(WithMaxDepth(0))
	if err := dt.FitIndices(data, []int{0, 0, 0, 3}); err != nil {
		t.Fatal(err)
	}
	root := dt.Nodes[0]
	if root.NSamples != 4 {
		t.Errorf("duplicates count as samples, got %d", root.NSamples)
	}
	if math.Abs(root.Value[0]-17.5) > 1e-12 {
		t.Errorf("root mean should weight duplicates, got %v", root.Value[0])
	}

	// rows 1 and 2 were never seen; they fall on either side of the 2.5 threshold
	preds, _ := dt.Predict(mat.NewDense(2, 1, []float64{2, 3.9}))
	if preds.At(0, 0) != 10 || preds.At(1, 0) != 40 {
		t.Errorf("unexpected predictions %v", mat.Col(nil, 0, preds))
	}
}

// TestDecisionTreeRegressor_Deterministic tests that the same seed gives the same tree
func TestDecisionTreeRegressor_Deterministic(t *testing.T) {
	X := mat.NewDense(30, 3, nil)
	Y := mat.NewDense(30, 2, nil)
	for i := 0; i < 30; i++ {
		X.Set(i, 0, float64(i%5))
		X.Set(i, 1, float64(i%7))
		X.Set(i, 2, float64(i%3))
		Y.Set(i, 0, float64(i%5+i%7))
		Y.Set(i, 1, float64(i%3))
	}

	a := NewDecisionTreeRegressor(WithMaxFeatures(1), WithRandomState(7))
	b := NewDecisionTreeRegressor(WithMaxFeatures(1), WithRandomState(7))
	if err := a.Fit(X, Y); err != nil {
		t.Fatal(err)
	}
	if err := b.Fit(X, Y); err != nil {
		t.Fatal(err)
	}
	pa, _ := a.Predict(X)
	pb, _ := b.Predict(X)
	if !mat.Equal(pa, pb) {
		t.Error("identical seeds must give identical trees")
	}
}

// TestDecisionTreeRegressor_GetSetParams tests parameter management
func TestDecisionTreeRegressor_GetSetParams(t *testing.T) {
	dt := NewDecisionTreeRegressor()

	params := dt.GetParams()
	if params["criterion"].(string) != "squared_error" {
		t.Errorf("criterion should be 'squared_error', got %v", params["criterion"])
	}
	if params["min_samples_split"].(int) != 2 {
		t.Errorf("Default min_samples_split should be 2, got %v", params["min_samples_split"])
	}

	err := dt.SetParams(map[string]interface{}{
		"max_depth":         5,
		"min_samples_split": 4,
		"min_samples_leaf":  2,
	})
	if err != nil {
		t.Fatalf("Failed to set params: %v", err)
	}
	if dt.MaxDepth != 5 || dt.MinSamplesSplit != 4 || dt.MinSamplesLeaf != 2 {
		t.Errorf("params not updated: %+v", dt.GetParams())
	}

	if err := dt.SetParams(map[string]interface{}{"criterion": "gini"}); err == nil {
		t.Error("unknown parameter should be rejected")
	}
	if err := dt.SetParams(map[string]interface{}{"min_samples_leaf": 0}); err == nil {
		t.Error("min_samples_leaf=0 should be rejected")
	}
}

// TestDecisionTreeRegressor_Errors tests error paths
func TestDecisionTreeRegressor_Errors(t *testing.T) {
	dt := NewDecisionTreeRegressor()
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	_, err := dt.Predict(X)
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("Expected NotFittedError, got %v", err)
	}

	err = dt.Fit(X, mat.NewDense(3, 1, nil))
	var dim *errors.DimensionError
	if !errors.As(err, &dim) {
		t.Errorf("Expected DimensionError for row mismatch, got %v", err)
	}

	err = dt.Fit(X, mat.NewDense(2, 1, []float64{1, math.NaN()}))
	var ni *errors.NumericalInstabilityError
	if !errors.As(err, &ni) {
		t.Errorf("Expected NumericalInstabilityError for NaN target, got %v", err)
	}

	if err := dt.Fit(X, mat.NewDense(2, 1, []float64{1, 2})); err != nil {
		t.Fatal(err)
	}
	_, err = dt.Predict(mat.NewDense(1, 3, nil))
	if !errors.As(err, &dim) {
		t.Errorf("Expected DimensionError for feature mismatch, got %v", err)
	}
}

// TestDecisionTreeRegressor_Gob tests persistence of a fitted tree
func TestDecisionTreeRegressor_Gob(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})
	Y := mat.NewDense(6, 1, []float64{1, 1, 2, 2, 3, 3})
	dt := NewDecisionTreeRegressor()
	if err := dt.Fit(X, Y); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(dt); err != nil {
		t.Fatal(err)
	}
	var loaded DecisionTreeRegressor
	if err := gob.NewDecoder(&buf).Decode(&loaded); err != nil {
		t.Fatal(err)
	}
	if !loaded.IsFitted() {
		t.Fatal("fitted state lost")
	}
	want, _ := dt.Predict(X)
	got, err := loaded.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(want, got) {
		t.Error("predictions differ after gob round trip")
	}
}
