// Package schema defines the input descriptor, the target panel and the
// column names shared by training, persistence and inference.
//
// The order of BacteriaNames is the contract between model output and
// presentation: index i of every InhibitionVector belongs to
// BacteriaNames[i]. Changing anything in this package requires retraining.
package schema

import (
	"fmt"
	"slices"

	"github.com/YuminosukeSato/bacpanel/pkg/errors"
)

// PanelSize is the number of bacterial strains in the panel.
const PanelSize = 40

// TargetPrefix is prepended to a strain name to form its dataset column.
const TargetPrefix = "inh_"

// Feature column names as they appear in the training data.
const (
	ColACAClass       = "ACA_class"
	ColComplexity     = "complexity"
	ColMolWeight      = "mol_weight"
	ColTPSA           = "TPSA"
	ColVolume         = "volume"
	ColHydrophobicity = "hydrophobicity"
)

var (
	// CategoricalFeatures are encoded by the categorical branch.
	CategoricalFeatures = []string{ColACAClass}

	// NumericFeatures are imputed and scaled by the numeric branch.
	NumericFeatures = []string{ColComplexity, ColMolWeight, ColTPSA, ColVolume, ColHydrophobicity}

	// ACAClasses is the closed set of known classes.
	ACAClasses = []string{"Type-I", "Type-II", "Type-III"}

	// BacteriaNames is the ordered panel, Bac1..Bac40.
	BacteriaNames = func() []string {
		names := make([]string, PanelSize)
		for i := range names {
			names[i] = fmt.Sprintf("Bac%d", i+1)
		}
		return names
	}()
)

// FeatureColumns returns categorical then numeric feature names.
func FeatureColumns() []string {
	return append(slices.Clone(CategoricalFeatures), NumericFeatures...)
}

// TargetColumns returns the dataset column names of the panel, inh_Bac1..inh_Bac40.
func TargetColumns() []string {
	cols := make([]string, PanelSize)
	for i, name := range BacteriaNames {
		cols[i] = TargetPrefix + name
	}
	return cols
}

// DrugDescriptor describes one compound. It is passed by value and never
// modified after creation. Missing values are "" for ACAClass and NaN for
// the numeric fields; they are legal in training data only.
type DrugDescriptor struct {
	ACAClass       string  `json:"ACA_class"`
	Complexity     float64 `json:"complexity" validate:"finite"`
	MolWeight      float64 `json:"mol_weight" validate:"finite"`
	TPSA           float64 `json:"TPSA" validate:"finite"`
	Volume         float64 `json:"volume" validate:"finite"`
	Hydrophobicity float64 `json:"hydrophobicity" validate:"finite"`
}

// Categorical returns the categorical values in CategoricalFeatures order.
func (d DrugDescriptor) Categorical() []string {
	return []string{d.ACAClass}
}

// Numeric returns the numeric values in NumericFeatures order.
func (d DrugDescriptor) Numeric() []float64 {
	return []float64{d.Complexity, d.MolWeight, d.TPSA, d.Volume, d.Hydrophobicity}
}

// TrainingRecord is a descriptor with its observed inhibition values.
// Targets has PanelSize entries; missing observations are NaN.
type TrainingRecord struct {
	Descriptor DrugDescriptor
	Targets    []float64
}

// InhibitionVector holds one predicted value per strain, aligned to BacteriaNames.
type InhibitionVector []float64

// CheckLength returns a SchemaError unless v has exactly PanelSize entries.
func (v InhibitionVector) CheckLength(op string) error {
	if len(v) != PanelSize {
		return errors.NewSchemaError(op,
			fmt.Sprintf("inhibition vector has %d values, panel has %d", len(v), PanelSize), nil, nil)
	}
	return nil
}

// ValidateFeatureNames checks an artifact's feature names against this schema.
func ValidateFeatureNames(categorical, numeric []string) error {
	if !slices.Equal(categorical, CategoricalFeatures) {
		return errors.NewSchemaError("ValidateFeatureNames", "categorical features differ", CategoricalFeatures, categorical)
	}
	if !slices.Equal(numeric, NumericFeatures) {
		return errors.NewSchemaError("ValidateFeatureNames", "numeric features differ", NumericFeatures, numeric)
	}
	return nil
}

// ValidateTargetNames checks an artifact's target names against TargetColumns.
func ValidateTargetNames(targets []string) error {
	want := TargetColumns()
	if !slices.Equal(targets, want) {
		return errors.NewSchemaError("ValidateTargetNames", "target columns differ", want, targets)
	}
	return nil
}
