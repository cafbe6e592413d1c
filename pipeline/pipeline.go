// Package pipeline chains the column preprocessor and a multi-output
// regressor into the single unit that is trained, persisted and served.
package pipeline

import (
	"encoding/gob"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bacpanel/core/model"
	"github.com/YuminosukeSato/bacpanel/pkg/errors"
	"github.com/YuminosukeSato/bacpanel/pkg/log"
	"github.com/YuminosukeSato/bacpanel/preprocessing"
	"github.com/YuminosukeSato/bacpanel/schema"
	"github.com/YuminosukeSato/bacpanel/sklearn/ensemble"
	"github.com/YuminosukeSato/bacpanel/sklearn/tree"
)

// Regressor field is an interface, so concrete types must be known to gob.
func init() {
	gob.Register(&ensemble.RandomForestRegressor{})
	gob.Register(&tree.DecisionTreeRegressor{})
}

// RegressorFactory creates an unfitted regressor. CrossValidate calls it
// once per fold.
type RegressorFactory func() model.MultiOutputRegressor

// DefaultRegressor returns the 400-tree random forest with seed 42.
func DefaultRegressor() model.MultiOutputRegressor {
	return ensemble.NewRandomForestRegressor()
}

// Pipeline bundles the ColumnTransformer and a multi-output regressor into
// one artifact. It is not mutated after Fit, so Predict may be called
// concurrently.
type Pipeline struct {
	State        *model.StateManager
	Preprocessor *preprocessing.ColumnTransformer
	Regressor    model.MultiOutputRegressor

	CategoricalFeatures []string
	NumericFeatures     []string
	TargetNames         []string

	factory RegressorFactory
	logger  log.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger log.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithTargets overrides the target column names (schema.TargetColumns by default).
func WithTargets(targets []string) Option {
	return func(p *Pipeline) {
		p.TargetNames = slices.Clone(targets)
	}
}

// New creates an unfitted pipeline over the schema's feature columns.
// A nil factory selects DefaultRegressor.
func New(factory RegressorFactory, opts ...Option) *Pipeline {
	if factory == nil {
		factory = DefaultRegressor
	}
	p := &Pipeline{
		State:               model.NewStateManager(),
		CategoricalFeatures: slices.Clone(schema.CategoricalFeatures),
		NumericFeatures:     slices.Clone(schema.NumericFeatures),
		TargetNames:         schema.TargetColumns(),
		factory:             factory,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.Preprocessor = preprocessing.NewColumnTransformer(p.CategoricalFeatures, p.NumericFeatures)
	return p
}

func (p *Pipeline) getLogger() log.Logger {
	if p.logger == nil {
		p.logger = log.GetLoggerWithName("Pipeline")
	}
	return p.logger
}

// IsFitted reports whether Fit completed or a fitted artifact was loaded.
func (p *Pipeline) IsFitted() bool {
	return p.State != nil && p.State.IsFitted()
}

// NOutputs returns the number of predicted targets.
func (p *Pipeline) NOutputs() int {
	return len(p.TargetNames)
}

// Fit learns the preprocessing statistics and the regressor from records.
// Every record must carry one finite value per target; rows with missing
// targets are the caller's responsibility to exclude. A pipeline is fitted
// at most once.
func (p *Pipeline) Fit(records []schema.TrainingRecord) error {
	if p.IsFitted() {
		return errors.NewModelError("Pipeline.Fit", "refit", errors.ErrAlreadyFitted)
	}
	if len(records) == 0 {
		return errors.NewModelError("Pipeline.Fit", "empty data", errors.ErrEmptyData)
	}

	Y := mat.NewDense(len(records), len(p.TargetNames), nil)
	descriptors := make([]schema.DrugDescriptor, len(records))
	for i, rec := range records {
		if len(rec.Targets) != len(p.TargetNames) {
			return errors.NewSchemaError("Pipeline.Fit",
				fmt.Sprintf("record %d has %d targets, expected %d", i, len(rec.Targets), len(p.TargetNames)),
				nil, nil)
		}
		for j, v := range rec.Targets {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.NewValueError("Pipeline.Fit",
					fmt.Sprintf("record %d: target %s is missing or not finite", i, p.TargetNames[j]))
			}
		}
		Y.SetRow(i, rec.Targets)
		descriptors[i] = rec.Descriptor
	}

	logger := p.getLogger()
	logger.Debug("Fitting preprocessor",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhasePreprocessing,
		log.SamplesKey, len(records),
	)
	Xt, err := p.Preprocessor.FitTransform(toFrame(descriptors))
	if err != nil {
		return errors.Wrap(err, "preprocessing")
	}

	reg := p.factory()
	if err := reg.Fit(Xt, Y); err != nil {
		return errors.Wrap(err, "regressor")
	}
	p.Regressor = reg

	_, nFeatures := Xt.Dims()
	p.State.SetDimensions(nFeatures, len(records))
	p.State.SetFitted()

	logger.Info("Pipeline fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, len(records),
		log.FeaturesKey, nFeatures,
		log.TargetsKey, len(p.TargetNames),
	)
	return nil
}

// Predict returns a (len(descriptors) × NOutputs) matrix of predictions.
// Values are not clipped.
func (p *Pipeline) Predict(descriptors []schema.DrugDescriptor) (*mat.Dense, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "Predict")
	}
	if len(descriptors) == 0 {
		return nil, errors.NewModelError("Pipeline.Predict", "empty data", errors.ErrEmptyData)
	}

	Xt, err := p.Preprocessor.Transform(toFrame(descriptors))
	if err != nil {
		return nil, err
	}
	raw, err := p.Regressor.Predict(Xt)
	if err != nil {
		return nil, err
	}

	r, c := raw.Dims()
	if c != len(p.TargetNames) {
		return nil, errors.NewSchemaError("Pipeline.Predict",
			fmt.Sprintf("regressor produced %d outputs for %d targets", c, len(p.TargetNames)), nil, nil)
	}
	if err := errors.CheckMatrix("Pipeline.Predict", raw, r, c); err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(raw), nil
}

// PredictOne predicts the inhibition vector of a single compound.
func (p *Pipeline) PredictOne(d schema.DrugDescriptor) (schema.InhibitionVector, error) {
	pred, err := p.Predict([]schema.DrugDescriptor{d})
	if err != nil {
		return nil, err
	}
	v := schema.InhibitionVector(mat.Row(nil, 0, pred))
	if err := v.CheckLength("Pipeline.PredictOne"); err != nil {
		return nil, err
	}
	return v, nil
}

// Profile maps each target name to its predicted value for d.
func (p *Pipeline) Profile(d schema.DrugDescriptor) (map[string]float64, error) {
	pred, err := p.Predict([]schema.DrugDescriptor{d})
	if err != nil {
		return nil, err
	}
	profile := make(map[string]float64, len(p.TargetNames))
	for j, name := range p.TargetNames {
		profile[name] = pred.At(0, j)
	}
	return profile, nil
}

// Validate checks a fitted (typically freshly loaded) pipeline against the
// current schema so that predictions are never made on misaligned columns.
func (p *Pipeline) Validate() error {
	if !p.IsFitted() || p.Preprocessor == nil || p.Regressor == nil {
		return errors.NewNotFittedError("Pipeline", "Validate")
	}
	if err := schema.ValidateFeatureNames(p.CategoricalFeatures, p.NumericFeatures); err != nil {
		return err
	}
	if err := schema.ValidateTargetNames(p.TargetNames); err != nil {
		return err
	}
	if !slices.Equal(p.Preprocessor.CategoricalFeatures, p.CategoricalFeatures) ||
		!slices.Equal(p.Preprocessor.NumericFeatures, p.NumericFeatures) {
		return errors.NewSchemaError("Pipeline.Validate", "preprocessor columns differ from pipeline columns",
			append(slices.Clone(p.CategoricalFeatures), p.NumericFeatures...),
			append(slices.Clone(p.Preprocessor.CategoricalFeatures), p.Preprocessor.NumericFeatures...))
	}
	if n := p.Regressor.NOutputs(); n != len(p.TargetNames) {
		return errors.NewSchemaError("Pipeline.Validate",
			fmt.Sprintf("regressor has %d outputs for %d targets", n, len(p.TargetNames)), nil, nil)
	}
	return nil
}

// FeatureImportances maps transformed feature names to the regressor's
// importances. It returns nil when the regressor does not expose them.
func (p *Pipeline) FeatureImportances() (map[string]float64, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "FeatureImportances")
	}
	fi, ok := p.Regressor.(model.FeatureImportancer)
	if !ok {
		return nil, nil
	}
	imp, err := fi.FeatureImportances()
	if err != nil {
		return nil, err
	}
	names := p.Preprocessor.FeatureNamesOut()
	out := make(map[string]float64, len(imp))
	for i, v := range imp {
		if i < len(names) {
			out[names[i]] = v
		}
	}
	return out, nil
}

// toFrame splits descriptors into the categorical and numeric blocks.
func toFrame(descriptors []schema.DrugDescriptor) preprocessing.Frame {
	nNum := len(schema.NumericFeatures)
	cat := make([][]string, len(descriptors))
	num := mat.NewDense(len(descriptors), nNum, nil)
	for i, d := range descriptors {
		cat[i] = d.Categorical()
		num.SetRow(i, d.Numeric())
	}
	return preprocessing.Frame{Categorical: cat, Numeric: num}
}
