package pipeline

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/bacpanel/core/model"
	"github.com/YuminosukeSato/bacpanel/internal/synth"
	"github.com/YuminosukeSato/bacpanel/pkg/errors"
	"github.com/YuminosukeSato/bacpanel/pkg/log"
	"github.com/YuminosukeSato/bacpanel/schema"
	"github.com/YuminosukeSato/bacpanel/sklearn/ensemble"
)

func smallForest() model.MultiOutputRegressor {
	logger, _ := log.NewTestLogger(log.LevelError)
	return ensemble.NewRandomForestRegressor(
		ensemble.WithNEstimators(25),
		ensemble.WithLogger(logger),
	)
}

func newTestPipeline(t *testing.T) (*Pipeline, *log.TestLogger) {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	return New(smallForest, WithLogger(logger)), logger
}

func fittedPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, _ := newTestPipeline(t)
	require.NoError(t, p.Fit(synth.Records(120, 7, synth.Options{})))
	return p
}

func descriptorAt(mw float64) schema.DrugDescriptor {
	return schema.DrugDescriptor{
		ACAClass:       "Type-II",
		Complexity:     500,
		MolWeight:      mw,
		TPSA:           75,
		Volume:         350,
		Hydrophobicity: 0,
	}
}

func TestNewDefaults(t *testing.T) {
	p := New(nil)
	assert.False(t, p.IsFitted())
	assert.Equal(t, schema.PanelSize, p.NOutputs())
	assert.Equal(t, schema.CategoricalFeatures, p.CategoricalFeatures)
	assert.Equal(t, schema.NumericFeatures, p.NumericFeatures)

	reg := p.factory()
	rf, ok := reg.(*ensemble.RandomForestRegressor)
	require.True(t, ok)
	assert.Equal(t, 400, rf.NEstimators)
	assert.Equal(t, uint64(42), rf.RandomState)
}

func TestPipelineFitPredict(t *testing.T) {
	p, logger := newTestPipeline(t)
	require.NoError(t, p.Fit(synth.Records(120, 7, synth.Options{MissingFeatureRate: 0.1})))
	assert.True(t, p.IsFitted())
	assert.True(t, logger.ContainsMessage("Pipeline fitted"))
	assert.True(t, logger.ContainsField(log.TargetsKey, float64(schema.PanelSize)))

	v, err := p.PredictOne(descriptorAt(300))
	require.NoError(t, err)
	require.Len(t, v, schema.PanelSize)
	for k, got := range v {
		assert.InDelta(t, synth.Target(k, 300), got, 5, "target %d", k)
	}

	pred, err := p.Predict([]schema.DrugDescriptor{descriptorAt(150), descriptorAt(450)})
	require.NoError(t, err)
	r, c := pred.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, schema.PanelSize, c)
	assert.Less(t, pred.At(0, 0), pred.At(1, 0), "inhibition grows with mol_weight")
}

func TestPipelineUnknownCategoryIgnored(t *testing.T) {
	p := fittedPipeline(t)

	known, err := p.PredictOne(descriptorAt(300))
	require.NoError(t, err)

	d := descriptorAt(300)
	d.ACAClass = "Type-IX"
	v, err := p.PredictOne(d)
	require.NoError(t, err)
	assert.Len(t, v, schema.PanelSize)
	for _, x := range v {
		assert.False(t, math.IsNaN(x))
	}
	assert.InDelta(t, known[0], v[0], 10)
}

func TestPipelineProfile(t *testing.T) {
	p := fittedPipeline(t)
	profile, err := p.Profile(descriptorAt(250))
	require.NoError(t, err)
	assert.Len(t, profile, schema.PanelSize)

	v, err := p.PredictOne(descriptorAt(250))
	require.NoError(t, err)
	assert.Equal(t, v[0], profile["inh_Bac1"])
	assert.Equal(t, v[39], profile["inh_Bac40"])
}

func TestPipelineFitErrors(t *testing.T) {
	tests := []struct {
		name    string
		records func() []schema.TrainingRecord
		check   func(t *testing.T, err error)
	}{
		{
			name:    "empty",
			records: func() []schema.TrainingRecord { return nil },
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, errors.ErrEmptyData))
			},
		},
		{
			name: "missing target",
			records: func() []schema.TrainingRecord {
				recs := synth.Records(10, 1, synth.Options{})
				recs[3].Targets[5] = math.NaN()
				return recs
			},
			check: func(t *testing.T, err error) {
				var ve *errors.ValueError
				assert.True(t, errors.As(err, &ve))
			},
		},
		{
			name: "short target vector",
			records: func() []schema.TrainingRecord {
				recs := synth.Records(10, 1, synth.Options{})
				recs[0].Targets = recs[0].Targets[:39]
				return recs
			},
			check: func(t *testing.T, err error) {
				var se *errors.SchemaError
				assert.True(t, errors.As(err, &se))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPipeline(t)
			err := p.Fit(tt.records())
			require.Error(t, err)
			tt.check(t, err)
			assert.False(t, p.IsFitted())
		})
	}
}

func TestPipelineRefitRejected(t *testing.T) {
	p := fittedPipeline(t)
	err := p.Fit(synth.Records(20, 2, synth.Options{}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAlreadyFitted))
}

func TestPipelinePredictBeforeFit(t *testing.T) {
	p, _ := newTestPipeline(t)
	_, err := p.PredictOne(descriptorAt(300))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	var nf2 *errors.NotFittedError
	assert.True(t, errors.As(p.Validate(), &nf2))
}

func TestPipelineValidate(t *testing.T) {
	p := fittedPipeline(t)
	require.NoError(t, p.Validate())

	p.TargetNames = p.TargetNames[:39]
	var se *errors.SchemaError
	assert.True(t, errors.As(p.Validate(), &se))
}

func TestPipelineFeatureImportances(t *testing.T) {
	p := fittedPipeline(t)
	imp, err := p.FeatureImportances()
	require.NoError(t, err)
	require.Contains(t, imp, schema.ColMolWeight)
	for name, v := range imp {
		if name != schema.ColMolWeight {
			assert.Greater(t, imp[schema.ColMolWeight], v, name)
		}
	}
}

func TestPipelineGobRoundTrip(t *testing.T) {
	p := fittedPipeline(t)
	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(p, &buf))

	var loaded Pipeline
	require.NoError(t, model.LoadModelFromReader(&loaded, &buf))
	require.NoError(t, loaded.Validate())

	want, err := p.PredictOne(descriptorAt(320))
	require.NoError(t, err)
	got, err := loaded.PredictOne(descriptorAt(320))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPipelineCrossValidate(t *testing.T) {
	p, logger := newTestPipeline(t)
	records := synth.Records(100, 11, synth.Options{})

	cv, err := p.CrossValidate(context.Background(), records, 5)
	require.NoError(t, err)
	require.Len(t, cv.TestScores, 5)
	assert.Greater(t, cv.Mean(), 0.8)
	assert.GreaterOrEqual(t, cv.Std(), 0.0)
	assert.False(t, p.IsFitted(), "cross-validation never fits the receiver")
	assert.True(t, logger.ContainsMessage("Cross-validation completed"))

	again, err := p.CrossValidate(context.Background(), records, 5)
	require.NoError(t, err)
	assert.Equal(t, cv.TestScores, again.TestScores)
}

func TestPipelineCrossValidateErrors(t *testing.T) {
	p, _ := newTestPipeline(t)

	_, err := p.CrossValidate(context.Background(), synth.Records(3, 1, synth.Options{}), 5)
	var ia *errors.InvalidArgumentError
	assert.True(t, errors.As(err, &ia))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.CrossValidate(ctx, synth.Records(50, 1, synth.Options{}), 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubset(t *testing.T) {
	recs := synth.Records(5, 3, synth.Options{})
	sub := Subset(recs, []int{4, 0})
	require.Len(t, sub, 2)
	assert.Equal(t, recs[4].Descriptor, sub[0].Descriptor)
	assert.Equal(t, recs[0].Descriptor, sub[1].Descriptor)
}
