package training

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/bacpanel/config"
	"github.com/YuminosukeSato/bacpanel/dataset"
	"github.com/YuminosukeSato/bacpanel/internal/synth"
	"github.com/YuminosukeSato/bacpanel/pkg/errors"
	"github.com/YuminosukeSato/bacpanel/pkg/log"
	"github.com/YuminosukeSato/bacpanel/report"
	"github.com/YuminosukeSato/bacpanel/store"
)

func writeDataset(t *testing.T, dir string, n int, opts synth.Options) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, dataset.WriteCSV(&buf, synth.Records(n, 2024, opts)))
	path := filepath.Join(dir, "train.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func testConfig(dir, datasetPath string) config.Training {
	cfg := config.DefaultTraining()
	cfg.Dataset = datasetPath
	cfg.Artifact = filepath.Join(dir, "models", "panel.gob")
	cfg.NEstimators = 40
	return cfg
}

func testLogger() (*log.TestLogger, Option) {
	logger, _ := log.NewTestLogger(log.LevelInfo)
	return logger, WithLogger(logger)
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir, writeDataset(t, dir, 100, synth.Options{MissingFeatureRate: 0.05}))
	cfg.ReportPath = filepath.Join(dir, "out", "report.json")
	cfg.PlotPath = filepath.Join(dir, "out", "r2.png")
	logger, opt := testLogger()

	rep, err := Run(context.Background(), cfg, opt)
	require.NoError(t, err)

	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 100, rep.Rows)
	assert.Equal(t, 0, rep.RowsDropped)
	assert.Equal(t, 80, rep.TrainRows)
	assert.Equal(t, 20, rep.TestRows)
	require.Len(t, rep.PerTarget, 40)
	assert.Equal(t, "inh_Bac1", rep.PerTarget[0].Target)
	assert.Greater(t, rep.PerTarget[0].R2, 0.9)
	assert.Greater(t, rep.R2, 0.9)

	require.NotNil(t, rep.CV)
	assert.Len(t, rep.CV.Scores, 5)
	assert.Greater(t, rep.CV.Mean, 0.8)
	assert.Equal(t, 40, rep.Hyperparams["n_estimators"])
	assert.NotEmpty(t, rep.FeatureImportances)

	assert.True(t, store.New(cfg.Artifact, store.WithLogger(logger)).Exists())
	written, err := report.ReadJSON(cfg.ReportPath)
	require.NoError(t, err)
	assert.Equal(t, rep.RunID, written.RunID)
	_, err = os.Stat(cfg.PlotPath)
	assert.NoError(t, err)

	assert.True(t, logger.ContainsMessage("Training completed"))
	assert.True(t, logger.ContainsField(log.RunIDKey, rep.RunID))
}

// Only Bac1 carries signal here; the other 39 targets are independent noise.
// Default hyperparameters (400 trees, split seed 1, forest seed 42).
func TestRunRecoversSingleSignalTarget(t *testing.T) {
	dir := t.TempDir()
	path := writeDataset(t, dir, 100, synth.Options{NoiseTargets: 2})
	cfg := config.DefaultTraining()
	cfg.Dataset = path
	cfg.Artifact = filepath.Join(dir, "models", "panel.gob")
	cfg.RunCV = false
	_, opt := testLogger()

	rep, err := Run(context.Background(), cfg, opt)
	require.NoError(t, err)

	require.Len(t, rep.PerTarget, 40)
	assert.Equal(t, 400, rep.Hyperparams["n_estimators"])
	assert.Greater(t, rep.PerTarget[0].R2, 0.9)
	for _, ts := range rep.PerTarget[1:] {
		assert.Less(t, ts.R2, rep.PerTarget[0].R2, ts.Target)
	}
	assert.Nil(t, rep.CV)
}

func TestRunExcludesMissingTargets(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir, writeDataset(t, dir, 100, synth.Options{MissingTargetRate: 0.005}))
	cfg.RunCV = false
	logger, opt := testLogger()

	rep, err := Run(context.Background(), cfg, opt)
	require.NoError(t, err)
	assert.Equal(t, rep.MissingTargets.RowsWithMissingTargets, rep.RowsDropped)
	assert.Equal(t, rep.Rows-rep.RowsDropped, rep.TrainRows+rep.TestRows)
	assert.Nil(t, rep.CV)
	if rep.RowsDropped > 0 {
		assert.True(t, logger.ContainsMessage("Rows with missing targets excluded"))
	}
}

func TestRunDeterministic(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir, writeDataset(t, dir, 60, synth.Options{}))
	cfg.RunCV = false
	_, opt := testLogger()

	a, err := Run(context.Background(), cfg, opt)
	require.NoError(t, err)
	b, err := Run(context.Background(), cfg, opt)
	require.NoError(t, err)
	assert.Equal(t, a.PerTarget, b.PerTarget)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, dir string) config.Training
		stage string
		check func(t *testing.T, err error)
	}{
		{
			name: "missing dataset",
			setup: func(t *testing.T, dir string) config.Training {
				return testConfig(dir, filepath.Join(dir, "absent.csv"))
			},
			stage: StageLoad,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, os.ErrNotExist))
			},
		},
		{
			name: "missing column",
			setup: func(t *testing.T, dir string) config.Training {
				path := filepath.Join(dir, "bad.csv")
				require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{"ACA_class", "mol_weight"}, ",")+"\n"), 0o644))
				return testConfig(dir, path)
			},
			stage: StageLoad,
			check: func(t *testing.T, err error) {
				var se *errors.SchemaError
				assert.True(t, errors.As(err, &se))
			},
		},
		{
			name: "single row",
			setup: func(t *testing.T, dir string) config.Training {
				return testConfig(dir, writeDataset(t, dir, 1, synth.Options{}))
			},
			stage: StageSplit,
		},
		{
			name: "invalid config",
			setup: func(t *testing.T, dir string) config.Training {
				cfg := testConfig(dir, writeDataset(t, dir, 20, synth.Options{}))
				cfg.TestSize = 0
				return cfg
			},
			stage: StageConfig,
			check: func(t *testing.T, err error) {
				var ve *errors.ValidationError
				assert.True(t, errors.As(err, &ve))
			},
		},
		{
			name: "too few rows for cv",
			setup: func(t *testing.T, dir string) config.Training {
				cfg := testConfig(dir, writeDataset(t, dir, 4, synth.Options{}))
				cfg.NEstimators = 3
				return cfg
			},
			stage: StageCV,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := tt.setup(t, dir)
			logger, opt := testLogger()

			_, err := Run(context.Background(), cfg, opt)
			require.Error(t, err)
			var tf *errors.TrainingFailedError
			require.True(t, errors.As(err, &tf))
			assert.Equal(t, tt.stage, tf.Stage)
			if tt.check != nil {
				tt.check(t, err)
			}
			assert.False(t, store.New(cfg.Artifact, store.WithLogger(logger)).Exists(), "no artifact on failure")
			assert.True(t, logger.ContainsMessage("Training failed"))
		})
	}
}
