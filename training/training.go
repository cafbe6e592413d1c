// Package training runs the offline job: load the labelled CSV, split,
// fit the pipeline, evaluate, optionally cross-validate, then persist.
//
// Every failure is returned as a TrainingFailedError naming the stage.
// The artifact is written only after fitting and evaluation succeeded.
package training

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bacpanel/config"
	"github.com/YuminosukeSato/bacpanel/core/model"
	"github.com/YuminosukeSato/bacpanel/dataset"
	"github.com/YuminosukeSato/bacpanel/metrics"
	"github.com/YuminosukeSato/bacpanel/model_selection"
	"github.com/YuminosukeSato/bacpanel/pipeline"
	"github.com/YuminosukeSato/bacpanel/pkg/errors"
	"github.com/YuminosukeSato/bacpanel/pkg/log"
	"github.com/YuminosukeSato/bacpanel/report"
	"github.com/YuminosukeSato/bacpanel/schema"
	"github.com/YuminosukeSato/bacpanel/sklearn/ensemble"
	"github.com/YuminosukeSato/bacpanel/store"
)

// Stages reported in TrainingFailedError.Stage.
const (
	StageConfig   = "config"
	StageLoad     = "load"
	StageFilter   = "filter"
	StageSplit    = "split"
	StageFit      = "fit"
	StageEvaluate = "evaluate"
	StageCV       = "cross_validate"
	StagePersist  = "persist"
	StageReport   = "report"
)

// missingTop is how many targets the missing-value diagnostics log.
const missingTop = 10

type options struct {
	logger  log.Logger
	factory pipeline.RegressorFactory
}

// Option configures Run.
type Option func(*options)

// WithLogger sets the logger; every entry carries the run ID.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegressorFactory replaces the random forest built from the config.
func WithRegressorFactory(factory pipeline.RegressorFactory) Option {
	return func(o *options) {
		o.factory = factory
	}
}

// ForestFactory builds the regressor described by cfg.
func ForestFactory(cfg config.Training, logger log.Logger) pipeline.RegressorFactory {
	return func() model.MultiOutputRegressor {
		return ensemble.NewRandomForestRegressor(
			ensemble.WithNEstimators(cfg.NEstimators),
			ensemble.WithMaxDepth(cfg.MaxDepth),
			ensemble.WithMinSamplesLeaf(cfg.MinSamplesLeaf),
			ensemble.WithRandomState(cfg.RandomState),
			ensemble.WithLogger(logger),
		)
	}
}

func fail(logger log.Logger, stage string, err error) error {
	logger.Error("Training failed", err, log.PhaseKey, stage)
	return errors.NewTrainingFailedError(stage, err)
}

// Run executes one training job described by cfg and returns its report.
// ctx cancels cross-validation; the other stages run to completion.
func Run(ctx context.Context, cfg config.Training, opts ...Option) (*report.Report, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	runID := uuid.NewString()
	if o.logger == nil {
		o.logger = log.GetLoggerWithName("Training")
	}
	logger := o.logger.With(log.RunIDKey, runID)
	if o.factory == nil {
		o.factory = ForestFactory(cfg, logger)
	}

	rep := &report.Report{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		Dataset:   cfg.Dataset,
		Artifact:  cfg.Artifact,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fail(logger, StageConfig, err)
	}

	ds, err := dataset.LoadCSV(cfg.Dataset)
	if err != nil {
		return nil, fail(logger, StageLoad, err)
	}
	rep.Rows = ds.Len()
	logger.Info("Dataset loaded",
		log.DatasetPathKey, cfg.Dataset,
		log.SamplesKey, ds.Len(),
	)

	rep.MissingTargets = ds.Diagnose()
	for _, m := range rep.MissingTargets.Top(missingTop) {
		logger.Warn("Missing target values", "target", m.Target, "count", m.Count)
	}

	records, dropped := ds.CompleteRecords()
	rep.RowsDropped = dropped
	if dropped > 0 {
		logger.Warn("Rows with missing targets excluded",
			log.DroppedRowsKey, dropped,
			log.MissingTargetsKey, rep.MissingTargets.RowsWithMissingTargets,
		)
	}
	if len(records) == 0 {
		return nil, fail(logger, StageFilter, errors.NewModelError("training.Run", "no complete rows", errors.ErrEmptyData))
	}

	trainIdx, testIdx, err := model_selection.TrainTestSplit(len(records), cfg.TestSize, cfg.SplitSeed)
	if err != nil {
		return nil, fail(logger, StageSplit, err)
	}
	train := pipeline.Subset(records, trainIdx)
	test := pipeline.Subset(records, testIdx)
	rep.TrainRows, rep.TestRows = len(train), len(test)

	p := pipeline.New(o.factory, pipeline.WithLogger(logger))
	start := time.Now()
	if err := p.Fit(train); err != nil {
		return nil, fail(logger, StageFit, err)
	}
	logger.Info("Model fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, len(train),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	if err := evaluate(p, test, rep); err != nil {
		return nil, fail(logger, StageEvaluate, err)
	}
	logger.Info("Held-out evaluation",
		log.PhaseKey, log.PhaseTesting,
		log.R2ScoreKey, rep.R2,
		log.MAEKey, rep.MAE,
	)

	if cfg.RunCV {
		cv, err := pipeline.New(o.factory, pipeline.WithLogger(logger)).CrossValidate(ctx, records, cfg.CVFolds)
		if err != nil {
			return nil, fail(logger, StageCV, err)
		}
		rep.CV = &report.CVSummary{
			Folds:  cfg.CVFolds,
			Scores: cv.TestScores,
			Mean:   cv.Mean(),
			Std:    cv.Std(),
		}
	}

	if pg, ok := p.Regressor.(model.ParameterGetter); ok {
		rep.Hyperparams = pg.GetParams()
	}
	if imp, err := p.FeatureImportances(); err == nil {
		rep.FeatureImportances = imp
	}

	if err := store.New(cfg.Artifact, store.WithLogger(logger)).Save(p); err != nil {
		return nil, fail(logger, StagePersist, err)
	}
	rep.FinishedAt = time.Now().UTC()

	if cfg.ReportPath != "" {
		if err := rep.WriteJSON(cfg.ReportPath); err != nil {
			return nil, fail(logger, StageReport, err)
		}
	}
	if cfg.PlotPath != "" {
		if err := report.PlotPerTargetR2(rep, cfg.PlotPath); err != nil {
			return nil, fail(logger, StageReport, err)
		}
	}

	logger.Info("Training completed",
		log.ArtifactPathKey, cfg.Artifact,
		log.R2ScoreKey, rep.R2,
	)
	return rep, nil
}

// evaluate scores p on the held-out records and fills the report.
func evaluate(p *pipeline.Pipeline, test []schema.TrainingRecord, rep *report.Report) error {
	descriptors := make([]schema.DrugDescriptor, len(test))
	Y := mat.NewDense(len(test), p.NOutputs(), nil)
	for i, rec := range test {
		descriptors[i] = rec.Descriptor
		Y.SetRow(i, rec.Targets)
	}
	pred, err := p.Predict(descriptors)
	if err != nil {
		return err
	}

	r2, err := metrics.R2ScoreMultiOutput(Y, pred)
	if err != nil {
		return err
	}
	mae, err := metrics.MAEMultiOutput(Y, pred)
	if err != nil {
		return err
	}

	rep.R2, rep.MAE = r2.Average, mae.Average
	rep.PerTarget = make([]report.TargetScore, len(p.TargetNames))
	for j, name := range p.TargetNames {
		rep.PerTarget[j] = report.TargetScore{Target: name, R2: r2.PerTarget[j], MAE: mae.PerTarget[j]}
	}
	return nil
}
