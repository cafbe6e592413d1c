package pipeline

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bacpanel/metrics"
	"github.com/YuminosukeSato/bacpanel/model_selection"
	"github.com/YuminosukeSato/bacpanel/pkg/errors"
	"github.com/YuminosukeSato/bacpanel/pkg/log"
	"github.com/YuminosukeSato/bacpanel/schema"
)

// CrossValidate fits a fresh copy of the pipeline on each of k unshuffled
// folds and scores the held-out fold with the uniform-average R².
// The receiver itself is not fitted. Folds run concurrently; scores are
// reported in fold order.
func (p *Pipeline) CrossValidate(ctx context.Context, records []schema.TrainingRecord, k int) (model_selection.CVResult, error) {
	folds, err := model_selection.NewKFold(k, false, 0).Split(len(records))
	if err != nil {
		return model_selection.CVResult{}, err
	}

	logger := p.getLogger()
	scores := make([]float64, len(folds))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, runtime.GOMAXPROCS(0)/2))
	for i, fold := range folds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			score, err := p.scoreFold(fold, records)
			if err != nil {
				return errors.Wrapf(err, "fold %d", i)
			}
			scores[i] = score
			logger.Debug("Fold scored",
				log.FoldKey, i,
				log.R2ScoreKey, score,
				log.SamplesKey, len(fold.TestIndices),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model_selection.CVResult{}, err
	}

	result := model_selection.CVResult{TestScores: scores}
	logger.Info("Cross-validation completed",
		log.OperationKey, log.OperationScore,
		log.PhaseKey, log.PhaseValidation,
		log.CVMeanKey, result.Mean(),
		log.CVStdKey, result.Std(),
	)
	return result, nil
}

func (p *Pipeline) scoreFold(fold model_selection.Fold, records []schema.TrainingRecord) (float64, error) {
	fp := New(p.factory, WithTargets(p.TargetNames), WithLogger(p.getLogger()))
	if err := fp.Fit(Subset(records, fold.TrainIndices)); err != nil {
		return 0, err
	}

	test := Subset(records, fold.TestIndices)
	descriptors := make([]schema.DrugDescriptor, len(test))
	Y := mat.NewDense(len(test), len(p.TargetNames), nil)
	for i, rec := range test {
		descriptors[i] = rec.Descriptor
		Y.SetRow(i, rec.Targets)
	}
	pred, err := fp.Predict(descriptors)
	if err != nil {
		return 0, err
	}
	score, err := metrics.R2ScoreMultiOutput(Y, pred)
	if err != nil {
		return 0, err
	}
	return score.Average, nil
}

// Subset returns the records at the given indices, in index order.
func Subset(records []schema.TrainingRecord, indices []int) []schema.TrainingRecord {
	out := make([]schema.TrainingRecord, len(indices))
	for i, idx := range indices {
		out[i] = records[idx]
	}
	return out
}
