// Package bacpanel predicts percent inhibition across a fixed panel of
// 40 bacterial strains (Bac1..Bac40) from six drug descriptors, and
// summarizes the predicted profile for a human reader.
//
// The repository is a small machine learning service built on gonum.
// A compound is described by its ACA class (categorical) plus complexity,
// molecular weight, TPSA, volume and hydrophobicity. Training fits a
// preprocessing step (imputation, one-hot encoding, standard scaling)
// together with a multi-output random forest, evaluates it on a held-out
// split and with k-fold cross-validation, and persists the fitted
// pipeline as a single artifact. Inference loads that artifact and
// degrades gracefully when it is missing or incompatible.
//
// # Quick Start
//
// Generate a demo dataset, train, then predict:
//
//	bacpanel synth --rows 200 --out data/training.csv
//	bacpanel train --dataset data/training.csv --artifact models/bacpanel.gob
//	bacpanel predict --artifact models/bacpanel.gob \
//	    --aca-class Type-II --complexity 350 --mol-weight 310 \
//	    --tpsa 65 --volume 290 --hydrophobicity 0.8
//
// From Go:
//
//	svc := inference.New(store.New("models/bacpanel.gob"))
//	defer svc.Close()
//
//	pred, err := svc.PredictAndSummarize(d, summary.DefaultTopN)
//	if err != nil {
//	    var mu *errors.ModelUnavailableError
//	    if errors.As(err, &mu) {
//	        // no trained model; train first
//	    }
//	    return err
//	}
//	fmt.Println(pred.Summary.Top[0].Strain, pred.Summary.Most.Region)
//
// # Packages
//
//   - schema: feature and target column names, descriptor validation
//   - dataset: CSV loading, missing-target diagnostics
//   - preprocessing: imputers, one-hot encoder, standard scaler, ColumnTransformer
//   - sklearn/tree, sklearn/ensemble: multi-output decision trees and random forest
//   - pipeline: preprocessing plus regressor, cross-validation
//   - store: single-slot artifact persistence
//   - training: end-to-end training run with a JSON/plot report
//   - inference: thread-safe prediction service with prometheus metrics
//   - summary: top-N strains and region buckets
//   - metrics, model_selection: R², MAE, train/test split and KFold
//   - config: YAML configuration with validation
//   - pkg/errors, pkg/log: error types and structured logging
//   - cmd/bacpanel: command line interface
package bacpanel
