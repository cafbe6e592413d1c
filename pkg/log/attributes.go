// Package log defines standard attribute keys for the training and
// inference pipeline.
//
// Keys follow a hierarchical naming convention ("model.name",
// "data.samples") so training runs and inference traffic can be filtered
// with the same queries.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator type.
	// Examples: "RandomForestRegressor", "ColumnTransformer"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "save", "load"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is performing the operation.
	// Examples: "training", "inference", "store"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of model lifecycle.
	PhaseKey = "ml.phase"

	// RunIDKey identifies one training run.
	RunIDKey = "training.run_id"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows).
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns).
	FeaturesKey = "data.features"

	// TargetsKey indicates the number of target variables (40 for the panel).
	TargetsKey = "data.targets"

	// DroppedRowsKey counts rows excluded before fitting.
	DroppedRowsKey = "data.dropped_rows"

	// MissingTargetsKey counts rows with at least one missing target value.
	MissingTargetsKey = "data.rows_missing_targets"

	// DatasetPathKey is the path of the training CSV.
	DatasetPathKey = "data.path"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// R2ScoreKey records the R² coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	// MAEKey records mean absolute error.
	MAEKey = "metrics.mae"

	// CVMeanKey and CVStdKey record cross-validated R² mean and std.
	CVMeanKey = "metrics.cv_r2_mean"
	CVStdKey  = "metrics.cv_r2_std"

	// FoldKey records the cross-validation fold index.
	FoldKey = "training.fold"
)

// Prediction and Output Context
const (
	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"

	// TopStrainKey records the most inhibited strain of a prediction.
	TopStrainKey = "preds.top_strain"
)

// Error and Warning Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// SuggestionKey provides helpful suggestions for resolving issues.
	SuggestionKey = "error.suggestion"
)

// Hyperparameters and Configuration
const (
	// NEstimatorsKey records the forest size.
	NEstimatorsKey = "hyperparams.n_estimators"

	// MaxDepthKey records the tree depth limit (0 = unlimited).
	MaxDepthKey = "hyperparams.max_depth"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// ArtifactPathKey is where the trained artifact lives.
	ArtifactPathKey = "config.artifact_path"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"
	OperationSave      = "save"
	OperationLoad      = "load"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseTesting       = "testing"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorSchemaMismatch    = "SCHEMA_MISMATCH"
	ErrorModelUnavailable  = "MODEL_UNAVAILABLE"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
)
