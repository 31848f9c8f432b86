// Standard attribute keys for estimator and run logging.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples")
// so that log lines from different components can be filtered the same way.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model.
	// Examples: "LinearRegression", "MinMaxScaler", "Pipeline"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of model lifecycle.
	PhaseKey = "ml.phase"

	// RunIDKey carries the identifier of one training run.
	RunIDKey = "run.id"
)

// Data Shape
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// ColumnsKey lists column names of a table.
	ColumnsKey = "data.columns"

	// PathKey is a file the run reads or writes.
	PathKey = "data.path"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// R2ScoreKey records R² coefficient of determination for regression.
	R2ScoreKey = "metrics.r2_score"

	// ScoreKey records a scorer value, e.g. negated MAE.
	ScoreKey = "metrics.score"

	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"
)

// Hyperparameter Search
const (
	// CandidatesKey is the number of parameter combinations evaluated.
	CandidatesKey = "search.candidates"

	// FoldsKey is the number of cross-validation folds.
	FoldsKey = "search.folds"

	// FitsKey is candidates × folds.
	FitsKey = "search.fits"

	// BestParamsKey holds the winning parameter combination.
	BestParamsKey = "search.best_params"

	// ScoringKey names the scorer used to rank candidates.
	ScoringKey = "search.scoring"
)

// Error Context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"
	OperationSearch    = "search"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)
