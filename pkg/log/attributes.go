// Standard attribute keys for prediction operations.
//
// Using these keys consistently makes grid construction and prediction runs
// easy to filter in structured log output. Keys follow a hierarchical naming
// convention (e.g. "model.family", "grid.rows").

package log

// Model and operation context.
const (
	// ModelFamilyKey identifies the model family an adapter resolved to.
	// Examples: "gaussian", "binomial", "poisson", "coxph"
	ModelFamilyKey = "model.family"

	// ModelNameKey identifies the concrete model type.
	// Examples: "LM", "GLM", "ZeroInflated"
	ModelNameKey = "model.name"

	// LinkKey names the link function used for back-transformation.
	// Examples: "identity", "logit", "log"
	LinkKey = "model.link"

	// OperationKey specifies the operation being performed.
	// Standard values: "build_grid", "predict", "delta_se", "simulate"
	OperationKey = "op"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "effects", "models"
	ComponentKey = "component"
)

// Request shape.
const (
	// TermsKey carries the focal term names of a prediction request.
	TermsKey = "terms"

	// TermCountKey is the number of focal terms (1-4).
	TermCountKey = "terms.count"

	// GridRowsKey is the number of rows in the reference grid.
	GridRowsKey = "grid.rows"

	// PredictionTypeKey is the requested prediction type ("fe", "re", "fe.zi").
	PredictionTypeKey = "predict.type"

	// ConfidenceLevelKey is the requested confidence level.
	ConfidenceLevelKey = "predict.level"

	// DrawsKey is the number of simulation draws for simulation-based
	// uncertainty propagation.
	DrawsKey = "sim.draws"

	// SeedKey is the RNG seed of a simulation run.
	SeedKey = "sim.seed"
)

// Performance.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)
