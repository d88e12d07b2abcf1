package ovenflow

import "fmt"

// StepStatus is the three-valued outcome of a single pipeline step.
type StepStatus string

const (
	// StatusOK means the step succeeded and processing continues.
	StatusOK StepStatus = "ok"
	// StatusDegraded means the step succeeded in its primary effect but
	// recorded a non-fatal problem. Processing continues.
	StatusDegraded StepStatus = "degraded"
	// StatusFailed means the step aborted the entire run.
	StatusFailed StepStatus = "failed"
)

// Error kinds used across the pipeline. Fatal kinds abort the run and surface
// as the pipeline's top-level error; recoverable kinds are recorded in the
// degraded list and execution continues.
const (
	KindInputInvalid           = "InputInvalid"           // schema violation, fatal
	KindCustomerDetailsMissing = "CustomerDetailsMissing" // fatal
	KindEmptyCart              = "EmptyCart"              // fatal
	KindLineItemIncomplete     = "LineItemIncomplete"     // recoverable, auto-healed
	KindPersistFailed          = "PersistFailed"          // fatal, caller may retry
	KindOrderSubmissionFailed  = "OrderSubmissionFailed"  // recoverable, order still committed
	KindCartClearFailed        = "CartClearFailed"        // recoverable
	KindAnalyticsFailed        = "AnalyticsFailed"        // recoverable
	KindStepFailed             = "StepFailed"             // fatal fallback
	KindUnknown                = "Unknown"                // fatal fallback for empty error states
)

// StepError describes why a step degraded or failed. Retryable indicates the
// operation may succeed if the caller runs the whole submission again; it is
// advisory, nothing in the pipeline acts on it.
type StepError struct {
	Kind      string
	Message   string
	Retryable bool
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// StepResult is the outcome a step hands back to the pipeline. Value changes
// travel through the returned state, not through StepResult; this carries
// only the verdict.
type StepResult struct {
	Status   StepStatus
	Attempts int
	Err      *StepError
	NextStep string
}

// OK reports a successful step outcome.
func OK() StepResult {
	return StepResult{Status: StatusOK, Attempts: 1}
}

// Degraded reports a non-fatal problem. The run continues.
func Degraded(err *StepError) StepResult {
	return StepResult{Status: StatusDegraded, Attempts: 1, Err: err}
}

// Failed reports a fatal problem. The run stops at this step.
func Failed(err *StepError) StepResult {
	return StepResult{Status: StatusFailed, Attempts: 1, Err: err}
}

// WithAttempts overrides the attempt count, for steps that wrap an operation
// in RetryWithBackoff.
func (r StepResult) WithAttempts(n int) StepResult {
	if n < 1 {
		n = 1
	}
	r.Attempts = n
	return r
}

// StepLog is the externally visible trace of one executed step. Logs
// accumulate in order into a run's timeline.
type StepLog struct {
	Step     string
	Status   StepStatus
	Attempts int
	Err      *StepError
	NextStep string
}

// Result is the sole return type of a pipeline run. Either OK is true and
// Value holds the artifact, or OK is false and Err holds the fatal step
// error. Timeline and Degraded are populated either way.
type Result[T any] struct {
	OK            bool
	Value         T
	Err           *StepError
	Timeline      []StepLog
	Degraded      []StepLog
	CorrelationID string
}
