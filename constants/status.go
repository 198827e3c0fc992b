package constants

// ResultStatus is the closed set of outcomes for a processed job.
// Every job yields exactly one result carrying one of these tags.
type ResultStatus string

// Stable values (persisted in the archive and the dashboard feed).
const (
	StatusOK         ResultStatus = "OK"          // extraction completed, fields best-effort populated
	StatusFail       ResultStatus = "FAIL"        // business-level failure inside the worker
	StatusTimeout    ResultStatus = "TIMEOUT"     // per-job deadline exceeded
	StatusInfraError ResultStatus = "INFRA_ERROR" // pool/worker failure unrelated to document content
)

// JobPriority orders dispatch within a batch. It never affects result order.
type JobPriority string

const (
	PriorityHigh   JobPriority = "HIGH"
	PriorityNormal JobPriority = "NORMAL"
)

// IsTerminalFailure reports whether s is a non-OK outcome.
func IsTerminalFailure(s ResultStatus) bool {
	return s == StatusFail || s == StatusTimeout || s == StatusInfraError
}
