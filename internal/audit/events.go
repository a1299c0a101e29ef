package audit

import "time"

// Outcome is the terminal state of one execution request.
const (
	OutcomeSucceeded   = "succeeded"
	OutcomeFailed      = "failed"
	OutcomeDenied      = "denied"
	OutcomeDryRun      = "dry_run"
	OutcomeUnknownTool = "unknown_tool"
	OutcomeInvalidArgs = "invalid_arguments"
)

// ExecutionRecord is one append-only audit entry. Exactly one record is
// written per terminal outcome; records are never mutated or deleted.
type ExecutionRecord struct {
	RequestID      string
	Timestamp      time.Time
	ClientID       string
	ToolName       string
	Category       string
	Classification string
	Outcome        string
	Reason         string
	DryRun         bool
	ReadOnly       bool
	DurationMs     float64
	Depth          int32
}

// Writer is the sink for execution records. Write must never block the
// caller and must never fail the triggering request: a broken sink only
// degrades the health signal (fail-open for observability).
type Writer interface {
	Write(record *ExecutionRecord)
	// Healthy reports whether the sink has been accepting records.
	Healthy() bool
	Close()
}
