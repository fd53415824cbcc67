package model

import "time"

type AlertKind string

const (
	AlertStoreUnavailable      AlertKind = "store_unavailable"
	AlertEscalationWriteFailed AlertKind = "escalation_write_failed"
	AlertDispatchFailure       AlertKind = "dispatch_failure"
	AlertInvariantViolation    AlertKind = "invariant_violation"
	AlertPanic                 AlertKind = "panic"
)

// OperatorAlert is raised on the operator error channel. It is separate from
// the citizen-facing SLA notifications and never blocks a sweep.
type OperatorAlert struct {
	Kind                AlertKind `json:"kind"`
	IssueID             string    `json:"issue_id,omitempty"`
	Message             string    `json:"message"`
	Error               string    `json:"error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures,omitempty"`
	At                  time.Time `json:"at"`
}
