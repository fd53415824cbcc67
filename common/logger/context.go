package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, so a sweep can tag its context once and every
// log line for an issue carries issue_id, sweep_id and friends without repeating them.
type LogFields struct {
	IssueID   *string // Issue being evaluated
	SweepID   *int64  // Monitor sweep that produced the log line
	AlertKind *string // Notification kind (warning, escalation, ...)
	AreaID    *string // Area registry id
	MessageID *string // Redis stream message ID
	Component string  // Component name (OTel semantic convention style, e.g., "sla.monitor")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

// mergeFields merges two LogFields, preferring non-nil/non-empty values from 'new'.
func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.IssueID != nil {
		result.IssueID = new.IssueID
	}
	if new.SweepID != nil {
		result.SweepID = new.SweepID
	}
	if new.AlertKind != nil {
		result.AlertKind = new.AlertKind
	}
	if new.AreaID != nil {
		result.AreaID = new.AreaID
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{IssueID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
