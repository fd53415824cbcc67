package monitor

import (
	"context"
	"log/slog"

	"civicpulse.app/sla/internal/model"
)

// LogSink reports operator alerts through the structured logger.
type LogSink struct{}

func (LogSink) Report(ctx context.Context, alert model.OperatorAlert) {
	slog.ErrorContext(ctx, "sla operator alert",
		"alert", alert.Kind,
		"issue_id", alert.IssueID,
		"message", alert.Message,
		"error", alert.Error,
		"consecutive_failures", alert.ConsecutiveFailures)
}

// MultiSink fans an alert out to every sink.
type MultiSink []ErrorSink

func (m MultiSink) Report(ctx context.Context, alert model.OperatorAlert) {
	for _, sink := range m {
		sink.Report(ctx, alert)
	}
}
