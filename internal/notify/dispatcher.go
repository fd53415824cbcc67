// Package notify delivers SLA notifications and operator alerts.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"civicpulse.app/sla/internal/model"
	"civicpulse.app/sla/internal/queue"
)

// QueueDispatcher hands notifications to the delivery worker through the
// notification stream. The current trace id travels with the message.
type QueueDispatcher struct {
	producer queue.Producer
}

func NewQueueDispatcher(producer queue.Producer) *QueueDispatcher {
	return &QueueDispatcher{producer: producer}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, n model.Notification) error {
	var traceID string
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		traceID = sc.TraceID().String()
	}
	if err := d.producer.Enqueue(ctx, n, traceID); err != nil {
		return fmt.Errorf("queueing %s notification: %w", n.Kind, err)
	}
	return nil
}

// LogDispatcher only logs. Used in development.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(ctx context.Context, n model.Notification) error {
	slog.InfoContext(ctx, "sla notification",
		"notification_id", n.ID,
		"kind", n.Kind,
		"issue_id", n.IssueID,
		"recipient", n.Recipient,
		"summary", Summary(n))
	return nil
}
