package monitor

import (
	"context"
	"time"

	"civicpulse.app/sla/internal/model"
)

// IssueStore is the part of the issue store the monitor reads and writes.
type IssueStore interface {
	ListOpenWithDeadlines(ctx context.Context) ([]model.IssueSLARecord, error)
	GetByID(ctx context.Context, id string) (*model.IssueSLARecord, error)
	MarkEscalated(ctx context.Context, id string, at time.Time) (model.UpdateResult, error)
}

// Dispatcher delivers one SLA notification.
type Dispatcher interface {
	Dispatch(ctx context.Context, n model.Notification) error
}

// PolicyResolver supplies escalation lead times and area names. *policy.Table satisfies it.
type PolicyResolver interface {
	EscalationHours(category model.Category, priority model.Priority) float64
	Area(id string) (model.Area, bool)
}

// ErrorSink is the operator-visible error channel.
type ErrorSink interface {
	Report(ctx context.Context, alert model.OperatorAlert)
}
