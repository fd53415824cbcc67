package store

import (
	"context"
	"errors"
	"time"

	"civicpulse.app/sla/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an entity with the same id already exists
var ErrConflict = errors.New("conflict")

// IssueFilter narrows compliance snapshots. Zero values mean "no bound".
type IssueFilter struct {
	AreaID      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// IssueStore defines the contract for issue SLA data access.
//
// MarkEscalated and UpdateStatus are conditional writes: they report
// model.UpdateConditionFailed instead of overwriting a concurrent change.
type IssueStore interface {
	Create(ctx context.Context, issue *model.IssueSLARecord) error
	GetByID(ctx context.Context, id string) (*model.IssueSLARecord, error)

	// ListOpenWithDeadlines returns non-terminal issues that have a deadline.
	ListOpenWithDeadlines(ctx context.Context) ([]model.IssueSLARecord, error)
	ListForCompliance(ctx context.Context, filter IssueFilter) ([]model.IssueSLARecord, error)

	// MarkEscalated sets status=escalated and escalated_at=at only while
	// escalated_at is unset and the issue is pending or in progress.
	MarkEscalated(ctx context.Context, id string, at time.Time) (model.UpdateResult, error)

	// UpdateStatus moves an issue from one status to another only if it is
	// still in from. resolved_at is stamped the first time it becomes resolved.
	UpdateStatus(ctx context.Context, id string, from, to model.Status, at time.Time) (model.UpdateResult, error)
}
