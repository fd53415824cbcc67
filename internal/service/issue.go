package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"civicpulse.app/sla/common/id"
	"civicpulse.app/sla/internal/model"
	"civicpulse.app/sla/internal/policy"
	"civicpulse.app/sla/internal/sla"
	"civicpulse.app/sla/internal/store"
)

// createdAtSkew is how far ahead of the local clock a caller supplied
// created_at may be.
const createdAtSkew = 5 * time.Minute

// Resolver computes deadlines. *policy.Table satisfies it.
type Resolver interface {
	Resolve(category model.Category, priority model.Priority, areaID string, createdAt time.Time) policy.Resolution
	EscalationHours(category model.Category, priority model.Priority) float64
}

type RegisterIssueParams struct {
	// ID is optional; a snowflake id is minted when empty.
	ID         string
	Title      string
	Category   model.Category
	Priority   model.Priority
	AreaID     string
	AssignedTo string
	// CreatedAt defaults to now.
	CreatedAt time.Time
}

type RegisteredIssue struct {
	Issue      model.IssueSLARecord `json:"issue"`
	Resolution policy.Resolution    `json:"resolution"`
}

// IssueSLA is an issue with its live SLA assessment.
type IssueSLA struct {
	Issue           model.IssueSLARecord `json:"issue"`
	SLA             *sla.Assessment      `json:"sla,omitempty"`
	EscalationHours float64              `json:"escalation_hours"`
}

type IssueService interface {
	Register(ctx context.Context, params RegisterIssueParams) (*RegisteredIssue, error)
	Get(ctx context.Context, id string) (*IssueSLA, error)
	TransitionStatus(ctx context.Context, id string, to model.Status) (*model.IssueSLARecord, error)
}

type issueService struct {
	issues   store.IssueStore
	resolver Resolver
}

func NewIssueService(issues store.IssueStore, resolver Resolver) IssueService {
	return &issueService{
		issues:   issues,
		resolver: resolver,
	}
}

// Register computes the SLA deadline once and persists the issue with it.
func (s *issueService) Register(ctx context.Context, params RegisterIssueParams) (*RegisteredIssue, error) {
	now := time.Now()
	if err := validateRegister(params, now); err != nil {
		return nil, err
	}

	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	createdAt = createdAt.UTC()

	issueID := params.ID
	if issueID == "" {
		issueID = id.NewString()
	}

	resolution := s.resolver.Resolve(params.Category, params.Priority, params.AreaID, createdAt)
	deadline := resolution.Deadline

	issue := model.IssueSLARecord{
		ID:          issueID,
		Title:       strings.TrimSpace(params.Title),
		Category:    params.Category,
		Priority:    params.Priority,
		AreaID:      params.AreaID,
		AssignedTo:  params.AssignedTo,
		Status:      model.StatusPending,
		CreatedAt:   createdAt,
		SLADeadline: &deadline,
	}

	if err := s.issues.Create(ctx, &issue); err != nil {
		slog.ErrorContext(ctx, "failed to register issue", "error", err, "issue_id", issueID)
		return nil, fmt.Errorf("registering issue: %w", err)
	}

	slog.InfoContext(ctx, "issue registered",
		"issue_id", issueID,
		"sla_deadline", deadline,
		"target_hours", resolution.TargetHours,
		"source", resolution.Source)

	return &RegisteredIssue{Issue: issue, Resolution: resolution}, nil
}

func (s *issueService) Get(ctx context.Context, issueID string) (*IssueSLA, error) {
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("getting issue: %w", err)
	}

	view := &IssueSLA{
		Issue:           *issue,
		EscalationHours: s.resolver.EscalationHours(issue.Category, issue.Priority),
	}
	if issue.SLADeadline != nil {
		a := sla.Evaluate(time.Now(), *issue.SLADeadline, view.EscalationHours, issue.ResolvedAt)
		view.SLA = &a
	}
	return view, nil
}

// TransitionStatus applies a manual status change. escalated is reserved for
// the SLA monitor. The write is conditional on the status read here, so a
// concurrent change surfaces as ErrStaleStatus instead of being overwritten.
func (s *issueService) TransitionStatus(ctx context.Context, issueID string, to model.Status) (*model.IssueSLARecord, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, to)
	}
	if to == model.StatusEscalated {
		return nil, fmt.Errorf("%w: escalated is set by the SLA monitor", ErrInvalidTransition)
	}

	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("getting issue: %w", err)
	}
	if !issue.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, issue.Status, to)
	}

	// resolved_at never precedes created_at, even when the clocks disagree.
	at := time.Now().UTC()
	if at.Before(issue.CreatedAt) {
		at = issue.CreatedAt.UTC()
	}

	result, err := s.issues.UpdateStatus(ctx, issueID, issue.Status, to, at)
	if err != nil {
		return nil, fmt.Errorf("updating status: %w", err)
	}
	if result == model.UpdateConditionFailed {
		return nil, fmt.Errorf("%w: expected %s", ErrStaleStatus, issue.Status)
	}

	updated, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("reloading issue: %w", err)
	}

	slog.InfoContext(ctx, "issue status changed",
		"issue_id", issueID,
		"from", issue.Status,
		"to", to)
	return updated, nil
}

func validateRegister(p RegisterIssueParams, now time.Time) error {
	if !p.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, p.Category)
	}
	if !p.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, p.Priority)
	}
	if strings.TrimSpace(p.AreaID) == "" {
		return fmt.Errorf("%w: area_id is required", ErrInvalidInput)
	}
	if p.CreatedAt.After(now.Add(createdAtSkew)) {
		return fmt.Errorf("%w: created_at %s is in the future", ErrInvalidInput, p.CreatedAt.UTC().Format(time.RFC3339))
	}
	return nil
}
