package service

import (
	"context"
	"fmt"
	"time"

	"civicpulse.app/sla/internal/compliance"
	"civicpulse.app/sla/internal/model"
	"civicpulse.app/sla/internal/monitor"
	"civicpulse.app/sla/internal/policy"
	"civicpulse.app/sla/internal/store"
)

// PolicySource exposes the loaded policy. *policy.Table satisfies it.
type PolicySource interface {
	Resolver
	Document() policy.Document
}

// Observer runs monitor observations on demand. *monitor.Monitor satisfies it.
type Observer interface {
	Sweep(ctx context.Context) (monitor.SweepSummary, error)
	Evaluate(ctx context.Context, issue model.IssueSLARecord) monitor.Outcome
}

type ResolveParams struct {
	Category  model.Category
	Priority  model.Priority
	AreaID    string
	CreatedAt time.Time
}

type SLAService interface {
	Resolve(params ResolveParams) (policy.Resolution, error)
	Policy() policy.Document
	Compliance(ctx context.Context, filter compliance.Filter) (*compliance.Report, error)
	Sweep(ctx context.Context) (*monitor.SweepSummary, error)
	Evaluate(ctx context.Context, issueID string) (*monitor.Outcome, error)
}

type slaService struct {
	issues   store.IssueStore
	policy   PolicySource
	observer Observer
}

func NewSLAService(issues store.IssueStore, policy PolicySource, observer Observer) SLAService {
	return &slaService{
		issues:   issues,
		policy:   policy,
		observer: observer,
	}
}

func (s *slaService) Resolve(params ResolveParams) (policy.Resolution, error) {
	if !params.Category.Valid() {
		return policy.Resolution{}, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, params.Category)
	}
	if !params.Priority.Valid() {
		return policy.Resolution{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, params.Priority)
	}
	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return s.policy.Resolve(params.Category, params.Priority, params.AreaID, createdAt), nil
}

func (s *slaService) Policy() policy.Document {
	return s.policy.Document()
}

func (s *slaService) Compliance(ctx context.Context, filter compliance.Filter) (*compliance.Report, error) {
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, fmt.Errorf("%w: from must be before to", ErrInvalidInput)
	}

	issues, err := s.issues.ListForCompliance(ctx, store.IssueFilter{
		AreaID:      filter.AreaID,
		CreatedFrom: filter.From,
		CreatedTo:   filter.To,
	})
	if err != nil {
		return nil, fmt.Errorf("listing issues for compliance: %w", err)
	}

	report := compliance.Aggregate(issues, filter, time.Now().UTC())
	return &report, nil
}

func (s *slaService) Sweep(ctx context.Context) (*monitor.SweepSummary, error) {
	summary, err := s.observer.Sweep(ctx)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *slaService) Evaluate(ctx context.Context, issueID string) (*monitor.Outcome, error) {
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("getting issue: %w", err)
	}
	if issue.Status.Terminal() {
		return nil, fmt.Errorf("%w: issue is %s", ErrInvalidTransition, issue.Status)
	}

	outcome := s.observer.Evaluate(ctx, *issue)
	return &outcome, nil
}
