package handler_test

import (
	"context"

	"civicpulse.app/sla/internal/compliance"
	"civicpulse.app/sla/internal/model"
	"civicpulse.app/sla/internal/monitor"
	"civicpulse.app/sla/internal/policy"
	"civicpulse.app/sla/internal/service"
)

type mockIssueService struct {
	registerFn   func(ctx context.Context, params service.RegisterIssueParams) (*service.RegisteredIssue, error)
	getFn        func(ctx context.Context, id string) (*service.IssueSLA, error)
	transitionFn func(ctx context.Context, id string, to model.Status) (*model.IssueSLARecord, error)
}

func (m *mockIssueService) Register(ctx context.Context, params service.RegisterIssueParams) (*service.RegisteredIssue, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, params)
	}
	return nil, nil
}

func (m *mockIssueService) Get(ctx context.Context, id string) (*service.IssueSLA, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

func (m *mockIssueService) TransitionStatus(ctx context.Context, id string, to model.Status) (*model.IssueSLARecord, error) {
	if m.transitionFn != nil {
		return m.transitionFn(ctx, id, to)
	}
	return nil, nil
}

type mockSLAService struct {
	resolveFn    func(params service.ResolveParams) (policy.Resolution, error)
	policyFn     func() policy.Document
	complianceFn func(ctx context.Context, filter compliance.Filter) (*compliance.Report, error)
	sweepFn      func(ctx context.Context) (*monitor.SweepSummary, error)
	evaluateFn   func(ctx context.Context, id string) (*monitor.Outcome, error)
}

func (m *mockSLAService) Resolve(params service.ResolveParams) (policy.Resolution, error) {
	if m.resolveFn != nil {
		return m.resolveFn(params)
	}
	return policy.Resolution{}, nil
}

func (m *mockSLAService) Policy() policy.Document {
	if m.policyFn != nil {
		return m.policyFn()
	}
	return policy.Document{}
}

func (m *mockSLAService) Compliance(ctx context.Context, filter compliance.Filter) (*compliance.Report, error) {
	if m.complianceFn != nil {
		return m.complianceFn(ctx, filter)
	}
	return &compliance.Report{}, nil
}

func (m *mockSLAService) Sweep(ctx context.Context) (*monitor.SweepSummary, error) {
	if m.sweepFn != nil {
		return m.sweepFn(ctx)
	}
	return &monitor.SweepSummary{}, nil
}

func (m *mockSLAService) Evaluate(ctx context.Context, id string) (*monitor.Outcome, error) {
	if m.evaluateFn != nil {
		return m.evaluateFn(ctx, id)
	}
	return &monitor.Outcome{IssueID: id}, nil
}
