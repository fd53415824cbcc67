package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"civicpulse.app/sla/internal/compliance"
	"civicpulse.app/sla/internal/model"
	"civicpulse.app/sla/internal/monitor"
	"civicpulse.app/sla/internal/policy"
	"civicpulse.app/sla/internal/service"
	"civicpulse.app/sla/internal/store"
)

var _ = Describe("SLAService", func() {
	var (
		ctx       context.Context
		mockStore *mockIssueStore
		observer  *mockObserver
		svc       service.SLAService
	)

	BeforeEach(func() {
		ctx = context.Background()
		mockStore = &mockIssueStore{}
		observer = &mockObserver{}

		table, err := policy.Default()
		Expect(err).NotTo(HaveOccurred())
		svc = service.NewSLAService(mockStore, table, observer)
	})

	Describe("Resolve", func() {
		It("previews a deadline without persisting", func() {
			createdAt := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

			res, err := svc.Resolve(service.ResolveParams{
				Category:  model.CategoryWaterLeak,
				Priority:  model.PriorityCritical,
				AreaID:    "south_district",
				CreatedAt: createdAt,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Deadline).To(Equal(createdAt.Add(6 * time.Hour)))
			Expect(res.EscalationHours).To(BeNumerically("==", 12))
			Expect(mockStore.createCalls).To(Equal(0))
		})

		It("rejects unknown enums", func() {
			_, err := svc.Resolve(service.ResolveParams{Category: "graffiti", Priority: model.PriorityLow})
			Expect(err).To(MatchError(service.ErrInvalidInput))
		})
	})

	It("exposes the loaded policy document", func() {
		doc := svc.Policy()
		Expect(doc.Defaults).To(HaveLen(len(model.Categories)))
		Expect(doc.Fallback).To(Equal(policy.Entry{TargetHours: 72, EscalationHours: 96}))
	})

	Describe("Compliance", func() {
		It("aggregates the filtered snapshot", func() {
			from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
			to := from.Add(31 * 24 * time.Hour)
			var gotFilter store.IssueFilter
			mockStore.listForComplianceFn = func(_ context.Context, f store.IssueFilter) ([]model.IssueSLARecord, error) {
				gotFilter = f
				created := from.Add(time.Hour)
				deadline := created.Add(48 * time.Hour)
				resolved := created.Add(10 * time.Hour)
				return []model.IssueSLARecord{{
					ID: "1", Category: model.CategoryPothole, Priority: model.PriorityHigh, AreaID: "downtown",
					Status: model.StatusResolved, CreatedAt: created, SLADeadline: &deadline, ResolvedAt: &resolved,
				}}, nil
			}

			report, err := svc.Compliance(ctx, compliance.Filter{AreaID: "downtown", From: &from, To: &to})

			Expect(err).NotTo(HaveOccurred())
			Expect(gotFilter.AreaID).To(Equal("downtown"))
			Expect(*gotFilter.CreatedFrom).To(Equal(from))
			Expect(*gotFilter.CreatedTo).To(Equal(to))
			Expect(report.Total).To(Equal(1))
			Expect(report.CompliancePercent).To(BeNumerically("==", 100))
		})

		It("rejects an inverted window", func() {
			from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
			to := from.Add(-time.Hour)

			_, err := svc.Compliance(ctx, compliance.Filter{From: &from, To: &to})

			Expect(err).To(MatchError(service.ErrInvalidInput))
		})

		It("wraps store failures", func() {
			mockStore.listForComplianceFn = func(context.Context, store.IssueFilter) ([]model.IssueSLARecord, error) {
				return nil, errors.New("too many connections")
			}

			_, err := svc.Compliance(ctx, compliance.Filter{})

			Expect(err).To(MatchError(ContainSubstring("too many connections")))
		})
	})

	Describe("Sweep", func() {
		It("returns the monitor summary", func() {
			observer.sweepFn = func(context.Context) (monitor.SweepSummary, error) {
				return monitor.SweepSummary{SweepID: 9, Evaluated: 4, Escalated: 1}, nil
			}

			summary, err := svc.Sweep(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Evaluated).To(Equal(4))
			Expect(summary.Escalated).To(Equal(1))
		})

		It("surfaces store outages", func() {
			observer.sweepFn = func(context.Context) (monitor.SweepSummary, error) {
				return monitor.SweepSummary{}, monitor.ErrStoreUnavailable
			}

			_, err := svc.Sweep(ctx)

			Expect(err).To(MatchError(monitor.ErrStoreUnavailable))
		})
	})

	Describe("Evaluate", func() {
		It("observes the stored issue", func() {
			mockStore.getByIDFn = func(_ context.Context, issueID string) (*model.IssueSLARecord, error) {
				return &model.IssueSLARecord{ID: issueID, Status: model.StatusInProgress}, nil
			}

			outcome, err := svc.Evaluate(ctx, "7")

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.IssueID).To(Equal("7"))
			Expect(observer.evaluated).To(Equal([]string{"7"}))
		})

		It("refuses terminal issues", func() {
			mockStore.getByIDFn = func(_ context.Context, issueID string) (*model.IssueSLARecord, error) {
				return &model.IssueSLARecord{ID: issueID, Status: model.StatusResolved}, nil
			}

			_, err := svc.Evaluate(ctx, "7")

			Expect(err).To(MatchError(service.ErrInvalidTransition))
			Expect(observer.evaluated).To(BeEmpty())
		})
	})
})
