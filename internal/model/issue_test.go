package model_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"civicpulse.app/sla/internal/model"
)

var _ = Describe("Issue lifecycle", func() {
	DescribeTable("status transitions",
		func(from, to model.Status, allowed bool) {
			Expect(from.CanTransitionTo(to)).To(Equal(allowed))
		},
		Entry("pending to in_progress", model.StatusPending, model.StatusInProgress, true),
		Entry("pending to escalated", model.StatusPending, model.StatusEscalated, true),
		Entry("in_progress to resolved", model.StatusInProgress, model.StatusResolved, true),
		Entry("escalated to resolved", model.StatusEscalated, model.StatusResolved, true),
		Entry("escalated to escalated", model.StatusEscalated, model.StatusEscalated, false),
		Entry("resolved is terminal", model.StatusResolved, model.StatusInProgress, false),
		Entry("closed is terminal", model.StatusClosed, model.StatusPending, false),
		Entry("in_progress back to pending", model.StatusInProgress, model.StatusPending, false),
	)

	It("treats only resolved and closed as terminal", func() {
		for _, s := range model.Statuses {
			Expect(s.Terminal()).To(Equal(s == model.StatusResolved || s == model.StatusClosed), string(s))
		}
	})

	Describe("parsing", func() {
		It("accepts known values", func() {
			c, err := model.ParseCategory("water_leak")
			Expect(err).NotTo(HaveOccurred())
			Expect(c).To(Equal(model.CategoryWaterLeak))

			p, err := model.ParsePriority("critical")
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(model.PriorityCritical))
		})

		It("rejects unknown values", func() {
			_, err := model.ParseCategory("graffiti")
			Expect(err).To(HaveOccurred())
			_, err = model.ParseStatus("reopened")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Validate", func() {
		created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

		base := func() model.IssueSLARecord {
			deadline := created.Add(24 * time.Hour)
			return model.IssueSLARecord{
				ID:          "1",
				Category:    model.CategoryPothole,
				Priority:    model.PriorityHigh,
				AreaID:      "downtown",
				Status:      model.StatusPending,
				CreatedAt:   created,
				SLADeadline: &deadline,
			}
		}

		It("accepts a well-formed record", func() {
			Expect(base().Validate()).To(Succeed())
		})

		It("rejects a deadline that is not after creation", func() {
			rec := base()
			rec.SLADeadline = &created
			err := rec.Validate()
			Expect(errors.Is(err, model.ErrInvariantViolation)).To(BeTrue())
		})

		It("rejects resolution before creation", func() {
			rec := base()
			before := created.Add(-time.Minute)
			rec.ResolvedAt = &before
			Expect(errors.Is(rec.Validate(), model.ErrInvariantViolation)).To(BeTrue())
		})

		It("rejects unknown enum values", func() {
			rec := base()
			rec.Category = model.Category("graffiti")
			Expect(errors.Is(rec.Validate(), model.ErrInvariantViolation)).To(BeTrue())
		})
	})
})
