package monitor_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"civicpulse.app/sla/internal/model"
	"civicpulse.app/sla/internal/monitor"
	"civicpulse.app/sla/internal/policy"
	"civicpulse.app/sla/internal/sla"
)

var _ = Describe("Monitor", func() {
	var (
		ctx        context.Context
		clock      *testClock
		table      *policy.Table
		store      *memoryIssueStore
		dispatcher *recordingDispatcher
		sink       *recordingSink
		cfg        monitor.Config
	)

	// issue builds a record created a week ago with the deadline offset from now.
	issue := func(id string, category model.Category, priority model.Priority, untilDeadline time.Duration) model.IssueSLARecord {
		now := clock.Now()
		deadline := now.Add(untilDeadline)
		return model.IssueSLARecord{
			ID:          id,
			Title:       "Issue " + id,
			Category:    category,
			Priority:    priority,
			AreaID:      "downtown",
			Status:      model.StatusPending,
			CreatedAt:   now.Add(-7 * 24 * time.Hour),
			SLADeadline: &deadline,
		}
	}

	newMonitor := func(opts ...monitor.Option) *monitor.Monitor {
		opts = append([]monitor.Option{
			monitor.WithClock(clock.Now),
			monitor.WithErrorSink(sink),
		}, opts...)
		return monitor.New(store, table, dispatcher, cfg, opts...)
	}

	BeforeEach(func() {
		ctx = context.Background()
		clock = &testClock{now: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)}

		var err error
		table, err = policy.Default()
		Expect(err).NotTo(HaveOccurred())

		store = newMemoryIssueStore()
		dispatcher = &recordingDispatcher{}
		sink = &recordingSink{}
		cfg = monitor.DefaultConfig()
		cfg.RetryInterval = time.Millisecond
		cfg.OperationTimeout = time.Second
	})

	Describe("Sweep", func() {
		It("does nothing for compliant issues", func() {
			store.put(issue("1", model.CategoryPothole, model.PriorityHigh, 100*time.Hour))

			summary, err := newMonitor().Sweep(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Evaluated).To(Equal(1))
			Expect(summary.ByStatus[sla.StatusCompliant]).To(Equal(1))
			Expect(dispatcher.Sent()).To(BeEmpty())
		})

		Context("when an issue is in the warning band", func() {
			It("sends one warning to the assignee per cooldown window", func() {
				i := issue("1", model.CategoryPothole, model.PriorityHigh, 60*time.Hour)
				i.AssignedTo = "staff-42"
				store.put(i)
				m := newMonitor()

				_, err := m.Sweep(ctx)
				Expect(err).NotTo(HaveOccurred())
				_, err = m.Sweep(ctx)
				Expect(err).NotTo(HaveOccurred())

				sent := dispatcher.Sent()
				Expect(sent).To(HaveLen(1))
				Expect(sent[0].Kind).To(Equal(model.NotificationWarning))
				Expect(sent[0].Recipient).To(Equal("staff-42"))
				Expect(sent[0].IssueID).To(Equal("1"))
				Expect(sent[0].Metadata.AreaName).To(Equal("Downtown"))
				Expect(sent[0].Metadata.HoursRemaining).To(BeNumerically("==", 60))

				clock.Advance(4 * time.Hour)
				_, err = m.Sweep(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(dispatcher.Kinds()).To(Equal([]model.NotificationKind{
					model.NotificationWarning, model.NotificationWarning,
				}))
			})

			It("routes to a supervisor when nobody is assigned", func() {
				store.put(issue("1", model.CategoryPothole, model.PriorityHigh, 60*time.Hour))

				_, err := newMonitor().Sweep(ctx)

				Expect(err).NotTo(HaveOccurred())
				Expect(dispatcher.Sent()).To(HaveLen(1))
				Expect(dispatcher.Sent()[0].Recipient).To(Equal(model.RoleSupervisor))
			})
		})

		Context("when an issue is in the critical band", func() {
			It("sends a critical warning for critical priority", func() {
				store.put(issue("1", model.CategoryWaterLeak, model.PriorityCritical, 3*time.Hour))
				m := newMonitor()

				summary, err := m.Sweep(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(summary.ByStatus[sla.StatusCritical]).To(Equal(1))
				Expect(summary.Notifications[model.NotificationCriticalWarning]).To(Equal(1))

				_, err = m.Sweep(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(dispatcher.Kinds()).To(Equal([]model.NotificationKind{model.NotificationCriticalWarning}))
			})

			It("stays quiet for lower priorities", func() {
				store.put(issue("1", model.CategoryPothole, model.PriorityHigh, 10*time.Hour))

				summary, err := newMonitor().Sweep(ctx)

				Expect(err).NotTo(HaveOccurred())
				Expect(summary.ByStatus[sla.StatusCritical]).To(Equal(1))
				Expect(dispatcher.Sent()).To(BeEmpty())
			})
		})

		Context("when an issue is breached", func() {
			It("escalates once and then sends hourly reminders", func() {
				store.put(issue("1", model.CategoryPothole, model.PriorityHigh, -2*time.Hour))
				m := newMonitor()

				summary, err := m.Sweep(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(summary.Escalated).To(Equal(1))

				escalated := store.get("1")
				Expect(escalated.Status).To(Equal(model.StatusEscalated))
				Expect(escalated.EscalatedAt).NotTo(BeNil())
				Expect(*escalated.EscalatedAt).To(Equal(clock.Now()))

				sent := dispatcher.Sent()
				Expect(sent).To(HaveLen(1))
				Expect(sent[0].Kind).To(Equal(model.NotificationEscalation))
				Expect(sent[0].Recipient).To(Equal(model.RoleAdmin))
				Expect(sent[0].Metadata.HoursOverdue).To(BeNumerically("==", 2))

				summary, err = m.Sweep(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(summary.Escalated).To(Equal(0))
				Expect(dispatcher.Sent()).To(HaveLen(1))

				clock.Advance(time.Hour)
				_, err = m.Sweep(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(dispatcher.Kinds()).To(Equal([]model.NotificationKind{
					model.NotificationEscalation, model.NotificationReminder,
				}))
				Expect(store.appliedWrites).To(Equal(1))
			})

			It("escalates each issue exactly once across concurrent observers", func() {
				for i := 0; i < 10; i++ {
					store.put(issue(fmt.Sprintf("issue-%d", i), model.CategoryDrainage, model.PriorityMedium, -time.Hour))
				}
				observers := []*monitor.Monitor{newMonitor(), newMonitor(), newMonitor()}

				var wg sync.WaitGroup
				for _, m := range observers {
					for j := 0; j < 2; j++ {
						wg.Add(1)
						go func(m *monitor.Monitor) {
							defer GinkgoRecover()
							defer wg.Done()
							_, err := m.Sweep(ctx)
							Expect(err).NotTo(HaveOccurred())
						}(m)
					}
				}
				wg.Wait()

				escalations := map[string]int{}
				for _, n := range dispatcher.Sent() {
					if n.Kind == model.NotificationEscalation {
						escalations[n.IssueID]++
					}
				}
				Expect(escalations).To(HaveLen(10))
				for issueID, count := range escalations {
					Expect(count).To(Equal(1), "issue %s", issueID)
				}
				Expect(store.appliedWrites).To(Equal(10))
			})

			It("does not notify when another observer already escalated", func() {
				i := issue("1", model.CategoryPothole, model.PriorityHigh, -time.Hour)
				store.put(i)
				stale := i

				_, err := newMonitor().Sweep(ctx)
				Expect(err).NotTo(HaveOccurred())

				out := newMonitor().Evaluate(ctx, stale)

				Expect(out.Status).To(Equal(sla.StatusBreached))
				Expect(out.Escalated).To(BeFalse())
				Expect(out.Notified).To(BeEmpty())
				Expect(dispatcher.Sent()).To(HaveLen(1))
			})
		})

		Context("when dispatch fails", func() {
			It("still records the escalation and reports the failure", func() {
				store.put(issue("1", model.CategoryPothole, model.PriorityHigh, -time.Hour))
				dispatcher.dispatchFn = func(context.Context, model.Notification) error {
					return errors.New("webhook down")
				}
				m := newMonitor()

				summary, err := m.Sweep(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(summary.Escalated).To(Equal(1))
				Expect(store.get("1").Status).To(Equal(model.StatusEscalated))
				Expect(sink.Kinds()).To(ConsistOf(model.AlertDispatchFailure))

				_, err = m.Sweep(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(dispatcher.Attempts()).To(Equal(1))
			})

			It("releases the warning cooldown so the next sweep retries", func() {
				store.put(issue("1", model.CategoryPothole, model.PriorityHigh, 60*time.Hour))
				failures := 1
				dispatcher.dispatchFn = func(context.Context, model.Notification) error {
					if failures > 0 {
						failures--
						return errors.New("timeout")
					}
					return nil
				}
				m := newMonitor()

				_, err := m.Sweep(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(dispatcher.Sent()).To(BeEmpty())

				_, err = m.Sweep(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(dispatcher.Attempts()).To(Equal(2))
				Expect(dispatcher.Kinds()).To(Equal([]model.NotificationKind{model.NotificationWarning}))
			})

			It("bounds a hung dispatcher by the operation timeout", func() {
				store.put(issue("1", model.CategoryPothole, model.PriorityHigh, 60*time.Hour))
				store.put(issue("2", model.CategoryPothole, model.PriorityHigh, 100*time.Hour))
				cfg.OperationTimeout = 20 * time.Millisecond
				dispatcher.dispatchFn = func(ctx context.Context, _ model.Notification) error {
					<-ctx.Done()
					return ctx.Err()
				}

				summary, err := newMonitor().Sweep(ctx)

				Expect(err).NotTo(HaveOccurred())
				Expect(summary.Evaluated).To(Equal(2))
				Expect(sink.Kinds()).To(ConsistOf(model.AlertDispatchFailure))
			})
		})

		Context("when the store fails", func() {
			It("reports the store unavailable after consecutive failed sweeps", func() {
				cfg.StoreAlertAfter = 3
				store.listFn = func(context.Context) error { return errors.New("connection refused") }
				m := newMonitor()

				for i := 0; i < 2; i++ {
					_, err := m.Sweep(ctx)
					Expect(err).To(MatchError(monitor.ErrStoreUnavailable))
				}
				Expect(sink.Alerts()).To(BeEmpty())

				_, err := m.Sweep(ctx)
				Expect(err).To(MatchError(monitor.ErrStoreUnavailable))
				alerts := sink.Alerts()
				Expect(alerts).To(HaveLen(1))
				Expect(alerts[0].Kind).To(Equal(model.AlertStoreUnavailable))
				Expect(alerts[0].ConsecutiveFailures).To(Equal(3))

				store.listFn = nil
				_, err = m.Sweep(ctx)
				Expect(err).NotTo(HaveOccurred())

				store.listFn = func(context.Context) error { return errors.New("connection refused") }
				for i := 0; i < 2; i++ {
					_, _ = m.Sweep(ctx)
				}
				Expect(sink.Alerts()).To(HaveLen(1))
			})

			It("retries the escalation write and leaves the issue for the next sweep", func() {
				cfg.WriteRetries = 2
				store.put(issue("1", model.CategoryPothole, model.PriorityHigh, -time.Hour))
				store.markFn = func(context.Context, string) error { return errors.New("deadlock detected") }
				m := newMonitor()

				summary, err := m.Sweep(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(summary.Failed).To(Equal(1))
				Expect(summary.Escalated).To(Equal(0))
				Expect(store.markCalls).To(Equal(2))
				Expect(store.get("1").Status).To(Equal(model.StatusPending))
				Expect(dispatcher.Sent()).To(BeEmpty())

				store.markFn = nil
				summary, err = m.Sweep(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(summary.Escalated).To(Equal(1))
				Expect(dispatcher.Kinds()).To(Equal([]model.NotificationKind{model.NotificationEscalation}))
			})

			It("notifies when a timed-out write had already committed", func() {
				cfg.WriteRetries = 3
				store.put(issue("1", model.CategoryPothole, model.PriorityHigh, -time.Hour))
				committed := false
				store.markFn = func(_ context.Context, id string) error {
					if committed {
						return nil
					}
					committed = true
					landed := store.get(id)
					at := clock.Now()
					landed.Status = model.StatusEscalated
					landed.EscalatedAt = &at
					store.put(landed)
					return context.DeadlineExceeded
				}

				summary, err := newMonitor().Sweep(ctx)

				Expect(err).NotTo(HaveOccurred())
				Expect(summary.Escalated).To(Equal(1))
				Expect(summary.Failed).To(Equal(0))
				Expect(store.markCalls).To(Equal(2))
				Expect(dispatcher.Kinds()).To(Equal([]model.NotificationKind{model.NotificationEscalation}))
			})

			It("stays silent when another observer won after a failed write", func() {
				cfg.WriteRetries = 3
				store.put(issue("1", model.CategoryPothole, model.PriorityHigh, -time.Hour))
				failed := false
				store.markFn = func(_ context.Context, id string) error {
					if failed {
						return nil
					}
					failed = true
					other := store.get(id)
					at := clock.Now().Add(-time.Minute)
					other.Status = model.StatusEscalated
					other.EscalatedAt = &at
					store.put(other)
					return errors.New("connection reset")
				}

				summary, err := newMonitor().Sweep(ctx)

				Expect(err).NotTo(HaveOccurred())
				Expect(summary.Escalated).To(Equal(0))
				Expect(dispatcher.Sent()).To(BeEmpty())
			})
		})

		It("skips and reports issues that violate invariants", func() {
			bad := issue("bad", model.CategoryPothole, model.PriorityHigh, 0)
			past := bad.CreatedAt.Add(-time.Hour)
			bad.SLADeadline = &past
			store.put(bad)
			store.put(issue("good", model.CategoryPothole, model.PriorityHigh, 60*time.Hour))

			summary, err := newMonitor().Sweep(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Skipped).To(Equal(1))
			Expect(summary.Evaluated).To(Equal(1))
			Expect(sink.Kinds()).To(ConsistOf(model.AlertInvariantViolation))
			Expect(dispatcher.Sent()).To(HaveLen(1))
			Expect(dispatcher.Sent()[0].IssueID).To(Equal("good"))
		})

		It("recovers a panic in one issue without affecting the others", func() {
			store.put(issue("boom", model.CategoryPothole, model.PriorityHigh, 60*time.Hour))
			store.put(issue("fine", model.CategoryPothole, model.PriorityHigh, 60*time.Hour))
			dispatcher.dispatchFn = func(_ context.Context, n model.Notification) error {
				if n.IssueID == "boom" {
					panic("nil map in formatter")
				}
				return nil
			}

			summary, err := newMonitor().Sweep(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Failed).To(Equal(1))
			Expect(sink.Kinds()).To(ContainElement(model.AlertPanic))
			Expect(dispatcher.Sent()).To(HaveLen(1))
			Expect(dispatcher.Sent()[0].IssueID).To(Equal("fine"))
		})

		It("is idempotent when nothing changes between sweeps", func() {
			store.put(issue("w", model.CategoryPothole, model.PriorityHigh, 60*time.Hour))
			store.put(issue("c", model.CategoryWaterLeak, model.PriorityCritical, time.Hour))
			store.put(issue("b", model.CategoryDebris, model.PriorityLow, -time.Hour))
			m := newMonitor()

			_, err := m.Sweep(ctx)
			Expect(err).NotTo(HaveOccurred())
			first := len(dispatcher.Sent())

			for i := 0; i < 5; i++ {
				_, err := m.Sweep(ctx)
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(first).To(Equal(3))
			Expect(dispatcher.Sent()).To(HaveLen(first))
		})
	})

	Describe("Evaluate", func() {
		It("observes a single issue", func() {
			out := newMonitor().Evaluate(ctx, issue("1", model.CategoryPothole, model.PriorityHigh, 60*time.Hour))

			Expect(out.Err).NotTo(HaveOccurred())
			Expect(out.Status).To(Equal(sla.StatusWarning))
			Expect(out.Notified).To(Equal([]model.NotificationKind{model.NotificationWarning}))
		})

		It("refuses terminal issues", func() {
			i := issue("1", model.CategoryPothole, model.PriorityHigh, -time.Hour)
			i.Status = model.StatusClosed

			out := newMonitor().Evaluate(ctx, i)

			Expect(out.Skipped).To(BeTrue())
			Expect(out.Err).To(MatchError(model.ErrInvariantViolation))
			Expect(sink.Kinds()).To(ConsistOf(model.AlertInvariantViolation))
			Expect(store.markCalls).To(Equal(0))
		})

		It("skips issues without a deadline", func() {
			i := issue("1", model.CategoryPothole, model.PriorityHigh, 0)
			i.SLADeadline = nil

			out := newMonitor().Evaluate(ctx, i)

			Expect(out.Skipped).To(BeTrue())
			Expect(out.Err).NotTo(HaveOccurred())
			Expect(sink.Alerts()).To(BeEmpty())
		})
	})

	Describe("Run", func() {
		It("sweeps on every tick until stopped", func() {
			cfg.Interval = 10 * time.Millisecond
			store.put(issue("1", model.CategoryPothole, model.PriorityHigh, 60*time.Hour))
			m := newMonitor()

			go m.Run(ctx)

			Eventually(dispatcher.Attempts).Should(Equal(1))
			store.put(issue("2", model.CategoryPothole, model.PriorityHigh, 60*time.Hour))
			Eventually(dispatcher.Attempts).Should(Equal(2))

			m.Stop()
			Consistently(dispatcher.Attempts, 50*time.Millisecond).Should(Equal(2))
		})

		It("does not sweep when stopped before the loop starts", func() {
			cfg.Interval = 10 * time.Millisecond
			store.put(issue("1", model.CategoryPothole, model.PriorityHigh, 60*time.Hour))
			m := newMonitor()

			m.Stop()
			done := make(chan struct{})
			go func() {
				defer close(done)
				m.Run(ctx)
			}()

			Eventually(done).Should(BeClosed())
			Expect(store.markCalls).To(Equal(0))
			Expect(dispatcher.Attempts()).To(Equal(0))
		})

		It("returns from Stop when never started", func() {
			m := newMonitor()
			Expect(m.Stop).NotTo(Panic())
		})
	})

	DescribeTable("Recipient",
		func(kind model.NotificationKind, assignee string, expected string) {
			i := model.IssueSLARecord{ID: "1", AssignedTo: assignee}
			Expect(monitor.Recipient(i, kind)).To(Equal(expected))
		},
		Entry("warning to assignee", model.NotificationWarning, "staff-1", "staff-1"),
		Entry("warning without assignee", model.NotificationWarning, "", model.RoleSupervisor),
		Entry("critical warning to assignee", model.NotificationCriticalWarning, "staff-1", "staff-1"),
		Entry("escalation to admin", model.NotificationEscalation, "staff-1", model.RoleAdmin),
		Entry("reminder to admin", model.NotificationReminder, "", model.RoleAdmin),
	)
})
