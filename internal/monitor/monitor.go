// Package monitor periodically re-evaluates open issues against their SLA
// deadlines, dispatches rate-limited notifications and performs the guarded
// breach transition to escalated.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"civicpulse.app/sla/common/id"
	"civicpulse.app/sla/common/logger"
	"civicpulse.app/sla/internal/model"
	"civicpulse.app/sla/internal/sla"
)

// ErrStoreUnavailable wraps issue store failures seen by the monitor.
var ErrStoreUnavailable = errors.New("issue store unavailable")

type Config struct {
	Interval         time.Duration
	OperationTimeout time.Duration
	WarningCooldown  time.Duration
	ReminderCooldown time.Duration
	Concurrency      int
	StoreAlertAfter  int
	WriteRetries     uint
	RetryInterval    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval:         time.Minute,
		OperationTimeout: 10 * time.Second,
		WarningCooldown:  4 * time.Hour,
		ReminderCooldown: time.Hour,
		Concurrency:      8,
		StoreAlertAfter:  3,
		WriteRetries:     3,
		RetryInterval:    200 * time.Millisecond,
	}
}

type Option func(*Monitor)

func WithCooldownStore(c CooldownStore) Option {
	return func(m *Monitor) { m.cooldowns = c }
}

func WithErrorSink(s ErrorSink) Option {
	return func(m *Monitor) { m.sink = s }
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

type Monitor struct {
	store      IssueStore
	policy     PolicyResolver
	dispatcher Dispatcher
	cooldowns  CooldownStore
	sink       ErrorSink
	cfg        Config
	now        func() time.Time

	mu            sync.Mutex
	listFailures  int
	writeFailures map[string]int

	running   atomic.Bool
	stopOnce  sync.Once
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(store IssueStore, resolver PolicyResolver, dispatcher Dispatcher, cfg Config, opts ...Option) *Monitor {
	defaults := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = defaults.OperationTimeout
	}
	if cfg.WarningCooldown <= 0 {
		cfg.WarningCooldown = defaults.WarningCooldown
	}
	if cfg.ReminderCooldown <= 0 {
		cfg.ReminderCooldown = defaults.ReminderCooldown
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.Concurrency
	}
	if cfg.StoreAlertAfter <= 0 {
		cfg.StoreAlertAfter = defaults.StoreAlertAfter
	}
	if cfg.WriteRetries == 0 {
		cfg.WriteRetries = 1
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaults.RetryInterval
	}

	m := &Monitor{
		store:         store,
		policy:        resolver,
		dispatcher:    dispatcher,
		cooldowns:     NewMemoryCooldowns(),
		sink:          LogSink{},
		cfg:           cfg,
		now:           time.Now,
		writeFailures: make(map[string]int),
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SweepSummary reports what one sweep observed and did.
type SweepSummary struct {
	SweepID       int64                          `json:"sweep_id"`
	StartedAt     time.Time                      `json:"started_at"`
	Duration      time.Duration                  `json:"duration_ns"`
	Evaluated     int                            `json:"evaluated"`
	ByStatus      map[sla.Status]int             `json:"by_status"`
	Notifications map[model.NotificationKind]int `json:"notifications"`
	Escalated     int                            `json:"escalated"`
	Skipped       int                            `json:"skipped"`
	Failed        int                            `json:"failed"`
}

// Outcome is the result of observing a single issue.
type Outcome struct {
	IssueID  string                   `json:"issue_id"`
	Status   sla.Status               `json:"status,omitempty"`
	Notified []model.NotificationKind `json:"notified,omitempty"`
	// Escalated is true only for the observer that won the breach transition.
	Escalated bool  `json:"escalated"`
	Skipped   bool  `json:"skipped"`
	Err       error `json:"-"`
}

// Run sweeps immediately and then on every tick until ctx is cancelled or
// Stop is called. Sweeps run on a context detached from ctx so a sweep in
// progress completes.
func (m *Monitor) Run(ctx context.Context) {
	m.running.Store(true)
	defer close(m.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "sla.monitor"})

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "monitor started",
		"interval", m.cfg.Interval,
		"concurrency", m.cfg.Concurrency,
		"operation_timeout", m.cfg.OperationTimeout)

	// Stop may have been called before this goroutine was scheduled.
	select {
	case <-m.stopCh:
		slog.InfoContext(ctx, "monitor stopping: stop requested")
		return
	default:
	}

	m.runSweep(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "monitor stopping: context cancelled")
			return
		case <-m.stopCh:
			slog.InfoContext(ctx, "monitor stopping: stop requested")
			return
		case <-ticker.C:
			m.runSweep(ctx)
		}
	}
}

// Stop stops scheduling sweeps and waits for the one in progress.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	if m.running.Load() {
		<-m.stoppedCh
	}
}

func (m *Monitor) runSweep(ctx context.Context) {
	if _, err := m.Sweep(context.WithoutCancel(ctx)); err != nil {
		slog.ErrorContext(ctx, "sweep failed", "error", err)
	}
}

// Sweep evaluates every open issue once. It returns an error only when the
// open issues could not be listed; per-issue failures are reported in the
// summary and on the error sink.
func (m *Monitor) Sweep(ctx context.Context) (SweepSummary, error) {
	start := m.now()
	summary := SweepSummary{
		SweepID:       id.New(),
		StartedAt:     start,
		ByStatus:      make(map[sla.Status]int),
		Notifications: make(map[model.NotificationKind]int),
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SweepID:   logger.Ptr(summary.SweepID),
		Component: "sla.monitor",
	})
	span := logger.StartSpan(ctx, "monitor.sweep", attribute.Int64("sweep.id", summary.SweepID))
	defer span.End()
	ctx = span.Context()

	listCtx, cancel := context.WithTimeout(ctx, m.cfg.OperationTimeout)
	issues, err := m.store.ListOpenWithDeadlines(listCtx)
	cancel()
	if err != nil {
		span.Fail(err)
		m.recordListFailure(ctx, err)
		sweepsTotal.WithLabelValues("store_error").Inc()
		return summary, fmt.Errorf("%w: listing open issues: %w", ErrStoreUnavailable, err)
	}
	m.resetListFailures()

	outcomes := make([]Outcome, len(issues))
	var g errgroup.Group
	g.SetLimit(m.cfg.Concurrency)
	for i := range issues {
		g.Go(func() error {
			outcomes[i] = m.evaluateSafe(ctx, issues[i], start)
			return nil
		})
	}
	_ = g.Wait()

	open := make(map[string]struct{}, len(issues))
	for _, issue := range issues {
		open[issue.ID] = struct{}{}
	}
	if err := m.cooldowns.Retain(ctx, open); err != nil {
		slog.WarnContext(ctx, "cooldown housekeeping failed", "error", err)
	}
	m.pruneWriteFailures(open)

	for _, o := range outcomes {
		switch {
		case o.Skipped:
			summary.Skipped++
		default:
			summary.Evaluated++
			summary.ByStatus[o.Status]++
		}
		if o.Err != nil {
			summary.Failed++
		}
		if o.Escalated {
			summary.Escalated++
		}
		for _, kind := range o.Notified {
			summary.Notifications[kind]++
		}
	}
	summary.Duration = m.now().Sub(start)

	for _, status := range []sla.Status{sla.StatusCompliant, sla.StatusWarning, sla.StatusCritical, sla.StatusBreached} {
		openIssues.WithLabelValues(string(status)).Set(float64(summary.ByStatus[status]))
	}
	sweepDuration.Observe(summary.Duration.Seconds())
	sweepsTotal.WithLabelValues("ok").Inc()

	slog.InfoContext(ctx, "sweep completed",
		"open_issues", len(issues),
		"evaluated", summary.Evaluated,
		"escalated", summary.Escalated,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"duration_ms", summary.Duration.Milliseconds())

	return summary, nil
}

// Evaluate performs a single observation of one issue at the current time.
func (m *Monitor) Evaluate(ctx context.Context, issue model.IssueSLARecord) Outcome {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "sla.monitor"})
	return m.evaluateSafe(ctx, issue, m.now())
}

func (m *Monitor) evaluateSafe(ctx context.Context, issue model.IssueSLARecord, now time.Time) (out Outcome) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		IssueID: logger.Ptr(issue.ID),
		AreaID:  logger.Ptr(issue.AreaID),
	})

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic evaluating issue: %v", r)
			slog.ErrorContext(ctx, "panic evaluating issue", "panic", r)
			m.report(ctx, model.OperatorAlert{
				Kind:    model.AlertPanic,
				IssueID: issue.ID,
				Message: "issue evaluation panicked",
				Error:   err.Error(),
			})
			out = Outcome{IssueID: issue.ID, Skipped: true, Err: err}
		}
	}()

	span := logger.StartSpan(ctx, "monitor.evaluate_issue",
		attribute.String("issue.id", issue.ID),
		attribute.String("issue.category", string(issue.Category)),
		attribute.String("issue.priority", string(issue.Priority)),
	)
	defer span.End()

	out = m.evaluate(span.Context(), issue, now)
	if out.Err != nil {
		span.Fail(out.Err)
	}
	return out
}

func (m *Monitor) evaluate(ctx context.Context, issue model.IssueSLARecord, now time.Time) Outcome {
	out := Outcome{IssueID: issue.ID}

	if issue.SLADeadline == nil {
		out.Skipped = true
		return out
	}
	if err := issue.Validate(); err != nil {
		return m.invariantViolation(ctx, issue, err)
	}
	if issue.Status.Terminal() {
		return m.invariantViolation(ctx, issue,
			fmt.Errorf("%w: terminal issue %s offered for evaluation", model.ErrInvariantViolation, issue.Status))
	}
	if issue.Status == model.StatusEscalated && issue.EscalatedAt == nil {
		return m.invariantViolation(ctx, issue,
			fmt.Errorf("%w: escalated issue has no escalated_at", model.ErrInvariantViolation))
	}

	escalationHours := m.policy.EscalationHours(issue.Category, issue.Priority)
	assessment := sla.Evaluate(now, *issue.SLADeadline, escalationHours, issue.ResolvedAt)
	out.Status = assessment.Status

	switch assessment.Status {
	case sla.StatusWarning:
		m.notifyWithCooldown(ctx, issue, assessment, model.NotificationWarning, m.cfg.WarningCooldown, now, &out)
	case sla.StatusCritical:
		if issue.Priority == model.PriorityCritical {
			m.notifyWithCooldown(ctx, issue, assessment, model.NotificationCriticalWarning, m.cfg.WarningCooldown, now, &out)
		}
	case sla.StatusBreached:
		if issue.EscalatedAt == nil {
			m.escalate(ctx, issue, assessment, now, &out)
		} else {
			m.notifyWithCooldown(ctx, issue, assessment, model.NotificationReminder, m.cfg.ReminderCooldown, now, &out)
		}
	}

	return out
}

func (m *Monitor) invariantViolation(ctx context.Context, issue model.IssueSLARecord, err error) Outcome {
	slog.ErrorContext(ctx, "issue violates SLA invariants, skipping", "error", err)
	m.report(ctx, model.OperatorAlert{
		Kind:    model.AlertInvariantViolation,
		IssueID: issue.ID,
		Message: "issue skipped",
		Error:   err.Error(),
	})
	return Outcome{IssueID: issue.ID, Skipped: true, Err: err}
}

func (m *Monitor) escalate(ctx context.Context, issue model.IssueSLARecord, a sla.Assessment, now time.Time, out *Outcome) {
	var failedAttempt bool
	result, err := backoff.Retry(ctx, func() (model.UpdateResult, error) {
		opCtx, cancel := context.WithTimeout(ctx, m.cfg.OperationTimeout)
		defer cancel()
		res, err := m.store.MarkEscalated(opCtx, issue.ID, now)
		if err != nil {
			failedAttempt = true
		}
		return res, err
	},
		backoff.WithBackOff(m.newBackOff()),
		backoff.WithMaxTries(m.cfg.WriteRetries),
	)
	if err != nil {
		escalationsTotal.WithLabelValues("error").Inc()
		out.Err = fmt.Errorf("%w: marking issue escalated: %w", ErrStoreUnavailable, err)
		slog.WarnContext(ctx, "escalation write failed, will retry next sweep", "error", err)
		m.recordWriteFailure(ctx, issue.ID, err)
		return
	}
	m.clearWriteFailure(issue.ID)

	// A failed attempt may have committed before the client gave up. The
	// retry then loses the guard to our own write.
	if result == model.UpdateConditionFailed && failedAttempt && m.escalatedAt(ctx, issue.ID, now) {
		result = model.UpdateApplied
	}

	if result == model.UpdateConditionFailed {
		escalationsTotal.WithLabelValues("condition_failed").Inc()
		slog.InfoContext(ctx, "escalation already recorded by another observer")
		return
	}

	escalationsTotal.WithLabelValues("applied").Inc()
	out.Escalated = true
	slog.InfoContext(ctx, "issue escalated", "hours_overdue", a.HoursOverdue)

	// Arm the reminder window so the first reminder follows the escalation by a full cooldown.
	if _, err := m.cooldowns.Acquire(ctx, issue.ID, model.NotificationReminder, now, m.cfg.ReminderCooldown); err != nil {
		slog.WarnContext(ctx, "arming reminder cooldown failed", "error", err)
	}

	n := m.buildNotification(issue, model.NotificationEscalation, a, now)
	if err := m.dispatch(ctx, n); err != nil {
		return
	}
	out.Notified = append(out.Notified, n.Kind)
}

// escalatedAt reports whether the stored escalation carries this sweep's timestamp.
func (m *Monitor) escalatedAt(ctx context.Context, issueID string, at time.Time) bool {
	opCtx, cancel := context.WithTimeout(ctx, m.cfg.OperationTimeout)
	defer cancel()

	stored, err := m.store.GetByID(opCtx, issueID)
	if err != nil {
		slog.WarnContext(ctx, "re-reading escalation failed", "error", err)
		return false
	}
	if stored.EscalatedAt == nil {
		return false
	}
	return stored.EscalatedAt.Sub(at).Abs() < time.Millisecond
}

func (m *Monitor) notifyWithCooldown(
	ctx context.Context,
	issue model.IssueSLARecord,
	a sla.Assessment,
	kind model.NotificationKind,
	window time.Duration,
	now time.Time,
	out *Outcome,
) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{AlertKind: logger.Ptr(string(kind))})

	opCtx, cancel := context.WithTimeout(ctx, m.cfg.OperationTimeout)
	acquired, err := m.cooldowns.Acquire(opCtx, issue.ID, kind, now, window)
	cancel()
	if err != nil {
		notificationsTotal.WithLabelValues(string(kind), "cooldown_error").Inc()
		slog.WarnContext(ctx, "cooldown check failed, skipping notification", "error", err)
		out.Err = err
		return
	}
	if !acquired {
		notificationsTotal.WithLabelValues(string(kind), "suppressed").Inc()
		return
	}

	n := m.buildNotification(issue, kind, a, now)
	if err := m.dispatch(ctx, n); err != nil {
		if relErr := m.cooldowns.Release(ctx, issue.ID, kind); relErr != nil {
			slog.WarnContext(ctx, "releasing cooldown failed", "error", relErr)
		}
		return
	}
	out.Notified = append(out.Notified, kind)
}

func (m *Monitor) dispatch(ctx context.Context, n model.Notification) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{AlertKind: logger.Ptr(string(n.Kind))})

	opCtx, cancel := context.WithTimeout(ctx, m.cfg.OperationTimeout)
	defer cancel()

	if err := m.dispatcher.Dispatch(opCtx, n); err != nil {
		notificationsTotal.WithLabelValues(string(n.Kind), "failed").Inc()
		slog.WarnContext(ctx, "notification dispatch failed", "error", err, "recipient", n.Recipient)
		m.report(ctx, model.OperatorAlert{
			Kind:    model.AlertDispatchFailure,
			IssueID: n.IssueID,
			Message: fmt.Sprintf("%s notification not delivered", n.Kind),
			Error:   err.Error(),
		})
		return err
	}

	notificationsTotal.WithLabelValues(string(n.Kind), "sent").Inc()
	slog.InfoContext(ctx, "notification dispatched", "notification_id", n.ID, "recipient", n.Recipient)
	return nil
}

func (m *Monitor) buildNotification(issue model.IssueSLARecord, kind model.NotificationKind, a sla.Assessment, now time.Time) model.Notification {
	meta := model.NotificationMetadata{
		Title:          issue.Title,
		AreaID:         issue.AreaID,
		Category:       issue.Category,
		Priority:       issue.Priority,
		Deadline:       a.Deadline,
		HoursRemaining: a.HoursRemaining,
		HoursOverdue:   a.HoursOverdue,
	}
	if area, ok := m.policy.Area(issue.AreaID); ok {
		meta.AreaName = area.Name
	}

	return model.Notification{
		ID:        id.NewString(),
		Kind:      kind,
		IssueID:   issue.ID,
		Recipient: Recipient(issue, kind),
		Metadata:  meta,
		CreatedAt: now,
	}
}

// Recipient routes warnings to the assignee (or a supervisor when nobody is
// assigned) and escalations and reminders to an admin.
func Recipient(issue model.IssueSLARecord, kind model.NotificationKind) string {
	switch kind {
	case model.NotificationWarning, model.NotificationCriticalWarning:
		if issue.AssignedTo != "" {
			return issue.AssignedTo
		}
		return model.RoleSupervisor
	default:
		return model.RoleAdmin
	}
}

func (m *Monitor) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.cfg.RetryInterval
	b.MaxInterval = m.cfg.OperationTimeout
	return b
}

func (m *Monitor) report(ctx context.Context, alert model.OperatorAlert) {
	if alert.At.IsZero() {
		alert.At = m.now()
	}
	operatorAlertsTotal.WithLabelValues(string(alert.Kind)).Inc()
	m.sink.Report(ctx, alert)
}

func (m *Monitor) recordListFailure(ctx context.Context, err error) {
	m.mu.Lock()
	m.listFailures++
	n := m.listFailures
	m.mu.Unlock()

	slog.WarnContext(ctx, "listing open issues failed", "error", err, "consecutive_failures", n)
	if n%m.cfg.StoreAlertAfter == 0 {
		m.report(ctx, model.OperatorAlert{
			Kind:                model.AlertStoreUnavailable,
			Message:             "open issues could not be listed",
			Error:               err.Error(),
			ConsecutiveFailures: n,
		})
	}
}

func (m *Monitor) resetListFailures() {
	m.mu.Lock()
	m.listFailures = 0
	m.mu.Unlock()
}

func (m *Monitor) recordWriteFailure(ctx context.Context, issueID string, err error) {
	m.mu.Lock()
	m.writeFailures[issueID]++
	n := m.writeFailures[issueID]
	m.mu.Unlock()

	if n%m.cfg.StoreAlertAfter == 0 {
		m.report(ctx, model.OperatorAlert{
			Kind:                model.AlertEscalationWriteFailed,
			IssueID:             issueID,
			Message:             "breached issue could not be escalated",
			Error:               err.Error(),
			ConsecutiveFailures: n,
		})
	}
}

func (m *Monitor) clearWriteFailure(issueID string) {
	m.mu.Lock()
	delete(m.writeFailures, issueID)
	m.mu.Unlock()
}

func (m *Monitor) pruneWriteFailures(open map[string]struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for issueID := range m.writeFailures {
		if _, ok := open[issueID]; !ok {
			delete(m.writeFailures, issueID)
		}
	}
}
