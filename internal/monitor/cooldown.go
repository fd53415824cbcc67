package monitor

import (
	"context"
	"sync"
	"time"

	"civicpulse.app/sla/internal/model"
)

// CooldownStore rate-limits notifications per (issue, kind).
//
// Acquire claims the slot when it is free at now and holds it for window.
// The claim happens before dispatch so that concurrent observers sharing a
// store send at most one notification per window.
type CooldownStore interface {
	Acquire(ctx context.Context, issueID string, kind model.NotificationKind, now time.Time, window time.Duration) (bool, error)
	Release(ctx context.Context, issueID string, kind model.NotificationKind) error
	// Retain drops state for issues that are no longer open.
	Retain(ctx context.Context, open map[string]struct{}) error
}

// cooldownRecord is the per-issue EscalationCooldownState.
type cooldownRecord struct {
	lastWarningSentAt         *time.Time
	lastCriticalWarningSentAt *time.Time
	lastReminderSentAt        *time.Time
}

func (r *cooldownRecord) slot(kind model.NotificationKind) **time.Time {
	switch kind {
	case model.NotificationWarning:
		return &r.lastWarningSentAt
	case model.NotificationCriticalWarning:
		return &r.lastCriticalWarningSentAt
	case model.NotificationReminder:
		return &r.lastReminderSentAt
	default:
		return nil
	}
}

// MemoryCooldowns keeps cooldown state in process memory. A restart forgets
// it, which costs at most one extra notification per (issue, kind).
type MemoryCooldowns struct {
	mu      sync.Mutex
	records map[string]*cooldownRecord
}

func NewMemoryCooldowns() *MemoryCooldowns {
	return &MemoryCooldowns{records: make(map[string]*cooldownRecord)}
}

func (c *MemoryCooldowns) Acquire(_ context.Context, issueID string, kind model.NotificationKind, now time.Time, window time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[issueID]
	if !ok {
		rec = &cooldownRecord{}
		c.records[issueID] = rec
	}

	slot := rec.slot(kind)
	if slot == nil {
		// Escalations are guarded by escalated_at, not by a cooldown.
		return true, nil
	}
	if last := *slot; last != nil && now.Sub(*last) < window {
		return false, nil
	}
	at := now
	*slot = &at
	return true, nil
}

func (c *MemoryCooldowns) Release(_ context.Context, issueID string, kind model.NotificationKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rec, ok := c.records[issueID]; ok {
		if slot := rec.slot(kind); slot != nil {
			*slot = nil
		}
	}
	return nil
}

func (c *MemoryCooldowns) Retain(_ context.Context, open map[string]struct{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id := range c.records {
		if _, ok := open[id]; !ok {
			delete(c.records, id)
		}
	}
	return nil
}

// Len reports how many issues currently hold cooldown state.
func (c *MemoryCooldowns) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}
