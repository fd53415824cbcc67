package model

import (
	"errors"
	"fmt"
	"time"
)

type (
	Category string
	Priority string
	Status   string
)

const (
	CategoryPothole       Category = "pothole"
	CategoryStreetLight   Category = "street_light"
	CategoryWaterLeak     Category = "water_leak"
	CategoryTrafficSignal Category = "traffic_signal"
	CategorySidewalk      Category = "sidewalk"
	CategoryDrainage      Category = "drainage"
	CategoryDebris        Category = "debris"
	CategoryOther         Category = "other"
)

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusEscalated  Status = "escalated"
	StatusClosed     Status = "closed"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryPothole,
	CategoryStreetLight,
	CategoryWaterLeak,
	CategoryTrafficSignal,
	CategorySidewalk,
	CategoryDrainage,
	CategoryDebris,
	CategoryOther,
}

// Priorities lists every priority from least to most urgent.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Statuses lists every issue status.
var Statuses = []Status{StatusPending, StatusInProgress, StatusResolved, StatusEscalated, StatusClosed}

// ErrInvariantViolation marks a record that breaks a data-model invariant.
// Processing of that single issue stops; nothing else is affected.
var ErrInvariantViolation = errors.New("invariant violation")

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusClosed
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusResolved, StatusClosed, StatusEscalated},
	StatusInProgress: {StatusResolved, StatusClosed, StatusEscalated},
	StatusEscalated:  {StatusInProgress, StatusResolved, StatusClosed},
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle step.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IssueSLARecord is the slice of an issue the SLA core reads and writes.
type IssueSLARecord struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Category    Category   `json:"category"`
	Priority    Priority   `json:"priority"`
	AreaID      string     `json:"area_id"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	SLADeadline *time.Time `json:"sla_deadline,omitempty"`
	EscalatedAt *time.Time `json:"escalated_at,omitempty"`
}

// Validate checks the invariants the monitor relies on.
func (r IssueSLARecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvariantViolation)
	}
	if !r.Category.Valid() || !r.Priority.Valid() || !r.Status.Valid() {
		return fmt.Errorf("%w: invalid enum on issue %s", ErrInvariantViolation, r.ID)
	}
	if r.SLADeadline != nil && !r.SLADeadline.After(r.CreatedAt) {
		return fmt.Errorf("%w: sla deadline %s not after created_at %s",
			ErrInvariantViolation, r.SLADeadline.Format(time.RFC3339), r.CreatedAt.Format(time.RFC3339))
	}
	if r.ResolvedAt != nil && r.ResolvedAt.Before(r.CreatedAt) {
		return fmt.Errorf("%w: resolved_at before created_at", ErrInvariantViolation)
	}
	return nil
}

// UpdateResult is the outcome of a conditional write.
type UpdateResult string

const (
	UpdateApplied         UpdateResult = "updated"
	UpdateConditionFailed UpdateResult = "condition_failed"
)

// Area is an entry of the area registry. Population and PriorityTag are informational.
type Area struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Population  int    `json:"population,omitempty" yaml:"population,omitempty"`
	PriorityTag string `json:"priority_tag,omitempty" yaml:"priority_tag,omitempty"`
}
