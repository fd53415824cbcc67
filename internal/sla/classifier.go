// Package sla classifies an issue's position against its SLA deadline.
package sla

import (
	"math"
	"time"
)

type Status string

const (
	StatusCompliant Status = "compliant"
	StatusWarning   Status = "warning"
	StatusCritical  Status = "critical"
	StatusBreached  Status = "breached"
	StatusSettled   Status = "settled"
)

// Urgency orders live statuses from least (0) to most (3) urgent.
// Settled issues are outside the ordering and return -1.
func (s Status) Urgency() int {
	switch s {
	case StatusCompliant:
		return 0
	case StatusWarning:
		return 1
	case StatusCritical:
		return 2
	case StatusBreached:
		return 3
	default:
		return -1
	}
}

// Classify places an issue into an SLA band.
//
// With h the hours remaining until deadline and E the escalation lead time:
//
//	resolved      -> settled
//	h < 0         -> breached
//	0 <= h < E/2  -> critical
//	E/2 <= h < E  -> warning
//	h >= E        -> compliant
func Classify(now, deadline time.Time, escalationHours float64, resolvedAt *time.Time) Status {
	if resolvedAt != nil {
		return StatusSettled
	}

	hoursRemaining := deadline.Sub(now).Hours()
	switch {
	case hoursRemaining < 0:
		return StatusBreached
	case hoursRemaining < escalationHours/2:
		return StatusCritical
	case hoursRemaining < escalationHours:
		return StatusWarning
	default:
		return StatusCompliant
	}
}

// Assessment is a classification together with the numbers behind it.
type Assessment struct {
	Status         Status    `json:"status"`
	Deadline       time.Time `json:"deadline"`
	HoursRemaining float64   `json:"hours_remaining"`
	HoursOverdue   float64   `json:"hours_overdue"`
}

// Evaluate classifies and reports hours remaining (negative when overdue),
// rounded to two decimals for display and notification payloads.
func Evaluate(now, deadline time.Time, escalationHours float64, resolvedAt *time.Time) Assessment {
	remaining := deadline.Sub(now).Hours()
	a := Assessment{
		Status:         Classify(now, deadline, escalationHours, resolvedAt),
		Deadline:       deadline,
		HoursRemaining: round2(remaining),
	}
	if remaining < 0 {
		a.HoursOverdue = round2(-remaining)
	}
	return a
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
