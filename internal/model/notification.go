package model

import "time"

type NotificationKind string

const (
	NotificationWarning         NotificationKind = "warning"
	NotificationCriticalWarning NotificationKind = "critical_warning"
	NotificationEscalation      NotificationKind = "escalation"
	NotificationReminder        NotificationKind = "reminder"
)

func (k NotificationKind) Valid() bool {
	switch k {
	case NotificationWarning, NotificationCriticalWarning, NotificationEscalation, NotificationReminder:
		return true
	}
	return false
}

// Recipient roles used when an issue has no assignee, or for escalations.
const (
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
)

type NotificationMetadata struct {
	Title          string    `json:"title"`
	AreaID         string    `json:"area_id"`
	AreaName       string    `json:"area_name,omitempty"`
	Category       Category  `json:"category"`
	Priority       Priority  `json:"priority"`
	Deadline       time.Time `json:"deadline"`
	HoursRemaining float64   `json:"hours_remaining"`
	HoursOverdue   float64   `json:"hours_overdue"`
}

// Notification is one outbound SLA alert.
type Notification struct {
	ID        string               `json:"id"`
	Kind      NotificationKind     `json:"kind"`
	IssueID   string               `json:"issue_id"`
	Recipient string               `json:"recipient"`
	Metadata  NotificationMetadata `json:"metadata"`
	CreatedAt time.Time            `json:"created_at"`
}
