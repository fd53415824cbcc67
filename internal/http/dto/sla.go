package dto

import (
	"time"

	"civicpulse.app/sla/internal/model"
	"civicpulse.app/sla/internal/monitor"
	"civicpulse.app/sla/internal/service"
)

type ResolveRequest struct {
	Category  string     `json:"category" binding:"required"`
	Priority  string     `json:"priority" binding:"required"`
	AreaID    string     `json:"area_id"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func (r ResolveRequest) ToParams() service.ResolveParams {
	p := service.ResolveParams{
		Category: model.Category(r.Category),
		Priority: model.Priority(r.Priority),
		AreaID:   r.AreaID,
	}
	if r.CreatedAt != nil {
		p.CreatedAt = *r.CreatedAt
	}
	return p
}

// ComplianceQuery binds /sla/compliance query parameters. Dates accept
// RFC 3339 or YYYY-MM-DD.
type ComplianceQuery struct {
	AreaID string `form:"area"`
	From   string `form:"from"`
	To     string `form:"to"`
}

type OutcomeResponse struct {
	IssueID   string                   `json:"issue_id"`
	Status    string                   `json:"status,omitempty"`
	Notified  []model.NotificationKind `json:"notified"`
	Escalated bool                     `json:"escalated"`
	Skipped   bool                     `json:"skipped"`
	Error     string                   `json:"error,omitempty"`
}

func ToOutcomeResponse(o *monitor.Outcome) *OutcomeResponse {
	resp := &OutcomeResponse{
		IssueID:   o.IssueID,
		Status:    string(o.Status),
		Notified:  o.Notified,
		Escalated: o.Escalated,
		Skipped:   o.Skipped,
	}
	if resp.Notified == nil {
		resp.Notified = []model.NotificationKind{}
	}
	if o.Err != nil {
		resp.Error = o.Err.Error()
	}
	return resp
}
