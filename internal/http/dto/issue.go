package dto

import (
	"time"

	"civicpulse.app/sla/internal/model"
	"civicpulse.app/sla/internal/service"
	"civicpulse.app/sla/internal/sla"
)

type RegisterIssueRequest struct {
	ID         string     `json:"id,omitempty" binding:"omitempty,max=64"`
	Title      string     `json:"title" binding:"max=500"`
	Category   string     `json:"category" binding:"required"`
	Priority   string     `json:"priority" binding:"required"`
	AreaID     string     `json:"area_id" binding:"required,max=64"`
	AssignedTo string     `json:"assigned_to,omitempty" binding:"max=64"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

func (r RegisterIssueRequest) ToParams() service.RegisterIssueParams {
	p := service.RegisterIssueParams{
		ID:         r.ID,
		Title:      r.Title,
		Category:   model.Category(r.Category),
		Priority:   model.Priority(r.Priority),
		AreaID:     r.AreaID,
		AssignedTo: r.AssignedTo,
	}
	if r.CreatedAt != nil {
		p.CreatedAt = *r.CreatedAt
	}
	return p
}

type TransitionStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type IssueResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title,omitempty"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	AreaID      string     `json:"area_id"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	SLADeadline *time.Time `json:"sla_deadline,omitempty"`
	EscalatedAt *time.Time `json:"escalated_at,omitempty"`
}

func ToIssueResponse(i *model.IssueSLARecord) *IssueResponse {
	return &IssueResponse{
		ID:          i.ID,
		Title:       i.Title,
		Category:    string(i.Category),
		Priority:    string(i.Priority),
		AreaID:      i.AreaID,
		AssignedTo:  i.AssignedTo,
		Status:      string(i.Status),
		CreatedAt:   i.CreatedAt,
		ResolvedAt:  i.ResolvedAt,
		SLADeadline: i.SLADeadline,
		EscalatedAt: i.EscalatedAt,
	}
}

type RegisterIssueResponse struct {
	Issue           *IssueResponse `json:"issue"`
	TargetHours     float64        `json:"target_hours"`
	EscalationHours float64        `json:"escalation_hours"`
	Source          string         `json:"source"`
}

func ToRegisterIssueResponse(r *service.RegisteredIssue) *RegisterIssueResponse {
	return &RegisterIssueResponse{
		Issue:           ToIssueResponse(&r.Issue),
		TargetHours:     r.Resolution.TargetHours,
		EscalationHours: r.Resolution.EscalationHours,
		Source:          string(r.Resolution.Source),
	}
}

type IssueSLAResponse struct {
	Issue           *IssueResponse  `json:"issue"`
	SLA             *sla.Assessment `json:"sla,omitempty"`
	EscalationHours float64         `json:"escalation_hours"`
}

func ToIssueSLAResponse(v *service.IssueSLA) *IssueSLAResponse {
	return &IssueSLAResponse{
		Issue:           ToIssueResponse(&v.Issue),
		SLA:             v.SLA,
		EscalationHours: v.EscalationHours,
	}
}
