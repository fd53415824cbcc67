// Package compliance summarizes SLA outcomes over a snapshot of issues.
package compliance

import (
	"math"
	"sort"
	"time"

	"civicpulse.app/sla/internal/model"
)

// Filter narrows the snapshot. Zero values match everything; the window is
// half-open on created_at: From <= created_at < To.
type Filter struct {
	From   *time.Time `json:"from,omitempty"`
	To     *time.Time `json:"to,omitempty"`
	AreaID string     `json:"area_id,omitempty"`
}

func (f Filter) Matches(issue model.IssueSLARecord) bool {
	if f.AreaID != "" && issue.AreaID != f.AreaID {
		return false
	}
	if f.From != nil && issue.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !issue.CreatedAt.Before(*f.To) {
		return false
	}
	return true
}

type Breaches struct {
	// OpenOverdue counts unresolved issues past their deadline at report time.
	OpenOverdue  int `json:"open_overdue"`
	ResolvedLate int `json:"resolved_late"`
	Escalated    int `json:"escalated"`
}

type AreaSummary struct {
	AreaID            string  `json:"area_id"`
	Total             int     `json:"total"`
	Resolved          int     `json:"resolved"`
	CompliantResolved int     `json:"compliant_resolved"`
	CompliancePercent float64 `json:"compliance_percent"`
}

type Report struct {
	Filter                 Filter                 `json:"filter"`
	GeneratedAt            time.Time              `json:"generated_at"`
	Total                  int                    `json:"total"`
	Resolved               int                    `json:"resolved"`
	CompliantResolved      int                    `json:"compliant_resolved"`
	CompliancePercent      float64                `json:"compliance_percent"`
	AverageResolutionHours float64                `json:"average_resolution_hours"`
	Breaches               Breaches               `json:"breaches"`
	ByStatus               map[model.Status]int   `json:"by_status"`
	ByPriority             map[model.Priority]int `json:"by_priority"`
	ByCategory             map[model.Category]int `json:"by_category"`
	ByArea                 map[string]int         `json:"by_area"`
	Areas                  []AreaSummary          `json:"areas"`
}

// Aggregate computes the report for the issues matching filter. A resolved
// issue is compliant when it was resolved at or before its deadline; issues
// without a deadline are counted but never compliant. Compliance is 0 when
// nothing has been resolved.
func Aggregate(issues []model.IssueSLARecord, filter Filter, now time.Time) Report {
	r := Report{
		Filter:      filter,
		GeneratedAt: now,
		ByStatus:    make(map[model.Status]int),
		ByPriority:  make(map[model.Priority]int),
		ByCategory:  make(map[model.Category]int),
		ByArea:      make(map[string]int),
		Areas:       []AreaSummary{},
	}

	areas := make(map[string]*AreaSummary)
	var resolutionHours float64

	for _, issue := range issues {
		if !filter.Matches(issue) {
			continue
		}

		r.Total++
		r.ByStatus[issue.Status]++
		r.ByPriority[issue.Priority]++
		r.ByCategory[issue.Category]++
		r.ByArea[issue.AreaID]++

		area, ok := areas[issue.AreaID]
		if !ok {
			area = &AreaSummary{AreaID: issue.AreaID}
			areas[issue.AreaID] = area
		}
		area.Total++

		if issue.EscalatedAt != nil {
			r.Breaches.Escalated++
		}

		if issue.ResolvedAt == nil {
			if issue.SLADeadline != nil && now.After(*issue.SLADeadline) && !issue.Status.Terminal() {
				r.Breaches.OpenOverdue++
			}
			continue
		}

		r.Resolved++
		area.Resolved++
		resolutionHours += issue.ResolvedAt.Sub(issue.CreatedAt).Hours()

		if issue.SLADeadline != nil && !issue.ResolvedAt.After(*issue.SLADeadline) {
			r.CompliantResolved++
			area.CompliantResolved++
		} else {
			r.Breaches.ResolvedLate++
		}
	}

	r.CompliancePercent = percent(r.CompliantResolved, r.Resolved)
	if r.Resolved > 0 {
		r.AverageResolutionHours = round2(resolutionHours / float64(r.Resolved))
	}

	for _, area := range areas {
		area.CompliancePercent = percent(area.CompliantResolved, area.Resolved)
		r.Areas = append(r.Areas, *area)
	}
	sort.Slice(r.Areas, func(i, j int) bool { return r.Areas[i].AreaID < r.Areas[j].AreaID })

	return r
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round2(float64(part) * 100 / float64(whole))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
