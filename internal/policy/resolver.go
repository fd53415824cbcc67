package policy

import (
	"log/slog"
	"time"

	"civicpulse.app/sla/internal/model"
)

// Source names the lookup path that produced a resolution's target.
type Source string

const (
	SourceAreaOverride Source = "area_override"
	SourceDefaultTable Source = "default_table"
	SourceFallback     Source = "fallback"
)

// Resolution is the outcome of resolving an issue's SLA budget.
type Resolution struct {
	Deadline        time.Time `json:"deadline"`
	TargetHours     float64   `json:"target_hours"`
	EscalationHours float64   `json:"escalation_hours"`
	Source          Source    `json:"source"`
}

// GapKind describes which lookup had no policy entry.
type GapKind string

const (
	GapDefaultEntry GapKind = "default_entry"
	GapAreaOverride GapKind = "area_override"
	GapUnknownArea  GapKind = "unknown_area"
)

// Gap is a missing policy entry. Gaps are resolved by fallback, never returned as errors.
type Gap struct {
	Kind     GapKind
	Category model.Category
	Priority model.Priority
	AreaID   string
}

type GapObserver interface {
	ObserveGap(gap Gap)
}

type logGapObserver struct{}

func (logGapObserver) ObserveGap(gap Gap) {
	policyGaps.WithLabelValues(string(gap.Kind)).Inc()
	slog.Debug("sla policy gap, using fallback",
		"gap", gap.Kind,
		"category", gap.Category,
		"priority", gap.Priority,
		"area_id", gap.AreaID)
}

// Resolve computes the deadline and escalation lead time for an issue.
//
// The target comes from the area override for the category when present,
// else from the (category, priority) default entry, else from the fallback.
// Escalation hours always come from the (category, priority) entry (or the
// fallback when that entry is missing); overrides never change them.
func (t *Table) Resolve(category model.Category, priority model.Priority, areaID string, createdAt time.Time) Resolution {
	entry, hasEntry := t.Entry(category, priority)
	if !hasEntry {
		t.gap(Gap{Kind: GapDefaultEntry, Category: category, Priority: priority, AreaID: areaID})
	}

	override, hasOverride := t.Override(areaID, category)
	if !hasOverride {
		if _, known := t.areas[areaID]; known {
			t.gap(Gap{Kind: GapAreaOverride, Category: category, Priority: priority, AreaID: areaID})
		} else {
			t.gap(Gap{Kind: GapUnknownArea, Category: category, Priority: priority, AreaID: areaID})
		}
	}

	var res Resolution
	switch {
	case hasOverride:
		res.TargetHours = override
		res.Source = SourceAreaOverride
		if hasEntry {
			res.EscalationHours = entry.EscalationHours
		} else {
			res.EscalationHours = t.fallback.EscalationHours
		}
	case hasEntry:
		res.TargetHours = entry.TargetHours
		res.EscalationHours = entry.EscalationHours
		res.Source = SourceDefaultTable
	default:
		res.TargetHours = t.fallback.TargetHours
		res.EscalationHours = t.fallback.EscalationHours
		res.Source = SourceFallback
	}

	res.Deadline = createdAt.Add(Hours(res.TargetHours))
	if !res.Deadline.After(createdAt) {
		// Sub-nanosecond targets round to zero; keep deadline > createdAt.
		res.TargetHours = builtinFallback.TargetHours
		res.Deadline = createdAt.Add(Hours(res.TargetHours))
		res.Source = SourceFallback
	}

	return res
}

// EscalationHours returns the warning lead time for (category, priority).
// Area overrides do not affect it.
func (t *Table) EscalationHours(category model.Category, priority model.Priority) float64 {
	if entry, ok := t.Entry(category, priority); ok {
		return entry.EscalationHours
	}
	return t.fallback.EscalationHours
}

func (t *Table) gap(g Gap) {
	if t.gaps != nil {
		t.gaps.ObserveGap(g)
	}
}
