package policy

import (
	"fmt"
	"sort"
	"time"

	"civicpulse.app/sla/internal/model"
)

// Entry is the hour budget for one (category, priority) pair.
type Entry struct {
	TargetHours     float64 `yaml:"target_hours" json:"target_hours" jsonschema:"minimum=0"`
	EscalationHours float64 `yaml:"escalation_hours" json:"escalation_hours" jsonschema:"minimum=0"`
}

// AreaPolicy is an area registry entry plus its per-category target overrides.
type AreaPolicy struct {
	model.Area `yaml:",inline"`
	Overrides  map[model.Category]float64 `yaml:"overrides,omitempty" json:"overrides,omitempty"`
}

// Document is the on-disk policy format.
type Document struct {
	Fallback Entry                                       `yaml:"fallback" json:"fallback"`
	Defaults map[model.Category]map[model.Priority]Entry `yaml:"defaults" json:"defaults"`
	Areas    []AreaPolicy                                `yaml:"areas,omitempty" json:"areas,omitempty"`
}

// builtinFallback is used when the document leaves the fallback unset.
var builtinFallback = Entry{TargetHours: 72, EscalationHours: 96}

// Table is an immutable, validated policy. Safe for concurrent use.
type Table struct {
	defaults  map[model.Category]map[model.Priority]Entry
	overrides map[string]map[model.Category]float64
	areas     map[string]model.Area
	areaOrder []string
	fallback  Entry
	gaps      GapObserver
}

type Option func(*Table)

// WithGapObserver routes configuration gaps to obs in addition to the debug log.
func WithGapObserver(obs GapObserver) Option {
	return func(t *Table) {
		t.gaps = obs
	}
}

// New validates doc and builds a Table from it.
func New(doc Document, opts ...Option) (*Table, error) {
	t := &Table{
		defaults:  make(map[model.Category]map[model.Priority]Entry),
		overrides: make(map[string]map[model.Category]float64),
		areas:     make(map[string]model.Area),
		fallback:  doc.Fallback,
		gaps:      logGapObserver{},
	}

	if t.fallback == (Entry{}) {
		t.fallback = builtinFallback
	}
	if err := t.fallback.validate(); err != nil {
		return nil, fmt.Errorf("fallback: %w", err)
	}

	for category, byPriority := range doc.Defaults {
		if !category.Valid() {
			return nil, fmt.Errorf("defaults: unknown category %q", category)
		}
		entries := make(map[model.Priority]Entry, len(byPriority))
		for priority, entry := range byPriority {
			if !priority.Valid() {
				return nil, fmt.Errorf("defaults.%s: unknown priority %q", category, priority)
			}
			if err := entry.validate(); err != nil {
				return nil, fmt.Errorf("defaults.%s.%s: %w", category, priority, err)
			}
			entries[priority] = entry
		}
		t.defaults[category] = entries
	}

	for i, area := range doc.Areas {
		if area.ID == "" {
			return nil, fmt.Errorf("areas[%d]: id is required", i)
		}
		if _, dup := t.areas[area.ID]; dup {
			return nil, fmt.Errorf("areas[%d]: duplicate area %q", i, area.ID)
		}
		overrides := make(map[model.Category]float64, len(area.Overrides))
		for category, hours := range area.Overrides {
			if !category.Valid() {
				return nil, fmt.Errorf("areas.%s: unknown category %q", area.ID, category)
			}
			if hours <= 0 {
				return nil, fmt.Errorf("areas.%s.%s: target hours must be positive, got %v", area.ID, category, hours)
			}
			overrides[category] = hours
		}
		t.areas[area.ID] = area.Area
		t.areaOrder = append(t.areaOrder, area.ID)
		t.overrides[area.ID] = overrides
	}

	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

func (e Entry) validate() error {
	if e.TargetHours <= 0 {
		return fmt.Errorf("target_hours must be positive, got %v", e.TargetHours)
	}
	if e.EscalationHours <= 0 {
		return fmt.Errorf("escalation_hours must be positive, got %v", e.EscalationHours)
	}
	return nil
}

// Entry returns the default budget for (category, priority).
func (t *Table) Entry(category model.Category, priority model.Priority) (Entry, bool) {
	entry, ok := t.defaults[category][priority]
	return entry, ok
}

// Override returns the area's target-hour override for category.
func (t *Table) Override(areaID string, category model.Category) (float64, bool) {
	hours, ok := t.overrides[areaID][category]
	return hours, ok
}

func (t *Table) Fallback() Entry {
	return t.fallback
}

func (t *Table) Area(id string) (model.Area, bool) {
	area, ok := t.areas[id]
	return area, ok
}

// Areas returns the registry in document order.
func (t *Table) Areas() []model.Area {
	areas := make([]model.Area, 0, len(t.areaOrder))
	for _, id := range t.areaOrder {
		areas = append(areas, t.areas[id])
	}
	return areas
}

// Document renders the table back into its on-disk shape.
func (t *Table) Document() Document {
	doc := Document{
		Fallback: t.fallback,
		Defaults: make(map[model.Category]map[model.Priority]Entry, len(t.defaults)),
	}
	for category, byPriority := range t.defaults {
		entries := make(map[model.Priority]Entry, len(byPriority))
		for priority, entry := range byPriority {
			entries[priority] = entry
		}
		doc.Defaults[category] = entries
	}
	for _, id := range t.areaOrder {
		overrides := make(map[model.Category]float64, len(t.overrides[id]))
		for category, hours := range t.overrides[id] {
			overrides[category] = hours
		}
		doc.Areas = append(doc.Areas, AreaPolicy{Area: t.areas[id], Overrides: overrides})
	}
	return doc
}

// MissingEntries lists (category, priority) pairs without a default entry,
// sorted, for policy completeness checks.
func (t *Table) MissingEntries() []string {
	var missing []string
	for _, c := range model.Categories {
		for _, p := range model.Priorities {
			if _, ok := t.Entry(c, p); !ok {
				missing = append(missing, fmt.Sprintf("%s/%s", c, p))
			}
		}
	}
	sort.Strings(missing)
	return missing
}

// Hours converts a fractional hour count into a duration.
func Hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
