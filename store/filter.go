package store

import (
	"strings"

	"schedboard/models"
	"schedboard/schedule"
)

// Facets is the active filter selection. Empty slices mean "no restriction"
// for that facet.
type Facets struct {
	Instructors []string `json:"instructors"`
	Regionals   []string `json:"regionals"`
	Modalities  []string `json:"modalities"`
	Titles      []string `json:"titles"`
	Details     []string `json:"details"`
}

// Empty reports whether no facet is active.
func (f Facets) Empty() bool {
	return len(f.Instructors) == 0 && len(f.Regionals) == 0 &&
		len(f.Modalities) == 0 && len(f.Titles) == 0 && len(f.Details) == 0
}

// IsScopedEvent reports whether the event's location marks it as applicable
// across all regional units. Markers match case-insensitively as substrings.
func IsScopedEvent(location string, markers []string) bool {
	loc := strings.ToLower(location)
	for _, m := range markers {
		if m == "" {
			continue
		}
		if strings.Contains(loc, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// ApplyFilter produces the subset of rows and events visible under the
// facet selection, scoped to the snapshot's current window. Rows with no
// surviving event are dropped.
//
// Location-scope override: when a regional facet is active and a row's
// regional is not selected, the row survives only through its scoped
// (nationwide) events, and only those events pass the remaining facets.
func ApplyFilter(snap models.Snapshot, f Facets, markers []string) []models.ScheduleRow {
	dayKeys := schedule.DayKeysInWindow(snap.Config.CurrentWindow)
	regionalActive := len(f.Regionals) > 0

	var out []models.ScheduleRow
	for _, row := range snap.Rows {
		if len(f.Instructors) > 0 && !matchesAnyFold(row.Instructor, f.Instructors) {
			continue
		}
		regionalSelected := matchesAnyFold(row.Regional, f.Regionals)
		scopedOnly := regionalActive && !regionalSelected

		visible := make(map[string][]models.Event)
		for _, key := range dayKeys {
			for _, e := range row.DayEvents(key) {
				if scopedOnly && !IsScopedEvent(e.Location, markers) {
					continue
				}
				if !matchesEventFacets(e, f) {
					continue
				}
				visible[key] = append(visible[key], e)
			}
		}
		if len(visible) == 0 {
			continue
		}
		out = append(out, models.ScheduleRow{
			ID:         row.ID,
			Instructor: row.Instructor,
			Regional:   row.Regional,
			Events:     visible,
		})
	}
	return out
}

func matchesEventFacets(e models.Event, f Facets) bool {
	if len(f.Modalities) > 0 && !matchesAnyFold(e.Modality, f.Modalities) {
		return false
	}
	if len(f.Titles) > 0 && !containsAnyFold(e.Title, f.Titles) {
		return false
	}
	if len(f.Details) > 0 {
		matched := false
		for _, line := range e.Details {
			if containsAnyFold(line, f.Details) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// matchesAnyFold is a case-insensitive set membership check.
func matchesAnyFold(value string, selected []string) bool {
	for _, s := range selected {
		if strings.EqualFold(strings.TrimSpace(value), strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}

// containsAnyFold is a case-insensitive substring check against a selection.
func containsAnyFold(value string, selected []string) bool {
	v := strings.ToLower(value)
	for _, s := range selected {
		if s == "" {
			continue
		}
		if strings.Contains(v, strings.ToLower(s)) {
			return true
		}
	}
	return false
}
