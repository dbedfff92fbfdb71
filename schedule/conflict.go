package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"schedboard/models"
)

// rangeSeparator joins the two endpoints of a time range, e.g.
// "8:00 a.m. a 9:00 a.m.". The 12-hour markers never contain the separator
// because they carry no surrounding spaces around the letter.
const rangeSeparator = " a "

// ConflictResult is the outcome of a conflict check.
type ConflictResult struct {
	HasConflict      bool          `json:"hasConflict"`
	ConflictingEvent *models.Event `json:"conflictingEvent,omitempty"`
}

// ParseClockTime parses a 12-hour clock time such as "8:00 a.m." or
// "12:30 PM" into minutes since midnight.
func ParseClockTime(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}

	meridiem := ""
	for _, suffix := range []string{"a.m.", "p.m.", "a.m", "p.m", "am", "pm"} {
		if strings.HasSuffix(s, suffix) {
			meridiem = string(suffix[0])
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}

	parts := strings.SplitN(s, ":", 2)
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, false
	}
	minute := 0
	if len(parts) == 2 {
		minute, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return 0, false
		}
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, false
	}

	switch meridiem {
	case "a":
		if hour == 12 {
			hour = 0
		}
	case "p":
		if hour != 12 {
			hour += 12
		}
	}
	if hour > 23 {
		return 0, false
	}
	return hour*60 + minute, true
}

// ParseTimeRange parses "8:00 a.m. a 9:00 a.m." into start and end minutes
// since midnight. A single endpoint without the separator is allowed and
// yields start == end.
func ParseTimeRange(s string) (start, end int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, false
	}
	parts := strings.Split(s, rangeSeparator)
	switch len(parts) {
	case 1:
		start, ok = ParseClockTime(parts[0])
		return start, start, ok
	case 2:
		start, ok = ParseClockTime(parts[0])
		if !ok {
			return 0, 0, false
		}
		end, ok = ParseClockTime(parts[1])
		if !ok {
			return 0, 0, false
		}
		return start, end, true
	default:
		return 0, 0, false
	}
}

// FormatClockTime renders minutes since midnight in the canonical
// "8:00 a.m." form.
func FormatClockTime(minutes int) string {
	hour := minutes / 60
	minute := minutes % 60
	meridiem := "a.m."
	h12 := hour
	switch {
	case hour == 0:
		h12 = 12
	case hour == 12:
		meridiem = "p.m."
	case hour > 12:
		h12 = hour - 12
		meridiem = "p.m."
	}
	return fmt.Sprintf("%d:%02d %s", h12, minute, meridiem)
}

// NormalizeTimeRange renders a parsed range in canonical form so two ranges
// that mean the same span compare equal as strings.
func NormalizeTimeRange(s string) (string, bool) {
	start, end, ok := ParseTimeRange(s)
	if !ok {
		return "", false
	}
	if start == end {
		return FormatClockTime(start), true
	}
	return FormatClockTime(start) + rangeSeparator + FormatClockTime(end), true
}

// CheckTimeConflict reports whether the proposed time range collides with
// another event in the cell, excluding the event being edited. An event with
// no time or an unparseable time neither causes nor receives a conflict.
//
// Only exact normalized-range equality counts as a conflict; true interval
// overlap is not flagged. The advisory highlight in the editing surface
// relies on this symmetric rule.
func CheckTimeConflict(events []models.Event, timeRange, excludeID string) ConflictResult {
	norm, ok := NormalizeTimeRange(timeRange)
	if !ok {
		return ConflictResult{}
	}
	for i := range events {
		if events[i].ID == excludeID {
			continue
		}
		other, ok := NormalizeTimeRange(events[i].TimeRange)
		if !ok {
			continue
		}
		if other == norm {
			e := events[i]
			return ConflictResult{HasConflict: true, ConflictingEvent: &e}
		}
	}
	return ConflictResult{}
}

// SortEventsByStart orders events by parsed start time, keeping untimed or
// unparseable events last and otherwise preserving insertion order.
func SortEventsByStart(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		si, _, iok := ParseTimeRange(events[i].TimeRange)
		sj, _, jok := ParseTimeRange(events[j].TimeRange)
		if iok && jok {
			return si < sj
		}
		return iok && !jok
	})
}
