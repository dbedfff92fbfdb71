package utils

import (
	"strings"

	"schedboard/models"

	"github.com/google/uuid"
)

// NewEventID generates a namespaced event id, unique within a snapshot.
func NewEventID() string {
	return models.EventIDPrefix + uuid.NewString()
}

// NewInstructorID generates a namespaced instructor/row id.
func NewInstructorID() string {
	return "ins-" + uuid.NewString()
}

// SanitizeString removes dangerous characters from string
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	input = strings.TrimSpace(input)
	return input
}

// MigrateDayKeys rewrites legacy two-digit day keys of a row to ISO keys,
// given the window that owns them. Events already present under the ISO key
// win; duplicates are dropped by event id. Legacy keys with no matching day
// in the window are left untouched.
func MigrateDayKeys(row *models.ScheduleRow, window models.Window) {
	if row == nil || row.Events == nil {
		return
	}
	start, err := window.Start()
	if err != nil {
		return
	}
	end, err := window.End()
	if err != nil {
		return
	}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		isoKey := d.Format("2006-01-02")
		legacy := models.LegacyDayKey(isoKey)
		legacyEvents, ok := row.Events[legacy]
		if !ok {
			continue
		}
		seen := make(map[string]bool)
		for _, e := range row.Events[isoKey] {
			seen[e.ID] = true
		}
		for _, e := range legacyEvents {
			if !seen[e.ID] {
				row.Events[isoKey] = append(row.Events[isoKey], e)
				seen[e.ID] = true
			}
		}
		delete(row.Events, legacy)
	}
}
