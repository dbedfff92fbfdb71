package utils

import (
	"strings"
	"testing"

	"schedboard/models"
)

func TestNewEventID(t *testing.T) {
	a := NewEventID()
	b := NewEventID()
	if a == b {
		t.Fatalf("expected unique ids, both were %q", a)
	}
	if !strings.HasPrefix(a, models.EventIDPrefix) {
		t.Fatalf("expected namespaced id, got %q", a)
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		exp   string
	}{
		{name: "trims whitespace", input: "  Induction  ", exp: "Induction"},
		{name: "strips null bytes", input: "Indu\x00ction", exp: "Induction"},
		{name: "plain passthrough", input: "Taller Regional", exp: "Taller Regional"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeString(tc.input); got != tc.exp {
				t.Fatalf("expected %q, got %q", tc.exp, got)
			}
		})
	}
}

func TestMigrateDayKeys(t *testing.T) {
	window := models.Window{StartDate: "2024-06-24", EndDate: "2024-06-28"}
	row := &models.ScheduleRow{
		ID: "ins-1",
		Events: map[string][]models.Event{
			"26": {
				{ID: "evt-legacy", Title: "Induction"},
				{ID: "evt-both", Title: "Workshop"},
			},
			"2024-06-26": {
				{ID: "evt-both", Title: "Workshop"},
			},
			"15": {
				{ID: "evt-outside", Title: "Outside window"},
			},
		},
	}

	MigrateDayKeys(row, window)

	if _, ok := row.Events["26"]; ok {
		t.Fatalf("expected in-window legacy key removed")
	}
	merged := row.Events["2024-06-26"]
	if len(merged) != 2 {
		t.Fatalf("expected 2 deduplicated events, got %d", len(merged))
	}
	ids := map[string]bool{}
	for _, e := range merged {
		ids[e.ID] = true
	}
	if !ids["evt-legacy"] || !ids["evt-both"] {
		t.Fatalf("unexpected merged events: %+v", merged)
	}

	// Day 15 is outside the window; its key stays untouched.
	if got := len(row.Events["15"]); got != 1 {
		t.Fatalf("expected out-of-window legacy key preserved, got %d events", got)
	}
}

func TestMigrateDayKeysNilRow(t *testing.T) {
	MigrateDayKeys(nil, models.Window{StartDate: "2024-06-24", EndDate: "2024-06-28"})
}
