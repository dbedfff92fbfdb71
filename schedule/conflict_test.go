package schedule

import (
	"testing"

	"schedboard/models"
)

func TestParseClockTime(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		expMinutes int
	}{
		{
			name:       "morning with dotted marker",
			input:      "8:00 a.m.",
			expMinutes: 8 * 60,
		},
		{
			name:       "afternoon with dotted marker",
			input:      "2:30 p.m.",
			expMinutes: 14*60 + 30,
		},
		{
			name:       "compact marker",
			input:      "9:15am",
			expMinutes: 9*60 + 15,
		},
		{
			name:       "uppercase marker",
			input:      "12:30 PM",
			expMinutes: 12*60 + 30,
		},
		{
			name:       "midnight",
			input:      "12:00 a.m.",
			expMinutes: 0,
		},
		{
			name:       "noon",
			input:      "12:00 p.m.",
			expMinutes: 12 * 60,
		},
		{
			name:       "hour only",
			input:      "7 p.m.",
			expMinutes: 19 * 60,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseClockTime(tc.input)
			if !ok {
				t.Fatalf("expected %q to parse", tc.input)
			}
			if got != tc.expMinutes {
				t.Fatalf("expected %d minutes, got %d", tc.expMinutes, got)
			}
		})
	}
}

func TestParseClockTimeInvalid(t *testing.T) {
	for _, input := range []string{"", "abc", "25:00", "8:75 a.m."} {
		if _, ok := ParseClockTime(input); ok {
			t.Fatalf("expected %q to be rejected", input)
		}
	}
}

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expStart int
		expEnd   int
	}{
		{
			name:     "full range",
			input:    "8:00 a.m. a 9:00 a.m.",
			expStart: 8 * 60,
			expEnd:   9 * 60,
		},
		{
			name:     "crossing noon",
			input:    "11:30 a.m. a 1:00 p.m.",
			expStart: 11*60 + 30,
			expEnd:   13 * 60,
		},
		{
			name:     "single endpoint",
			input:    "10:00 a.m.",
			expStart: 10 * 60,
			expEnd:   10 * 60,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			start, end, ok := ParseTimeRange(tc.input)
			if !ok {
				t.Fatalf("expected %q to parse", tc.input)
			}
			if start != tc.expStart || end != tc.expEnd {
				t.Fatalf("expected %d-%d, got %d-%d", tc.expStart, tc.expEnd, start, end)
			}
		})
	}
}

func TestNormalizeTimeRange(t *testing.T) {
	tests := []struct {
		name  string
		left  string
		right string
	}{
		{
			name:  "whitespace and marker variants compare equal",
			left:  "8:00 a.m. a 9:00 a.m.",
			right: "  8:00 AM a 9:00 am ",
		},
		{
			name:  "hour only equals zero minutes",
			left:  "7 p.m.",
			right: "7:00 p.m.",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			l, lok := NormalizeTimeRange(tc.left)
			r, rok := NormalizeTimeRange(tc.right)
			if !lok || !rok {
				t.Fatalf("expected both %q and %q to parse", tc.left, tc.right)
			}
			if l != r {
				t.Fatalf("expected %q == %q", l, r)
			}
		})
	}
}

func TestCheckTimeConflict(t *testing.T) {
	events := []models.Event{
		{ID: "evt-1", Title: "Induction", TimeRange: "8:00 a.m. a 9:00 a.m."},
		{ID: "evt-2", Title: "Workshop", TimeRange: "10:00 a.m. a 11:00 a.m."},
		{ID: "evt-3", Title: "Untimed"},
		{ID: "evt-4", Title: "Garbled", TimeRange: "whenever"},
	}

	tests := []struct {
		name        string
		timeRange   string
		excludeID   string
		expConflict bool
		expEventID  string
	}{
		{
			name:        "exact same range conflicts",
			timeRange:   "8:00 a.m. a 9:00 a.m.",
			expConflict: true,
			expEventID:  "evt-1",
		},
		{
			name:        "normalized variant conflicts",
			timeRange:   "8:00 AM a 9:00 AM",
			expConflict: true,
			expEventID:  "evt-1",
		},
		{
			name:      "overlap without equality does not conflict",
			timeRange: "8:30 a.m. a 9:30 a.m.",
		},
		{
			name:      "editing the event itself is excluded",
			timeRange: "8:00 a.m. a 9:00 a.m.",
			excludeID: "evt-1",
		},
		{
			name:      "unparseable proposal never conflicts",
			timeRange: "soonish",
		},
		{
			name:      "empty proposal never conflicts",
			timeRange: "",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			res := CheckTimeConflict(events, tc.timeRange, tc.excludeID)
			if res.HasConflict != tc.expConflict {
				t.Fatalf("expected conflict=%v, got %v", tc.expConflict, res.HasConflict)
			}
			if tc.expConflict {
				if res.ConflictingEvent == nil || res.ConflictingEvent.ID != tc.expEventID {
					t.Fatalf("expected conflicting event %s, got %+v", tc.expEventID, res.ConflictingEvent)
				}
			}
		})
	}
}

func TestSortEventsByStart(t *testing.T) {
	events := []models.Event{
		{ID: "evt-b", TimeRange: "10:00 a.m. a 11:00 a.m."},
		{ID: "evt-untimed"},
		{ID: "evt-a", TimeRange: "8:00 a.m. a 9:00 a.m."},
		{ID: "evt-c", TimeRange: "1:00 p.m. a 2:00 p.m."},
	}

	SortEventsByStart(events)

	want := []string{"evt-a", "evt-b", "evt-c", "evt-untimed"}
	for i, id := range want {
		if events[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, events[i].ID)
		}
	}
}
