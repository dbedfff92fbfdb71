package schedule

import (
	"testing"
	"time"

	"schedboard/models"
)

func TestWeekWindow(t *testing.T) {
	tests := []struct {
		name     string
		anchor   time.Time
		expStart string
		expEnd   string
	}{
		{
			name:     "wednesday anchors to its monday",
			anchor:   time.Date(2024, 6, 26, 0, 0, 0, 0, time.UTC),
			expStart: "2024-06-24",
			expEnd:   "2024-06-28",
		},
		{
			name:     "monday anchors to itself",
			anchor:   time.Date(2024, 6, 24, 0, 0, 0, 0, time.UTC),
			expStart: "2024-06-24",
			expEnd:   "2024-06-28",
		},
		{
			name:     "sunday belongs to the preceding week",
			anchor:   time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
			expStart: "2024-06-24",
			expEnd:   "2024-06-28",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			w := WeekWindow(tc.anchor)
			if w.StartDate != tc.expStart || w.EndDate != tc.expEnd {
				t.Fatalf("expected %s..%s, got %s..%s", tc.expStart, tc.expEnd, w.StartDate, w.EndDate)
			}
		})
	}
}

func TestNavigateWeek(t *testing.T) {
	w := models.Window{StartDate: "2024-06-24", EndDate: "2024-06-28"}

	next, err := NavigateWeek(w, DirectionNext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.StartDate != "2024-07-01" || next.EndDate != "2024-07-05" {
		t.Fatalf("expected 2024-07-01..2024-07-05, got %s..%s", next.StartDate, next.EndDate)
	}

	back, err := NavigateWeek(next, DirectionPrev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back != w {
		t.Fatalf("expected round trip back to %+v, got %+v", w, back)
	}
}

func TestNavigateWeekInvalidDirection(t *testing.T) {
	w := models.Window{StartDate: "2024-06-24", EndDate: "2024-06-28"}
	if _, err := NavigateWeek(w, "sideways"); err == nil {
		t.Fatalf("expected error for unknown direction")
	}
}

func TestNavigateMonth(t *testing.T) {
	tests := []struct {
		name      string
		window    models.Window
		direction string
		expStart  string
		expEnd    string
	}{
		{
			name:      "next month from mid-month week",
			window:    models.Window{StartDate: "2024-06-10", EndDate: "2024-06-14"},
			direction: DirectionNext,
			expStart:  "2024-07-01",
			expEnd:    "2024-07-31",
		},
		{
			name:      "prev month across a year boundary",
			window:    models.Window{StartDate: "2024-01-08", EndDate: "2024-01-12"},
			direction: DirectionPrev,
			expStart:  "2023-12-01",
			expEnd:    "2023-12-31",
		},
		{
			name:      "straddling week resolves to the majority month",
			window:    models.Window{StartDate: "2024-07-29", EndDate: "2024-08-02"},
			direction: DirectionNext,
			expStart:  "2024-08-01",
			expEnd:    "2024-08-31",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := NavigateMonth(tc.window, tc.direction)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.StartDate != tc.expStart || got.EndDate != tc.expEnd {
				t.Fatalf("expected %s..%s, got %s..%s", tc.expStart, tc.expEnd, got.StartDate, got.EndDate)
			}
		})
	}
}

func TestResolveMonthForWeekTie(t *testing.T) {
	// Not a real board window, but a tie must resolve to the start month.
	w := models.Window{StartDate: "2024-06-29", EndDate: "2024-07-02"}
	year, month, err := ResolveMonthForWeek(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if year != 2024 || month != time.June {
		t.Fatalf("expected June 2024, got %s %d", month, year)
	}
}

func TestMonthGrid(t *testing.T) {
	cells := MonthGrid(2024, time.June)
	if len(cells) != 42 {
		t.Fatalf("expected 42 cells, got %d", len(cells))
	}

	// June 2024 starts on a Saturday; Monday-first padding begins May 27.
	if got := cells[0].Date.Format("2006-01-02"); got != "2024-05-27" {
		t.Fatalf("expected grid to start 2024-05-27, got %s", got)
	}
	if cells[0].InMonth {
		t.Fatalf("expected leading padding cell to be out of month")
	}

	inMonth := 0
	for _, c := range cells {
		if c.InMonth {
			inMonth++
		}
	}
	if inMonth != 30 {
		t.Fatalf("expected 30 in-month cells for June, got %d", inMonth)
	}
}

func TestDayKeysInWindow(t *testing.T) {
	w := models.Window{StartDate: "2024-06-24", EndDate: "2024-06-28"}
	keys := DayKeysInWindow(w)
	want := []string{"2024-06-24", "2024-06-25", "2024-06-26", "2024-06-27", "2024-06-28"}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], keys[i])
		}
	}
}

func TestDefaultWindowTitle(t *testing.T) {
	weekly := models.Window{StartDate: "2024-06-24", EndDate: "2024-06-28"}
	if got := DefaultWindowTitle(weekly, models.ViewWeekly); got != "Week of Jun 24 - Jun 28, 2024" {
		t.Fatalf("unexpected weekly title %q", got)
	}

	monthly := models.Window{StartDate: "2024-06-01", EndDate: "2024-06-30"}
	if got := DefaultWindowTitle(monthly, models.ViewMonthly); got != "June 2024" {
		t.Fatalf("unexpected monthly title %q", got)
	}
}
