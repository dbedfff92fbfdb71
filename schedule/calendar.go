package schedule

import (
	"fmt"
	"time"

	"schedboard/models"
)

// Navigation directions
const (
	DirectionNext = "next"
	DirectionPrev = "prev"
)

const dayKeyLayout = "2006-01-02"

// GridCell is one cell of the 6x7 month grid.
type GridCell struct {
	Date    time.Time `json:"date"`
	Day     int       `json:"day"`
	InMonth bool      `json:"in_month"`
	Weekend bool      `json:"weekend"`
	Today   bool      `json:"today"`
}

// WeekWindow returns the Monday-start, Friday-end 5-day window containing
// the anchor date.
func WeekWindow(anchor time.Time) models.Window {
	offset := (int(anchor.Weekday()) + 6) % 7
	monday := anchor.AddDate(0, 0, -offset)
	friday := monday.AddDate(0, 0, 4)
	return models.Window{
		StartDate: monday.Format(dayKeyLayout),
		EndDate:   friday.Format(dayKeyLayout),
	}
}

// MonthWindow returns the full span of the given month.
func MonthWindow(year int, month time.Month) models.Window {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return models.Window{
		StartDate: first.Format(dayKeyLayout),
		EndDate:   last.Format(dayKeyLayout),
	}
}

// MonthGrid returns the 42-cell (6 rows x 7 columns, Monday-first) grid for
// the target month, padded with leading and trailing days of the adjacent
// months.
func MonthGrid(year int, month time.Month) []GridCell {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(first.Weekday()) + 6) % 7
	start := first.AddDate(0, 0, -offset)
	today := time.Now().Format(dayKeyLayout)

	cells := make([]GridCell, 0, 42)
	for i := 0; i < 42; i++ {
		d := start.AddDate(0, 0, i)
		wd := d.Weekday()
		cells = append(cells, GridCell{
			Date:    d,
			Day:     d.Day(),
			InMonth: d.Month() == month && d.Year() == year,
			Weekend: wd == time.Saturday || wd == time.Sunday,
			Today:   d.Format(dayKeyLayout) == today,
		})
	}
	return cells
}

// NavigateWeek advances or retreats a window by exactly seven days,
// preserving weekday alignment.
func NavigateWeek(w models.Window, direction string) (models.Window, error) {
	days, err := directionDays(direction, 7)
	if err != nil {
		return w, err
	}
	start, err := w.Start()
	if err != nil {
		return w, fmt.Errorf("invalid window start %q: %w", w.StartDate, err)
	}
	end, err := w.End()
	if err != nil {
		return w, fmt.Errorf("invalid window end %q: %w", w.EndDate, err)
	}
	return models.Window{
		StartDate: start.AddDate(0, 0, days).Format(dayKeyLayout),
		EndDate:   end.AddDate(0, 0, days).Format(dayKeyLayout),
	}, nil
}

// NavigateMonth moves to the full span of the adjacent month. The current
// month is resolved from the window by majority when the window straddles a
// month boundary.
func NavigateMonth(w models.Window, direction string) (models.Window, error) {
	step, err := directionDays(direction, 1)
	if err != nil {
		return w, err
	}
	year, month, err := ResolveMonthForWeek(w)
	if err != nil {
		return w, err
	}
	next := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, step, 0)
	return MonthWindow(next.Year(), next.Month()), nil
}

func directionDays(direction string, magnitude int) (int, error) {
	switch direction {
	case DirectionNext:
		return magnitude, nil
	case DirectionPrev:
		return -magnitude, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", direction)
	}
}

// ResolveMonthForWeek returns the month containing the majority of the
// window's days. A tie goes to the starting month.
func ResolveMonthForWeek(w models.Window) (int, time.Month, error) {
	start, err := w.Start()
	if err != nil {
		return 0, 0, fmt.Errorf("invalid window start %q: %w", w.StartDate, err)
	}
	end, err := w.End()
	if err != nil {
		return 0, 0, fmt.Errorf("invalid window end %q: %w", w.EndDate, err)
	}

	type ym struct {
		year  int
		month time.Month
	}
	counts := make(map[ym]int)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		counts[ym{d.Year(), d.Month()}]++
	}

	best := ym{start.Year(), start.Month()}
	for k, n := range counts {
		if n > counts[best] {
			best = k
		}
	}
	return best.year, best.month, nil
}

// DayKeysInWindow lists the ISO day keys covered by the window, inclusive.
func DayKeysInWindow(w models.Window) []string {
	start, err := w.Start()
	if err != nil {
		return nil
	}
	end, err := w.End()
	if err != nil {
		return nil
	}
	var keys []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		keys = append(keys, d.Format(dayKeyLayout))
	}
	return keys
}

// DefaultWindowTitle derives a display title for a window that has no
// stored one.
func DefaultWindowTitle(w models.Window, viewMode string) string {
	start, err := w.Start()
	if err != nil {
		return ""
	}
	if viewMode == models.ViewMonthly {
		year, month, err := ResolveMonthForWeek(w)
		if err != nil {
			return ""
		}
		return fmt.Sprintf("%s %d", month.String(), year)
	}
	end, err := w.End()
	if err != nil {
		return ""
	}
	return fmt.Sprintf("Week of %s - %s", start.Format("Jan 2"), end.Format("Jan 2, 2006"))
}
