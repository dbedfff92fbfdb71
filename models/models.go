package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
	case string:
		*j = append((*j)[0:0], v...)
	}
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// View modes for the board window
const (
	ViewWeekly  = "weekly"
	ViewMonthly = "monthly"
)

// EventIDPrefix namespaces every generated event id so foreign ids are
// recognizable in persisted documents.
const EventIDPrefix = "evt-"

// Instructor is a person who can be assigned events. Each instructor owns
// exactly one ScheduleRow with the same id.
type Instructor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Regional string `json:"regional"`
}

// EventDetails is an ordered list of detail lines. Legacy documents store a
// single string instead of an array; both forms unmarshal, and a single
// element marshals back to the scalar form for format compatibility.
type EventDetails []string

func (d *EventDetails) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*d = EventDetails{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*d = EventDetails(many)
	return nil
}

func (d EventDetails) MarshalJSON() ([]byte, error) {
	if len(d) == 1 {
		return json.Marshal(d[0])
	}
	return json.Marshal([]string(d))
}

// Event is a single booking inside a row/day cell.
type Event struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Details   EventDetails `json:"details,omitempty"`
	TimeRange string       `json:"time,omitempty"`
	Location  string       `json:"location"`
	Color     string       `json:"color"`
	Modality  string       `json:"modality,omitempty"`
	Confirmed bool         `json:"confirmed"`
}

// ScheduleRow holds one instructor's events keyed by day. Day keys are ISO
// dates (YYYY-MM-DD); legacy documents may still carry two-digit
// day-of-month keys, which read paths merge via DayEvents.
type ScheduleRow struct {
	ID         string             `json:"id"`
	Instructor string             `json:"instructor"`
	Regional   string             `json:"regional"`
	Events     map[string][]Event `json:"events"`
}

// DayEvents returns the events for an ISO day key, merged with the legacy
// two-digit key of the same day and de-duplicated by event id.
func (r *ScheduleRow) DayEvents(isoKey string) []Event {
	events := append([]Event(nil), r.Events[isoKey]...)
	legacy := LegacyDayKey(isoKey)
	if legacy == "" {
		return events
	}
	seen := make(map[string]bool, len(events))
	for _, e := range events {
		seen[e.ID] = true
	}
	for _, e := range r.Events[legacy] {
		if !seen[e.ID] {
			events = append(events, e)
			seen[e.ID] = true
		}
	}
	return events
}

// LegacyDayKey derives the two-digit day-of-month key from an ISO day key.
// Returns "" when the key is not an ISO date.
func LegacyDayKey(isoKey string) string {
	t, err := time.Parse("2006-01-02", isoKey)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%02d", t.Day())
}

// Window is an inclusive date span, ISO formatted.
type Window struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (w Window) Start() (time.Time, error) {
	return time.Parse("2006-01-02", w.StartDate)
}

func (w Window) End() (time.Time, error) {
	return time.Parse("2006-01-02", w.EndDate)
}

// Key identifies the window for title lookup, e.g. "2024-06-24_2024-06-28".
func (w Window) Key() string {
	return w.StartDate + "_" + w.EndDate
}

// BoardConfig carries display configuration shared by all rows.
type BoardConfig struct {
	TitlesByWindow map[string]string `json:"titlesByWindow"`
	CurrentWindow  Window            `json:"currentWindow"`
	ViewMode       string            `json:"viewMode"`
}

// Snapshot is the unit of persistence and of draft/published isolation: the
// complete board state at one point in time.
type Snapshot struct {
	Instructors []Instructor  `json:"instructors"`
	Rows        []ScheduleRow `json:"scheduleRows"`
	Config      BoardConfig   `json:"globalConfig"`
	LastUpdated time.Time     `json:"lastUpdated"`
}

// DeepCopy returns a structurally independent copy of the snapshot.
func (s Snapshot) DeepCopy() Snapshot {
	data, err := json.Marshal(s)
	if err != nil {
		return Snapshot{}
	}
	var out Snapshot
	if err := json.Unmarshal(data, &out); err != nil {
		return Snapshot{}
	}
	return out
}

// RowByID returns the row with the given id, or nil.
func (s Snapshot) RowByID(id string) *ScheduleRow {
	for i := range s.Rows {
		if s.Rows[i].ID == id {
			return &s.Rows[i]
		}
	}
	return nil
}

// EmptySnapshot seeds a new board around the week containing now.
func EmptySnapshot(window Window) Snapshot {
	return Snapshot{
		Instructors: []Instructor{},
		Rows:        []ScheduleRow{},
		Config: BoardConfig{
			TitlesByWindow: map[string]string{},
			CurrentWindow:  window,
			ViewMode:       ViewWeekly,
		},
		LastUpdated: time.Now().UTC(),
	}
}

// SlotRecord is the persisted slot document: one JSON snapshot per slot
// ("draft" or "published").
type SlotRecord struct {
	Slot      string    `json:"slot" gorm:"primaryKey;size:50"`
	Document  JSON      `json:"document" gorm:"type:json"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is an administrator account for the editing surface.
type User struct {
	BaseModel
	Username string `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Password string `json:"-" gorm:"size:255;not null"`
	Role     string `json:"role" gorm:"size:50;not null;default:'editor';type:enum('superadmin','admin','editor','viewer')"` // superadmin, admin, editor, viewer
	Regional string `json:"regional" gorm:"size:100"`
	Active   bool   `json:"active" gorm:"default:true"`
}

// NormalizeRegional uppercases and trims a regional name for comparison.
func NormalizeRegional(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
