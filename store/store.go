package store

import (
	"sync"
	"time"

	"schedboard/models"
	"schedboard/schedule"
	"schedboard/utils"

	"github.com/sirupsen/logrus"
)

// Store is the single source of truth for the draft and published
// snapshots. Mutations run synchronously against the in-memory draft and
// never perform I/O; saving and publishing are explicit, separate actions
// handled by the services layer. The two snapshots are causally
// independent: every value handed out or taken in is deep-copied.
type Store struct {
	mu          sync.RWMutex
	draft       models.Snapshot
	published   models.Snapshot
	dirty       bool
	subscribers map[int]func(models.Snapshot)
	nextSubID   int
}

// New creates a store seeded with the given snapshot in both slots.
func New(initial models.Snapshot) *Store {
	return &Store{
		draft:       initial.DeepCopy(),
		published:   initial.DeepCopy(),
		subscribers: make(map[int]func(models.Snapshot)),
	}
}

// Subscribe registers a callback invoked with a full draft copy after every
// committed mutation. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(models.Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// DraftCopy returns a deep copy of the draft snapshot.
func (s *Store) DraftCopy() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft.DeepCopy()
}

// PublishedCopy returns a deep copy of the published snapshot.
func (s *Store) PublishedCopy() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.published.DeepCopy()
}

// Dirty reports whether the draft has unpublished changes.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// ClearDirty resets the unpublished-changes indicator. Called by the
// publish pipeline after the published slot was durably written.
func (s *Store) ClearDirty() {
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
}

// SetPublished replaces the published snapshot with a deep copy. Only the
// publish pipeline calls this, never incremental mutations.
func (s *Store) SetPublished(snap models.Snapshot) {
	s.mu.Lock()
	s.published = snap.DeepCopy()
	s.mu.Unlock()
}

// ReplaceDraft ingests a draft snapshot committed by another session. The
// unpublished-changes indicator is left alone: a saved draft is still
// unpublished, and only the publish pipeline clears it. This also makes the
// session's own save notification echoing back through pub/sub harmless.
func (s *Store) ReplaceDraft(snap models.Snapshot) {
	s.mu.Lock()
	s.draft = snap.DeepCopy()
	copies := s.snapshotForSubscribersLocked()
	subs := s.subscriberListLocked()
	s.mu.Unlock()
	dispatch(subs, copies)
}

// ReplacePublished ingests a published snapshot committed by another session.
func (s *Store) ReplacePublished(snap models.Snapshot) {
	s.mu.Lock()
	s.published = snap.DeepCopy()
	s.mu.Unlock()
}

// AddEvent appends an event to the row's day bucket. The id is always
// freshly generated; a caller-supplied one is discarded so a client can
// never plant a duplicate id into the snapshot. Missing required fields or
// a missing row fail with a ValidationError.
func (s *Store) AddEvent(rowID, dayKey string, e models.Event) (models.Event, error) {
	if err := validateEvent(e); err != nil {
		return models.Event{}, err
	}

	s.mu.Lock()
	row := s.draft.RowByID(rowID)
	if row == nil {
		s.mu.Unlock()
		return models.Event{}, &models.ValidationError{Field: "rowId", Message: "row " + rowID + " does not exist"}
	}
	e.ID = utils.NewEventID()
	if row.Events == nil {
		row.Events = make(map[string][]models.Event)
	}
	row.Events[dayKey] = append(row.Events[dayKey], e)
	snap, subs := s.commitLocked()
	s.mu.Unlock()

	dispatch(subs, snap)
	return e, nil
}

// UpdateEvent replaces the event with matching id in the cell. A
// non-existent row, day or id is a logged no-op.
func (s *Store) UpdateEvent(rowID, dayKey string, e models.Event) error {
	if err := validateEvent(e); err != nil {
		return err
	}

	s.mu.Lock()
	row := s.draft.RowByID(rowID)
	replaced := false
	if row != nil {
		for _, key := range cellKeys(dayKey) {
			events := row.Events[key]
			for i := range events {
				if events[i].ID == e.ID {
					events[i] = e
					replaced = true
					break
				}
			}
			if replaced {
				break
			}
		}
	}
	if !replaced {
		s.mu.Unlock()
		logMutationNoop("update_event", rowID, dayKey, e.ID)
		return nil
	}
	snap, subs := s.commitLocked()
	s.mu.Unlock()

	dispatch(subs, snap)
	return nil
}

// MoveEvent atomically removes the event from the source cell and appends
// it, unmodified, to the destination cell. A no-op if the event cannot be
// located at the source.
func (s *Store) MoveEvent(eventID, fromRow, fromDay, toRow, toDay string) {
	s.mu.Lock()
	src := s.draft.RowByID(fromRow)
	dst := s.draft.RowByID(toRow)
	if src == nil || dst == nil {
		s.mu.Unlock()
		logMutationNoop("move_event", fromRow+"->"+toRow, fromDay+"->"+toDay, eventID)
		return
	}
	moved, ok := removeEventFromCell(src, fromDay, eventID)
	if !ok {
		s.mu.Unlock()
		logMutationNoop("move_event", fromRow, fromDay, eventID)
		return
	}
	if dst.Events == nil {
		dst.Events = make(map[string][]models.Event)
	}
	dst.Events[toDay] = append(dst.Events[toDay], moved)
	snap, subs := s.commitLocked()
	s.mu.Unlock()

	dispatch(subs, snap)
}

// CopyEventInSameCell duplicates an event with a freshly generated id,
// preserving all other fields, and inserts the copy into the same cell.
func (s *Store) CopyEventInSameCell(eventID, rowID, dayKey string) (models.Event, bool) {
	s.mu.Lock()
	row := s.draft.RowByID(rowID)
	if row == nil {
		s.mu.Unlock()
		logMutationNoop("copy_event", rowID, dayKey, eventID)
		return models.Event{}, false
	}
	var copied models.Event
	found := false
	for _, key := range cellKeys(dayKey) {
		for _, e := range row.Events[key] {
			if e.ID == eventID {
				copied = e
				copied.ID = utils.NewEventID()
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	if !found {
		s.mu.Unlock()
		logMutationNoop("copy_event", rowID, dayKey, eventID)
		return models.Event{}, false
	}
	row.Events[dayKey] = append(row.Events[dayKey], copied)
	snap, subs := s.commitLocked()
	s.mu.Unlock()

	dispatch(subs, snap)
	return copied, true
}

// DeleteEvent removes an event by id. A no-op if absent.
func (s *Store) DeleteEvent(rowID, dayKey, eventID string) {
	s.mu.Lock()
	row := s.draft.RowByID(rowID)
	if row == nil {
		s.mu.Unlock()
		logMutationNoop("delete_event", rowID, dayKey, eventID)
		return
	}
	if _, ok := removeEventFromCell(row, dayKey, eventID); !ok {
		s.mu.Unlock()
		logMutationNoop("delete_event", rowID, dayKey, eventID)
		return
	}
	snap, subs := s.commitLocked()
	s.mu.Unlock()

	dispatch(subs, snap)
}

// AddInstructor creates an instructor and its paired row with the same id.
func (s *Store) AddInstructor(name, regional string) (models.Instructor, error) {
	if name == "" {
		return models.Instructor{}, &models.ValidationError{Field: "name", Message: "instructor name is required"}
	}

	ins := models.Instructor{
		ID:       utils.NewInstructorID(),
		Name:     name,
		Regional: regional,
	}
	s.mu.Lock()
	s.draft.Instructors = append(s.draft.Instructors, ins)
	s.draft.Rows = append(s.draft.Rows, models.ScheduleRow{
		ID:         ins.ID,
		Instructor: ins.Name,
		Regional:   ins.Regional,
		Events:     make(map[string][]models.Event),
	})
	snap, subs := s.commitLocked()
	s.mu.Unlock()

	dispatch(subs, snap)
	return ins, nil
}

// UpdateInstructor updates an instructor and mirrors the change onto its
// paired row.
func (s *Store) UpdateInstructor(ins models.Instructor) error {
	if ins.Name == "" {
		return &models.ValidationError{Field: "name", Message: "instructor name is required"}
	}

	s.mu.Lock()
	updated := false
	for i := range s.draft.Instructors {
		if s.draft.Instructors[i].ID == ins.ID {
			s.draft.Instructors[i].Name = ins.Name
			s.draft.Instructors[i].Regional = ins.Regional
			updated = true
			break
		}
	}
	if row := s.draft.RowByID(ins.ID); row != nil {
		row.Instructor = ins.Name
		row.Regional = ins.Regional
	}
	if !updated {
		s.mu.Unlock()
		logMutationNoop("update_instructor", ins.ID, "", "")
		return nil
	}
	snap, subs := s.commitLocked()
	s.mu.Unlock()

	dispatch(subs, snap)
	return nil
}

// DeleteInstructor removes an instructor and its paired row together.
func (s *Store) DeleteInstructor(id string) {
	s.mu.Lock()
	removed := false
	for i := range s.draft.Instructors {
		if s.draft.Instructors[i].ID == id {
			s.draft.Instructors = append(s.draft.Instructors[:i], s.draft.Instructors[i+1:]...)
			removed = true
			break
		}
	}
	for i := range s.draft.Rows {
		if s.draft.Rows[i].ID == id {
			s.draft.Rows = append(s.draft.Rows[:i], s.draft.Rows[i+1:]...)
			break
		}
	}
	if !removed {
		s.mu.Unlock()
		logMutationNoop("delete_instructor", id, "", "")
		return
	}
	snap, subs := s.commitLocked()
	s.mu.Unlock()

	dispatch(subs, snap)
}

// UpdateTitle stores the display title for the current window.
func (s *Store) UpdateTitle(title string) {
	s.mu.Lock()
	if s.draft.Config.TitlesByWindow == nil {
		s.draft.Config.TitlesByWindow = make(map[string]string)
	}
	s.draft.Config.TitlesByWindow[s.draft.Config.CurrentWindow.Key()] = title
	snap, subs := s.commitLocked()
	s.mu.Unlock()

	dispatch(subs, snap)
}

// UpdateWindow replaces the current window.
func (s *Store) UpdateWindow(w models.Window) error {
	if _, err := w.Start(); err != nil {
		return &models.ValidationError{Field: "startDate", Message: "invalid date " + w.StartDate}
	}
	if _, err := w.End(); err != nil {
		return &models.ValidationError{Field: "endDate", Message: "invalid date " + w.EndDate}
	}

	s.mu.Lock()
	s.draft.Config.CurrentWindow = w
	snap, subs := s.commitLocked()
	s.mu.Unlock()

	dispatch(subs, snap)
	return nil
}

// NavigateWeek advances or retreats the current window by one week.
func (s *Store) NavigateWeek(direction string) (models.Window, error) {
	s.mu.Lock()
	next, err := schedule.NavigateWeek(s.draft.Config.CurrentWindow, direction)
	if err != nil {
		s.mu.Unlock()
		return models.Window{}, err
	}
	s.draft.Config.CurrentWindow = next
	s.draft.Config.ViewMode = models.ViewWeekly
	snap, subs := s.commitLocked()
	s.mu.Unlock()

	dispatch(subs, snap)
	return next, nil
}

// NavigateMonth advances or retreats the current window by one month.
func (s *Store) NavigateMonth(direction string) (models.Window, error) {
	s.mu.Lock()
	next, err := schedule.NavigateMonth(s.draft.Config.CurrentWindow, direction)
	if err != nil {
		s.mu.Unlock()
		return models.Window{}, err
	}
	s.draft.Config.CurrentWindow = next
	s.draft.Config.ViewMode = models.ViewMonthly
	snap, subs := s.commitLocked()
	s.mu.Unlock()

	dispatch(subs, snap)
	return next, nil
}

// CurrentTitle returns the stored title of the current window, deriving a
// default when none was stored.
func (s *Store) CurrentTitle() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := s.draft.Config
	if t, ok := cfg.TitlesByWindow[cfg.CurrentWindow.Key()]; ok && t != "" {
		return t
	}
	return schedule.DefaultWindowTitle(cfg.CurrentWindow, cfg.ViewMode)
}

// CheckConflict runs the conflict detector against a draft cell, merging
// legacy and ISO day keys.
func (s *Store) CheckConflict(rowID, dayKey, timeRange, excludeID string) schedule.ConflictResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.draft.RowByID(rowID)
	if row == nil {
		return schedule.ConflictResult{}
	}
	return schedule.CheckTimeConflict(row.DayEvents(dayKey), timeRange, excludeID)
}

// MigrateLegacyDayKeys rewrites legacy two-digit day keys of every draft row
// to ISO keys within the current window. Returns the number of rows changed.
func (s *Store) MigrateLegacyDayKeys() int {
	s.mu.Lock()
	window := s.draft.Config.CurrentWindow
	migrated := 0
	for i := range s.draft.Rows {
		row := &s.draft.Rows[i]
		if !hasLegacyKeys(row, window) {
			continue
		}
		utils.MigrateDayKeys(row, window)
		migrated++
	}
	if migrated == 0 {
		s.mu.Unlock()
		return 0
	}
	snap, subs := s.commitLocked()
	s.mu.Unlock()

	dispatch(subs, snap)
	return migrated
}

// commitLocked stamps the draft, marks it dirty and prepares the subscriber
// fan-out. Callers hold the write lock.
func (s *Store) commitLocked() (models.Snapshot, []func(models.Snapshot)) {
	s.draft.LastUpdated = time.Now().UTC()
	s.dirty = true
	return s.snapshotForSubscribersLocked(), s.subscriberListLocked()
}

func (s *Store) snapshotForSubscribersLocked() models.Snapshot {
	if len(s.subscribers) == 0 {
		return models.Snapshot{}
	}
	return s.draft.DeepCopy()
}

func (s *Store) subscriberListLocked() []func(models.Snapshot) {
	if len(s.subscribers) == 0 {
		return nil
	}
	subs := make([]func(models.Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

func dispatch(subs []func(models.Snapshot), snap models.Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}

// hasLegacyKeys reports whether the row stores events under a two-digit key
// of any day inside the window.
func hasLegacyKeys(row *models.ScheduleRow, window models.Window) bool {
	for _, isoKey := range schedule.DayKeysInWindow(window) {
		if legacy := models.LegacyDayKey(isoKey); legacy != "" {
			if _, ok := row.Events[legacy]; ok {
				return true
			}
		}
	}
	return false
}

// cellKeys lists the day keys to search for a cell: the addressed key plus
// its legacy two-digit twin while migration is incomplete.
func cellKeys(dayKey string) []string {
	if legacy := models.LegacyDayKey(dayKey); legacy != "" {
		return []string{dayKey, legacy}
	}
	return []string{dayKey}
}

func removeEventFromCell(row *models.ScheduleRow, dayKey, eventID string) (models.Event, bool) {
	for _, key := range cellKeys(dayKey) {
		events := row.Events[key]
		for i := range events {
			if events[i].ID == eventID {
				removed := events[i]
				row.Events[key] = append(events[:i], events[i+1:]...)
				return removed, true
			}
		}
	}
	return models.Event{}, false
}

func validateEvent(e models.Event) error {
	switch {
	case e.Title == "":
		return &models.ValidationError{Field: "title", Message: "event title is required"}
	case e.Location == "":
		return &models.ValidationError{Field: "location", Message: "event location is required"}
	case e.Color == "":
		return &models.ValidationError{Field: "color", Message: "event color is required"}
	}
	return nil
}

func logMutationNoop(op, rowID, dayKey, eventID string) {
	logrus.WithFields(logrus.Fields{
		"op":       op,
		"row_id":   rowID,
		"day_key":  dayKey,
		"event_id": eventID,
	}).Warn("Mutation targeted a missing row/day/event; ignored")
}
