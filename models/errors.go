package models

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a read of a missing slot, row, day or event.
var ErrNotFound = errors.New("not found")

// ValidationError reports a required field missing on add/edit. Surfaced
// immediately to the caller, never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// ConflictError reports a time-range collision inside a row/day cell. It
// blocks the save and is surfaced for user resolution.
type ConflictError struct {
	RowID     string
	DayKey    string
	TimeRange string
	Event     *Event
}

func (e *ConflictError) Error() string {
	title := ""
	if e.Event != nil {
		title = e.Event.Title
	}
	return fmt.Sprintf("time range %q collides with %q in row %s day %s", e.TimeRange, title, e.RowID, e.DayKey)
}

// PersistenceError is raised after the gateway exhausts its retries. The
// previously stored document is guaranteed untouched.
type PersistenceError struct {
	Slot     string
	Attempts int
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed for slot %q after %d attempts: %v", e.Slot, e.Attempts, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IntegrityError reports a post-write verification failure. The gateway
// retries it exactly like a transient persistence failure.
type IntegrityError struct {
	Slot   string
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for slot %q: %s", e.Slot, e.Reason)
}
