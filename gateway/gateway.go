package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"schedboard/models"

	"github.com/sirupsen/logrus"
)

// Slot names. Each slot holds one complete snapshot document.
const (
	SlotDraft     = "draft"
	SlotPublished = "published"
)

// SlotBackend durably stores one document per slot.
type SlotBackend interface {
	Write(ctx context.Context, slot string, doc []byte) error
	// Read returns models.ErrNotFound when the slot has never been written.
	Read(ctx context.Context, slot string) ([]byte, error)
}

// Notifier fans a committed slot document out to other sessions.
type Notifier interface {
	Publish(ctx context.Context, slot string, doc []byte) error
	Subscribe(ctx context.Context, slot string, fn func(doc []byte)) (stop func(), err error)
}

// Gateway stores and retrieves snapshots under named slots. Every save is
// written, read back and integrity-verified; transient failures are retried
// with linearly increasing backoff before escalating as fatal. The
// previously stored document survives a failed save untouched.
type Gateway struct {
	backend     SlotBackend
	notifier    Notifier
	maxAttempts int
	backoffStep time.Duration
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithMaxAttempts overrides the retry limit.
func WithMaxAttempts(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithBackoffStep overrides the per-attempt backoff increment.
func WithBackoffStep(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.backoffStep = d
		}
	}
}

// New creates a gateway. The notifier may be nil, in which case committed
// saves are not fanned out to other sessions.
func New(backend SlotBackend, notifier Notifier, opts ...Option) *Gateway {
	g := &Gateway{
		backend:     backend,
		notifier:    notifier,
		maxAttempts: 3,
		backoffStep: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Save writes the snapshot to the slot, reads it back and verifies
// integrity. Retries up to the configured limit, then raises a fatal
// PersistenceError wrapping the last failure. A failed save, whether
// rejected up front or exhausted after retries, leaves the previously
// stored document in place.
func (g *Gateway) Save(ctx context.Context, slot string, snap models.Snapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return &models.PersistenceError{Slot: slot, Attempts: 0, Err: err}
	}

	// An invalid snapshot can never pass the post-write check. Reject it
	// before the slot is touched so the stored document survives.
	if err := Verify(slot, snap); err != nil {
		return &models.PersistenceError{Slot: slot, Attempts: 0, Err: err}
	}

	prior, err := g.backend.Read(ctx, slot)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return &models.PersistenceError{Slot: slot, Attempts: 0, Err: err}
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		lastErr = g.saveOnce(ctx, slot, doc)
		if lastErr == nil {
			if g.notifier != nil {
				if err := g.notifier.Publish(ctx, slot, doc); err != nil {
					logrus.WithError(err).WithField("slot", slot).Warn("Failed to publish slot change notification")
				}
			}
			return nil
		}

		logrus.WithError(lastErr).WithFields(logrus.Fields{
			"slot":    slot,
			"attempt": attempt,
		}).Warn("Slot save attempt failed")

		if attempt < g.maxAttempts {
			if err := sleepCtx(ctx, time.Duration(attempt)*g.backoffStep); err != nil {
				lastErr = err
				break
			}
		}
	}

	g.restorePrior(ctx, slot, prior)
	return &models.PersistenceError{Slot: slot, Attempts: g.maxAttempts, Err: lastErr}
}

// restorePrior puts the pre-save document back after an exhausted save so a
// partially written slot does not shadow the last good snapshot.
func (g *Gateway) restorePrior(ctx context.Context, slot string, prior []byte) {
	if prior == nil {
		return
	}
	if err := g.backend.Write(ctx, slot, prior); err != nil {
		logrus.WithError(err).WithField("slot", slot).Error("Failed to restore prior slot document")
	}
}

func (g *Gateway) saveOnce(ctx context.Context, slot string, doc []byte) error {
	if err := g.backend.Write(ctx, slot, doc); err != nil {
		return err
	}
	stored, err := g.backend.Read(ctx, slot)
	if err != nil {
		return err
	}
	var snap models.Snapshot
	if err := json.Unmarshal(stored, &snap); err != nil {
		return &models.IntegrityError{Slot: slot, Reason: "stored document is not valid JSON: " + err.Error()}
	}
	return Verify(slot, snap)
}

// Load reads the snapshot stored under the slot. Returns models.ErrNotFound
// when the slot has never been written.
func (g *Gateway) Load(ctx context.Context, slot string) (models.Snapshot, error) {
	doc, err := g.backend.Read(ctx, slot)
	if err != nil {
		return models.Snapshot{}, err
	}
	var snap models.Snapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return models.Snapshot{}, &models.IntegrityError{Slot: slot, Reason: "stored document is not valid JSON: " + err.Error()}
	}
	return snap, nil
}

// Subscribe registers a callback invoked with the full snapshot whenever
// the slot changes, including changes committed by other sessions. The
// callback never receives a diff.
func (g *Gateway) Subscribe(ctx context.Context, slot string, fn func(models.Snapshot)) (func(), error) {
	if g.notifier == nil {
		return func() {}, nil
	}
	return g.notifier.Subscribe(ctx, slot, func(doc []byte) {
		var snap models.Snapshot
		if err := json.Unmarshal(doc, &snap); err != nil {
			logrus.WithError(err).WithField("slot", slot).Warn("Dropping malformed slot notification")
			return
		}
		fn(snap)
	})
}

// Verify runs the post-write integrity checks: instructor/row referential
// integrity, event id uniqueness, and required fields on every event.
func Verify(slot string, snap models.Snapshot) error {
	rowsByID := make(map[string]bool, len(snap.Rows))
	for _, row := range snap.Rows {
		if rowsByID[row.ID] {
			return &models.IntegrityError{Slot: slot, Reason: fmt.Sprintf("duplicate row id %s", row.ID)}
		}
		rowsByID[row.ID] = true
	}

	insByID := make(map[string]bool, len(snap.Instructors))
	for _, ins := range snap.Instructors {
		if insByID[ins.ID] {
			return &models.IntegrityError{Slot: slot, Reason: fmt.Sprintf("duplicate instructor id %s", ins.ID)}
		}
		insByID[ins.ID] = true
		if !rowsByID[ins.ID] {
			return &models.IntegrityError{Slot: slot, Reason: fmt.Sprintf("instructor %s has no row", ins.ID)}
		}
	}
	for id := range rowsByID {
		if !insByID[id] {
			return &models.IntegrityError{Slot: slot, Reason: fmt.Sprintf("row %s has no instructor", id)}
		}
	}

	type cell struct {
		rowID  string
		dayKey string
	}
	eventIDs := make(map[string]cell)
	for _, row := range snap.Rows {
		for dayKey, events := range row.Events {
			for _, e := range events {
				if e.ID == "" {
					return &models.IntegrityError{Slot: slot, Reason: fmt.Sprintf("event without id in row %s day %s", row.ID, dayKey)}
				}
				if prev, dup := eventIDs[e.ID]; dup {
					// The same id under a legacy key and its ISO twin is a
					// pending migration, not a violation; read paths
					// de-duplicate it.
					if prev.rowID != row.ID || !dayKeysAreTwins(prev.dayKey, dayKey) {
						return &models.IntegrityError{Slot: slot, Reason: fmt.Sprintf("duplicate event id %s", e.ID)}
					}
				}
				eventIDs[e.ID] = cell{rowID: row.ID, dayKey: dayKey}
				if e.Title == "" || e.Location == "" || e.Color == "" {
					return &models.IntegrityError{Slot: slot, Reason: fmt.Sprintf("event %s missing title, location or color", e.ID)}
				}
			}
		}
	}
	return nil
}

func dayKeysAreTwins(a, b string) bool {
	return models.LegacyDayKey(a) == b || models.LegacyDayKey(b) == a
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
