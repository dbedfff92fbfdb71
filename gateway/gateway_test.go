package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"schedboard/models"
)

type stubBackend struct {
	docs       map[string][]byte
	failWrites int
	writes     int
}

func newStubBackend() *stubBackend {
	return &stubBackend{docs: make(map[string][]byte)}
}

func (b *stubBackend) Write(ctx context.Context, slot string, doc []byte) error {
	b.writes++
	if b.failWrites > 0 {
		b.failWrites--
		return errors.New("backend unavailable")
	}
	b.docs[slot] = append([]byte(nil), doc...)
	return nil
}

func (b *stubBackend) Read(ctx context.Context, slot string) ([]byte, error) {
	doc, ok := b.docs[slot]
	if !ok {
		return nil, models.ErrNotFound
	}
	return doc, nil
}

type stubNotifier struct {
	published map[string][][]byte
}

func newStubNotifier() *stubNotifier {
	return &stubNotifier{published: make(map[string][][]byte)}
}

func (n *stubNotifier) Publish(ctx context.Context, slot string, doc []byte) error {
	n.published[slot] = append(n.published[slot], doc)
	return nil
}

func (n *stubNotifier) Subscribe(ctx context.Context, slot string, fn func(doc []byte)) (func(), error) {
	return func() {}, nil
}

func validSnapshot() models.Snapshot {
	return models.Snapshot{
		Instructors: []models.Instructor{{ID: "ins-1", Name: "Ana", Regional: "NORTE"}},
		Rows: []models.ScheduleRow{{
			ID: "ins-1", Instructor: "Ana", Regional: "NORTE",
			Events: map[string][]models.Event{
				"2024-06-26": {{ID: "evt-1", Title: "Induction", Location: "Bucaramanga", Color: "#fff"}},
			},
		}},
		Config: models.BoardConfig{
			CurrentWindow: models.Window{StartDate: "2024-06-24", EndDate: "2024-06-28"},
			ViewMode:      models.ViewWeekly,
		},
	}
}

func TestSaveRetriesTransientFailures(t *testing.T) {
	backend := newStubBackend()
	backend.failWrites = 2
	notifier := newStubNotifier()
	g := New(backend, notifier, WithMaxAttempts(3), WithBackoffStep(time.Millisecond))

	if err := g.Save(context.Background(), SlotDraft, validSnapshot()); err != nil {
		t.Fatalf("expected third attempt to succeed, got %v", err)
	}
	if backend.writes != 3 {
		t.Fatalf("expected 3 write attempts, got %d", backend.writes)
	}
	if len(notifier.published[SlotDraft]) != 1 {
		t.Fatalf("expected exactly one change notification after success")
	}
}

func TestSaveExhaustionRaisesPersistenceError(t *testing.T) {
	backend := newStubBackend()
	notifier := newStubNotifier()
	g := New(backend, notifier, WithMaxAttempts(3), WithBackoffStep(time.Millisecond))

	// Seed a good document, then make every write fail.
	if err := g.Save(context.Background(), SlotDraft, validSnapshot()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prior := append([]byte(nil), backend.docs[SlotDraft]...)
	backend.failWrites = 10

	err := g.Save(context.Background(), SlotDraft, validSnapshot())
	var pErr *models.PersistenceError
	if !errors.As(err, &pErr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if pErr.Attempts != 3 {
		t.Fatalf("expected 3 recorded attempts, got %d", pErr.Attempts)
	}
	if string(backend.docs[SlotDraft]) != string(prior) {
		t.Fatalf("failed save must leave the stored document untouched")
	}
	if len(notifier.published[SlotDraft]) != 1 {
		t.Fatalf("failed save must not publish a change notification")
	}
}

func TestSaveVerifiesReadBack(t *testing.T) {
	backend := newStubBackend()
	g := New(backend, nil, WithMaxAttempts(2), WithBackoffStep(time.Millisecond))

	// A snapshot violating referential integrity never passes verification,
	// regardless of retries.
	snap := validSnapshot()
	snap.Instructors = append(snap.Instructors, models.Instructor{ID: "ins-ghost", Name: "Ghost"})

	err := g.Save(context.Background(), SlotDraft, snap)
	var pErr *models.PersistenceError
	if !errors.As(err, &pErr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	var iErr *models.IntegrityError
	if !errors.As(pErr.Err, &iErr) {
		t.Fatalf("expected wrapped IntegrityError, got %v", pErr.Err)
	}
}

// corruptReadBackend returns a verifiably broken document on every read
// after the first write, simulating a backend that mangles stored data.
type corruptReadBackend struct {
	stub      *stubBackend
	corrupted bool
}

func (b *corruptReadBackend) Write(ctx context.Context, slot string, doc []byte) error {
	if err := b.stub.Write(ctx, slot, doc); err != nil {
		return err
	}
	b.corrupted = true
	return nil
}

func (b *corruptReadBackend) Read(ctx context.Context, slot string) ([]byte, error) {
	if b.corrupted {
		return []byte(`{"instructors":[{"id":"ins-ghost","name":"Ghost"}],"scheduleRows":[]}`), nil
	}
	return b.stub.Read(ctx, slot)
}

func TestSaveRejectsInvalidSnapshotWithoutWriting(t *testing.T) {
	backend := newStubBackend()
	g := New(backend, nil, WithMaxAttempts(3), WithBackoffStep(time.Millisecond))

	if err := g.Save(context.Background(), SlotDraft, validSnapshot()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prior := append([]byte(nil), backend.docs[SlotDraft]...)
	writesBefore := backend.writes

	snap := validSnapshot()
	snap.Instructors = append(snap.Instructors, models.Instructor{ID: "ins-ghost", Name: "Ghost"})

	err := g.Save(context.Background(), SlotDraft, snap)
	var pErr *models.PersistenceError
	if !errors.As(err, &pErr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	var iErr *models.IntegrityError
	if !errors.As(pErr.Err, &iErr) {
		t.Fatalf("expected wrapped IntegrityError, got %v", pErr.Err)
	}
	if backend.writes != writesBefore {
		t.Fatalf("invalid snapshot must be rejected before any write, got %d extra writes", backend.writes-writesBefore)
	}
	if string(backend.docs[SlotDraft]) != string(prior) {
		t.Fatalf("rejected save replaced the stored document")
	}
}

func TestSaveRestoresPriorDocumentAfterCorruptedReadBack(t *testing.T) {
	backend := &corruptReadBackend{stub: newStubBackend()}
	g := New(backend, nil, WithMaxAttempts(3), WithBackoffStep(time.Millisecond))

	want := validSnapshot()
	prior, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	backend.stub.docs[SlotDraft] = prior

	next := validSnapshot()
	next.Rows[0].Events["2024-06-27"] = []models.Event{
		{ID: "evt-2", Title: "Workshop", Location: "Cali", Color: "#fff"},
	}

	saveErr := g.Save(context.Background(), SlotDraft, next)
	var pErr *models.PersistenceError
	if !errors.As(saveErr, &pErr) {
		t.Fatalf("expected PersistenceError, got %v", saveErr)
	}
	var iErr *models.IntegrityError
	if !errors.As(pErr.Err, &iErr) {
		t.Fatalf("expected wrapped IntegrityError, got %v", pErr.Err)
	}
	if string(backend.stub.docs[SlotDraft]) != string(prior) {
		t.Fatalf("exhausted save must restore the previously stored document")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	backend := newStubBackend()
	g := New(backend, nil)

	want := validSnapshot()
	if err := g.Save(context.Background(), SlotPublished, want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := g.Load(context.Background(), SlotPublished)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Rows) != 1 || got.Rows[0].ID != "ins-1" {
		t.Fatalf("round trip lost rows: %+v", got.Rows)
	}
	if got.Config.CurrentWindow != want.Config.CurrentWindow {
		t.Fatalf("round trip lost window: %+v", got.Config.CurrentWindow)
	}
}

func TestLoadEmptySlot(t *testing.T) {
	g := New(newStubBackend(), nil)
	_, err := g.Load(context.Background(), SlotDraft)
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadMalformedDocument(t *testing.T) {
	backend := newStubBackend()
	backend.docs[SlotDraft] = []byte("{not json")
	g := New(backend, nil)

	_, err := g.Load(context.Background(), SlotDraft)
	var iErr *models.IntegrityError
	if !errors.As(err, &iErr) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.Snapshot)
		expFail bool
	}{
		{
			name:   "valid snapshot",
			mutate: func(s *models.Snapshot) {},
		},
		{
			name: "duplicate row id",
			mutate: func(s *models.Snapshot) {
				s.Rows = append(s.Rows, s.Rows[0])
				s.Instructors = append(s.Instructors, s.Instructors[0])
			},
			expFail: true,
		},
		{
			name: "instructor without row",
			mutate: func(s *models.Snapshot) {
				s.Instructors = append(s.Instructors, models.Instructor{ID: "ins-ghost", Name: "Ghost"})
			},
			expFail: true,
		},
		{
			name: "row without instructor",
			mutate: func(s *models.Snapshot) {
				s.Rows = append(s.Rows, models.ScheduleRow{ID: "ins-orphan", Instructor: "Orphan"})
			},
			expFail: true,
		},
		{
			name: "duplicate event id across rows",
			mutate: func(s *models.Snapshot) {
				s.Instructors = append(s.Instructors, models.Instructor{ID: "ins-2", Name: "Luis"})
				s.Rows = append(s.Rows, models.ScheduleRow{
					ID: "ins-2", Instructor: "Luis",
					Events: map[string][]models.Event{
						"2024-06-27": {{ID: "evt-1", Title: "Dup", Location: "Cali", Color: "#fff"}},
					},
				})
			},
			expFail: true,
		},
		{
			name: "same id under legacy twin key is tolerated",
			mutate: func(s *models.Snapshot) {
				s.Rows[0].Events["26"] = []models.Event{
					{ID: "evt-1", Title: "Induction", Location: "Bucaramanga", Color: "#fff"},
				}
			},
		},
		{
			name: "event missing required field",
			mutate: func(s *models.Snapshot) {
				s.Rows[0].Events["2024-06-27"] = []models.Event{{ID: "evt-2", Title: "No color", Location: "Cali"}}
			},
			expFail: true,
		},
		{
			name: "event without id",
			mutate: func(s *models.Snapshot) {
				s.Rows[0].Events["2024-06-27"] = []models.Event{{Title: "Anon", Location: "Cali", Color: "#fff"}}
			},
			expFail: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			snap := validSnapshot()
			tc.mutate(&snap)
			err := Verify(SlotDraft, snap)
			if tc.expFail && err == nil {
				t.Fatalf("expected verification failure")
			}
			if !tc.expFail && err != nil {
				t.Fatalf("unexpected verification failure: %v", err)
			}
		})
	}
}

func TestSubscribeWithoutNotifier(t *testing.T) {
	g := New(newStubBackend(), nil)
	stop, err := g.Subscribe(context.Background(), SlotDraft, func(models.Snapshot) {})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stop()
}

func TestSaveNotificationCarriesFullSnapshot(t *testing.T) {
	backend := newStubBackend()
	notifier := newStubNotifier()
	g := New(backend, notifier)

	if err := g.Save(context.Background(), SlotPublished, validSnapshot()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	docs := notifier.published[SlotPublished]
	if len(docs) != 1 {
		t.Fatalf("expected one published document, got %d", len(docs))
	}
	var snap models.Snapshot
	if err := json.Unmarshal(docs[0], &snap); err != nil {
		t.Fatalf("notification payload is not a snapshot: %v", err)
	}
	if len(snap.Rows) != 1 {
		t.Fatalf("notification payload is not the full snapshot")
	}
}
