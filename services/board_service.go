package services

import (
	"context"
	"errors"
	"time"

	"schedboard/gateway"
	"schedboard/models"
	"schedboard/schedule"
	"schedboard/services/websocket"
	"schedboard/store"

	"github.com/sirupsen/logrus"
)

// BoardService orchestrates the store and the persistence gateway. Draft
// mutations stay in memory until an explicit SaveDraft or Publish hands the
// relevant snapshot to the gateway.
type BoardService struct {
	store   *store.Store
	gateway *gateway.Gateway
	wsHub   *websocket.Hub
	archive *ArchiveService

	stopDraftSub     func()
	stopPublishedSub func()
}

// NewBoardService wires the orchestration layer. The hub and archive are
// optional.
func NewBoardService(st *store.Store, gw *gateway.Gateway, hub *websocket.Hub, archive *ArchiveService) *BoardService {
	return &BoardService{store: st, gateway: gw, wsHub: hub, archive: archive}
}

// Store exposes the underlying state container to the controllers.
func (s *BoardService) Store() *store.Store {
	return s.store
}

// Bootstrap loads both slots into the store. A slot that has never been
// written seeds an empty snapshot around the current week.
func (s *BoardService) Bootstrap(ctx context.Context) error {
	draft, err := s.loadOrSeed(ctx, gateway.SlotDraft)
	if err != nil {
		return err
	}
	published, err := s.loadOrSeed(ctx, gateway.SlotPublished)
	if err != nil {
		return err
	}
	s.store.ReplaceDraft(draft)
	s.store.ReplacePublished(published)
	return nil
}

func (s *BoardService) loadOrSeed(ctx context.Context, slot string) (models.Snapshot, error) {
	snap, err := s.gateway.Load(ctx, slot)
	if errors.Is(err, models.ErrNotFound) {
		logrus.WithField("slot", slot).Info("Slot empty, seeding initial snapshot")
		return models.EmptySnapshot(schedule.WeekWindow(time.Now())), nil
	}
	if err != nil {
		return models.Snapshot{}, err
	}
	return snap, nil
}

// SaveDraft persists the current draft snapshot. The store stays dirty:
// saved drafts are still unpublished.
func (s *BoardService) SaveDraft(ctx context.Context) error {
	return s.gateway.Save(ctx, gateway.SlotDraft, s.store.DraftCopy())
}

// Publish copies the draft into the published slot as one
// atomic-from-the-caller's-view operation. On failure the
// unpublished-changes indicator stays set and the published snapshot is
// unchanged.
func (s *BoardService) Publish(ctx context.Context) error {
	snap := s.store.DraftCopy()
	if err := s.gateway.Save(ctx, gateway.SlotPublished, snap); err != nil {
		return err
	}
	s.store.SetPublished(snap)
	s.store.ClearDirty()

	if s.archive != nil {
		if err := s.archive.ArchiveSnapshot(ctx, snap); err != nil {
			logrus.WithError(err).Warn("Failed to archive published snapshot")
		}
	}
	return nil
}

// StartWatchers subscribes to both slots so changes committed by other
// sessions replace the local snapshots and reach connected clients.
func (s *BoardService) StartWatchers(ctx context.Context) error {
	stopDraft, err := s.gateway.Subscribe(ctx, gateway.SlotDraft, func(snap models.Snapshot) {
		s.store.ReplaceDraft(snap)
		if s.wsHub != nil {
			s.wsHub.BroadcastSnapshot(gateway.SlotDraft, snap)
		}
	})
	if err != nil {
		return err
	}
	s.stopDraftSub = stopDraft

	stopPublished, err := s.gateway.Subscribe(ctx, gateway.SlotPublished, func(snap models.Snapshot) {
		s.store.ReplacePublished(snap)
		if s.wsHub != nil {
			s.wsHub.BroadcastSnapshot(gateway.SlotPublished, snap)
		}
	})
	if err != nil {
		stopDraft()
		return err
	}
	s.stopPublishedSub = stopPublished
	return nil
}

// StopWatchers tears the slot subscriptions down.
func (s *BoardService) StopWatchers() {
	if s.stopDraftSub != nil {
		s.stopDraftSub()
		s.stopDraftSub = nil
	}
	if s.stopPublishedSub != nil {
		s.stopPublishedSub()
		s.stopPublishedSub = nil
	}
}
