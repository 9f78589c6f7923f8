package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrEmptyInventory signals that no wards are configured. The operator must
// set up the bed-master before admissions can proceed.
var ErrEmptyInventory = errors.New("no wards configured")

// ErrWardNotFound is returned for lookups against an unknown ward.
var ErrWardNotFound = errors.New("ward not found")

// ErrRoomNotFound is returned for lookups against an unknown room.
var ErrRoomNotFound = errors.New("room not found")

// Service indexes the bed-master in memory for the session. The external
// configuration store remains the source of truth; any write invalidates the
// index so the next read refetches.
type Service struct {
	repo Repository

	mu    sync.RWMutex
	wards []*Ward
	byID  map[uuid.UUID]*Ward
	fresh bool
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, byID: make(map[uuid.UUID]*Ward)}
}

// Refresh reloads the index from the store, validating every ward's
// structural invariants.
func (s *Service) Refresh(ctx context.Context) error {
	wards, err := s.repo.ListWards(ctx)
	if err != nil {
		return fmt.Errorf("load bed-master: %w", err)
	}
	for _, w := range wards {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("bed-master invalid: %w", err)
		}
	}

	byID := make(map[uuid.UUID]*Ward, len(wards))
	for _, w := range wards {
		byID[w.ID] = w
	}

	s.mu.Lock()
	s.wards = wards
	s.byID = byID
	s.fresh = true
	s.mu.Unlock()
	return nil
}

// Invalidate marks the index stale; the next read refetches from the store.
// Broadcast subscribers call this when another session changes inventory.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.fresh = false
	s.mu.Unlock()
}

func (s *Service) ensure(ctx context.Context) error {
	s.mu.RLock()
	fresh := s.fresh
	s.mu.RUnlock()
	if fresh {
		return nil
	}
	return s.Refresh(ctx)
}

// ListWards returns all configured wards. ErrEmptyInventory when none exist.
func (s *Service) ListWards(ctx context.Context) ([]*Ward, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.wards) == 0 {
		return nil, ErrEmptyInventory
	}
	return s.wards, nil
}

// GetWard returns the ward with the given id from the index.
func (s *Service) GetWard(ctx context.Context, id uuid.UUID) (*Ward, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.byID[id]
	if !ok {
		return nil, ErrWardNotFound
	}
	return w, nil
}

// RoomsOf returns the rooms of the given ward.
func (s *Service) RoomsOf(ctx context.Context, wardID uuid.UUID) ([]*Room, error) {
	w, err := s.GetWard(ctx, wardID)
	if err != nil {
		return nil, err
	}
	return w.Rooms, nil
}

// BedsOf returns the beds of the given room within the ward.
func (s *Service) BedsOf(ctx context.Context, wardID uuid.UUID, roomNumber int) ([]*Bed, error) {
	w, err := s.GetWard(ctx, wardID)
	if err != nil {
		return nil, err
	}
	room := w.RoomByNumber(roomNumber)
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room.Beds, nil
}

// CreateWard validates and persists a new ward, then invalidates the index.
func (s *Service) CreateWard(ctx context.Context, w *Ward) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if err := s.repo.CreateWard(ctx, w); err != nil {
		return err
	}
	for _, room := range w.Rooms {
		room.WardID = w.ID
		if err := s.repo.AddRoom(ctx, room); err != nil {
			return err
		}
		for _, bed := range room.Beds {
			bed.RoomID = room.ID
			if err := s.repo.AddBed(ctx, bed); err != nil {
				return err
			}
		}
	}
	s.Invalidate()
	return nil
}

// UpdateWard persists ward changes and invalidates the index.
func (s *Service) UpdateWard(ctx context.Context, w *Ward) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpdateWard(ctx, w); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// DeleteWard removes a ward and invalidates the index.
func (s *Service) DeleteWard(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteWard(ctx, id); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// UpdateCounters shifts the ward's occupied counter in the external store and
// invalidates the session index.
func (s *Service) UpdateCounters(ctx context.Context, wardID uuid.UUID, occupiedDelta int) error {
	if err := s.repo.UpdateCounters(ctx, wardID, occupiedDelta); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// MarkMaintenance flags a bed as under maintenance.
func (s *Service) MarkMaintenance(ctx context.Context, bedID uuid.UUID, reason string) error {
	return s.repo.MarkMaintenance(ctx, bedID, reason)
}

// ClearMaintenance removes a bed's maintenance flag.
func (s *Service) ClearMaintenance(ctx context.Context, bedID uuid.UUID) error {
	return s.repo.ClearMaintenance(ctx, bedID)
}

// MaintenanceBedIDs returns the set of beds currently flagged.
func (s *Service) MaintenanceBedIDs(ctx context.Context) (map[uuid.UUID]bool, error) {
	return s.repo.MaintenanceBedIDs(ctx)
}
