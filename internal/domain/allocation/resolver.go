// Package allocation checks bed placements against live occupancy. A
// reservation here is advisory: the finalize path re-runs the same check
// against a fresh snapshot before an admission record is written.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/carenet/admissions/internal/domain/inventory"
	"github.com/carenet/admissions/internal/domain/occupancy"
)

var (
	ErrAlreadyOccupied   = errors.New("bed is already occupied")
	ErrUnderMaintenance  = errors.New("bed is under maintenance")
	ErrUnknownBed        = errors.New("bed does not exist in the bed master")
	ErrAmbiguousWardType = errors.New("ward type matches more than one ward")
)

// OccupantSource lists the patients currently admitted. The admission store
// implements this; the indirection keeps this package free of a dependency
// on admission internals.
type OccupantSource interface {
	AdmittedOccupants(ctx context.Context) ([]occupancy.Occupant, error)
}

// Resolver builds occupancy snapshots on demand and validates placements
// against them.
type Resolver struct {
	inv *inventory.Service
	occ OccupantSource

	mu       sync.Mutex
	reserved map[occupancy.BedRef]uuid.UUID
}

func NewResolver(inv *inventory.Service, occ OccupantSource) *Resolver {
	return &Resolver{
		inv:      inv,
		occ:      occ,
		reserved: make(map[occupancy.BedRef]uuid.UUID),
	}
}

// Snapshot rebuilds the occupancy view from the current bed master and the
// latest admitted list. Callers get a fresh snapshot every time; stale reads
// are resolved by calling again.
func (r *Resolver) Snapshot(ctx context.Context) (*occupancy.Snapshot, error) {
	wards, err := r.inv.ListWards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list wards: %w", err)
	}
	occupants, err := r.occ.AdmittedOccupants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list admitted: %w", err)
	}
	maintIDs, err := r.inv.MaintenanceBedIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("maintenance registry: %w", err)
	}
	return occupancy.Build(wards, occupants, func(bedID uuid.UUID) bool {
		return maintIDs[bedID]
	})
}

// Check validates ref against a fresh snapshot without reserving it.
func (r *Resolver) Check(ctx context.Context, ref occupancy.BedRef) error {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return err
	}
	return r.check(snap, ref)
}

// CheckFor is Check with one exemption: a bed held by patientID itself does
// not conflict. Finalize uses this so re-running against an already admitted
// record routes to update instead of rejecting.
func (r *Resolver) CheckFor(ctx context.Context, ref occupancy.BedRef, patientID uuid.UUID) error {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return err
	}
	if occ, taken := snap.OccupantAt(ref); taken && occ.PatientID == patientID {
		return nil
	}
	return r.check(snap, ref)
}

func (r *Resolver) check(snap *occupancy.Snapshot, ref occupancy.BedRef) error {
	if !r.exists(snap, ref) {
		return ErrUnknownBed
	}
	switch snap.StatusOf(ref) {
	case inventory.BedOccupied:
		return ErrAlreadyOccupied
	case inventory.BedUnderMaintenance:
		return ErrUnderMaintenance
	}
	return nil
}

func (r *Resolver) exists(snap *occupancy.Snapshot, ref occupancy.BedRef) bool {
	for _, v := range snap.RoomBeds(ref.WardID, ref.RoomNumber) {
		if v.Ref == ref {
			return true
		}
	}
	return false
}

// TryReserve validates ref and records an advisory hold for the wizard
// session. The hold only guards against two concurrent sessions picking the
// same bed inside this process; the database remains the source of truth.
func (r *Resolver) TryReserve(ctx context.Context, sessionID uuid.UUID, ref occupancy.BedRef) error {
	if err := r.Check(ctx, ref); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if holder, held := r.reserved[ref]; held && holder != sessionID {
		return ErrAlreadyOccupied
	}
	r.reserved[ref] = sessionID
	return nil
}

// Release drops any advisory hold the session has. Safe to call when no
// hold exists.
func (r *Resolver) Release(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ref, holder := range r.reserved {
		if holder == sessionID {
			delete(r.reserved, ref)
		}
	}
}

// ResolveLegacy maps an old-format display key onto a normalized BedRef by
// matching the ward type against the bed master. A type shared by more than
// one ward cannot be resolved.
func (r *Resolver) ResolveLegacy(ctx context.Context, key string) (occupancy.BedRef, error) {
	parsed, err := occupancy.ParseLegacyKey(key)
	if err != nil {
		return occupancy.BedRef{}, err
	}
	wards, err := r.inv.ListWards(ctx)
	if err != nil {
		return occupancy.BedRef{}, err
	}

	var match *inventory.Ward
	for _, w := range wards {
		if w.WardType != parsed.WardType {
			continue
		}
		if match != nil {
			return occupancy.BedRef{}, ErrAmbiguousWardType
		}
		match = w
	}
	if match == nil {
		return occupancy.BedRef{}, ErrUnknownBed
	}

	ref := occupancy.BedRef{WardID: match.ID, RoomNumber: parsed.RoomNumber, BedNumber: parsed.BedNumber}
	room := match.RoomByNumber(ref.RoomNumber)
	if room == nil {
		return occupancy.BedRef{}, ErrUnknownBed
	}
	for _, b := range room.Beds {
		if b.Number == ref.BedNumber {
			return ref, nil
		}
	}
	return occupancy.BedRef{}, ErrUnknownBed
}
