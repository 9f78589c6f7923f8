package occupancy

import (
	"github.com/google/uuid"

	"github.com/carenet/admissions/internal/domain/inventory"
)

// Snapshot is a point-in-time occupancy view built by joining the bed master
// with the currently admitted patients. It is immutable after Build; callers
// rebuild rather than mutate when either side changes.
type Snapshot struct {
	occupants map[BedRef]Occupant
	inMaint   map[BedRef]bool
	wards     map[uuid.UUID]*inventory.Ward
}

// Build joins wards against admitted occupants. Occupants whose BedRef does
// not resolve against the bed master are skipped; two occupants on the same
// bed is an IntegrityError.
func Build(wards []*inventory.Ward, occupants []Occupant, maint MaintenancePredicate) (*Snapshot, error) {
	s := &Snapshot{
		occupants: make(map[BedRef]Occupant),
		inMaint:   make(map[BedRef]bool),
		wards:     make(map[uuid.UUID]*inventory.Ward, len(wards)),
	}
	for _, w := range wards {
		s.wards[w.ID] = w
		if maint == nil {
			continue
		}
		for _, room := range w.Rooms {
			for _, bed := range room.Beds {
				if maint(bed.ID) {
					s.inMaint[BedRef{WardID: w.ID, RoomNumber: room.Number, BedNumber: bed.Number}] = true
				}
			}
		}
	}

	for _, occ := range occupants {
		if occ.Bed.IsZero() || !s.resolves(occ.Bed) {
			continue
		}
		if prev, taken := s.occupants[occ.Bed]; taken {
			return nil, &IntegrityError{
				Bed:      occ.Bed,
				Patients: []uuid.UUID{prev.PatientID, occ.PatientID},
			}
		}
		s.occupants[occ.Bed] = occ
	}
	return s, nil
}

// resolves reports whether ref names a real bed in the master.
func (s *Snapshot) resolves(ref BedRef) bool {
	w, ok := s.wards[ref.WardID]
	if !ok {
		return false
	}
	room := w.RoomByNumber(ref.RoomNumber)
	if room == nil {
		return false
	}
	for _, b := range room.Beds {
		if b.Number == ref.BedNumber {
			return true
		}
	}
	return false
}

func (s *Snapshot) IsOccupied(ref BedRef) bool {
	_, ok := s.occupants[ref]
	return ok
}

// OccupantAt returns the patient holding ref, if any.
func (s *Snapshot) OccupantAt(ref BedRef) (Occupant, bool) {
	occ, ok := s.occupants[ref]
	return occ, ok
}

// StatusOf derives the display status for a bed. Occupancy wins over
// maintenance when both apply.
func (s *Snapshot) StatusOf(ref BedRef) inventory.BedStatus {
	if s.IsOccupied(ref) {
		return inventory.BedOccupied
	}
	if s.inMaint[ref] {
		return inventory.BedUnderMaintenance
	}
	return inventory.BedAvailable
}

// OccupiedBeds counts admitted patients placed in the given ward.
func (s *Snapshot) OccupiedBeds(wardID uuid.UUID) int {
	n := 0
	for ref := range s.occupants {
		if ref.WardID == wardID {
			n++
		}
	}
	return n
}

// AvailableBeds counts beds in the ward that are neither occupied nor under
// maintenance.
func (s *Snapshot) AvailableBeds(wardID uuid.UUID) int {
	w, ok := s.wards[wardID]
	if !ok {
		return 0
	}
	n := 0
	for _, room := range w.Rooms {
		for _, bed := range room.Beds {
			ref := BedRef{WardID: wardID, RoomNumber: room.Number, BedNumber: bed.Number}
			if s.StatusOf(ref) == inventory.BedAvailable {
				n++
			}
		}
	}
	return n
}

// BedView pairs a bed with its derived status for listing endpoints.
type BedView struct {
	Bed    *inventory.Bed      `json:"bed"`
	Ref    BedRef              `json:"ref"`
	Status inventory.BedStatus `json:"status"`
}

// RoomBeds returns every bed in the room with its derived status, in bed
// master order.
func (s *Snapshot) RoomBeds(wardID uuid.UUID, roomNumber int) []BedView {
	w, ok := s.wards[wardID]
	if !ok {
		return nil
	}
	room := w.RoomByNumber(roomNumber)
	if room == nil {
		return nil
	}
	views := make([]BedView, 0, len(room.Beds))
	for _, bed := range room.Beds {
		ref := BedRef{WardID: wardID, RoomNumber: roomNumber, BedNumber: bed.Number}
		views = append(views, BedView{Bed: bed, Ref: ref, Status: s.StatusOf(ref)})
	}
	return views
}
