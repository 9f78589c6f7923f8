package occupancy

import (
	"testing"

	"github.com/google/uuid"

	"github.com/carenet/admissions/internal/domain/inventory"
)

// icuWard builds a 4-bed ICU: room 1 holds beds 1-2, room 2 holds beds 3-4.
func icuWard() *inventory.Ward {
	w := &inventory.Ward{
		ID:        uuid.New(),
		Name:      "ICU-3",
		WardType:  "ICU",
		TotalBeds: 4,
	}
	bedNum := 1
	for roomNum := 1; roomNum <= 2; roomNum++ {
		room := &inventory.Room{ID: uuid.New(), WardID: w.ID, Number: roomNum}
		for i := 0; i < 2; i++ {
			room.Beds = append(room.Beds, &inventory.Bed{ID: uuid.New(), RoomID: room.ID, Number: bedNum})
			bedNum++
		}
		w.Rooms = append(w.Rooms, room)
	}
	return w
}

func TestBuild_DerivesOccupancy(t *testing.T) {
	w := icuWard()
	occ := []Occupant{
		{PatientID: uuid.New(), Name: "Asha Rao", Bed: BedRef{WardID: w.ID, RoomNumber: 1, BedNumber: 2}},
	}

	snap, err := Build([]*inventory.Ward{w}, occ, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	taken := BedRef{WardID: w.ID, RoomNumber: 1, BedNumber: 2}
	if !snap.IsOccupied(taken) {
		t.Error("bed 2 should be occupied")
	}
	if snap.StatusOf(taken) != inventory.BedOccupied {
		t.Errorf("expected occupied, got %s", snap.StatusOf(taken))
	}
	free := BedRef{WardID: w.ID, RoomNumber: 1, BedNumber: 1}
	if snap.StatusOf(free) != inventory.BedAvailable {
		t.Errorf("expected available, got %s", snap.StatusOf(free))
	}
	if got := snap.OccupiedBeds(w.ID); got != 1 {
		t.Errorf("expected 1 occupied, got %d", got)
	}
	if got := snap.AvailableBeds(w.ID); got != 3 {
		t.Errorf("expected 3 available, got %d", got)
	}
}

func TestBuild_DoubleBookingIsIntegrityError(t *testing.T) {
	w := icuWard()
	ref := BedRef{WardID: w.ID, RoomNumber: 2, BedNumber: 3}
	occ := []Occupant{
		{PatientID: uuid.New(), Bed: ref},
		{PatientID: uuid.New(), Bed: ref},
	}

	_, err := Build([]*inventory.Ward{w}, occ, nil)
	if err == nil {
		t.Fatal("expected integrity error")
	}
	ie, ok := err.(*IntegrityError)
	if !ok {
		t.Fatalf("expected *IntegrityError, got %T", err)
	}
	if ie.Bed != ref || len(ie.Patients) != 2 {
		t.Errorf("unexpected error detail: %+v", ie)
	}
}

func TestBuild_SkipsUnresolvableRefs(t *testing.T) {
	w := icuWard()
	occ := []Occupant{
		{PatientID: uuid.New(), Bed: BedRef{WardID: uuid.New(), RoomNumber: 1, BedNumber: 1}},
		{PatientID: uuid.New(), Bed: BedRef{WardID: w.ID, RoomNumber: 9, BedNumber: 1}},
		{PatientID: uuid.New(), Bed: BedRef{}},
	}

	snap, err := Build([]*inventory.Ward{w}, occ, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := snap.OccupiedBeds(w.ID); got != 0 {
		t.Errorf("dangling refs must not occupy beds, got %d", got)
	}
}

func TestStatusOf_MaintenanceAndPrecedence(t *testing.T) {
	w := icuWard()
	maintBed := w.Rooms[0].Beds[0] // room 1, bed 1
	occupiedAndMaint := w.Rooms[0].Beds[1]

	maint := func(id uuid.UUID) bool {
		return id == maintBed.ID || id == occupiedAndMaint.ID
	}
	occ := []Occupant{
		{PatientID: uuid.New(), Bed: BedRef{WardID: w.ID, RoomNumber: 1, BedNumber: 2}},
	}

	snap, err := Build([]*inventory.Ward{w}, occ, maint)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := snap.StatusOf(BedRef{WardID: w.ID, RoomNumber: 1, BedNumber: 1}); got != inventory.BedUnderMaintenance {
		t.Errorf("expected under-maintenance, got %s", got)
	}
	// occupancy wins when both apply
	if got := snap.StatusOf(BedRef{WardID: w.ID, RoomNumber: 1, BedNumber: 2}); got != inventory.BedOccupied {
		t.Errorf("expected occupied, got %s", got)
	}
	if got := snap.AvailableBeds(w.ID); got != 2 {
		t.Errorf("expected 2 available, got %d", got)
	}
}

func TestRoomBeds(t *testing.T) {
	w := icuWard()
	occ := []Occupant{
		{PatientID: uuid.New(), Bed: BedRef{WardID: w.ID, RoomNumber: 2, BedNumber: 4}},
	}
	snap, err := Build([]*inventory.Ward{w}, occ, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	views := snap.RoomBeds(w.ID, 2)
	if len(views) != 2 {
		t.Fatalf("expected 2 beds in room 2, got %d", len(views))
	}
	if views[0].Bed.Number != 3 || views[0].Status != inventory.BedAvailable {
		t.Errorf("unexpected first bed: %+v", views[0])
	}
	if views[1].Bed.Number != 4 || views[1].Status != inventory.BedOccupied {
		t.Errorf("unexpected second bed: %+v", views[1])
	}

	if snap.RoomBeds(w.ID, 7) != nil {
		t.Error("unknown room should return nil")
	}
}

func TestParseLegacyKey(t *testing.T) {
	cases := []struct {
		in      string
		want    LegacyKey
		wantErr bool
	}{
		{"General-2-5", LegacyKey{WardType: "General", RoomNumber: 2, BedNumber: 5}, false},
		{"Semi-Private-1-3", LegacyKey{WardType: "Semi-Private", RoomNumber: 1, BedNumber: 3}, false},
		{"ICU-10-12", LegacyKey{WardType: "ICU", RoomNumber: 10, BedNumber: 12}, false},
		{"General-2", LegacyKey{}, true},
		{"General-x-5", LegacyKey{}, true},
		{"-2-5", LegacyKey{}, true},
		{"", LegacyKey{}, true},
	}
	for _, tc := range cases {
		got, err := ParseLegacyKey(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseLegacyKey(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLegacyKey(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLegacyKey(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}
