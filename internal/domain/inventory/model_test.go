package inventory

import (
	"testing"

	"github.com/google/uuid"
)

func testWard(totalBeds int, roomBeds ...int) *Ward {
	w := &Ward{
		ID:        uuid.New(),
		Name:      "ICU-3",
		WardType:  "ICU",
		Department: "Critical Care",
		TotalBeds: totalBeds,
	}
	bedNum := 1
	for i, n := range roomBeds {
		room := &Room{ID: uuid.New(), WardID: w.ID, Number: i + 1}
		for j := 0; j < n; j++ {
			room.Beds = append(room.Beds, &Bed{ID: uuid.New(), RoomID: room.ID, Number: bedNum})
			bedNum++
		}
		w.Rooms = append(w.Rooms, room)
	}
	return w
}

func TestWardValidate_TotalMatchesRooms(t *testing.T) {
	w := testWard(4, 2, 2)
	if err := w.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWardValidate_TotalMismatch(t *testing.T) {
	w := testWard(5, 2, 2)
	if err := w.Validate(); err == nil {
		t.Error("expected error when total_beds does not match configured beds")
	}
}

func TestWardValidate_DuplicateRoomNumber(t *testing.T) {
	w := testWard(4, 2, 2)
	w.Rooms[1].Number = w.Rooms[0].Number
	if err := w.Validate(); err == nil {
		t.Error("expected error for duplicate room number")
	}
}

func TestWardValidate_DuplicateBedNumber(t *testing.T) {
	w := testWard(4, 2, 2)
	w.Rooms[0].Beds[1].Number = w.Rooms[0].Beds[0].Number
	if err := w.Validate(); err == nil {
		t.Error("expected error for duplicate bed number")
	}
}

func TestWardValidate_NameRequired(t *testing.T) {
	w := testWard(0)
	w.Name = ""
	if err := w.Validate(); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestWardAvailableBeds(t *testing.T) {
	w := testWard(4, 2, 2)
	w.OccupiedBeds = 3
	if w.AvailableBeds() != 1 {
		t.Errorf("expected 1 available, got %d", w.AvailableBeds())
	}
	w.OccupiedBeds = 5
	if w.AvailableBeds() != 0 {
		t.Errorf("expected availability clamped at 0, got %d", w.AvailableBeds())
	}
}

func TestRoomByNumber(t *testing.T) {
	w := testWard(4, 2, 2)
	if w.RoomByNumber(2) == nil {
		t.Error("expected room 2")
	}
	if w.RoomByNumber(9) != nil {
		t.Error("expected nil for unknown room")
	}
}

func TestBedByNumber(t *testing.T) {
	w := testWard(4, 2, 2)
	room := w.RoomByNumber(1)
	if room.BedByNumber(1) == nil {
		t.Error("expected bed 1")
	}
	if room.BedByNumber(3) != nil {
		t.Error("bed 3 belongs to room 2")
	}
}
