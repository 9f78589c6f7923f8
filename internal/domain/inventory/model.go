package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BedStatus is derived at query time; it is never stored on the bed row.
type BedStatus string

const (
	BedAvailable        BedStatus = "available"
	BedOccupied         BedStatus = "occupied"
	BedUnderMaintenance BedStatus = "under-maintenance"
)

// Ward maps to the ward table. TotalBeds is the configured capacity and must
// equal the sum of bed counts across the ward's rooms.
type Ward struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	WardType     string    `db:"ward_type" json:"ward_type"`
	Department   string    `db:"department" json:"department"`
	TotalBeds    int       `db:"total_beds" json:"total_beds"`
	OccupiedBeds int       `db:"occupied_beds" json:"occupied_beds"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	Rooms []*Room `json:"rooms,omitempty"`
}

// Room maps to the room table. Number is unique within its ward.
type Room struct {
	ID     uuid.UUID `db:"id" json:"id"`
	WardID uuid.UUID `db:"ward_id" json:"ward_id"`
	Number int       `db:"number" json:"number"`

	Beds []*Bed `json:"beds,omitempty"`
}

// Bed maps to the bed table. Number is unique within its room. Beds never own
// patient data; occupancy is derived from admitted records.
type Bed struct {
	ID     uuid.UUID `db:"id" json:"id"`
	RoomID uuid.UUID `db:"room_id" json:"room_id"`
	Number int       `db:"number" json:"number"`
}

// AvailableBeds returns the configured capacity minus the occupied counter.
func (w *Ward) AvailableBeds() int {
	n := w.TotalBeds - w.OccupiedBeds
	if n < 0 {
		return 0
	}
	return n
}

// BedCount returns the number of beds configured in the room.
func (r *Room) BedCount() int {
	return len(r.Beds)
}

// Validate checks the ward's structural invariants: the configured total must
// equal the sum of room bed counts, and room/bed numbers must be unique within
// their parent.
func (w *Ward) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("ward name is required")
	}
	if w.WardType == "" {
		return fmt.Errorf("ward type is required")
	}

	sum := 0
	roomNums := make(map[int]bool)
	for _, room := range w.Rooms {
		if roomNums[room.Number] {
			return fmt.Errorf("ward %s: duplicate room number %d", w.Name, room.Number)
		}
		roomNums[room.Number] = true

		bedNums := make(map[int]bool)
		for _, bed := range room.Beds {
			if bedNums[bed.Number] {
				return fmt.Errorf("ward %s room %d: duplicate bed number %d", w.Name, room.Number, bed.Number)
			}
			bedNums[bed.Number] = true
		}
		sum += len(room.Beds)
	}

	if sum != w.TotalBeds {
		return fmt.Errorf("ward %s: total_beds %d does not match configured beds %d", w.Name, w.TotalBeds, sum)
	}
	return nil
}

// RoomByNumber returns the room with the given number, or nil.
func (w *Ward) RoomByNumber(number int) *Room {
	for _, room := range w.Rooms {
		if room.Number == number {
			return room
		}
	}
	return nil
}

// BedByNumber returns the bed with the given number, or nil.
func (r *Room) BedByNumber(number int) *Bed {
	for _, bed := range r.Beds {
		if bed.Number == number {
			return bed
		}
	}
	return nil
}
