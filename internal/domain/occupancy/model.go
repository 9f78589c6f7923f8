// Package occupancy derives bed status from admission records and the bed
// master. Status is never stored: a bed is occupied exactly when an admitted
// patient references it, under maintenance when the maintenance registry
// flags it, and available otherwise.
package occupancy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// BedRef identifies a bed by its position in the ward hierarchy. Admission
// records store this normalized form rather than a display string.
type BedRef struct {
	WardID     uuid.UUID `json:"ward_id"`
	RoomNumber int       `json:"room_number"`
	BedNumber  int       `json:"bed_number"`
}

func (r BedRef) IsZero() bool {
	return r.WardID == uuid.Nil && r.RoomNumber == 0 && r.BedNumber == 0
}

func (r BedRef) String() string {
	return fmt.Sprintf("%s/room-%d/bed-%d", r.WardID, r.RoomNumber, r.BedNumber)
}

// Occupant is the admission-side view of a patient holding a bed.
type Occupant struct {
	PatientID uuid.UUID
	Name      string
	Bed       BedRef
}

// MaintenancePredicate reports whether a bed is flagged for maintenance.
// The inventory service provides one backed by its registry table.
type MaintenancePredicate func(bedID uuid.UUID) bool

// IntegrityError reports a violation of the one-patient-one-bed rule found
// while building a snapshot.
type IntegrityError struct {
	Bed      BedRef
	Patients []uuid.UUID
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("bed %s is referenced by %d admitted patients", e.Bed, len(e.Patients))
}

// LegacyKey is the display form older records stored for a bed, e.g.
// "General-2-5" for ward type General, room 2, bed 5. Ward type alone does
// not identify a ward, so callers must resolve the type against the bed
// master themselves.
type LegacyKey struct {
	WardType   string
	RoomNumber int
	BedNumber  int
}

// ParseLegacyKey splits a "{type}-{room}-{bed}" display string. Ward types
// may themselves contain hyphens, so the last two segments are taken as the
// room and bed numbers.
func ParseLegacyKey(s string) (LegacyKey, error) {
	parts := strings.Split(s, "-")
	if len(parts) < 3 {
		return LegacyKey{}, fmt.Errorf("malformed bed key %q", s)
	}
	bed, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return LegacyKey{}, fmt.Errorf("malformed bed number in %q", s)
	}
	room, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return LegacyKey{}, fmt.Errorf("malformed room number in %q", s)
	}
	wardType := strings.Join(parts[:len(parts)-2], "-")
	if wardType == "" {
		return LegacyKey{}, fmt.Errorf("missing ward type in %q", s)
	}
	return LegacyKey{WardType: wardType, RoomNumber: room, BedNumber: bed}, nil
}
