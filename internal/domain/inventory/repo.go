package inventory

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence interface for the bed-master configuration
// store. ListWards returns wards with rooms and beds populated.
type Repository interface {
	ListWards(ctx context.Context) ([]*Ward, error)
	GetWard(ctx context.Context, id uuid.UUID) (*Ward, error)
	CreateWard(ctx context.Context, w *Ward) error
	UpdateWard(ctx context.Context, w *Ward) error
	DeleteWard(ctx context.Context, id uuid.UUID) error

	AddRoom(ctx context.Context, r *Room) error
	AddBed(ctx context.Context, b *Bed) error

	// UpdateCounters shifts the ward's occupied counter by delta, clamped to
	// [0, total_beds] by the implementation.
	UpdateCounters(ctx context.Context, wardID uuid.UUID, occupiedDelta int) error

	// Maintenance registry
	MarkMaintenance(ctx context.Context, bedID uuid.UUID, reason string) error
	ClearMaintenance(ctx context.Context, bedID uuid.UUID) error
	MaintenanceBedIDs(ctx context.Context) (map[uuid.UUID]bool, error)
}
