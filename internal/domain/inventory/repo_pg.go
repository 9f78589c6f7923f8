package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const wardCols = `id, name, ward_type, department, total_beds, occupied_beds, created_at, updated_at`

func (r *repoPG) ListWards(ctx context.Context) ([]*Ward, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+wardCols+` FROM ward ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wards []*Ward
	byID := make(map[uuid.UUID]*Ward)
	for rows.Next() {
		var w Ward
		if err := rows.Scan(&w.ID, &w.Name, &w.WardType, &w.Department, &w.TotalBeds, &w.OccupiedBeds, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		wards = append(wards, &w)
		byID[w.ID] = &w
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachRooms(ctx, byID); err != nil {
		return nil, err
	}
	return wards, nil
}

func (r *repoPG) attachRooms(ctx context.Context, wards map[uuid.UUID]*Ward) error {
	rows, err := r.pool.Query(ctx, `SELECT id, ward_id, number FROM room ORDER BY ward_id, number`)
	if err != nil {
		return err
	}
	defer rows.Close()

	roomsByID := make(map[uuid.UUID]*Room)
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.ID, &room.WardID, &room.Number); err != nil {
			return err
		}
		if w, ok := wards[room.WardID]; ok {
			w.Rooms = append(w.Rooms, &room)
			roomsByID[room.ID] = &room
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	bedRows, err := r.pool.Query(ctx, `SELECT id, room_id, number FROM bed ORDER BY room_id, number`)
	if err != nil {
		return err
	}
	defer bedRows.Close()

	for bedRows.Next() {
		var bed Bed
		if err := bedRows.Scan(&bed.ID, &bed.RoomID, &bed.Number); err != nil {
			return err
		}
		if room, ok := roomsByID[bed.RoomID]; ok {
			room.Beds = append(room.Beds, &bed)
		}
	}
	return bedRows.Err()
}

func (r *repoPG) GetWard(ctx context.Context, id uuid.UUID) (*Ward, error) {
	var w Ward
	err := r.pool.QueryRow(ctx, `SELECT `+wardCols+` FROM ward WHERE id = $1`, id).
		Scan(&w.ID, &w.Name, &w.WardType, &w.Department, &w.TotalBeds, &w.OccupiedBeds, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	byID := map[uuid.UUID]*Ward{w.ID: &w}
	if err := r.attachRooms(ctx, byID); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *repoPG) CreateWard(ctx context.Context, w *Ward) error {
	w.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ward (id, name, ward_type, department, total_beds, occupied_beds)
		VALUES ($1, $2, $3, $4, $5, 0)`,
		w.ID, w.Name, w.WardType, w.Department, w.TotalBeds,
	)
	return err
}

func (r *repoPG) UpdateWard(ctx context.Context, w *Ward) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ward SET name=$2, ward_type=$3, department=$4, total_beds=$5, updated_at=NOW()
		WHERE id = $1`,
		w.ID, w.Name, w.WardType, w.Department, w.TotalBeds,
	)
	return err
}

func (r *repoPG) DeleteWard(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM ward WHERE id = $1`, id)
	return err
}

func (r *repoPG) AddRoom(ctx context.Context, room *Room) error {
	room.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `INSERT INTO room (id, ward_id, number) VALUES ($1, $2, $3)`,
		room.ID, room.WardID, room.Number)
	return err
}

func (r *repoPG) AddBed(ctx context.Context, bed *Bed) error {
	bed.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `INSERT INTO bed (id, room_id, number) VALUES ($1, $2, $3)`,
		bed.ID, bed.RoomID, bed.Number)
	return err
}

func (r *repoPG) UpdateCounters(ctx context.Context, wardID uuid.UUID, occupiedDelta int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ward
		SET occupied_beds = GREATEST(0, LEAST(total_beds, occupied_beds + $2)),
		    updated_at = NOW()
		WHERE id = $1`,
		wardID, occupiedDelta,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ward %s not found", wardID)
	}
	return nil
}

func (r *repoPG) MarkMaintenance(ctx context.Context, bedID uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO bed_maintenance (bed_id, reason) VALUES ($1, $2)
		ON CONFLICT (bed_id) DO UPDATE SET reason = EXCLUDED.reason`,
		bedID, reason)
	return err
}

func (r *repoPG) ClearMaintenance(ctx context.Context, bedID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM bed_maintenance WHERE bed_id = $1`, bedID)
	return err
}

func (r *repoPG) MaintenanceBedIDs(ctx context.Context) (map[uuid.UUID]bool, error) {
	rows, err := r.pool.Query(ctx, `SELECT bed_id FROM bed_maintenance`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}
