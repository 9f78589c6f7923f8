package admission

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type storePG struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) PatientStore {
	return &storePG{pool: pool}
}

const patientCols = `id, record_type, first_name, last_name, phone, national_id, gender, date_of_birth,
	postal_code, city, district, state, permanent_address, temporary_address,
	ward_id, room_number, bed_number, admission_time, status, created_at, updated_at`

func scanPatient(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID, &rec.RecordType, &rec.FirstName, &rec.LastName, &rec.Phone, &rec.NationalID,
		&rec.Gender, &rec.DateOfBirth,
		&rec.PostalCode, &rec.City, &rec.District, &rec.State,
		&rec.PermanentAddress, &rec.TemporaryAddress,
		&rec.Bed.WardID, &rec.Bed.RoomNumber, &rec.Bed.BedNumber,
		&rec.AdmissionTime, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *storePG) CreatePatient(ctx context.Context, rec *Record) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.RecordType = RecordTypeIPD
	_, err := s.pool.Exec(ctx, `
		INSERT INTO patient (id, record_type, first_name, last_name, phone, national_id, gender, date_of_birth,
			postal_code, city, district, state, permanent_address, temporary_address,
			ward_id, room_number, bed_number, admission_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		rec.ID, rec.RecordType, rec.FirstName, rec.LastName, rec.Phone, rec.NationalID, rec.Gender, rec.DateOfBirth,
		rec.PostalCode, rec.City, rec.District, rec.State, rec.PermanentAddress, rec.TemporaryAddress,
		rec.Bed.WardID, rec.Bed.RoomNumber, rec.Bed.BedNumber, rec.AdmissionTime, rec.Status,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create patient: %w", err)
	}
	return rec.ID, nil
}

func (s *storePG) UpdatePatient(ctx context.Context, rec *Record) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE patient SET
			first_name=$2, last_name=$3, phone=$4, national_id=$5, gender=$6, date_of_birth=$7,
			postal_code=$8, city=$9, district=$10, state=$11, permanent_address=$12, temporary_address=$13,
			ward_id=$14, room_number=$15, bed_number=$16, admission_time=$17, status=$18,
			updated_at=NOW()
		WHERE id = $1`,
		rec.ID, rec.FirstName, rec.LastName, rec.Phone, rec.NationalID, rec.Gender, rec.DateOfBirth,
		rec.PostalCode, rec.City, rec.District, rec.State, rec.PermanentAddress, rec.TemporaryAddress,
		rec.Bed.WardID, rec.Bed.RoomNumber, rec.Bed.BedNumber, rec.AdmissionTime, rec.Status,
	)
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (s *storePG) GetPatient(ctx context.Context, id uuid.UUID) (*Record, error) {
	rec, err := scanPatient(s.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	return rec, err
}

func (s *storePG) ListPatients(ctx context.Context, filter ListFilter) ([]*Record, error) {
	query := `SELECT ` + patientCols + ` FROM patient WHERE record_type = $1`
	args := []any{RecordTypeIPD}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.WardID != uuid.Nil {
		args = append(args, filter.WardID)
		query += fmt.Sprintf(" AND ward_id = $%d", len(args))
	}
	query += " ORDER BY admission_time DESC, last_name"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		rec, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *storePG) ListAdmitted(ctx context.Context) ([]*Record, error) {
	return s.ListPatients(ctx, ListFilter{Status: StatusAdmitted})
}
