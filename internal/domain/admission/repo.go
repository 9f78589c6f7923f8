package admission

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/carenet/admissions/internal/domain/occupancy"
)

var ErrPatientNotFound = errors.New("patient not found")

// ListFilter narrows ListPatients. Zero values mean no constraint.
type ListFilter struct {
	Status Status
	WardID uuid.UUID
	Limit  int
	Offset int
}

// PatientStore persists patient records. Identity and admission share one
// entity; the ipd record type marks inpatient rows.
type PatientStore interface {
	CreatePatient(ctx context.Context, rec *Record) (uuid.UUID, error)
	UpdatePatient(ctx context.Context, rec *Record) error
	GetPatient(ctx context.Context, id uuid.UUID) (*Record, error)
	ListPatients(ctx context.Context, filter ListFilter) ([]*Record, error)
	// ListAdmitted returns every record in admitted status; occupancy is
	// derived from this list.
	ListAdmitted(ctx context.Context) ([]*Record, error)
}

// OccupantAdapter exposes a PatientStore as the occupant source the
// allocation resolver consumes.
type OccupantAdapter struct {
	Store PatientStore
}

func (a OccupantAdapter) AdmittedOccupants(ctx context.Context) ([]occupancy.Occupant, error) {
	recs, err := a.Store.ListAdmitted(ctx)
	if err != nil {
		return nil, err
	}
	occ := make([]occupancy.Occupant, 0, len(recs))
	for _, r := range recs {
		occ = append(occ, occupancy.Occupant{
			PatientID: r.ID,
			Name:      r.FirstName + " " + r.LastName,
			Bed:       r.Bed,
		})
	}
	return occ, nil
}
