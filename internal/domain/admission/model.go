// Package admission holds the in-progress draft built across the wizard
// steps, the persisted patient record, and the finalizer that turns one into
// the other.
package admission

import (
	"time"

	"github.com/google/uuid"

	"github.com/carenet/admissions/internal/domain/occupancy"
)

// Status tracks where an admission stands. Occupancy derivation only counts
// StatusAdmitted records.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusSubmitted  Status = "submitted"
	StatusAdmitted   Status = "admitted"
	StatusDischarged Status = "discharged"
)

// RecordTypeIPD discriminates inpatient records on the shared patient
// entity. Identity and admission live on one row, not separate tables.
const RecordTypeIPD = "ipd"

// Record is the persisted form of a draft. The ID returned by the first
// create is the idempotency key for every later update.
type Record struct {
	ID         uuid.UUID `json:"id"`
	RecordType string    `json:"record_type"`

	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Phone       string `json:"phone"`
	NationalID  string `json:"national_id,omitempty"`
	Gender      string `json:"gender,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`

	PostalCode       string `json:"postal_code,omitempty"`
	City             string `json:"city,omitempty"`
	District         string `json:"district,omitempty"`
	State            string `json:"state,omitempty"`
	PermanentAddress string `json:"permanent_address,omitempty"`
	TemporaryAddress string `json:"temporary_address,omitempty"`

	Bed           occupancy.BedRef `json:"bed"`
	AdmissionTime time.Time        `json:"admission_time"`
	Status        Status           `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NextHalfHour rounds t forward to the next half-hour boundary. A time
// already on a boundary still moves forward, so two admissions stamped in
// the same instant never collide with a prior record's slot.
func NextHalfHour(t time.Time) time.Time {
	t = t.Truncate(time.Minute)
	rem := time.Duration(t.Minute()%30) * time.Minute
	return t.Add(30*time.Minute - rem)
}
