package admission

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carenet/admissions/internal/domain/occupancy"
	"github.com/carenet/admissions/internal/platform/postal"
)

// Field names accepted by Draft.Update.
type Field string

const (
	FieldFirstName        Field = "first_name"
	FieldLastName         Field = "last_name"
	FieldPhone            Field = "phone"
	FieldNationalID       Field = "national_id"
	FieldGender           Field = "gender"
	FieldDateOfBirth      Field = "date_of_birth"
	FieldPostalCode       Field = "postal_code"
	FieldCity             Field = "city"
	FieldDistrict         Field = "district"
	FieldState            Field = "state"
	FieldPermanentAddress Field = "permanent_address"
	FieldTemporaryAddress Field = "temporary_address"
	FieldSameAsPermanent  Field = "same_as_permanent"
)

// Draft is the mutable record a wizard session accumulates. It is owned by
// exactly one session, but postal lookups complete on other goroutines, so
// every access goes through the mutex. Each field write gets a monotonic
// sequence number; a lookup result only lands on fields the user has not
// touched since the lookup was issued.
type Draft struct {
	mu   sync.Mutex
	next uint64
	seq  map[Field]uint64

	PatientID   uuid.UUID
	FirstName   string
	LastName    string
	Phone       string
	NationalID  string
	Gender      string
	DateOfBirth string

	PostalCode       string
	CityOptions      []string
	City             string
	District         string
	State            string
	PermanentAddress string
	TemporaryAddress string
	SameAsPermanent  bool

	Bed           occupancy.BedRef
	AdmissionTime time.Time
	Status        Status
}

func NewDraft() *Draft {
	return &Draft{seq: make(map[Field]uint64), Status: StatusDraft}
}

// Update writes one field, applying normalization side effects, and returns
// the write's sequence number. Setting the postal code clears the chosen
// city and returns a token the caller passes to ApplyPostalResult when the
// async lookup lands.
func (d *Draft) Update(field Field, value string) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tok := d.stamp(field)
	switch field {
	case FieldFirstName:
		d.FirstName = strings.TrimSpace(value)
	case FieldLastName:
		d.LastName = strings.TrimSpace(value)
	case FieldPhone:
		d.Phone = digitsOf(value)
	case FieldNationalID:
		d.NationalID = GroupNationalID(value)
	case FieldGender:
		d.Gender = strings.ToLower(strings.TrimSpace(value))
	case FieldDateOfBirth:
		d.DateOfBirth = strings.TrimSpace(value)
	case FieldPostalCode:
		d.PostalCode = digitsOf(value)
		// a new code invalidates the previous choice and its options; the
		// clear is part of this write, not a user edit, so the dependent
		// fields stay open for the lookup that carries this token
		d.City = ""
		d.CityOptions = nil
		if !postal.ValidCode(d.PostalCode) {
			d.District = ""
			d.State = ""
		}
	case FieldCity:
		d.City = strings.TrimSpace(value)
	case FieldDistrict:
		d.District = strings.TrimSpace(value)
	case FieldState:
		d.State = strings.TrimSpace(value)
	case FieldPermanentAddress:
		// the same-as-permanent copy is one-shot, so a later edit here
		// does not propagate to the temporary address
		d.PermanentAddress = strings.TrimSpace(value)
	case FieldTemporaryAddress:
		d.TemporaryAddress = strings.TrimSpace(value)
	case FieldSameAsPermanent:
		flag := value == "true" || value == "1"
		if flag && !d.SameAsPermanent {
			d.stamp(FieldTemporaryAddress)
			d.TemporaryAddress = d.PermanentAddress
		}
		d.SameAsPermanent = flag
	default:
		return 0, fmt.Errorf("unknown draft field %q", field)
	}
	return tok, nil
}

// stamp records a write to field and returns its sequence number. Caller
// holds the mutex.
func (d *Draft) stamp(field Field) uint64 {
	d.next++
	d.seq[field] = d.next
	return d.next
}

// ApplyPostalResult lands an async lookup on the derived address fields.
// Any field the user wrote after the lookup was issued keeps the user's
// value. Returns false when nothing was applied.
func (d *Draft) ApplyPostalResult(token uint64, res postal.Result) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.seq[FieldPostalCode] != token {
		// a newer postal code superseded this lookup
		return false
	}
	applied := false
	if d.seq[FieldCity] <= token {
		d.CityOptions = res.Cities
		if len(res.Cities) == 1 {
			d.City = res.Cities[0]
		}
		applied = true
	}
	if d.seq[FieldDistrict] <= token {
		d.District = res.District
		applied = true
	}
	if d.seq[FieldState] <= token {
		d.State = res.State
		applied = true
	}
	return applied
}

// ClearPostalDerived handles a failed lookup: dependent fields are cleared
// unless the user has written them since.
func (d *Draft) ClearPostalDerived(token uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.seq[FieldPostalCode] != token {
		return
	}
	if d.seq[FieldCity] <= token {
		d.CityOptions = nil
		d.City = ""
	}
	if d.seq[FieldDistrict] <= token {
		d.District = ""
	}
	if d.seq[FieldState] <= token {
		d.State = ""
	}
}

// SetBed binds the allocated bed and admission time at bed selection.
func (d *Draft) SetBed(ref occupancy.BedRef, at time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Bed = ref
	d.AdmissionTime = at
}

// ClearBed drops the bed binding when the wizard retreats past selection.
func (d *Draft) ClearBed() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Bed = occupancy.BedRef{}
	d.AdmissionTime = time.Time{}
}

// ValidationError reports a missing or malformed step field. The wizard
// keeps its current step when one surfaces.
type ValidationError struct {
	Field  Field
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidateIdentity checks the fields step 1 requires before the identity
// record may be created.
func (d *Draft) ValidateIdentity() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.FirstName == "" {
		return &ValidationError{Field: FieldFirstName, Reason: "required"}
	}
	if d.LastName == "" {
		return &ValidationError{Field: FieldLastName, Reason: "required"}
	}
	if len(d.Phone) < 10 {
		return &ValidationError{Field: FieldPhone, Reason: "must have at least 10 digits"}
	}
	if d.PostalCode != "" && !postal.ValidCode(d.PostalCode) {
		return &ValidationError{Field: FieldPostalCode, Reason: "must be 6 digits"}
	}
	return nil
}

// Snapshot returns a copy of the draft's current values for read paths.
func (d *Draft) Snapshot() Record {
	d.mu.Lock()
	defer d.mu.Unlock()

	return Record{
		ID:               d.PatientID,
		RecordType:       RecordTypeIPD,
		FirstName:        d.FirstName,
		LastName:         d.LastName,
		Phone:            d.Phone,
		NationalID:       d.NationalID,
		Gender:           d.Gender,
		DateOfBirth:      d.DateOfBirth,
		PostalCode:       d.PostalCode,
		City:             d.City,
		District:         d.District,
		State:            d.State,
		PermanentAddress: d.PermanentAddress,
		TemporaryAddress: d.TemporaryAddress,
		Bed:              d.Bed,
		AdmissionTime:    d.AdmissionTime,
		Status:           d.Status,
	}
}

// CityChoices returns the lookup-provided city options.
func (d *Draft) CityChoices() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.CityOptions))
	copy(out, d.CityOptions)
	return out
}

// SetPatientID records the stable identifier returned by the identity store.
func (d *Draft) SetPatientID(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.PatientID = id
}

// SetStatus moves the draft through its lifecycle.
func (d *Draft) SetStatus(s Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Status = s
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// GroupNationalID strips non-digits and regroups the id in blocks of four,
// so formatting an already formatted value is a no-op.
func GroupNationalID(s string) string {
	digits := digitsOf(s)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
