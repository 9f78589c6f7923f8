package admission

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carenet/admissions/internal/domain/allocation"
	"github.com/carenet/admissions/internal/domain/inventory"
	"github.com/carenet/admissions/internal/platform/broadcast"
)

// Finalizer persists a completed draft as an admission record and syncs the
// ward counters afterwards. The counter sync and the change broadcast are
// best effort: once the record is written the admission has succeeded, and
// a sync failure is logged rather than surfaced.
type Finalizer struct {
	store    PatientStore
	resolver *allocation.Resolver
	inv      *inventory.Service
	bus      *broadcast.Bus
	log      zerolog.Logger
}

func NewFinalizer(store PatientStore, resolver *allocation.Resolver, inv *inventory.Service, bus *broadcast.Bus, log zerolog.Logger) *Finalizer {
	return &Finalizer{store: store, resolver: resolver, inv: inv, bus: bus, log: log}
}

// Finalize re-validates the allocation against a fresh snapshot, writes the
// record, and marks the draft admitted. A draft that already carries a
// patient id routes to update, so re-running never duplicates a record.
func (f *Finalizer) Finalize(ctx context.Context, sessionID uuid.UUID, d *Draft) (*Record, error) {
	rec := d.Snapshot()
	if rec.Bed.IsZero() {
		return nil, &ValidationError{Field: "bed", Reason: "no bed selected"}
	}
	if err := f.resolver.CheckFor(ctx, rec.Bed, rec.ID); err != nil {
		return nil, err
	}

	wasAdmitted := rec.Status == StatusAdmitted
	rec.Status = StatusAdmitted
	rec.RecordType = RecordTypeIPD

	if rec.ID == uuid.Nil {
		id, err := f.store.CreatePatient(ctx, &rec)
		if err != nil {
			return nil, fmt.Errorf("persist admission: %w", err)
		}
		d.SetPatientID(id)
	} else {
		if err := f.store.UpdatePatient(ctx, &rec); err != nil {
			return nil, fmt.Errorf("persist admission: %w", err)
		}
	}
	d.SetStatus(StatusAdmitted)
	f.resolver.Release(sessionID)

	if !wasAdmitted {
		f.syncInventory(ctx, rec.Bed.WardID, +1)
	}
	return &rec, nil
}

// Discharge frees the patient's bed and republishes occupancy. The record
// keeps its bed reference for history; only admitted rows count toward
// occupancy.
func (f *Finalizer) Discharge(ctx context.Context, patientID uuid.UUID) (*Record, error) {
	rec, err := f.store.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusAdmitted {
		return nil, fmt.Errorf("patient %s is not admitted", patientID)
	}
	rec.Status = StatusDischarged
	if err := f.store.UpdatePatient(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist discharge: %w", err)
	}
	f.syncInventory(ctx, rec.Bed.WardID, -1)
	return rec, nil
}

// syncInventory updates the ward's occupied counter and notifies open
// sessions. Failures are logged only; the admission record already stands.
func (f *Finalizer) syncInventory(ctx context.Context, wardID uuid.UUID, delta int) {
	if err := f.inv.UpdateCounters(ctx, wardID, delta); err != nil {
		f.log.Error().Err(err).
			Str("ward_id", wardID.String()).
			Int("delta", delta).
			Msg("inventory counter sync failed")
	}
	if f.bus != nil {
		f.bus.Publish(broadcast.Event{
			Type:   broadcast.EventInventoryChanged,
			WardID: wardID,
		})
	}
}
