package admission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carenet/admissions/internal/domain/allocation"
	"github.com/carenet/admissions/internal/domain/inventory"
	"github.com/carenet/admissions/internal/domain/occupancy"
	"github.com/carenet/admissions/internal/platform/broadcast"
)

type mockStore struct {
	records     map[uuid.UUID]*Record
	createCalls int
	updateCalls int
}

func newMockStore() *mockStore {
	return &mockStore{records: make(map[uuid.UUID]*Record)}
}

func (m *mockStore) CreatePatient(_ context.Context, rec *Record) (uuid.UUID, error) {
	m.createCalls++
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	cp := *rec
	m.records[rec.ID] = &cp
	return rec.ID, nil
}

func (m *mockStore) UpdatePatient(_ context.Context, rec *Record) error {
	m.updateCalls++
	if _, ok := m.records[rec.ID]; !ok {
		return ErrPatientNotFound
	}
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *mockStore) GetPatient(_ context.Context, id uuid.UUID) (*Record, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *mockStore) ListPatients(_ context.Context, filter ListFilter) ([]*Record, error) {
	var out []*Record
	for _, rec := range m.records {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *mockStore) ListAdmitted(ctx context.Context) ([]*Record, error) {
	return m.ListPatients(ctx, ListFilter{Status: StatusAdmitted})
}

type stubInvRepo struct {
	wards       []*inventory.Ward
	maintenance map[uuid.UUID]bool
	counterErr  error
	deltas      []int
}

func (s *stubInvRepo) ListWards(_ context.Context) ([]*inventory.Ward, error) { return s.wards, nil }
func (s *stubInvRepo) GetWard(_ context.Context, id uuid.UUID) (*inventory.Ward, error) {
	for _, w := range s.wards {
		if w.ID == id {
			return w, nil
		}
	}
	return nil, errors.New("not found")
}
func (s *stubInvRepo) CreateWard(_ context.Context, _ *inventory.Ward) error { return nil }
func (s *stubInvRepo) UpdateWard(_ context.Context, _ *inventory.Ward) error { return nil }
func (s *stubInvRepo) DeleteWard(_ context.Context, _ uuid.UUID) error       { return nil }
func (s *stubInvRepo) AddRoom(_ context.Context, _ *inventory.Room) error    { return nil }
func (s *stubInvRepo) AddBed(_ context.Context, _ *inventory.Bed) error      { return nil }
func (s *stubInvRepo) UpdateCounters(_ context.Context, _ uuid.UUID, delta int) error {
	if s.counterErr != nil {
		return s.counterErr
	}
	s.deltas = append(s.deltas, delta)
	return nil
}
func (s *stubInvRepo) MarkMaintenance(_ context.Context, bedID uuid.UUID, _ string) error {
	s.maintenance[bedID] = true
	return nil
}
func (s *stubInvRepo) ClearMaintenance(_ context.Context, bedID uuid.UUID) error {
	delete(s.maintenance, bedID)
	return nil
}
func (s *stubInvRepo) MaintenanceBedIDs(_ context.Context) (map[uuid.UUID]bool, error) {
	return s.maintenance, nil
}

func icu3() *inventory.Ward {
	w := &inventory.Ward{ID: uuid.New(), Name: "ICU-3", WardType: "ICU", TotalBeds: 4}
	bedNum := 1
	for roomNum := 1; roomNum <= 2; roomNum++ {
		room := &inventory.Room{ID: uuid.New(), WardID: w.ID, Number: roomNum}
		for i := 0; i < 2; i++ {
			room.Beds = append(room.Beds, &inventory.Bed{ID: uuid.New(), RoomID: room.ID, Number: bedNum})
			bedNum++
		}
		w.Rooms = append(w.Rooms, room)
	}
	return w
}

type fixture struct {
	store    *mockStore
	invRepo  *stubInvRepo
	bus      *broadcast.Bus
	fin      *Finalizer
	resolver *allocation.Resolver
	ward     *inventory.Ward
}

func newFixture() *fixture {
	ward := icu3()
	store := newMockStore()
	invRepo := &stubInvRepo{wards: []*inventory.Ward{ward}, maintenance: make(map[uuid.UUID]bool)}
	inv := inventory.NewService(invRepo)
	resolver := allocation.NewResolver(inv, OccupantAdapter{Store: store})
	bus := broadcast.NewBus()
	return &fixture{
		store:    store,
		invRepo:  invRepo,
		bus:      bus,
		resolver: resolver,
		ward:     ward,
		fin:      NewFinalizer(store, resolver, inv, bus, zerolog.Nop()),
	}
}

func admissionDraft(ward *inventory.Ward, bed int) *Draft {
	d := NewDraft()
	d.Update(FieldFirstName, "Asha")
	d.Update(FieldLastName, "Rao")
	d.Update(FieldPhone, "9876543210")
	room := 1
	if bed > 2 {
		room = 2
	}
	d.SetBed(occupancy.BedRef{WardID: ward.ID, RoomNumber: room, BedNumber: bed}, NextHalfHour(time.Now()))
	return d
}

func TestFinalize_CreatesRecord(t *testing.T) {
	f := newFixture()
	d := admissionDraft(f.ward, 1)

	rec, err := f.fin.Finalize(context.Background(), uuid.New(), d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID == uuid.Nil {
		t.Error("expected stable id from create")
	}
	if rec.Status != StatusAdmitted || rec.RecordType != RecordTypeIPD {
		t.Errorf("unexpected record: %+v", rec)
	}
	if d.Status != StatusAdmitted || d.PatientID != rec.ID {
		t.Errorf("draft not updated: %+v", d)
	}
	if len(f.invRepo.deltas) != 1 || f.invRepo.deltas[0] != 1 {
		t.Errorf("expected one +1 counter sync, got %v", f.invRepo.deltas)
	}
}

func TestFinalize_Idempotent(t *testing.T) {
	f := newFixture()
	d := admissionDraft(f.ward, 1)
	ctx := context.Background()

	if _, err := f.fin.Finalize(ctx, uuid.New(), d); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if _, err := f.fin.Finalize(ctx, uuid.New(), d); err != nil {
		t.Fatalf("second finalize: %v", err)
	}

	if f.store.createCalls != 1 {
		t.Errorf("expected exactly one create, got %d", f.store.createCalls)
	}
	if f.store.updateCalls != 1 {
		t.Errorf("expected second call to update, got %d", f.store.updateCalls)
	}
	if len(f.store.records) != 1 {
		t.Errorf("duplicate record created: %d", len(f.store.records))
	}
	// the counter moved once, not twice
	if len(f.invRepo.deltas) != 1 {
		t.Errorf("counter synced %d times", len(f.invRepo.deltas))
	}
}

func TestFinalize_RejectsOccupiedBed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first := admissionDraft(f.ward, 2)
	if _, err := f.fin.Finalize(ctx, uuid.New(), first); err != nil {
		t.Fatalf("first finalize: %v", err)
	}

	second := admissionDraft(f.ward, 2)
	_, err := f.fin.Finalize(ctx, uuid.New(), second)
	if !errors.Is(err, allocation.ErrAlreadyOccupied) {
		t.Errorf("expected ErrAlreadyOccupied, got %v", err)
	}
	if f.store.createCalls != 1 {
		t.Errorf("conflicting finalize must not persist, got %d creates", f.store.createCalls)
	}
}

func TestFinalize_CounterFailureIsNonFatal(t *testing.T) {
	f := newFixture()
	f.invRepo.counterErr = errors.New("store unavailable")
	d := admissionDraft(f.ward, 3)

	rec, err := f.fin.Finalize(context.Background(), uuid.New(), d)
	if err != nil {
		t.Fatalf("counter failure must not fail the admission: %v", err)
	}
	if rec.Status != StatusAdmitted {
		t.Errorf("unexpected status %s", rec.Status)
	}
}

func TestFinalize_PublishesInventoryChanged(t *testing.T) {
	f := newFixture()
	sub := f.bus.Subscribe()
	defer f.bus.Unsubscribe(sub.ID)

	if _, err := f.fin.Finalize(context.Background(), uuid.New(), admissionDraft(f.ward, 4)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case evt := <-sub.C:
		if evt.Type != broadcast.EventInventoryChanged || evt.WardID != f.ward.ID {
			t.Errorf("unexpected event: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("no inventory.changed event published")
	}
}

func TestFinalize_NoBedSelected(t *testing.T) {
	f := newFixture()
	d := NewDraft()
	d.Update(FieldFirstName, "Asha")

	_, err := f.fin.Finalize(context.Background(), uuid.New(), d)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDischarge(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := admissionDraft(f.ward, 1)
	rec, err := f.fin.Finalize(ctx, uuid.New(), d)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	out, err := f.fin.Discharge(ctx, rec.ID)
	if err != nil {
		t.Fatalf("discharge: %v", err)
	}
	if out.Status != StatusDischarged {
		t.Errorf("unexpected status %s", out.Status)
	}
	if len(f.invRepo.deltas) != 2 || f.invRepo.deltas[1] != -1 {
		t.Errorf("expected -1 counter sync, got %v", f.invRepo.deltas)
	}

	// the bed is free again
	if err := f.resolver.Check(ctx, rec.Bed); err != nil {
		t.Errorf("bed still occupied after discharge: %v", err)
	}

	if _, err := f.fin.Discharge(ctx, rec.ID); err == nil {
		t.Error("expected error discharging a discharged patient")
	}
}
