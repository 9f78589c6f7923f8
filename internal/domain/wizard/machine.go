// Package wizard drives the five-step admission flow. A session owns one
// draft, advances through the steps under transition guards, and ends in
// Completed or Cancelled. Reopening the wizard always means a new session;
// aborted drafts are never resumed.
package wizard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carenet/admissions/internal/domain/admission"
	"github.com/carenet/admissions/internal/domain/allocation"
	"github.com/carenet/admissions/internal/domain/inventory"
	"github.com/carenet/admissions/internal/domain/occupancy"
	"github.com/carenet/admissions/internal/platform/postal"
)

type State string

const (
	StateIdentity  State = "step1_identity"
	StateWard      State = "step2_ward"
	StateRoom      State = "step3_room"
	StateBed       State = "step4_bed"
	StateFinalize  State = "step5_finalize"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// order maps each active step to its position for Back.
var order = []State{StateIdentity, StateWard, StateRoom, StateBed, StateFinalize}

var (
	ErrBusy              = errors.New("a validating call is outstanding")
	ErrSessionClosed     = errors.New("wizard session is closed")
	ErrInvalidTransition = errors.New("transition not allowed from current state")
	ErrNoWardSelected    = errors.New("no ward selected")
	ErrWardFull          = errors.New("selected ward has no available beds")
	ErrNoRoomSelected    = errors.New("no room selected")
	ErrRoomFull          = errors.New("selected room has no available beds")
	ErrNoBedSelected     = errors.New("no bed selected")
)

// Deps collects the collaborators every session needs.
type Deps struct {
	Inventory *inventory.Service
	Resolver  *allocation.Resolver
	Finalizer *admission.Finalizer
	Store     admission.PatientStore
	Postal    *postal.Client
	Log       zerolog.Logger
}

// Session is a single admission attempt. The mutex serializes the requests
// driving it; step transitions hold it across their validating I/O call, so
// a concurrent forward attempt fails fast with ErrBusy instead of queueing.
// The postal goroutine's write-backs go through the draft's own locking and
// never touch session state.
type Session struct {
	ID uuid.UUID

	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	draft     *admission.Draft
	selWard   uuid.UUID
	selRoom   int
	selBed    int
	createdAt time.Time
	touchedAt time.Time
}

func newSession(deps Deps) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	return &Session{
		ID:        uuid.New(),
		deps:      deps,
		ctx:       ctx,
		cancel:    cancel,
		state:     StateIdentity,
		draft:     admission.NewDraft(),
		createdAt: now,
		touchedAt: now,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Draft exposes the session's draft for read endpoints. Nil once closed.
func (s *Session) Draft() *admission.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Selection returns the ward/room/bed the operator has picked so far.
func (s *Session) Selection() (uuid.UUID, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selWard, s.selRoom, s.selBed
}

// closed reports a terminal state. Caller holds the mutex.
func (s *Session) closed() bool {
	return s.state == StateCompleted || s.state == StateCancelled
}

// UpdateField writes one draft field. A valid postal code kicks off an
// async lookup on the session's context; a result landing after
// cancellation or a newer edit is discarded by the draft's write sequence.
func (s *Session) UpdateField(field admission.Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed() {
		return ErrSessionClosed
	}
	s.touchedAt = time.Now()

	tok, err := s.draft.Update(field, value)
	if err != nil {
		return err
	}
	if field == admission.FieldPostalCode && postal.ValidCode(s.draft.PostalCode) {
		go s.lookupPostal(s.draft, tok, s.draft.PostalCode)
	}
	return nil
}

func (s *Session) lookupPostal(d *admission.Draft, token uint64, code string) {
	res, err := s.deps.Postal.Lookup(s.ctx, code)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.deps.Log.Warn().Err(err).Str("postal_code", code).Msg("postal lookup failed")
		}
		d.ClearPostalDerived(token)
		return
	}
	d.ApplyPostalResult(token, *res)
}

// SelectWard records the operator's ward choice and resets the narrower
// selections. Validation happens at the forward transition, not here.
func (s *Session) SelectWard(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed() {
		return ErrSessionClosed
	}
	if s.state != StateWard {
		return ErrInvalidTransition
	}
	s.touchedAt = time.Now()
	s.selWard = id
	s.selRoom = 0
	s.selBed = 0
	return nil
}

func (s *Session) SelectRoom(number int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed() {
		return ErrSessionClosed
	}
	if s.state != StateRoom {
		return ErrInvalidTransition
	}
	s.touchedAt = time.Now()
	s.selRoom = number
	s.selBed = 0
	return nil
}

func (s *Session) SelectBed(number int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed() {
		return ErrSessionClosed
	}
	if s.state != StateBed {
		return ErrInvalidTransition
	}
	s.touchedAt = time.Now()
	s.selBed = number
	return nil
}

// Next runs the current step's guard and advances on success. Failure keeps
// the current step and surfaces the error.
func (s *Session) Next(ctx context.Context) error {
	if !s.mu.TryLock() {
		return ErrBusy
	}
	defer s.mu.Unlock()
	if s.closed() {
		return ErrSessionClosed
	}
	s.touchedAt = time.Now()

	switch s.state {
	case StateIdentity:
		if err := s.saveIdentity(ctx); err != nil {
			return err
		}
		s.state = StateWard
	case StateWard:
		if err := s.guardWard(ctx); err != nil {
			return err
		}
		s.state = StateRoom
	case StateRoom:
		if err := s.guardRoom(ctx); err != nil {
			return err
		}
		s.state = StateBed
	case StateBed:
		if err := s.reserveBed(ctx); err != nil {
			return err
		}
		s.state = StateFinalize
	default:
		return ErrInvalidTransition
	}
	return nil
}

// saveIdentity makes the identity record durable before the wizard leaves
// step 1. The stable id it returns keys every later write.
func (s *Session) saveIdentity(ctx context.Context) error {
	if err := s.draft.ValidateIdentity(); err != nil {
		return err
	}
	rec := s.draft.Snapshot()
	rec.Status = admission.StatusDraft

	if rec.ID == uuid.Nil {
		id, err := s.deps.Store.CreatePatient(ctx, &rec)
		if err != nil {
			return err
		}
		s.draft.SetPatientID(id)
		return nil
	}
	return s.deps.Store.UpdatePatient(ctx, &rec)
}

// guardWard rejects a full ward even though the UI never offers one.
func (s *Session) guardWard(ctx context.Context) error {
	if s.selWard == uuid.Nil {
		return ErrNoWardSelected
	}
	snap, err := s.deps.Resolver.Snapshot(ctx)
	if err != nil {
		return err
	}
	if snap.AvailableBeds(s.selWard) == 0 {
		return ErrWardFull
	}
	return nil
}

func (s *Session) guardRoom(ctx context.Context) error {
	if s.selRoom == 0 {
		return ErrNoRoomSelected
	}
	snap, err := s.deps.Resolver.Snapshot(ctx)
	if err != nil {
		return err
	}
	free := 0
	for _, v := range snap.RoomBeds(s.selWard, s.selRoom) {
		if v.Status == inventory.BedAvailable {
			free++
		}
	}
	if free == 0 {
		return ErrRoomFull
	}
	return nil
}

// reserveBed runs the allocation check and, on success, stamps the draft's
// admission time rounded forward to the next half-hour.
func (s *Session) reserveBed(ctx context.Context) error {
	if s.selBed == 0 {
		return ErrNoBedSelected
	}
	ref := occupancy.BedRef{WardID: s.selWard, RoomNumber: s.selRoom, BedNumber: s.selBed}
	if err := s.deps.Resolver.TryReserve(ctx, s.ID, ref); err != nil {
		return err
	}
	s.draft.SetBed(ref, admission.NextHalfHour(time.Now()))
	return nil
}

// Back retreats one step without losing entered data.
func (s *Session) Back() error {
	if !s.mu.TryLock() {
		return ErrBusy
	}
	defer s.mu.Unlock()
	if s.closed() {
		return ErrSessionClosed
	}
	s.touchedAt = time.Now()
	for i, st := range order {
		if st == s.state {
			if i == 0 {
				return ErrInvalidTransition
			}
			s.state = order[i-1]
			return nil
		}
	}
	return ErrInvalidTransition
}

// Finalize commits the draft from step 5. An allocation conflict rolls the
// wizard back to bed selection; any other failure keeps step 5 so the
// operator can retry.
func (s *Session) Finalize(ctx context.Context) (*admission.Record, error) {
	if !s.mu.TryLock() {
		return nil, ErrBusy
	}
	defer s.mu.Unlock()
	if s.closed() {
		return nil, ErrSessionClosed
	}
	if s.state != StateFinalize {
		return nil, ErrInvalidTransition
	}
	s.touchedAt = time.Now()

	rec, err := s.deps.Finalizer.Finalize(ctx, s.ID, s.draft)
	if err != nil {
		if errors.Is(err, allocation.ErrAlreadyOccupied) || errors.Is(err, allocation.ErrUnderMaintenance) {
			// the bed was taken between selection and submit
			s.deps.Resolver.Release(s.ID)
			s.draft.ClearBed()
			s.selBed = 0
			s.state = StateBed
		}
		return nil, err
	}

	s.state = StateCompleted
	s.cancel()
	s.draft = nil
	return rec, nil
}

// Cancel aborts the session from any state, clears the draft, and stops any
// in-flight lookups.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed() {
		return
	}
	s.state = StateCancelled
	s.cancel()
	s.deps.Resolver.Release(s.ID)
	s.draft = nil
}
