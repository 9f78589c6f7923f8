package wizard

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carenet/admissions/internal/domain/admission"
	"github.com/carenet/admissions/internal/domain/allocation"
	"github.com/carenet/admissions/internal/domain/inventory"
	"github.com/carenet/admissions/internal/platform/auth"
)

// Handler exposes the wizard over HTTP. Every route except open takes the
// session id issued by POST /admissions/wizard.
type Handler struct {
	mgr *Manager
}

func NewHandler(mgr *Manager) *Handler {
	return &Handler{mgr: mgr}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/admissions/wizard", auth.RequireRole("admin", "registrar"))
	g.POST("", h.Open)
	g.GET("/:sid", h.GetState)
	g.PATCH("/:sid/draft", h.UpdateDraft)
	g.GET("/:sid/options", h.Options)
	g.POST("/:sid/next", h.Next)
	g.POST("/:sid/back", h.Back)
	g.POST("/:sid/cancel", h.Cancel)
	g.POST("/:sid/finalize", h.Finalize)
}

func (h *Handler) Open(c echo.Context) error {
	s := h.mgr.Open()
	return c.JSON(http.StatusCreated, map[string]any{
		"session_id": s.ID,
		"state":      s.State(),
	})
}

func (h *Handler) session(c echo.Context) (*Session, error) {
	id, err := uuid.Parse(c.Param("sid"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	s, err := h.mgr.Get(id)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return s, nil
}

func (h *Handler) GetState(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.stateView(s))
}

func (h *Handler) stateView(s *Session) map[string]any {
	view := map[string]any{
		"session_id": s.ID,
		"state":      s.State(),
	}
	if d := s.Draft(); d != nil {
		rec := d.Snapshot()
		view["draft"] = rec
		view["city_options"] = d.CityChoices()
	}
	wardID, room, bed := s.Selection()
	if wardID != uuid.Nil {
		view["selection"] = map[string]any{
			"ward_id":     wardID,
			"room_number": room,
			"bed_number":  bed,
		}
	}
	return view
}

type draftPatch struct {
	Fields     map[admission.Field]string `json:"fields"`
	WardID     *uuid.UUID                 `json:"ward_id,omitempty"`
	RoomNumber *int                       `json:"room_number,omitempty"`
	BedNumber  *int                       `json:"bed_number,omitempty"`
}

// UpdateDraft applies field edits and step selections. Field-level
// validation errors report the offending field; the session stays where it
// is either way.
func (h *Handler) UpdateDraft(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var patch draftPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	for field, value := range patch.Fields {
		if err := s.UpdateField(field, value); err != nil {
			return wizardError(err)
		}
	}
	if patch.WardID != nil {
		if err := s.SelectWard(*patch.WardID); err != nil {
			return wizardError(err)
		}
	}
	if patch.RoomNumber != nil {
		if err := s.SelectRoom(*patch.RoomNumber); err != nil {
			return wizardError(err)
		}
	}
	if patch.BedNumber != nil {
		if err := s.SelectBed(*patch.BedNumber); err != nil {
			return wizardError(err)
		}
	}
	return c.JSON(http.StatusOK, h.stateView(s))
}

// Options lists what the current step offers: wards with availability,
// rooms of the chosen ward, or beds of the chosen room with status.
func (h *Handler) Options(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	snap, err := s.deps.Resolver.Snapshot(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	wardID, room, _ := s.Selection()

	switch s.State() {
	case StateWard:
		wards, err := s.deps.Inventory.ListWards(ctx)
		if err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		type wardOption struct {
			ID        uuid.UUID `json:"id"`
			Name      string    `json:"name"`
			WardType  string    `json:"ward_type"`
			Available int       `json:"available_beds"`
		}
		opts := make([]wardOption, 0, len(wards))
		for _, w := range wards {
			opts = append(opts, wardOption{
				ID: w.ID, Name: w.Name, WardType: w.WardType,
				Available: snap.AvailableBeds(w.ID),
			})
		}
		return c.JSON(http.StatusOK, map[string]any{"wards": opts})
	case StateRoom:
		rooms, err := s.deps.Inventory.RoomsOf(ctx, wardID)
		if err != nil {
			return wizardError(err)
		}
		type roomOption struct {
			Number    int `json:"number"`
			Beds      int `json:"beds"`
			Available int `json:"available_beds"`
		}
		opts := make([]roomOption, 0, len(rooms))
		for _, r := range rooms {
			free := 0
			for _, v := range snap.RoomBeds(wardID, r.Number) {
				if v.Status == inventory.BedAvailable {
					free++
				}
			}
			opts = append(opts, roomOption{Number: r.Number, Beds: len(r.Beds), Available: free})
		}
		return c.JSON(http.StatusOK, map[string]any{"rooms": opts})
	case StateBed:
		return c.JSON(http.StatusOK, map[string]any{"beds": snap.RoomBeds(wardID, room)})
	default:
		return echo.NewHTTPError(http.StatusConflict, "current step has no options")
	}
}

func (h *Handler) Next(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	if err := s.Next(c.Request().Context()); err != nil {
		return wizardError(err)
	}
	return c.JSON(http.StatusOK, h.stateView(s))
}

func (h *Handler) Back(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	if err := s.Back(); err != nil {
		return wizardError(err)
	}
	return c.JSON(http.StatusOK, h.stateView(s))
}

func (h *Handler) Cancel(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	s.Cancel()
	h.mgr.Close(s.ID)
	return c.JSON(http.StatusOK, map[string]any{"state": StateCancelled})
}

func (h *Handler) Finalize(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	rec, err := s.Finalize(c.Request().Context())
	if err != nil {
		return wizardError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"state":     StateCompleted,
		"admission": rec,
	})
}

// wizardError maps domain errors onto HTTP status codes.
func wizardError(err error) error {
	var ve *admission.ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.Is(err, allocation.ErrAlreadyOccupied),
		errors.Is(err, allocation.ErrUnderMaintenance),
		errors.Is(err, ErrWardFull),
		errors.Is(err, ErrRoomFull),
		errors.Is(err, ErrBusy),
		errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNoWardSelected),
		errors.Is(err, ErrNoRoomSelected),
		errors.Is(err, ErrNoBedSelected),
		errors.Is(err, allocation.ErrUnknownBed):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSessionClosed):
		return echo.NewHTTPError(http.StatusGone, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
