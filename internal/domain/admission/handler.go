package admission

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carenet/admissions/internal/platform/auth"
	"github.com/carenet/admissions/pkg/pagination"
)

// Handler serves the admitted-patient listing and discharge endpoints. The
// wizard package drives the admission flow itself.
type Handler struct {
	store PatientStore
	fin   *Finalizer
}

func NewHandler(store PatientStore, fin *Finalizer) *Handler {
	return &Handler{store: store, fin: fin}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "registrar", "nurse"))
	g.GET("/patients", h.ListPatients)
	g.GET("/patients/:id", h.GetPatient)
	g.POST("/patients/:id/discharge", h.Discharge)
}

func (h *Handler) ListPatients(c echo.Context) error {
	page := pagination.FromContext(c)
	filter := ListFilter{
		Status: Status(c.QueryParam("status")),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if ward := c.QueryParam("ward_id"); ward != "" {
		id, err := uuid.Parse(ward)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid ward_id")
		}
		filter.WardID = id
	}

	recs, err := h.store.ListPatients(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if recs == nil {
		recs = []*Record{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"patients": recs,
		"limit":    page.Limit,
		"offset":   page.Offset,
	})
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.store.GetPatient(c.Request().Context(), id)
	if errors.Is(err, ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) Discharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.fin.Discharge(c.Request().Context(), id)
	if errors.Is(err, ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}
