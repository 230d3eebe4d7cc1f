package scheduling

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/platform/apperror"
	"github.com/careflow/careflow/internal/platform/auth"
	"github.com/careflow/careflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	readGroup.GET("/appointments", h.ListAppointments)
	readGroup.GET("/appointments/:id", h.GetAppointment)
	readGroup.GET("/providers/:id/slots", h.ListSlots)

	writeGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	writeGroup.POST("/appointments", h.CreateAppointment)
	writeGroup.POST("/appointments/:id/confirm", h.ConfirmAppointment)
	writeGroup.POST("/appointments/:id/arrive", h.MarkArrived)
	writeGroup.POST("/appointments/:id/check-in", h.CheckIn)
	writeGroup.POST("/appointments/:id/start", h.StartEncounter)
	writeGroup.POST("/appointments/:id/complete", h.Complete)
	writeGroup.POST("/appointments/:id/cancel", h.Cancel)
	writeGroup.POST("/appointments/:id/no-show", h.MarkNoShow)
	writeGroup.PUT("/appointments/:id/schedule", h.Reschedule)
	writeGroup.POST("/appointments/:id/reminder", h.SendReminder)
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	p := pagination.FromContext(c)
	params := SearchParams{
		Text:       c.QueryParam("q"),
		SortBy:     c.QueryParam("sort"),
		Descending: c.QueryParam("order") == "desc",
		Page:       p.Page,
		PageSize:   p.PageSize,
	}
	if raw := c.QueryParam("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			params.Statuses = append(params.Statuses, Status(strings.TrimSpace(s)))
		}
	}
	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		params.PatientID = id
	}
	if raw := c.QueryParam("provider_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid provider_id")
		}
		params.ProviderID = id
	}
	if raw := c.QueryParam("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from, want RFC3339")
		}
		params.From = &t
	}
	if raw := c.QueryParam("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to, want RFC3339")
		}
		params.To = &t
	}

	items, total, err := h.svc.Search(c.Request().Context(), params)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p))
}

func (h *Handler) ListSlots(c echo.Context) error {
	date, err := time.Parse("2006-01-02", c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
	}
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid provider id")
	}
	var facilityID uuid.UUID
	if raw := c.QueryParam("facility_id"); raw != "" {
		facilityID, err = uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid facility_id")
		}
	}
	duration := 30
	if raw := c.QueryParam("duration"); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid duration")
		}
	}

	slots, err := h.svc.GetAvailableSlots(c.Request().Context(), date, providerID, facilityID, duration)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, slots)
}

func (h *Handler) ConfirmAppointment(c echo.Context) error {
	return h.act(c, func(id uuid.UUID, actor string) (*Appointment, error) {
		return h.svc.Confirm(c.Request().Context(), id, actor)
	})
}

func (h *Handler) MarkArrived(c echo.Context) error {
	return h.act(c, func(id uuid.UUID, _ string) (*Appointment, error) {
		return h.svc.MarkArrived(c.Request().Context(), id)
	})
}

func (h *Handler) CheckIn(c echo.Context) error {
	return h.act(c, func(id uuid.UUID, actor string) (*Appointment, error) {
		return h.svc.CheckIn(c.Request().Context(), id, actor)
	})
}

func (h *Handler) StartEncounter(c echo.Context) error {
	return h.act(c, func(id uuid.UUID, _ string) (*Appointment, error) {
		return h.svc.StartEncounter(c.Request().Context(), id)
	})
}

func (h *Handler) Complete(c echo.Context) error {
	return h.act(c, func(id uuid.UUID, _ string) (*Appointment, error) {
		return h.svc.Complete(c.Request().Context(), id)
	})
}

func (h *Handler) Cancel(c echo.Context) error {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.act(c, func(id uuid.UUID, actor string) (*Appointment, error) {
		return h.svc.Cancel(c.Request().Context(), id, actor, body.Reason)
	})
}

func (h *Handler) MarkNoShow(c echo.Context) error {
	return h.act(c, func(id uuid.UUID, _ string) (*Appointment, error) {
		return h.svc.MarkNoShow(c.Request().Context(), id)
	})
}

func (h *Handler) Reschedule(c echo.Context) error {
	var body struct {
		Start           time.Time `json:"start"`
		DurationMinutes int       `json:"duration_minutes"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.act(c, func(id uuid.UUID, _ string) (*Appointment, error) {
		return h.svc.Reschedule(c.Request().Context(), id, body.Start, body.DurationMinutes)
	})
}

func (h *Handler) SendReminder(c echo.Context) error {
	return h.act(c, func(id uuid.UUID, _ string) (*Appointment, error) {
		return h.svc.SendReminder(c.Request().Context(), id)
	})
}

func (h *Handler) act(c echo.Context, fn func(id uuid.UUID, actor string) (*Appointment, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := fn(id, auth.UserNameFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, a)
}
