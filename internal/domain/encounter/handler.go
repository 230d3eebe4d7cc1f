package encounter

import (
	"net/http"
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
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	readGroup.GET("/encounters", h.ListEncounters)
	readGroup.GET("/encounters/:id", h.GetEncounter)
	readGroup.GET("/encounter-templates", h.ListTemplates)

	writeGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	writeGroup.POST("/encounters", h.CreateEncounter)
	writeGroup.POST("/encounters/:id/arrive", h.MarkArrived)
	writeGroup.POST("/encounters/:id/triage", h.Triage)
	writeGroup.POST("/encounters/:id/start", h.Start)
	writeGroup.POST("/encounters/:id/pause", h.Pause)
	writeGroup.POST("/encounters/:id/cancel", h.Cancel)
	writeGroup.PUT("/encounters/:id/sections", h.UpdateSections)
	writeGroup.POST("/encounters/:id/apply-template", h.ApplyTemplate)

	// Signing and amending are physician acts.
	signGroup := api.Group("", auth.RequireRole("admin", "physician"))
	signGroup.POST("/encounters/:id/sign", h.Sign)
	signGroup.POST("/encounters/:id/addenda", h.AddAddendum)
}

func (h *Handler) CreateEncounter(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) GetEncounter(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListEncounters(c echo.Context) error {
	p := pagination.FromContext(c)
	params := SearchParams{
		Class:      Class(c.QueryParam("class")),
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

func (h *Handler) ListTemplates(c echo.Context) error {
	return c.JSON(http.StatusOK, ListTemplates())
}

func (h *Handler) MarkArrived(c echo.Context) error {
	return h.act(c, func(id uuid.UUID) (*Encounter, error) {
		return h.svc.MarkArrived(c.Request().Context(), id)
	})
}

func (h *Handler) Triage(c echo.Context) error {
	return h.act(c, func(id uuid.UUID) (*Encounter, error) {
		return h.svc.Triage(c.Request().Context(), id)
	})
}

func (h *Handler) Start(c echo.Context) error {
	return h.act(c, func(id uuid.UUID) (*Encounter, error) {
		return h.svc.Start(c.Request().Context(), id)
	})
}

func (h *Handler) Pause(c echo.Context) error {
	return h.act(c, func(id uuid.UUID) (*Encounter, error) {
		return h.svc.Pause(c.Request().Context(), id)
	})
}

func (h *Handler) Sign(c echo.Context) error {
	var body struct {
		Attestation string `json:"attestation"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	signedBy := auth.UserNameFromContext(c.Request().Context())
	e, err := h.svc.Sign(c.Request().Context(), id, signedBy, body.Attestation)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Cancel(c echo.Context) error {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.act(c, func(id uuid.UUID) (*Encounter, error) {
		return h.svc.Cancel(c.Request().Context(), id, body.Reason)
	})
}

func (h *Handler) UpdateSections(c echo.Context) error {
	var sections Sections
	if err := c.Bind(&sections); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.act(c, func(id uuid.UUID) (*Encounter, error) {
		return h.svc.UpdateSections(c.Request().Context(), id, sections)
	})
}

func (h *Handler) ApplyTemplate(c echo.Context) error {
	var body struct {
		TemplateID string `json:"template_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.act(c, func(id uuid.UUID) (*Encounter, error) {
		return h.svc.ApplyTemplate(c.Request().Context(), id, body.TemplateID)
	})
}

func (h *Handler) AddAddendum(c echo.Context) error {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	author := auth.UserNameFromContext(c.Request().Context())
	return h.act(c, func(id uuid.UUID) (*Encounter, error) {
		return h.svc.AddAddendum(c.Request().Context(), id, author, body.Text)
	})
}

func (h *Handler) act(c echo.Context, fn func(id uuid.UUID) (*Encounter, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := fn(id)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, e)
}
