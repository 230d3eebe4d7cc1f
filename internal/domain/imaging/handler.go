package imaging

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/platform/apperror"
	"github.com/careflow/careflow/internal/platform/auth"
	"github.com/careflow/careflow/internal/platform/pacs"
	"github.com/careflow/careflow/pkg/pagination"
)

type Handler struct {
	svc    *Service
	viewer pacs.Resolver
}

func NewHandler(svc *Service, viewer pacs.Resolver) *Handler {
	return &Handler{svc: svc, viewer: viewer}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse", "radiologist", "technologist"))
	readGroup.GET("/imaging-orders", h.ListOrders)
	readGroup.GET("/imaging-orders/:id", h.GetOrder)
	readGroup.GET("/imaging-orders/:id/viewer", h.ViewerURL)

	orderGroup := api.Group("", auth.RequireRole("admin", "physician"))
	orderGroup.POST("/imaging-orders", h.CreateOrder)
	orderGroup.POST("/imaging-orders/:id/cancel", h.Cancel)

	performGroup := api.Group("", auth.RequireRole("admin", "technologist", "radiologist"))
	performGroup.POST("/imaging-orders/:id/schedule", h.Schedule)
	performGroup.POST("/imaging-orders/:id/start", h.Start)
	performGroup.POST("/imaging-orders/:id/complete", h.Complete)

	readingGroup := api.Group("", auth.RequireRole("admin", "radiologist"))
	readingGroup.PUT("/imaging-orders/:id/draft-report", h.SaveDraftReport)
	readingGroup.POST("/imaging-orders/:id/report", h.SubmitReport)
	readingGroup.PUT("/imaging-orders/:id/report", h.AmendReport)
	readingGroup.POST("/imaging-orders/:id/addendum", h.AddAddendum)

	// Any clinician can take responsibility for a critical result.
	ackGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse", "radiologist"))
	ackGroup.POST("/imaging-orders/:id/acknowledge-critical", h.AcknowledgeCritical)
}

func (h *Handler) CreateOrder(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) GetOrder(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) ListOrders(c echo.Context) error {
	p := pagination.FromContext(c)
	params := SearchParams{
		Modality:            c.QueryParam("modality"),
		Priority:            Priority(c.QueryParam("priority")),
		Text:                c.QueryParam("q"),
		AwaitingCriticalAck: c.QueryParam("awaiting_critical_ack") == "true",
		SortBy:              c.QueryParam("sort"),
		Descending:          c.QueryParam("order") == "desc",
		Page:                p.Page,
		PageSize:            p.PageSize,
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

func (h *Handler) ViewerURL(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	if o.PerformedDate == nil {
		return echo.NewHTTPError(http.StatusConflict, "study has not been performed yet")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"accession_number": o.AccessionNumber,
		"viewer_url":       h.viewer.ViewerURL(o.AccessionNumber),
	})
}

func (h *Handler) Schedule(c echo.Context) error {
	var body struct {
		Date       time.Time `json:"date"`
		FacilityID uuid.UUID `json:"facility_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.act(c, func(id uuid.UUID) (*ImagingOrder, error) {
		return h.svc.Schedule(c.Request().Context(), id, body.Date, body.FacilityID)
	})
}

func (h *Handler) Start(c echo.Context) error {
	return h.act(c, func(id uuid.UUID) (*ImagingOrder, error) {
		return h.svc.Start(c.Request().Context(), id)
	})
}

func (h *Handler) Complete(c echo.Context) error {
	return h.act(c, func(id uuid.UUID) (*ImagingOrder, error) {
		return h.svc.Complete(c.Request().Context(), id)
	})
}

func (h *Handler) SaveDraftReport(c echo.Context) error {
	var in ReportInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	author := auth.UserNameFromContext(c.Request().Context())
	return h.act(c, func(id uuid.UUID) (*ImagingOrder, error) {
		return h.svc.SaveDraftReport(c.Request().Context(), id, author, in)
	})
}

func (h *Handler) AmendReport(c echo.Context) error {
	var in ReportInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	author := auth.UserNameFromContext(c.Request().Context())
	return h.act(c, func(id uuid.UUID) (*ImagingOrder, error) {
		return h.svc.AmendReport(c.Request().Context(), id, author, in)
	})
}

func (h *Handler) SubmitReport(c echo.Context) error {
	var in ReportInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	author := auth.UserNameFromContext(c.Request().Context())
	return h.act(c, func(id uuid.UUID) (*ImagingOrder, error) {
		return h.svc.SubmitReport(c.Request().Context(), id, author, in)
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
	return h.act(c, func(id uuid.UUID) (*ImagingOrder, error) {
		return h.svc.AddAddendum(c.Request().Context(), id, author, body.Text)
	})
}

func (h *Handler) Cancel(c echo.Context) error {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserNameFromContext(c.Request().Context())
	return h.act(c, func(id uuid.UUID) (*ImagingOrder, error) {
		return h.svc.Cancel(c.Request().Context(), id, actor, body.Reason)
	})
}

func (h *Handler) AcknowledgeCritical(c echo.Context) error {
	actor := auth.UserNameFromContext(c.Request().Context())
	return h.act(c, func(id uuid.UUID) (*ImagingOrder, error) {
		return h.svc.AcknowledgeCriticalFinding(c.Request().Context(), id, actor)
	})
}

func (h *Handler) act(c echo.Context, fn func(id uuid.UUID) (*ImagingOrder, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := fn(id)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, o)
}
