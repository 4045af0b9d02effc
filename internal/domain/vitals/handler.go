package vitals

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/model"
	"github.com/hms/hms/internal/platform/apierr"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleNurse))
	g.POST("/vitals", h.RecordVitals)
	g.GET("/vitals/:id", h.GetVitals)
	g.GET("/patients/:id/vitals", h.ListPatientVitals)
	g.GET("/patients/:id/vitals/latest", h.LatestVitals)
}

func (h *Handler) RecordVitals(c echo.Context) error {
	var v model.Vitals
	if err := c.Bind(&v); err != nil {
		return apierr.BadRequest(err.Error())
	}
	ctx := c.Request().Context()
	out, err := h.svc.Record(ctx, v, auth.ActorFromContext(ctx))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) GetVitals(c echo.Context) error {
	v, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ListPatientVitals(c echo.Context) error {
	items, err := h.svc.ListByPatient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

func (h *Handler) LatestVitals(c echo.Context) error {
	v, err := h.svc.Latest(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, v)
}
