package patient

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
	// Read endpoints: every clinical and front-desk role looks patients up
	readGroup := api.Group("", auth.RequireRole(auth.RoleRecords, auth.RoleCashier, auth.RoleDoctor,
		auth.RoleNurse, auth.RolePharmacist, auth.RoleLabScientist, auth.RoleHMOOfficer))
	readGroup.GET("/patients", h.ListPatients)
	readGroup.GET("/patients/:id", h.GetPatient)
	readGroup.GET("/patients/:id/visits", h.ListVisits)

	writeGroup := api.Group("", auth.RequireRole(auth.RoleRecords))
	writeGroup.POST("/patients", h.RegisterPatient)
	writeGroup.PUT("/patients/:id", h.UpdatePatient)

	depositGroup := api.Group("", auth.RequireRole(auth.RoleRecords, auth.RoleCashier))
	depositGroup.POST("/patients/:id/deposits", h.Deposit)
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var p model.Patient
	if err := c.Bind(&p); err != nil {
		return apierr.BadRequest(err.Error())
	}
	out, err := h.svc.Register(c.Request().Context(), p)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	f := Filter{
		Query:       c.QueryParam("q"),
		PatientType: c.QueryParam("patient_type"),
		HMOProvider: c.QueryParam("hmo_provider"),
	}
	items, err := h.svc.Search(c.Request().Context(), f)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	var patch model.PatientPatch
	if err := c.Bind(&patch); err != nil {
		return apierr.BadRequest(err.Error())
	}
	out, err := h.svc.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, out)
}

type depositRequest struct {
	Amount float64 `json:"amount"`
	Method string  `json:"method"`
}

func (h *Handler) Deposit(c echo.Context) error {
	var req depositRequest
	if err := c.Bind(&req); err != nil {
		return apierr.BadRequest(err.Error())
	}
	ctx := c.Request().Context()
	res, err := h.svc.Deposit(ctx, c.Param("id"), req.Amount, req.Method, auth.ActorFromContext(ctx))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListVisits(c echo.Context) error {
	visits, err := h.svc.Visits(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(visits, pagination.FromContext(c)))
}
