package scheduling

import (
	"net/http"
	"time"

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
	// Front desk books; clinicians run the visit
	bookGroup := api.Group("", auth.RequireRole(auth.RoleRecords, auth.RoleDoctor, auth.RoleNurse))
	bookGroup.POST("/appointments", h.CreateAppointment)
	bookGroup.GET("/appointments", h.ListAppointments)
	bookGroup.GET("/appointments/:id", h.GetAppointment)
	bookGroup.PUT("/appointments/:id", h.UpdateAppointment)
	bookGroup.POST("/appointments/:id/status", h.TransitionAppointment)
	bookGroup.POST("/vaccinations", h.ScheduleVaccination)
	bookGroup.GET("/vaccinations", h.ListVaccinations)
	bookGroup.GET("/vaccinations/:id", h.GetVaccination)

	clinicGroup := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleNurse))
	clinicGroup.POST("/vaccinations/:id/start", h.StartVaccination)
	clinicGroup.POST("/vaccinations/:id/complete", h.CompleteVaccination)
	clinicGroup.POST("/vaccinations/:id/deny", h.DenyVaccination)
}

// -- Appointment handlers --

func (h *Handler) CreateAppointment(c echo.Context) error {
	var a model.Appointment
	if err := c.Bind(&a); err != nil {
		return apierr.BadRequest(err.Error())
	}
	out, err := h.svc.CreateAppointment(c.Request().Context(), a)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	a, err := h.svc.GetAppointment(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	f := AppointmentFilter{
		Status:     c.QueryParam("status"),
		Doctor:     c.QueryParam("doctor"),
		Department: c.QueryParam("department"),
		PatientID:  c.QueryParam("patient_id"),
		Query:      c.QueryParam("q"),
	}
	if d := c.QueryParam("date"); d != "" {
		day, err := time.Parse(time.DateOnly, d)
		if err != nil {
			return apierr.BadRequest("date must be YYYY-MM-DD")
		}
		f.Date = day
	}
	items, err := h.svc.ListAppointments(c.Request().Context(), f)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	var patch model.AppointmentPatch
	if err := c.Bind(&patch); err != nil {
		return apierr.BadRequest(err.Error())
	}
	a, err := h.svc.UpdateAppointment(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, a)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) TransitionAppointment(c echo.Context) error {
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return apierr.BadRequest(err.Error())
	}
	if req.Status == "" {
		return apierr.BadRequest("status is required")
	}
	a, err := h.svc.TransitionAppointment(c.Request().Context(), c.Param("id"), req.Status)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, a)
}

// -- Vaccination handlers --

func (h *Handler) ScheduleVaccination(c echo.Context) error {
	var va model.VaccinationAppointment
	if err := c.Bind(&va); err != nil {
		return apierr.BadRequest(err.Error())
	}
	out, err := h.svc.ScheduleVaccination(c.Request().Context(), va)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) GetVaccination(c echo.Context) error {
	va, err := h.svc.GetVaccination(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, va)
}

func (h *Handler) ListVaccinations(c echo.Context) error {
	items, err := h.svc.ListVaccinations(c.Request().Context(), VaccinationFilter{
		Status:    c.QueryParam("status"),
		PatientID: c.QueryParam("patient_id"),
		VaccineID: c.QueryParam("vaccine_id"),
		Query:     c.QueryParam("q"),
	})
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

func (h *Handler) StartVaccination(c echo.Context) error {
	va, err := h.svc.StartVaccination(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, va)
}

func (h *Handler) CompleteVaccination(c echo.Context) error {
	ctx := c.Request().Context()
	va, err := h.svc.CompleteVaccination(ctx, c.Param("id"), auth.ActorFromContext(ctx))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, va)
}

type denyRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) DenyVaccination(c echo.Context) error {
	var req denyRequest
	if err := c.Bind(&req); err != nil {
		return apierr.BadRequest(err.Error())
	}
	va, err := h.svc.DenyVaccination(c.Request().Context(), c.Param("id"), req.Reason)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, va)
}
