package billing

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
	// Read endpoints: cashiers, records, pharmacy and HMO desk
	readGroup := api.Group("", auth.RequireRole(auth.RoleCashier, auth.RoleRecords, auth.RolePharmacist, auth.RoleHMOOfficer))
	readGroup.GET("/bills", h.ListBills)
	readGroup.GET("/bills/:id", h.GetBill)
	readGroup.GET("/patients/:id/bills", h.ListPatientBills)

	// Any service point can raise a bill
	createGroup := api.Group("", auth.RequireRole(auth.RoleCashier, auth.RoleRecords, auth.RoleDoctor,
		auth.RolePharmacist, auth.RoleLabScientist, auth.RoleNurse))
	createGroup.POST("/bills", h.CreateBill)

	// Money movement is cashier only
	cashGroup := api.Group("", auth.RequireRole(auth.RoleCashier))
	cashGroup.POST("/bills/:id/discount", h.ApplyDiscount)
	cashGroup.POST("/bills/:id/pay", h.PayBill)
	cashGroup.POST("/bills/:id/cancel", h.CancelBill)
	cashGroup.POST("/bills/:id/adjust", h.AdjustBill)
}

func (h *Handler) CreateBill(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apierr.BadRequest(err.Error())
	}
	ctx := c.Request().Context()
	b, err := h.svc.Create(ctx, req, auth.ActorFromContext(ctx))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBill(c echo.Context) error {
	b, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBills(c echo.Context) error {
	return h.list(c, Filter{
		Status:     c.QueryParam("status"),
		Type:       c.QueryParam("type"),
		PatientID:  c.QueryParam("patient_id"),
		Department: c.QueryParam("department"),
		Query:      c.QueryParam("q"),
	})
}

func (h *Handler) ListPatientBills(c echo.Context) error {
	return h.list(c, Filter{PatientID: c.Param("id"), Status: c.QueryParam("status")})
}

func (h *Handler) list(c echo.Context, f Filter) error {
	items, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

func (h *Handler) ApplyDiscount(c echo.Context) error {
	var d model.Discount
	if err := c.Bind(&d); err != nil {
		return apierr.BadRequest(err.Error())
	}
	var discount *model.Discount
	if d.Type != "" {
		discount = &d
	}
	b, err := h.svc.ApplyDiscount(c.Request().Context(), c.Param("id"), discount)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, b)
}

type payRequest struct {
	Method string `json:"method"`
}

func (h *Handler) PayBill(c echo.Context) error {
	var req payRequest
	if err := c.Bind(&req); err != nil {
		return apierr.BadRequest(err.Error())
	}
	ctx := c.Request().Context()
	b, err := h.svc.Pay(ctx, c.Param("id"), req.Method, auth.ActorFromContext(ctx))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, b)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) CancelBill(c echo.Context) error {
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return apierr.BadRequest(err.Error())
	}
	b, err := h.svc.Cancel(c.Request().Context(), c.Param("id"), req.Reason)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, b)
}

type adjustRequest struct {
	Items []model.LineItem `json:"items"`
}

func (h *Handler) AdjustBill(c echo.Context) error {
	var req adjustRequest
	if err := c.Bind(&req); err != nil {
		return apierr.BadRequest(err.Error())
	}
	ctx := c.Request().Context()
	res, err := h.svc.Adjust(ctx, c.Param("id"), req.Items, auth.ActorFromContext(ctx))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusCreated, res)
}
