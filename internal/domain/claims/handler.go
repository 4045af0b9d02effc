package claims

import (
	"net/http"
	"strconv"

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
	g := api.Group("/claims", auth.RequireRole(auth.RoleHMOOfficer))
	g.POST("", h.CreateClaim)
	g.GET("", h.ListClaims)
	g.POST("/from-bill", h.CreateClaimFromBill)
	g.GET("/:id", h.GetClaim)
	g.PUT("/:id/items/:index", h.SetItemApproval)
	g.POST("/:id/approve", h.ApproveClaim)
	g.POST("/:id/reject", h.RejectClaim)
	g.POST("/:id/complete", h.CompleteClaim)
}

func (h *Handler) CreateClaim(c echo.Context) error {
	var claim model.HMOClaim
	if err := c.Bind(&claim); err != nil {
		return apierr.BadRequest(err.Error())
	}
	out, err := h.svc.Create(c.Request().Context(), claim)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusCreated, out)
}

type fromBillRequest struct {
	BillID string `json:"bill_id"`
}

func (h *Handler) CreateClaimFromBill(c echo.Context) error {
	var req fromBillRequest
	if err := c.Bind(&req); err != nil {
		return apierr.BadRequest(err.Error())
	}
	if req.BillID == "" {
		return apierr.BadRequest("bill_id is required")
	}
	out, err := h.svc.CreateFromBill(c.Request().Context(), req.BillID)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) GetClaim(c echo.Context) error {
	out, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ListClaims(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context(), Filter{
		Status:    c.QueryParam("status"),
		Provider:  c.QueryParam("provider"),
		PatientID: c.QueryParam("patient_id"),
		Query:     c.QueryParam("q"),
	})
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

type itemApprovalRequest struct {
	Approved bool   `json:"approved"`
	Note     string `json:"note"`
}

func (h *Handler) SetItemApproval(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return apierr.BadRequest("item index must be a number")
	}
	var req itemApprovalRequest
	if err := c.Bind(&req); err != nil {
		return apierr.BadRequest(err.Error())
	}
	out, err := h.svc.SetItemApproval(c.Request().Context(), c.Param("id"), index, req.Approved, req.Note)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, out)
}

type decisionRequest struct {
	ApprovalCode string `json:"approval_code"`
	Reason       string `json:"reason"`
}

func (h *Handler) ApproveClaim(c echo.Context) error {
	var req decisionRequest
	if err := c.Bind(&req); err != nil {
		return apierr.BadRequest(err.Error())
	}
	out, err := h.svc.Approve(c.Request().Context(), c.Param("id"), req.ApprovalCode)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) RejectClaim(c echo.Context) error {
	var req decisionRequest
	if err := c.Bind(&req); err != nil {
		return apierr.BadRequest(err.Error())
	}
	out, err := h.svc.Reject(c.Request().Context(), c.Param("id"), req.Reason)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) CompleteClaim(c echo.Context) error {
	out, err := h.svc.Complete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, out)
}
