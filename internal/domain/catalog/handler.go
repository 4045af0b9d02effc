package catalog

import (
	"net/http"

	"github.com/labstack/echo/v4"

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
	pharmacy := auth.RequireRole(auth.RolePharmacist)
	registerKind(api.Group("/medicines", pharmacy), h.svc.Medicines)
	registerKind(api.Group("/consumables", pharmacy), h.svc.Consumables)
	registerKind(api.Group("/lab-tests", auth.RequireRole(auth.RoleLabScientist)), h.svc.LabTests)
	registerKind(api.Group("/vaccines", auth.RequireRole(auth.RoleDoctor, auth.RoleNurse)), h.svc.Vaccines)

	// Everyone who bills or dispenses can see what is running out
	api.GET("/catalog/low-stock", h.LowStock, auth.RequireRole(auth.RolePharmacist, auth.RoleLabScientist,
		auth.RoleDoctor, auth.RoleNurse, auth.RoleCashier))
}

func (h *Handler) LowStock(c echo.Context) error {
	items, err := h.svc.LowStock(c.Request().Context())
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

func registerKind[T validator, P patcher[T]](g *echo.Group, r *Registry[T, P]) {
	kh := &kindHandler[T, P]{registry: r}
	g.POST("", kh.create)
	g.GET("", kh.list)
	g.GET("/:id", kh.get)
	g.PUT("/:id", kh.update)
	g.DELETE("/:id", kh.delete)
	g.POST("/:id/deactivate", kh.deactivate)
	if r.Stocked() {
		g.POST("/:id/stock", kh.adjustStock)
	}
}

// kindHandler serves the CRUD routes of one catalog kind.
type kindHandler[T validator, P patcher[T]] struct {
	registry *Registry[T, P]
}

func (kh *kindHandler[T, P]) create(c echo.Context) error {
	var item T
	if err := c.Bind(&item); err != nil {
		return apierr.BadRequest(err.Error())
	}
	out, err := kh.registry.Create(c.Request().Context(), item)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (kh *kindHandler[T, P]) get(c echo.Context) error {
	out, err := kh.registry.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (kh *kindHandler[T, P]) list(c echo.Context) error {
	includeInactive := c.QueryParam("include_inactive") == "true"
	items, err := kh.registry.List(c.Request().Context(), c.QueryParam("q"), includeInactive)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

func (kh *kindHandler[T, P]) update(c echo.Context) error {
	var patch P
	if err := c.Bind(&patch); err != nil {
		return apierr.BadRequest(err.Error())
	}
	out, err := kh.registry.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (kh *kindHandler[T, P]) delete(c echo.Context) error {
	if err := kh.registry.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return apierr.From(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (kh *kindHandler[T, P]) deactivate(c echo.Context) error {
	out, err := kh.registry.Deactivate(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, out)
}

type stockRequest struct {
	Delta int `json:"delta"`
}

func (kh *kindHandler[T, P]) adjustStock(c echo.Context) error {
	var req stockRequest
	if err := c.Bind(&req); err != nil {
		return apierr.BadRequest(err.Error())
	}
	out, err := kh.registry.AdjustStock(c.Request().Context(), c.Param("id"), req.Delta)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, out)
}
