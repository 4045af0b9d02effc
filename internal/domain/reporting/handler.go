package reporting

import (
	"fmt"
	"net/http"
	"path"
	"time"

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
	g := api.Group("/reports", auth.RequireRole(auth.RoleAdmin))
	g.GET("/summary", h.Summary)
	g.GET("/revenue", h.Revenue)
	g.GET("/claims-by-provider", h.ClaimsByProvider)
	g.GET("/registrations", h.Registrations)
	g.GET("/appointments", h.Appointments)
	g.GET("/export", h.Export)
	g.POST("/archive", h.Archive)
	g.GET("/archive", h.ListArchive)
	g.GET("/archive/*", h.DownloadArchive)
}

func (h *Handler) Summary(c echo.Context) error {
	out, err := h.svc.Summary(c.Request().Context(), h.svc.store.Now())
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Revenue(c echo.Context) error {
	from, err := dateParam(c, "from", false)
	if err != nil {
		return err
	}
	to, err := dateParam(c, "to", true)
	if err != nil {
		return err
	}
	out, err := h.svc.Revenue(c.Request().Context(), c.QueryParam("group_by"), from, to)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, out)
}

// dateParam parses a YYYY-MM-DD bound. An upper bound covers the whole day.
func dateParam(c echo.Context, name string, endOfDay bool) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, apierr.BadRequest(name + " must be YYYY-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func (h *Handler) ClaimsByProvider(c echo.Context) error {
	out, err := h.svc.ClaimsByProvider(c.Request().Context())
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Registrations(c echo.Context) error {
	out, err := h.svc.Registrations(c.Request().Context())
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Appointments(c echo.Context) error {
	out, err := h.svc.AppointmentsByDepartment(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Export(c echo.Context) error {
	now := h.svc.store.Now()
	data, err := h.svc.Export(c.Request().Context(), now)
	if err != nil {
		return apierr.From(err)
	}
	c.Response().Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="hms-report-%s.xlsx"`, now.UTC().Format("20060102T150405Z")))
	return c.Blob(http.StatusOK, XLSXContentType, data)
}

func (h *Handler) Archive(c echo.Context) error {
	info, err := h.svc.Archive(c.Request().Context(), h.svc.store.Now())
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusCreated, info)
}

func (h *Handler) ListArchive(c echo.Context) error {
	items, err := h.svc.ListArchive(c.Request().Context(), c.QueryParam("day"))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

func (h *Handler) DownloadArchive(c echo.Context) error {
	info, rc, err := h.svc.OpenArchive(c.Request().Context(), c.Param("*"))
	if err != nil {
		return apierr.From(err)
	}
	defer rc.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = XLSXContentType
	}
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, path.Base(info.Key)))
	return c.Stream(http.StatusOK, contentType, rc)
}
