package handler

import (
	"context"
	"net/http"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/server"
	"github.com/labstack/echo/v4"
)

type adminService interface {
	Stats(ctx context.Context) (*model.Stats, error)
	SearchBicycles(ctx context.Context, req *model.SearchBicyclesRequest) (*model.Page[model.BicycleSearchResult], error)
	ListTheftReports(ctx context.Context, req *model.ListTheftReportsRequest) (*model.Page[model.TheftReportWithBicycle], error)
}

// AdminHandler serves the back-office endpoints. Routes are mounted behind
// RequireAdmin.
type AdminHandler struct {
	Handler
	admin adminService
}

func NewAdminHandler(s *server.Server, admin adminService) *AdminHandler {
	return &AdminHandler{
		Handler: NewHandler(s),
		admin:   admin,
	}
}

func (h *AdminHandler) Stats() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.EmptyRequest) (*model.Stats, error) {
		return h.admin.Stats(c.Request().Context())
	}, http.StatusOK)
}

func (h *AdminHandler) SearchBicycles() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.SearchBicyclesRequest) (*model.Page[model.BicycleSearchResult], error) {
		return h.admin.SearchBicycles(c.Request().Context(), req)
	}, http.StatusOK)
}

func (h *AdminHandler) ListTheftReports() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.ListTheftReportsRequest) (*model.Page[model.TheftReportWithBicycle], error) {
		return h.admin.ListTheftReports(c.Request().Context(), req)
	}, http.StatusOK)
}
