package handler

import (
	"context"
	"net/http"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/middleware"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/server"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type theftService interface {
	Report(ctx context.Context, userID string, bicycleID uuid.UUID, req *model.CreateTheftReportRequest) (*model.TheftReport, error)
	List(ctx context.Context, userID string) ([]model.TheftReportWithBicycle, error)
	UpdateStatus(ctx context.Context, userID string, id uuid.UUID, status model.TheftStatus) (*model.TheftReport, error)
}

type TheftHandler struct {
	Handler
	thefts theftService
}

func NewTheftHandler(s *server.Server, thefts theftService) *TheftHandler {
	return &TheftHandler{
		Handler: NewHandler(s),
		thefts:  thefts,
	}
}

func (h *TheftHandler) ReportTheft() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.CreateTheftReportRequest) (*model.TheftReport, error) {
		return h.thefts.Report(c.Request().Context(), middleware.GetUserID(c), uuid.MustParse(req.BicycleID), req)
	}, http.StatusCreated)
}

func (h *TheftHandler) ListReports() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.EmptyRequest) ([]model.TheftReportWithBicycle, error) {
		return h.thefts.List(c.Request().Context(), middleware.GetUserID(c))
	}, http.StatusOK)
}

func (h *TheftHandler) UpdateStatus() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.UpdateTheftReportRequest) (*model.TheftReport, error) {
		return h.thefts.UpdateStatus(c.Request().Context(), middleware.GetUserID(c), uuid.MustParse(req.ID), model.TheftStatus(req.Status))
	}, http.StatusOK)
}
