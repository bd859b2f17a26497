package handler

import (
	"context"
	"net/http"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/billing"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/middleware"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/server"
	"github.com/labstack/echo/v4"
)

type subscriptionService interface {
	Plans() []billing.Plan
	Checkout(ctx context.Context, userID, planID string) (*model.CheckoutSession, error)
	Current(ctx context.Context, userID string) (*model.Subscription, error)
	ChangePlan(ctx context.Context, userID, planID string) (*model.Subscription, error)
	Cancel(ctx context.Context, userID string) (*model.Subscription, error)
	Resume(ctx context.Context, userID string) (*model.Subscription, error)
	Portal(ctx context.Context, userID string) (*model.RedirectURL, error)
	Payments(ctx context.Context, userID string) ([]model.PaymentView, error)
}

type SubscriptionHandler struct {
	Handler
	subscriptions subscriptionService
}

func NewSubscriptionHandler(s *server.Server, subscriptions subscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		Handler:       NewHandler(s),
		subscriptions: subscriptions,
	}
}

func (h *SubscriptionHandler) ListPlans() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.EmptyRequest) ([]billing.Plan, error) {
		return h.subscriptions.Plans(), nil
	}, http.StatusOK)
}

func (h *SubscriptionHandler) Checkout() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.PlanRequest) (*model.CheckoutSession, error) {
		return h.subscriptions.Checkout(c.Request().Context(), middleware.GetUserID(c), req.PlanID)
	}, http.StatusOK)
}

func (h *SubscriptionHandler) Current() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.EmptyRequest) (*model.Subscription, error) {
		return h.subscriptions.Current(c.Request().Context(), middleware.GetUserID(c))
	}, http.StatusOK)
}

func (h *SubscriptionHandler) ChangePlan() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.PlanRequest) (*model.Subscription, error) {
		return h.subscriptions.ChangePlan(c.Request().Context(), middleware.GetUserID(c), req.PlanID)
	}, http.StatusOK)
}

func (h *SubscriptionHandler) Cancel() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.EmptyRequest) (*model.Subscription, error) {
		return h.subscriptions.Cancel(c.Request().Context(), middleware.GetUserID(c))
	}, http.StatusOK)
}

func (h *SubscriptionHandler) Resume() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.EmptyRequest) (*model.Subscription, error) {
		return h.subscriptions.Resume(c.Request().Context(), middleware.GetUserID(c))
	}, http.StatusOK)
}

func (h *SubscriptionHandler) Portal() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.EmptyRequest) (*model.RedirectURL, error) {
		return h.subscriptions.Portal(c.Request().Context(), middleware.GetUserID(c))
	}, http.StatusOK)
}

func (h *SubscriptionHandler) Payments() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.EmptyRequest) ([]model.PaymentView, error) {
		return h.subscriptions.Payments(c.Request().Context(), middleware.GetUserID(c))
	}, http.StatusOK)
}
