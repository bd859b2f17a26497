package handler

import (
	"context"
	"net/http"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/middleware"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/server"
	"github.com/labstack/echo/v4"
)

type profileService interface {
	Create(ctx context.Context, userID string, req *model.CreateProfileRequest) (*model.Profile, bool, error)
	Get(ctx context.Context, userID string) (*model.ProfileWithSubscription, error)
	Update(ctx context.Context, userID string, req *model.UpdateProfileRequest) (*model.Profile, error)
}

type ProfileHandler struct {
	Handler
	profiles profileService
}

func NewProfileHandler(s *server.Server, profiles profileService) *ProfileHandler {
	return &ProfileHandler{
		Handler:  NewHandler(s),
		profiles: profiles,
	}
}

// CreateProfile answers 201 for a new profile and 200 when one already existed.
func (h *ProfileHandler) CreateProfile() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.CreateProfileRequest) (any, error) {
		profile, created, err := h.profiles.Create(c.Request().Context(), middleware.GetUserID(c), req)
		if err != nil {
			return nil, err
		}
		if created {
			return statusResponse{status: http.StatusCreated, body: profile}, nil
		}
		return profile, nil
	}, http.StatusOK)
}

func (h *ProfileHandler) GetProfile() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.EmptyRequest) (*model.ProfileWithSubscription, error) {
		return h.profiles.Get(c.Request().Context(), middleware.GetUserID(c))
	}, http.StatusOK)
}

func (h *ProfileHandler) UpdateProfile() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.UpdateProfileRequest) (*model.Profile, error) {
		return h.profiles.Update(c.Request().Context(), middleware.GetUserID(c), req)
	}, http.StatusOK)
}
