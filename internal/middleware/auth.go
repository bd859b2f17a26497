package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/errs"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/server"
	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

// ProfileFinder loads the profile of an authenticated user.
type ProfileFinder interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
}

type AuthMiddleware struct {
	server   *server.Server
	profiles ProfileFinder
}

func NewAuthMiddleware(s *server.Server, profiles ProfileFinder) *AuthMiddleware {
	return &AuthMiddleware{
		server:   s,
		profiles: profiles,
	}
}

// RequireAuth verifies the Clerk session token in the Authorization header and
// stores the Clerk subject as the user id.
func (auth *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return echo.WrapMiddleware(
		clerkhttp.WithHeaderAuthorization(
			clerkhttp.AuthorizationFailureHandler(http.HandlerFunc(auth.writeUnauthorized)),
		))(
		func(c echo.Context) error {
			claims, ok := clerk.SessionClaimsFromContext(c.Request().Context())
			if !ok || claims.Subject == "" {
				GetLogger(c).Warn().
					Str("function", "RequireAuth").
					Msg("could not get session claims from context")
				return errs.NewUnauthorizedError("Unauthorized", false)
			}

			SetUserID(c, claims.Subject)
			return next(c)
		})
}

// RequireAdmin rejects users whose profile does not carry the admin role. It
// must run after RequireAuth.
func (auth *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := GetUserID(c)
		if userID == "" {
			return errs.NewUnauthorizedError("Unauthorized", false)
		}

		profile, err := auth.profiles.GetByID(c.Request().Context(), userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.NewForbiddenError("Administrator access required", true)
			}
			return fmt.Errorf("failed to load profile for admin check: %w", err)
		}

		if !profile.IsAdmin() {
			GetLogger(c).Warn().Msg("non-admin user attempted admin access")
			return errs.NewForbiddenError("Administrator access required", true)
		}

		c.Set(UserRoleKey, string(profile.Role))
		return next(c)
	}
}

func (auth *AuthMiddleware) writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	w.WriteHeader(http.StatusUnauthorized)

	body := errs.NewUnauthorizedError("Unauthorized", false)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		auth.server.Logger.Error().
			Err(err).
			Str("function", "RequireAuth").
			Msg("failed to write JSON response")
		return
	}

	auth.server.Logger.Warn().
		Str("function", "RequireAuth").
		Str("path", r.URL.Path).
		Str("request_id", r.Header.Get(RequestIDHeader)).
		Msg("rejected request without a valid session")
}
