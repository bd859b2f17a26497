// Package router builds the Echo instance: global middleware, the system
// routes and the /api/v1 groups.
package router

import (
	"github.com/Rafafndz7/registro-bicis-sub000/internal/handler"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/middleware"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/server"
	"github.com/labstack/echo/v4"
)

func NewRouter(s *server.Server, h *handler.Handlers, profiles middleware.ProfileFinder) *echo.Echo {
	mw := middleware.NewMiddlewares(s, profiles)

	r := echo.New()
	r.HideBanner = true
	r.HidePort = true
	r.HTTPErrorHandler = mw.Global.GlobalErrorHandler

	r.Use(
		middleware.RequestID(),
		mw.Tracing.NewRelicMiddleware(),
		mw.Tracing.EnhanceTracing(),
		mw.Global.CORS(),
		mw.Global.Secure(),
		mw.ContextEnhancer.EnhanceContext(),
		mw.Metrics.Observe(),
		mw.Global.RequestLogger(),
		mw.Global.Recover(),
		mw.Global.BodyLimit(),
		mw.RateLimit.Global(),
	)

	registerSystemRoutes(r, h)
	registerV1Routes(r.Group("/api/v1"), h, mw)

	return r
}
