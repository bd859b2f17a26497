package router

import (
	"github.com/Rafafndz7/registro-bicis-sub000/internal/handler"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/metrics"
	"github.com/labstack/echo/v4"
)

func registerSystemRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/status", h.Health.CheckHealth)
	r.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	r.Static("/static", handler.StaticDir)

	r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)
}
