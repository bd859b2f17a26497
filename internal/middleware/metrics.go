package middleware

import (
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/metrics"
	"github.com/labstack/echo/v4"
)

// MetricsMiddleware feeds the Prometheus HTTP collectors.
type MetricsMiddleware struct{}

func NewMetricsMiddleware() *MetricsMiddleware {
	return &MetricsMiddleware{}
}

// Observe records in-flight requests, totals and latency labelled by the
// matched route template.
func (m *MetricsMiddleware) Observe() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			done := metrics.RequestStarted()
			defer done()

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = statusOf(err)
			}
			metrics.ObserveRequest(c.Request().Method, c.Path(), status, time.Since(start))

			return err
		}
	}
}
