package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/middleware"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/server"
	"github.com/labstack/echo/v4"
)

// Pinger is a dependency /status checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

type HealthHandler struct {
	Handler
	checks map[string]Pinger
}

// NewHealthHandler checks PostgreSQL and Redis, subject to
// observability.health_checks.
func NewHealthHandler(s *server.Server) *HealthHandler {
	checks := make(map[string]Pinger)
	if s.DB != nil {
		checks["database"] = s.DB.Pool
	}
	if s.Redis != nil {
		checks["redis"] = PingFunc(func(ctx context.Context) error {
			return s.Redis.Ping(ctx).Err()
		})
	}
	return newHealthHandler(s, checks)
}

func newHealthHandler(s *server.Server, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
		checks:  checks,
	}
}

type checkResult struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time"`
	Error        string `json:"error,omitempty"`
}

type healthResponse struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Environment string                 `json:"environment"`
	Checks      map[string]checkResult `json:"checks"`
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()
	logger := middleware.GetLogger(c).With().Str("operation", "health_check").Logger()
	obs := h.server.Config.Observability

	response := healthResponse{
		Status:      "healthy",
		Timestamp:   start.UTC(),
		Environment: h.server.Config.Primary.Env,
		Checks:      make(map[string]checkResult),
	}

	for name, pinger := range h.checks {
		if !obs.HealthCheckEnabled(name) {
			continue
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), obs.HealthChecks.Timeout)
		checkStart := time.Now()
		err := pinger.Ping(ctx)
		cancel()
		elapsed := time.Since(checkStart)

		if err != nil {
			response.Status = "unhealthy"
			response.Checks[name] = checkResult{Status: "unhealthy", ResponseTime: elapsed.String(), Error: err.Error()}

			logger.Error().Err(err).Str("check", name).Dur("response_time", elapsed).Msg("health check failed")
			h.recordFailure(name, elapsed, err)
			continue
		}

		response.Checks[name] = checkResult{Status: "healthy", ResponseTime: elapsed.String()}
	}

	if response.Status != "healthy" {
		logger.Warn().Dur("total_duration", time.Since(start)).Msg("service unhealthy")
		return c.JSON(http.StatusServiceUnavailable, response)
	}

	return c.JSON(http.StatusOK, response)
}

func (h *HealthHandler) recordFailure(check string, elapsed time.Duration, err error) {
	if app := h.server.LoggerService.GetApplication(); app != nil {
		app.RecordCustomEvent("HealthCheckError", map[string]interface{}{
			"check_type":       check,
			"operation":        "health_check",
			"response_time_ms": elapsed.Milliseconds(),
			"error_message":    err.Error(),
		})
	}
}
