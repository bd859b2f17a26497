package middleware

import (
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/errs"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/metrics"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// Limit is a token bucket per client IP.
type Limit struct {
	Rate  rate.Limit
	Burst int
}

var (
	// GlobalLimit applies to every API request.
	GlobalLimit = Limit{Rate: 20, Burst: 40}

	// VerifyLimit applies to the public verification lookups, which expose
	// owner contact details and must not be enumerable.
	VerifyLimit = Limit{Rate: rate.Every(6 * time.Second), Burst: 10}
)

const limiterExpiry = 10 * time.Minute

type RateLimitMiddleware struct {
	server *server.Server
}

func NewRateLimitMiddleware(s *server.Server) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		server: s,
	}
}

// Global limits every route.
func (r *RateLimitMiddleware) Global() echo.MiddlewareFunc {
	return r.Limit("global", GlobalLimit)
}

// Verify limits the public verification routes.
func (r *RateLimitMiddleware) Verify() echo.MiddlewareFunc {
	return r.Limit("verify", VerifyLimit)
}

// Limit builds an in-memory limiter keyed by client IP. name labels the
// rejections in metrics and New Relic.
func (r *RateLimitMiddleware) Limit(name string, limit Limit) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      limit.Rate,
			Burst:     limit.Burst,
			ExpiresIn: limiterExpiry,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return errs.NewForbiddenError("Could not identify client", false)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			r.RecordRateLimitHit(name, c.Path())
			GetLogger(c).Warn().
				Str("limiter", name).
				Str("identifier", identifier).
				Msg("rate limit exceeded")
			return errs.NewTooManyRequestsError("Too many requests, please try again later")
		},
	})
}

// RecordRateLimitHit counts a rejection and reports it to New Relic.
func (r *RateLimitMiddleware) RecordRateLimitHit(limiter, endpoint string) {
	metrics.RateLimited(endpoint)

	if r.server.LoggerService != nil && r.server.LoggerService.GetApplication() != nil {
		r.server.LoggerService.GetApplication().RecordCustomEvent("RateLimitHit", map[string]interface{}{
			"limiter":  limiter,
			"endpoint": endpoint,
		})
	}
}
