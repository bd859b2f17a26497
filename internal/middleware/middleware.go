// Package middleware holds the Echo middleware shared by every route: request
// ids, the request-scoped logger, New Relic tracing, Prometheus metrics, Clerk
// authentication, the admin gate, rate limiting and the global error handler.
package middleware
