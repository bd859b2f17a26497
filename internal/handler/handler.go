// Package handler contains the HTTP handlers. Each handler binds and validates
// its request, calls one service method and renders the result; the shared
// plumbing (logging, New Relic attributes, validation) lives in base.go.
package handler
