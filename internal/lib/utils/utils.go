// Package utils holds small helpers shared by services and handlers.
package utils

import (
	"net/url"
	"strings"
)

// NormalizeSerial trims and upper-cases a frame serial number so lookups are
// insensitive to how the owner typed it.
func NormalizeSerial(serial string) string {
	return strings.ToUpper(strings.TrimSpace(serial))
}

// VerifyURL is the public verification page for serial.
func VerifyURL(publicURL, serial string) string {
	return strings.TrimRight(publicURL, "/") + "/verify/" + url.PathEscape(NormalizeSerial(serial))
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the pointed value or the zero value for nil.
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// NilIfEmpty turns "" into nil, trimming whitespace first.
func NilIfEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
