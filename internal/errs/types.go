package errs

import (
	"net/http"
)

func statusCode(status int) string {
	return MakeUpperCaseWithUnderscores(http.StatusText(status))
}

func newError(status int, message string, override bool, code *string) *HTTPError {
	formattedCode := statusCode(status)
	if code != nil {
		formattedCode = *code
	}
	return &HTTPError{
		Code:     formattedCode,
		Message:  message,
		Status:   status,
		Override: override,
	}
}

// Code is a small helper for the optional code arguments below.
func Code(code string) *string {
	return &code
}

// NewUnauthorizedError creates a 401 Unauthorized HTTPError.
func NewUnauthorizedError(message string, override bool) *HTTPError {
	return newError(http.StatusUnauthorized, message, override, nil)
}

// NewForbiddenError creates a 403 Forbidden HTTPError.
func NewForbiddenError(message string, override bool) *HTTPError {
	return newError(http.StatusForbidden, message, override, nil)
}

// NewBadRequestError creates a 400 Bad Request HTTPError with optional custom
// code, field errors and client action.
func NewBadRequestError(message string, override bool, code *string, errors []FieldError, action *Action) *HTTPError {
	err := newError(http.StatusBadRequest, message, override, code)
	err.Errors = errors
	err.Action = action
	return err
}

// NewNotFoundError creates a 404 Not Found HTTPError.
func NewNotFoundError(message string, override bool, code *string) *HTTPError {
	return newError(http.StatusNotFound, message, override, code)
}

// NewConflictError creates a 409 Conflict HTTPError, used for duplicates the
// client can act on (serial already registered, subscription already active).
func NewConflictError(message string, override bool, code *string) *HTTPError {
	return newError(http.StatusConflict, message, override, code)
}

// NewPaymentRequiredError creates a 402 Payment Required HTTPError. The action
// points the client at the plans page.
func NewPaymentRequiredError(message string, code *string, action *Action) *HTTPError {
	err := newError(http.StatusPaymentRequired, message, true, code)
	err.Action = action
	return err
}

// NewTooManyRequestsError creates a 429 Too Many Requests HTTPError.
func NewTooManyRequestsError(message string) *HTTPError {
	return newError(http.StatusTooManyRequests, message, false, nil)
}

// NewInternalServerError creates a generic 500. The real cause is logged, never
// returned.
func NewInternalServerError() *HTTPError {
	return newError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), false, nil)
}

// ValidationError converts a validation failure into a 400.
func ValidationError(err error) *HTTPError {
	return NewBadRequestError("Validation failed: "+err.Error(), false, nil, nil, nil)
}
