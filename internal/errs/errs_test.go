package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *HTTPError
		status int
		code   string
	}{
		{"unauthorized", NewUnauthorizedError("no session", false), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", NewForbiddenError("admins only", false), http.StatusForbidden, "FORBIDDEN"},
		{"bad request", NewBadRequestError("bad", false, nil, nil, nil), http.StatusBadRequest, "BAD_REQUEST"},
		{"bad request custom code", NewBadRequestError("limit", true, Code("BICYCLE_LIMIT_REACHED"), nil, nil), http.StatusBadRequest, "BICYCLE_LIMIT_REACHED"},
		{"not found", NewNotFoundError("gone", false, nil), http.StatusNotFound, "NOT_FOUND"},
		{"conflict", NewConflictError("dup", true, nil), http.StatusConflict, "CONFLICT"},
		{"payment required", NewPaymentRequiredError("pay", nil, nil), http.StatusPaymentRequired, "PAYMENT_REQUIRED"},
		{"too many requests", NewTooManyRequestsError("slow down"), http.StatusTooManyRequests, "TOO_MANY_REQUESTS"},
		{"internal", NewInternalServerError(), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

func TestHTTPError_IsAndAs(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", NewNotFoundError("Bicycle not found", true, nil))

	assert.True(t, errors.Is(wrapped, &HTTPError{}))

	var httpErr *HTTPError
	require.True(t, errors.As(wrapped, &httpErr))
	assert.Equal(t, "Bicycle not found", httpErr.Error())
}

func TestHTTPError_WithMessageAndAction(t *testing.T) {
	base := NewPaymentRequiredError("An active subscription is required", Code("SUBSCRIPTION_REQUIRED"), nil)

	changed := base.WithMessage("Subscribe first")
	assert.Equal(t, "Subscribe first", changed.Message)
	assert.Equal(t, "An active subscription is required", base.Message)

	withAction := base.WithAction(&Action{Type: ActionTypeRedirect, Value: "/plans"})
	require.NotNil(t, withAction.Action)
	assert.Nil(t, base.Action)
	assert.Equal(t, "SUBSCRIPTION_REQUIRED", withAction.Code)
}

func TestMakeUpperCaseWithUnderscores(t *testing.T) {
	assert.Equal(t, "PAYMENT_REQUIRED", MakeUpperCaseWithUnderscores("Payment Required"))
}
