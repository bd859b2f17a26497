// Package validation binds and validates request payloads.
//
// Request types carry validator tags and implement Validatable; failures are
// turned into a 400 whose field errors the frontend renders next to inputs.
package validation

import (
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	serialPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\-/.]{2,49}$`)
)

// Validator returns the shared validator with the custom tags registered:
//
//	serial  frame serial numbers: 3-50 letters, digits, dashes, dots or slashes
//	plan    one of the subscription plan ids
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("serial", func(fl validator.FieldLevel) bool {
			return serialPattern.MatchString(strings.TrimSpace(fl.Field().String()))
		})
		_ = validate.RegisterValidation("plan", func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case "basic", "standard", "premium":
				return true
			}
			return false
		})
	})
	return validate
}

// Struct validates s with the shared validator.
func Struct(s any) error {
	return Validator().Struct(s)
}
