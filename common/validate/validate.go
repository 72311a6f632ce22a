// Package validate wires go-playground/validator into echo's request
// binding, so HTTP handlers declare required fields via struct tags
// instead of ad hoc if-empty checks.
package validate

import (
	"github.com/go-playground/validator/v10"
)

// EchoValidator implements echo.Validator.
type EchoValidator struct {
	validate *validator.Validate
}

// New creates an EchoValidator backed by a single validator.Validate
// instance (the package's own recommendation: validator.New() is
// expensive enough to build once and reuse across requests).
func New() *EchoValidator {
	return &EchoValidator{validate: validator.New()}
}

// Validate implements echo.Validator.
func (v *EchoValidator) Validate(i any) error {
	return v.validate.Struct(i)
}
