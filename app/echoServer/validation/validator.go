// Package validation adapts go-playground/validator to echo's
// Validator interface so handlers that call c.Validate get struct-tag
// validation.
package validation

import (
	"github.com/go-playground/validator/v10"
)

type Validator struct {
	check *validator.Validate
}

func New() *Validator {
	return &Validator{check: validator.New()}
}

func (v *Validator) Validate(i interface{}) error {
	return v.check.Struct(i)
}
