package utils

import (
	"github.com/go-playground/validator/v10"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// ValidationMessage flattens validator errors into a short client-facing message.
func ValidationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	first := verrs[0]
	msg := first.Field() + " failed on the '" + first.Tag() + "' rule"
	if len(verrs) > 1 {
		msg += " (and other fields)"
	}
	return msg
}
