package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// ReadAndValidateRequest binds path, query and body parameters into req,
// applies defaults and validates it. It returns nil or the field errors to
// send back.
func ReadAndValidateRequest(c echo.Context, req interface{}) []FieldError {
	if err := c.Bind(req); err != nil {
		return requestErrors(err)
	}

	if err := defaults.Set(req); err != nil {
		return requestErrors(err)
	}

	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return requestErrors(err)
	}

	return nil
}

func requestErrors(err error) []FieldError {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errs := make([]FieldError, 0, len(validationErrors))
		for _, e := range validationErrors {
			errs = append(errs, FieldError{
				Code:    "ERR_" + strings.ToUpper(e.Tag()),
				Field:   e.Field(),
				Message: fmt.Sprintf("%s failed validation: %s=%s", e.Field(), e.Tag(), e.Param()),
			})
		}
		return errs
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return []FieldError{{
			Code:    "ERR_BIND",
			Message: fmt.Sprintf("%v", he.Message),
		}}
	}

	return []FieldError{{
		Code:    "ERR_UNKNOWN",
		Message: err.Error(),
	}}
}
