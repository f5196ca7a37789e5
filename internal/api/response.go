package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "tiltguard/internal/errors"
	"tiltguard/internal/validation"
)

// APIResponse is the envelope for every JSON response.
type APIResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Code    string      `json:"code"`
	Field   string      `json:"field,omitempty"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// DataResponse writes API response with status and data.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

// SuccessResponse writes success response.
func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// CreatedResponse writes created response.
func CreatedResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusCreated, data)
}

// NoContentResponse writes no content response.
func NoContentResponse(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// BadRequestResponse writes bad request error.
func BadRequestResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusBadRequest, data)
}

// ErrorResponse maps a domain error onto an HTTP status.
func ErrorResponse(c echo.Context, err error) error {
	var fieldErrs validation.FieldErrors
	var single *apperrors.ValidationError

	switch {
	case errors.As(err, &fieldErrs):
		return BadRequestResponse(c, fieldErrors(fieldErrs.Unwrap()))
	case errors.As(err, &single):
		return BadRequestResponse(c, fieldErrors([]error{single}))
	case apperrors.Is(err, apperrors.ErrInputValidation):
		return BadRequestResponse(c, []FieldError{{Code: "ERR_VALIDATION", Message: err.Error()}})
	case apperrors.Is(err, apperrors.ErrUserNotFound):
		return DataResponse(c, http.StatusNotFound, "User not found")
	case apperrors.Is(err, apperrors.ErrTradeNotFound):
		return DataResponse(c, http.StatusNotFound, "Trade not found")
	case apperrors.Is(err, apperrors.ErrDuplicate):
		return DataResponse(c, http.StatusConflict, "User already exists")
	default:
		return DataResponse(c, http.StatusInternalServerError, "Something went wrong")
	}
}

func fieldErrors(errs []error) []FieldError {
	out := make([]FieldError, 0, len(errs))
	for _, err := range errs {
		var ve *apperrors.ValidationError
		if errors.As(err, &ve) {
			out = append(out, FieldError{
				Code:    "ERR_VALIDATION",
				Field:   ve.Field,
				Message: ve.Message,
				Value:   ve.Value,
			})
			continue
		}
		out = append(out, FieldError{Code: "ERR_UNKNOWN", Message: err.Error()})
	}
	return out
}
