package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/creasty/defaults"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationError describes one rejected query parameter.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// bindQuery fills defaults, overlays the query parameters present on the
// request and validates the result. It returns nil when the request is acceptable.
func bindQuery(c *gin.Context, req interface{}) []ValidationError {
	if err := defaults.Set(req); err != nil {
		return []ValidationError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
	}
	if err := c.ShouldBindQuery(req); err != nil {
		return []ValidationError{{Code: "ERR_BIND", Message: err.Error()}}
	}
	if err := validate.StructCtx(c.Request.Context(), req); err != nil {
		return validationErrors(err)
	}
	return nil
}

func validationErrors(err error) []ValidationError {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []ValidationError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
	}
	errs := make([]ValidationError, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		errs = append(errs, ValidationError{
			Code:    "ERR_" + strings.ToUpper(fe.Tag()),
			Field:   strings.ToLower(fe.Field()),
			Message: errorMessage(fe),
		})
	}
	return errs
}

func errorMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

func writeValidationErrors(c *gin.Context, errs []ValidationError) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    "VALIDATION_ERROR",
			Message: errs[0].Message,
			Details: map[string]interface{}{"errors": errs},
		},
	})
}
