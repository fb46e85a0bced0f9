package serverutils

import (
	"fmt"
	"strings"

	"coach-membership-be/internal/pkg/apperror"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRequest checks the `validate:` tags on a request DTO and folds any
// failures into a single validation error with no side effects.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperror.Validation("invalid request body")
	}

	parts := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		parts = append(parts, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
	}
	return apperror.Validation(strings.Join(parts, "; "))
}
