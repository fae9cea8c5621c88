// Package validation wraps go-playground/validator with the rules shared by
// request DTOs and domain models.
package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/YusovID/bim-delivery-service/internal/apperrors"
	"github.com/go-playground/validator/v10"
)

var (
	validate = validator.New()

	serviceCodeRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/-]*$`)
)

func init() {
	// service_code accepts codes like "BIM-01", "DR.3" or "CDE/QA".
	err := validate.RegisterValidation("service_code", func(fl validator.FieldLevel) bool {
		if fl.Field().String() == "" {
			return true
		}

		return serviceCodeRe.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register custom validation: %v", err))
	}
}

// ValidateStruct checks s against its validate tags and returns an
// *apperrors.ValidationError listing every failed field.
func ValidateStruct(s any) error {
	return toValidationError(validate.Struct(s))
}

// ValidateStructExcept is ValidateStruct with the named top-level fields skipped.
func ValidateStructExcept(s any, fields ...string) error {
	return toValidationError(validate.StructExcept(s, fields...))
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err.Error())
	}

	messages := make([]string, 0, len(fieldErrs))

	for _, fe := range fieldErrs {
		var message string

		switch fe.Tag() {
		case "service_code":
			message = fmt.Sprintf(
				"field '%s' must start with a letter or digit and contain only letters, digits, '.', '_', '/' and '-'",
				fe.Field(),
			)
		case "required":
			message = fmt.Sprintf("field '%s' is required", fe.Field())
		case "oneof":
			message = fmt.Sprintf("field '%s' must be one of [%s]", fe.Field(), fe.Param())
		default:
			message = fmt.Sprintf(
				"field '%s' failed on the '%s' tag",
				fe.Field(),
				fe.Tag(),
			)
		}

		messages = append(messages, message)
	}

	return apperrors.NewValidationError(messages...)
}
