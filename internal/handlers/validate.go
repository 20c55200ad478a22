package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const timeFormat = time.RFC3339

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report field names as they appear on the wire.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkStruct validates a request payload and converts validator errors into
// the structured field list the API contract expects.
func checkStruct(payload any) []FieldError {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return []FieldError{{Field: "", Message: "invalid request payload"}}
	}

	fields := make([]FieldError, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		fields = append(fields, FieldError{
			Field:   fieldErr.Field(),
			Message: fieldMessage(fieldErr),
		})
	}
	return fields
}

func fieldMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", fieldErr.Field())
	case "email":
		return fmt.Sprintf("%q must be a valid email", fieldErr.Field())
	case "min":
		return fmt.Sprintf("%q must contain at least %s items", fieldErr.Field(), fieldErr.Param())
	case "oneof":
		return fmt.Sprintf("%q must be one of [%s]", fieldErr.Field(), fieldErr.Param())
	default:
		return fmt.Sprintf("%q is invalid", fieldErr.Field())
	}
}

// parseDate accepts RFC 3339 timestamps or plain dates.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
