package errors

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

func (pe *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", pe.Field, pe.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// Add appends a field error.
func (ve *ValidationErrors) Add(field, message string, value interface{}) {
	*ve = append(*ve, ValidationError{Field: field, Message: message, Value: value})
}

// ToValidationErrors converts validator.ValidationErrors to our custom type
func ToValidationErrors(err error) ValidationErrors {
	var errors ValidationErrors

	var validatorErr validator.ValidationErrors
	if stderrors.As(err, &validatorErr) {
		for _, err := range validatorErr {
			errors = append(errors, ValidationError{
				Field:   err.Field(),
				Message: getErrorMessage(err),
				Value:   err.Value(),
				Rule:    err.Tag(),
			})
		}
	}

	return errors
}

// getErrorMessage phrases a failed rule for the API client. Length rules read
// differently for strings, lists and numbers.
func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "required_with":
		return fmt.Sprintf("is required when %s is set", strings.ToLower(err.Param()))
	case "min", "max":
		bound := "at least"
		if err.Tag() == "max" {
			bound = "at most"
		}
		switch err.Kind() {
		case reflect.String:
			return fmt.Sprintf("must be %s %s characters", bound, err.Param())
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("must contain %s %s items", bound, err.Param())
		default:
			return fmt.Sprintf("must be %s %s", bound, err.Param())
		}
	case "gt":
		return fmt.Sprintf("must be greater than %s", err.Param())
	case "email":
		return "must be a valid email address"
	case "unique":
		return "must not contain duplicates"
	case "question_type":
		return "must be a valid question type (single_choice, multiple_choice, text)"
	case "exam_status":
		return "must be a valid exam status (Draft, Published, Archived)"
	case "user_role":
		return "must be a valid user role (student, admin)"
	default:
		return fmt.Sprintf("failed on the '%s' rule", err.Tag())
	}
}
