package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/exam-attempt-service/internal/errors"
	"github.com/google/uuid"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrConflict       = errors.New("resource conflict")
	ErrStorageFailure = errors.New("storage failure")

	// Exam specific errors
	ErrExamNotFound     = errors.New("exam not found")
	ErrInvalidReference = errors.New("one or more question ids are invalid")
	ErrExamFrozen       = errors.New("exam content is frozen once published or attempted")
	ErrInvalidStatus    = errors.New("invalid exam status transition")

	// Question specific errors
	ErrQuestionNotFound = errors.New("question not found")
	ErrQuestionFrozen   = errors.New("question is used by a published or attempted exam")
	ErrQuestionInUse    = errors.New("question is referenced by an exam")

	// Attempt specific errors
	ErrAttemptNotFound = errors.New("attempt not found")
	ErrOutOfWindow     = errors.New("exam is outside the allowed time window")
	ErrAttemptClosed   = errors.New("attempt already submitted")

	// User/auth errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactiveUser       = errors.New("user account is inactive")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// BusinessRuleError reports a request that is well formed but breaks a domain
// rule. Err, when set, is the sentinel it stands for.
type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
	Err     error                  `json:"-"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

func (bre *BusinessRuleError) Unwrap() error {
	return bre.Err
}

const (
	RuleExamFrozen     = "exam_frozen"
	RuleQuestionFrozen = "question_frozen"
)

type PermissionError struct {
	UserID     uuid.UUID `json:"user_id"`
	ResourceID uuid.UUID `json:"resource_id"`
	Resource   string    `json:"resource"`
	Action     string    `json:"action"`
	Reason     string    `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule string, sentinel error, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: sentinel.Error(),
		Context: context,
		Err:     sentinel,
	}
}

func NewPermissionError(userID, resourceID uuid.UUID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// storageError marks err as a StorageFailure while keeping the cause in the chain.
func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageFailure, op, err)
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrExamNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInactiveUser)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrInvalidStatus) {
		return true
	}
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a state conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrOutOfWindow) ||
		errors.Is(err, ErrAttemptClosed) ||
		errors.Is(err, ErrQuestionInUse) ||
		errors.Is(err, ErrEmailTaken)
}

// IsStorageFailure checks if the store could not complete the operation
func IsStorageFailure(err error) bool {
	return errors.Is(err, ErrStorageFailure)
}
