// Package errors provides structured error handling for userdeck
package errors

import (
	"fmt"
	"strings"

	"github.com/userdeck/userdeck/pkg/types"
)

// ErrorCode represents specific error codes
type ErrorCode string

const (
	// Validation errors
	ErrCodeValidation     ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField   ErrorCode = "MISSING_FIELD"
	ErrCodeEmptySelection ErrorCode = "EMPTY_SELECTION"

	// Authentication errors
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"

	// Resource errors
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Remote record store errors
	ErrCodeRemoteError       ErrorCode = "REMOTE_ERROR"
	ErrCodeRemoteUnavailable ErrorCode = "REMOTE_UNAVAILABLE"
	ErrCodeDeleteFailed      ErrorCode = "DELETE_FAILED"

	// Persistence errors
	ErrCodeSlotError     ErrorCode = "SESSION_SLOT_ERROR"
	ErrCodeSlotCorrupted ErrorCode = "SESSION_SLOT_CORRUPTED"

	// System errors
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeTimeout  ErrorCode = "TIMEOUT"

	// Configuration errors
	ErrCodeConfigError    ErrorCode = "CONFIG_ERROR"
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"
)

// UserdeckError represents a structured error in userdeck
type UserdeckError struct {
	Type    types.ErrorType        `json:"type"`
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *UserdeckError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (caused by: %v)", e.Code, e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *UserdeckError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *UserdeckError) WithDetail(key string, value interface{}) *UserdeckError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new userdeck error
func New(errType types.ErrorType, code ErrorCode, message string) *UserdeckError {
	return &UserdeckError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// NewWithCause creates a new userdeck error with a cause
func NewWithCause(errType types.ErrorType, code ErrorCode, message string, cause error) *UserdeckError {
	return &UserdeckError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Validation error constructors
func NewValidationError(message string) *UserdeckError {
	return New(types.ErrorTypeValidation, ErrCodeValidation, message)
}

func NewInvalidInputError(message string) *UserdeckError {
	return New(types.ErrorTypeValidation, ErrCodeInvalidInput, message)
}

func NewMissingFieldError(field string) *UserdeckError {
	return New(types.ErrorTypeValidation, ErrCodeMissingField,
		fmt.Sprintf("missing required field: %s", field)).WithDetail("field", field)
}

func NewEmptySelectionError() *UserdeckError {
	return New(types.ErrorTypeValidation, ErrCodeEmptySelection, "selection is empty")
}

// Authentication error constructors
func NewUnauthorizedError(message string) *UserdeckError {
	return New(types.ErrorTypeUnauthorized, ErrCodeUnauthorized, message)
}

func NewInvalidTokenError() *UserdeckError {
	return New(types.ErrorTypeUnauthorized, ErrCodeInvalidToken, "invalid token")
}

func NewTokenExpiredError() *UserdeckError {
	return New(types.ErrorTypeUnauthorized, ErrCodeTokenExpired, "token has expired")
}

// Resource error constructors
func NewNotFoundError(resource string) *UserdeckError {
	return New(types.ErrorTypeNotFound, ErrCodeNotFound,
		fmt.Sprintf("%s not found", resource)).WithDetail("resource", resource)
}

func NewAlreadyExistsError(resource string) *UserdeckError {
	return New(types.ErrorTypeValidation, ErrCodeAlreadyExists,
		fmt.Sprintf("%s already exists", resource)).WithDetail("resource", resource)
}

// Remote record store error constructors
func NewRemoteError(message string, cause error) *UserdeckError {
	return NewWithCause(types.ErrorTypeExternal, ErrCodeRemoteError, message, cause)
}

func NewRemoteUnavailableError(target string) *UserdeckError {
	return New(types.ErrorTypeExternal, ErrCodeRemoteUnavailable,
		fmt.Sprintf("remote record store unavailable: %s", target)).WithDetail("target", target)
}

func NewDeleteFailedError(recordID string, cause error) *UserdeckError {
	return NewWithCause(types.ErrorTypeExternal, ErrCodeDeleteFailed,
		fmt.Sprintf("delete failed for record %s", recordID), cause).WithDetail("record_id", recordID)
}

// Persistence error constructors
func NewSlotError(message string, cause error) *UserdeckError {
	return NewWithCause(types.ErrorTypeInternal, ErrCodeSlotError, message, cause)
}

func NewSlotCorruptedError(cause error) *UserdeckError {
	return NewWithCause(types.ErrorTypeInternal, ErrCodeSlotCorrupted,
		"persisted pending deletion is corrupt", cause)
}

// System error constructors
func NewInternalError(message string) *UserdeckError {
	return New(types.ErrorTypeInternal, ErrCodeInternal, message)
}

func NewInternalErrorWithCause(message string, cause error) *UserdeckError {
	return NewWithCause(types.ErrorTypeInternal, ErrCodeInternal, message, cause)
}

func NewTimeoutError(operation string) *UserdeckError {
	return New(types.ErrorTypeInternal, ErrCodeTimeout,
		fmt.Sprintf("%s operation timed out", operation)).WithDetail("operation", operation)
}

// Configuration error constructors
func NewConfigError(message string) *UserdeckError {
	return New(types.ErrorTypeValidation, ErrCodeConfigError, message)
}

func NewConfigNotFoundError(configPath string) *UserdeckError {
	return New(types.ErrorTypeNotFound, ErrCodeConfigNotFound,
		fmt.Sprintf("configuration file not found: %s", configPath)).WithDetail("config_path", configPath)
}

func NewConfigInvalidError(message string) *UserdeckError {
	return New(types.ErrorTypeValidation, ErrCodeConfigInvalid, message)
}

// IsUserdeckError checks if an error is a UserdeckError
func IsUserdeckError(err error) bool {
	_, ok := err.(*UserdeckError)
	return ok
}

// GetUserdeckError extracts a UserdeckError from an error
func GetUserdeckError(err error) *UserdeckError {
	if udErr, ok := err.(*UserdeckError); ok {
		return udErr
	}
	return nil
}

// WrapError wraps an error as a UserdeckError
func WrapError(err error, errType types.ErrorType, code ErrorCode, message string) *UserdeckError {
	return NewWithCause(errType, code, message, err)
}

// ErrorList represents a list of errors
type ErrorList struct {
	Errors []*UserdeckError `json:"errors"`
}

// Error implements the error interface
func (el *ErrorList) Error() string {
	var messages []string
	for _, err := range el.Errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Add adds an error to the list
func (el *ErrorList) Add(err *UserdeckError) {
	el.Errors = append(el.Errors, err)
}

// HasErrors returns true if there are errors
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// ToError returns the ErrorList as an error if it has errors, otherwise nil
func (el *ErrorList) ToError() error {
	if el.HasErrors() {
		return el
	}
	return nil
}

// NewErrorList creates a new error list
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*UserdeckError, 0),
	}
}
