package common

import (
	"errors"
	"fmt"
)

// ErrorCode represents the kind of failure surfaced to the user
type ErrorCode int

const (
	// General errors
	ErrInternal ErrorCode = iota + 1000
	ErrValidation
	ErrNotFound

	// Session errors
	ErrUnauthorized ErrorCode = iota + 2000
	ErrForbidden

	// Remote API errors
	ErrRemote ErrorCode = iota + 3000

	// Local storage errors
	ErrStorage ErrorCode = iota + 4000
)

// AppError carries a user-facing message alongside a code
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewError creates a new AppError
func NewError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// NewErrorWithCause creates a new AppError with an underlying cause
func NewErrorWithCause(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	e.Context[key] = value
	return e
}

// IsErrorCode checks if an error (or anything it wraps) has a specific code
func IsErrorCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// UserMessage returns the copy to show for err, or fallback when err carries none
func UserMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

// Common error constructors
func ErrValidationError(message string) *AppError {
	return NewError(ErrValidation, message)
}

func ErrNotFoundError(message string) *AppError {
	return NewError(ErrNotFound, message)
}

func ErrUnauthorizedError(message string) *AppError {
	return NewError(ErrUnauthorized, message)
}

func ErrForbiddenError(message string) *AppError {
	return NewError(ErrForbidden, message)
}

func ErrRemoteError(message string) *AppError {
	return NewError(ErrRemote, message)
}

func ErrStorageError(message string, cause error) *AppError {
	return NewErrorWithCause(ErrStorage, message, cause)
}
