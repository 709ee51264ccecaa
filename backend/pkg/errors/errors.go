package errors

import (
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInvalidInput represents rejected input: missing or blank
	// credentials, embedded whitespace, password confirmation mismatch
	ErrorTypeInvalidInput ErrorType = "invalid_input"
	// ErrorTypeDuplicateAccount represents a userName that is already taken
	ErrorTypeDuplicateAccount ErrorType = "duplicate_account"
	// ErrorTypeAuthenticationFailed represents a missing, invalid or expired
	// token, or a failed password check on login
	ErrorTypeAuthenticationFailed ErrorType = "authentication_failed"
	// ErrorTypeNotFound represents an absent logout or query target
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeStoreFailure represents an underlying store adapter error
	ErrorTypeStoreFailure ErrorType = "store_failure"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type    ErrorType
	Message string
	Err     error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// NewInvalidInput reports rejected caller input. Validation happens before
// any store or credential call, so these never wrap a cause.
func NewInvalidInput(message string) *BaseError {
	return NewBaseError(ErrorTypeInvalidInput, message, nil)
}

// NewDuplicateAccount is returned when a userName is already registered
func NewDuplicateAccount(userName string) *BaseError {
	return NewBaseError(ErrorTypeDuplicateAccount, fmt.Sprintf("userName already taken: %s", userName), nil)
}

// NewAuthenticationFailed covers both a rejected token and a failed
// password check; the message distinguishes them for diagnostics
func NewAuthenticationFailed(message string) *BaseError {
	return NewBaseError(ErrorTypeAuthenticationFailed, message, nil)
}

// NewNotFound is returned when the target of an operation is absent
func NewNotFound(message string) *BaseError {
	return NewBaseError(ErrorTypeNotFound, message, nil)
}

// NewStoreFailure wraps an underlying store adapter error, preserving the
// original as detail
func NewStoreFailure(message string, err error) *BaseError {
	return NewBaseError(ErrorTypeStoreFailure, message, err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	if baseErr, ok := err.(*BaseError); ok {
		return baseErr.Type == errType
	}
	// Check wrapped errors
	if wrapped, ok := err.(interface{ Unwrap() error }); ok {
		if inner := wrapped.Unwrap(); inner != nil {
			return IsType(inner, errType)
		}
	}
	return false
}

// TypeOf returns the taxonomy type of err, or an empty string if err does
// not carry one
func TypeOf(err error) ErrorType {
	if baseErr, ok := err.(*BaseError); ok {
		return baseErr.Type
	}
	if wrapped, ok := err.(interface{ Unwrap() error }); ok {
		if inner := wrapped.Unwrap(); inner != nil {
			return TypeOf(inner)
		}
	}
	return ""
}
