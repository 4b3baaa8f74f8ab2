package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeParsing       ErrorType = "PARSING"
	ErrTypeStorage       ErrorType = "STORAGE"
	ErrTypeValidation    ErrorType = "VALIDATION"
	ErrTypeNotFound      ErrorType = "NOT_FOUND"
	ErrTypeConfig        ErrorType = "CONFIG"
	ErrTypeMissingColumn ErrorType = "MISSING_COLUMN"
)

// Sentinel kinds usable with errors.Is. Any AppError of the same type matches.
var (
	ErrFileNotFound  = &AppError{Type: ErrTypeNotFound}
	ErrParse         = &AppError{Type: ErrTypeParsing}
	ErrMissingColumn = &AppError{Type: ErrTypeMissingColumn}
	ErrValidation    = &AppError{Type: ErrTypeValidation}
	ErrConfig        = &AppError{Type: ErrTypeConfig}
	ErrStorage       = &AppError{Type: ErrTypeStorage}
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a sentinel of the same error type.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || t.Message != "" {
		return false
	}
	return t.Type == e.Type
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// TypeOf returns the ErrorType of the first AppError in err's chain.
func TypeOf(err error) (ErrorType, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type, true
	}
	return "", false
}

// Helper functions for common error types

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, cause error) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), cause).
		WithContext("resource", resource)
}

// NewMissingColumnError reports a column required by an operation that the table lacks.
func NewMissingColumnError(operation string, column string) *AppError {
	return NewAppError(ErrTypeMissingColumn, fmt.Sprintf("%s requires column %q", operation, column), nil).
		WithContext("operation", operation).
		WithContext("column", column)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
