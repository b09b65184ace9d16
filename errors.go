package lintflow

import (
	"errors"
	"fmt"
)

// ErrLint is returned when violations with error severity were found
var ErrLint = errors.New("lint errors found")

// ErrorType represents the category of an error
type ErrorType string

const (
	// ErrorTypeConfig represents configuration-related errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeFS represents file system-related errors
	ErrorTypeFS ErrorType = "filesystem"
	// ErrorTypeEngine represents analyzer engine errors
	ErrorTypeEngine ErrorType = "engine"
	// ErrorTypeStream represents unsupported streamed input
	ErrorTypeStream ErrorType = "stream"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
)

// AppError is a custom error type that provides context about the error
type AppError struct {
	Type    ErrorType // The category of the error
	Message string    // A human-readable error message
	Err     error     // The underlying error, if any
	File    string    // The file related to the error, if applicable
	Details string    // Additional details about the error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new configuration error
func NewConfigError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeConfig,
		Message: message,
		Err:     err,
	}
}

// NewFSError creates a new file system error
func NewFSError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeFS,
		Message: message,
		Err:     err,
	}
}

// NewEngineError creates a new analyzer engine error
func NewEngineError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeEngine,
		Message: message,
		Err:     err,
	}
}

// NewStreamError creates an error for streamed (non-buffered) file input
func NewStreamError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeStream,
		Message: message,
	}
}

// NewCacheError creates a new cache error
func NewCacheError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeCache,
		Message: message,
		Err:     err,
	}
}

// WithFile adds file information to the error
func WithFile(err *AppError, file string) *AppError {
	err.File = file
	return err
}

// WithDetails adds additional details to the error
func WithDetails(err *AppError, details string) *AppError {
	err.Details = details
	return err
}

// ErrorInfo carries the context extracted from an AppError
type ErrorInfo struct {
	Type    ErrorType
	File    string
	Details string
}

// GetErrorInfo extracts AppError context from an error chain
func GetErrorInfo(err error) (ErrorInfo, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return ErrorInfo{
			Type:    appErr.Type,
			File:    appErr.File,
			Details: appErr.Details,
		}, true
	}
	return ErrorInfo{}, false
}
