// Package errors provides the structured error type shared by the server
// packages, along with the error codes and classification helpers used to
// decide between a degraded response and a hard failure.
package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeTaxonomyRead  = "ERR_TAXONOMY_READ"
	ErrCodeTemplateRead  = "ERR_TEMPLATE_READ"
	ErrCodeImageListing  = "ERR_IMAGE_LISTING"
	ErrCodeForbidden     = "ERR_FORBIDDEN"
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeLogWrite      = "ERR_LOG_WRITE"
	ErrCodeConnection    = "ERR_CONNECTION"
	ErrCodeConfigInvalid = "ERR_CONFIG_INVALID"
	ErrCodeInternalError = "ERR_INTERNAL"
)

// ServerError is a structured error type with context.
type ServerError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	Path        string
	Recoverable bool
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.Path != "" {
		parts = append(parts, e.Path)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *ServerError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *ServerError) Is(target error) bool {
	var t *ServerError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *ServerError) WithContext(key string, value interface{}) *ServerError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath records the filesystem path involved in the failure.
func (e *ServerError) WithPath(path string) *ServerError {
	e.Path = path

	return e
}

// WithComponent adds component context.
func (e *ServerError) WithComponent(component string) *ServerError {
	e.Component = component

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *ServerError {
	return &ServerError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *ServerError {
	return &ServerError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *ServerError {
	return &ServerError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// IsPermission reports whether err, or anything it wraps, is a
// permission failure from the filesystem.
func IsPermission(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, fs.ErrPermission) {
		return true
	}
	var se *ServerError
	if errors.As(err, &se) && se.Code == ErrCodeForbidden {
		return true
	}

	return false
}

// IsNotExist reports whether err, or anything it wraps, reports a missing file.
func IsNotExist(err error) bool {
	return err != nil && errors.Is(err, fs.ErrNotExist)
}

// ErrTaxonomyRead creates the recoverable error raised when the taxonomy
// source cannot be read.
func ErrTaxonomyRead(path string, cause error) *ServerError {
	return &ServerError{
		Type:        ErrorTypeIO,
		Code:        ErrCodeTaxonomyRead,
		Message:     "cannot read taxonomy source",
		Cause:       cause,
		Path:        path,
		Recoverable: true,
	}
}

// ErrImageListing creates the recoverable error raised when a species image
// directory cannot be listed.
func ErrImageListing(path string, cause error) *ServerError {
	return &ServerError{
		Type:        ErrorTypeIO,
		Code:        ErrCodeImageListing,
		Message:     "cannot list image directory",
		Cause:       cause,
		Path:        path,
		Recoverable: true,
	}
}

// ErrTemplateRead creates the error raised when a skeleton or fragment file
// cannot be loaded.
func ErrTemplateRead(path string, cause error) *ServerError {
	return &ServerError{
		Type:        ErrorTypeIO,
		Code:        ErrCodeTemplateRead,
		Message:     "cannot read template",
		Cause:       cause,
		Path:        path,
		Recoverable: true,
	}
}

// ErrStaticLookup classifies a failed static file lookup as forbidden or
// not found.
func ErrStaticLookup(path string, cause error) *ServerError {
	code, msg := ErrCodeNotFound, "file not found"
	if IsPermission(cause) {
		code, msg = ErrCodeForbidden, "permission denied"
	}

	return &ServerError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     msg,
		Cause:       cause,
		Path:        path,
		Recoverable: true,
	}
}
