// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

// Package errors provides structured application errors with machine-readable
// codes and HTTP status mapping. Services return AppErrors; the API layer
// translates them into wire responses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ============================================================================
// Error codes
// ============================================================================

const (
	CodeInternal         = "INTERNAL_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeBadRequest       = "BAD_REQUEST"
	CodeConflict         = "CONFLICT"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeTimeout          = "TIMEOUT"
	CodeValidation       = "VALIDATION_ERROR"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeLimitExceeded    = "LIMIT_EXCEEDED"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeRateLimited      = "RATE_LIMITED"
	CodeBadGateway       = "BAD_GATEWAY"
	CodeGitError         = "GIT_ERROR"
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternal           = errors.New("internal error")
	ErrTimeout            = errors.New("timeout")
	ErrConflict           = errors.New("conflict")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrRateLimited        = errors.New("rate limited")
)

// ============================================================================
// AppError
// ============================================================================

// AppError is a structured application error carrying a machine-readable
// code, a human message, an HTTP status for the API layer, optional details,
// and an optional wrapped cause.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails replaces the details map.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithDetail sets a single detail key, initializing the map if needed.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithHTTPStatus overrides the HTTP status.
func (e *AppError) WithHTTPStatus(status int) *AppError {
	e.HTTPStatus = status
	return e
}

// ============================================================================
// Constructors
// ============================================================================

// New creates an AppError with the given code and message.
func New(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Newf creates an AppError with a formatted message.
func Newf(code, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// NewWithStatus creates an AppError with an explicit HTTP status.
func NewWithStatus(code, message string, status int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WrapWithStatus wraps an error with a code, message and explicit HTTP status.
func WrapWithStatus(err error, code, message string, status int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
		Err:        err,
	}
}

// ============================================================================
// Convenience constructors
// ============================================================================

// NotFound returns a 404 AppError for the named resource.
func NotFound(resource string) *AppError {
	return NewWithStatus(CodeNotFound, resource+" not found", http.StatusNotFound)
}

// AlreadyExists returns a 409 AppError for the named resource.
func AlreadyExists(resource string) *AppError {
	return NewWithStatus(CodeConflict, resource+" already exists", http.StatusConflict)
}

// InvalidInput returns a 400 AppError.
func InvalidInput(message string) *AppError {
	return NewWithStatus(CodeBadRequest, message, http.StatusBadRequest)
}

// Unauthorized returns a 401 AppError.
func Unauthorized(message string) *AppError {
	return NewWithStatus(CodeUnauthorized, message, http.StatusUnauthorized)
}

// Forbidden returns a 403 AppError.
func Forbidden(message string) *AppError {
	return NewWithStatus(CodeForbidden, message, http.StatusForbidden)
}

// Internal returns a 500 AppError.
func Internal(message string) *AppError {
	return NewWithStatus(CodeInternal, message, http.StatusInternalServerError)
}

// LimitExceeded returns a 402 AppError when a resource count exceeds its
// allowed limit.
func LimitExceeded(resource string, current, limit int) *AppError {
	ae := NewWithStatus(
		CodeLimitExceeded,
		fmt.Sprintf("%s limit reached (%d/%d). Upgrade to raise this limit.", resource, current, limit),
		http.StatusPaymentRequired,
	)
	ae.Details = map[string]interface{}{
		"resource": resource,
		"current":  current,
		"limit":    limit,
	}
	return ae
}

// ValidationFailed returns a 400 AppError carrying per-field messages.
func ValidationFailed(fields map[string]string) *AppError {
	ae := NewWithStatus(CodeValidationFailed, "validation failed", http.StatusBadRequest)
	ae.Details = make(map[string]interface{}, len(fields))
	for k, v := range fields {
		ae.Details[k] = v
	}
	return ae
}

// ============================================================================
// Typed errors
// ============================================================================

// NotFoundError is a typed wrapper for missing-resource errors.
type NotFoundError struct{ *AppError }

// AlreadyExistsError is a typed wrapper for duplicate-resource errors.
type AlreadyExistsError struct{ *AppError }

// ValidationError is a typed wrapper for validation errors.
type ValidationError struct{ *AppError }

// UnauthorizedError is a typed wrapper for authentication errors.
type UnauthorizedError struct{ *AppError }

// ForbiddenError is a typed wrapper for authorization errors.
type ForbiddenError struct{ *AppError }

// ConflictError is a typed wrapper for state-conflict errors.
type ConflictError struct{ *AppError }

// InternalError is a typed wrapper for unexpected internal errors.
type InternalError struct{ *AppError }

// NewNotFoundError creates a typed not-found error.
func NewNotFoundError(resource string) *NotFoundError {
	return &NotFoundError{NotFound(resource)}
}

// NewAlreadyExistsError creates a typed already-exists error.
func NewAlreadyExistsError(resource string) *AlreadyExistsError {
	return &AlreadyExistsError{AlreadyExists(resource)}
}

// NewValidationError creates a typed validation error.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{NewWithStatus(CodeValidationFailed, message, http.StatusBadRequest)}
}

// NewUnauthorizedError creates a typed unauthorized error.
func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Unauthorized(message)}
}

// NewForbiddenError creates a typed forbidden error.
func NewForbiddenError(message string) *ForbiddenError {
	return &ForbiddenError{Forbidden(message)}
}

// NewConflictError creates a typed conflict error.
func NewConflictError(message string) *ConflictError {
	return &ConflictError{NewWithStatus(CodeConflict, message, http.StatusConflict)}
}

// NewInternalError creates a typed internal error.
func NewInternalError(message string) *InternalError {
	return &InternalError{Internal(message)}
}

// ============================================================================
// Inspection helpers
// ============================================================================

// GetAppError extracts an AppError from anywhere in the error chain.
func GetAppError(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// HTTPStatusCode maps an error to an HTTP status code. AppErrors use their
// own status; sentinel errors map to conventional codes; anything else is a
// 500.
func HTTPStatusCode(err error) int {
	if ae, ok := GetAppError(err); ok && ae.HTTPStatus != 0 {
		return ae.HTTPStatus
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// IsNotFoundError reports whether err represents a missing resource.
func IsNotFoundError(err error) bool {
	var typed *NotFoundError
	if errors.As(err, &typed) {
		return true
	}
	if ae, ok := GetAppError(err); ok && ae.Code == CodeNotFound {
		return true
	}
	return errors.Is(err, ErrNotFound)
}

// IsConflictError reports whether err represents a duplicate or conflicting
// resource.
func IsConflictError(err error) bool {
	var aee *AlreadyExistsError
	var ce *ConflictError
	if errors.As(err, &aee) || errors.As(err, &ce) {
		return true
	}
	if ae, ok := GetAppError(err); ok && ae.Code == CodeConflict {
		return true
	}
	return errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrConflict)
}

// IsValidationError reports whether err represents invalid input.
func IsValidationError(err error) bool {
	var typed *ValidationError
	if errors.As(err, &typed) {
		return true
	}
	if ae, ok := GetAppError(err); ok && (ae.Code == CodeBadRequest || ae.Code == CodeValidation || ae.Code == CodeValidationFailed) {
		return true
	}
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidInput)
}

// IsUnauthorizedError reports whether err represents an authentication
// failure.
func IsUnauthorizedError(err error) bool {
	var typed *UnauthorizedError
	if errors.As(err, &typed) {
		return true
	}
	if ae, ok := GetAppError(err); ok && ae.Code == CodeUnauthorized {
		return true
	}
	return errors.Is(err, ErrUnauthorized)
}

// IsForbiddenError reports whether err represents an authorization failure.
func IsForbiddenError(err error) bool {
	var typed *ForbiddenError
	if errors.As(err, &typed) {
		return true
	}
	if ae, ok := GetAppError(err); ok && ae.Code == CodeForbidden {
		return true
	}
	return errors.Is(err, ErrForbidden)
}

// Is delegates to errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As delegates to errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
