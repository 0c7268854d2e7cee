// internal/common/errors/errors.go
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	// Delivery
	ErrCodeDeliveryFailed             ErrorCode = "DELIVERY_FAILED"
	ErrCodeEndpointRegistrationFailed ErrorCode = "ENDPOINT_REGISTRATION_FAILED"
	ErrCodeMissingDestinationToken    ErrorCode = "MISSING_DESTINATION_TOKEN"

	// Record store
	ErrCodeCleanupFailed            ErrorCode = "CLEANUP_FAILED"
	ErrCodeQueryFailed              ErrorCode = "QUERY_FAILED"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"

	// Event payloads
	ErrCodePayloadInvalid  ErrorCode = "PAYLOAD_INVALID"
	ErrCodeUnhandledStatus ErrorCode = "UNHANDLED_STATUS"

	// Scheduling
	ErrCodeScheduleLockFailed ErrorCode = "SCHEDULE_LOCK_FAILED"

	// Generic external collaborators
	ErrCodeExternalService  ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout          ErrorCode = "TIMEOUT"
	ErrCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeAuthentication   ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns the error with an extra metadata entry.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewDeliveryFailedError(err error) *StandardError {
	return newError(ErrCodeDeliveryFailed, "Push delivery failed", err, false)
}

func NewEndpointRegistrationFailedError(err error) *StandardError {
	return newError(ErrCodeEndpointRegistrationFailed, "Could not register push endpoint for token", err, false)
}

func NewMissingDestinationTokenError(recordID string) *StandardError {
	e := newError(ErrCodeMissingDestinationToken, "Destination token is empty", nil, false)
	e.Details = fmt.Sprintf("recordId: %s", recordID)
	return e
}

func NewCleanupFailedError(recordID string, err error) *StandardError {
	return newError(ErrCodeCleanupFailed, "Source record not deleted", err, false).
		WithMetadata("recordId", recordID)
}

func NewQueryFailedError(query string, err error) *StandardError {
	return newError(ErrCodeQueryFailed, "Record store query failed", err, true).
		WithMetadata("query", query)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err, true)
}

func NewPayloadInvalidError(details string) *StandardError {
	e := newError(ErrCodePayloadInvalid, "Change event payload is invalid", nil, false)
	e.Details = details
	return e
}

func NewUnhandledStatusError(status int) *StandardError {
	e := newError(ErrCodeUnhandledStatus, "Appointment status is not one of the handled values", nil, false)
	e.Details = fmt.Sprintf("status: %d", status)
	return e
}

func NewScheduleLockFailedError(err error) *StandardError {
	return newError(ErrCodeScheduleLockFailed, "Could not acquire schedule run lock", err, true)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("%s service error", service), err, true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("%s request timed out", service), err, true)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	e := newError(ErrCodeResourceNotFound, fmt.Sprintf("%s resource not found", service), nil, false)
	e.Details = details
	return e
}

func NewAuthenticationError(details string) *StandardError {
	e := newError(ErrCodeAuthentication, "Authentication failed", nil, false)
	e.Details = details
	return e
}

// Normalize returns err as a StandardError, wrapping unknown errors as INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err, false)
}

// CodeOf returns the error code carried by err, or "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return Normalize(err).Code
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeQueryFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeTimeout,
		ErrCodeScheduleLockFailed:
		return 2

	default:
		// delivery and payload errors are never retried
		return 0
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DELIVERY") || strings.Contains(codeStr, "ENDPOINT") || strings.Contains(codeStr, "TOKEN"):
		return "DELIVERY"
	case strings.Contains(codeStr, "CLEANUP") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "DATABASE"):
		return "RECORD_STORE"
	case strings.Contains(codeStr, "PAYLOAD") || strings.Contains(codeStr, "STATUS"):
		return "EVENT"
	case strings.Contains(codeStr, "SCHEDULE"):
		return "SCHEDULE"
	default:
		return "OTHER"
	}
}
