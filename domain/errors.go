package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeExpired      ErrorCode = "EXPIRED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeRateLimited  ErrorCode = "RATE_LIMITED"
	ErrCodeUnavailable  ErrorCode = "UNAVAILABLE"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Check-in error taxonomy. Every one of these is an expected, recoverable
// outcome returned to the caller, never a process fault.
var (
	ErrStudentNotFound = NewError(ErrCodeNotFound, "student not found; accepted identifiers are registry id, email or name")
	ErrStudentInactive = NewError(ErrCodeForbidden, "student is not active")
	ErrSessionNotFound = NewError(ErrCodeNotFound, "session not found")
	ErrSessionExpired  = NewError(ErrCodeExpired, "session has expired; request a new code")
	ErrLocationRequired = NewError(ErrCodeInvalid, "this session requires a location; none was supplied")
	ErrAlreadyMarked   = NewError(ErrCodeConflict, "student already checked in for this session")
	ErrUnauthorized    = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrInvalidPayload  = NewError(ErrCodeInvalid, "invalid payload")
	ErrInvalidCoordinates = NewError(ErrCodeInvalid, "latitude must be in [-90,90] and longitude in [-180,180]")
)

// GeofenceError is returned when a mark lands outside the allowed radius.
// It carries the measured distance so the client can explain the rejection.
type GeofenceError struct {
	DistanceMeters      float64
	AllowedRadiusMeters float64
}

func (e *GeofenceError) Error() string {
	return fmt.Sprintf("outside allowed area: %.1fm away, %.1fm allowed", e.DistanceMeters, e.AllowedRadiusMeters)
}

// Code lets GeofenceError participate in IsDomainError checks.
func (e *GeofenceError) Code() ErrorCode { return ErrCodeForbidden }

// RateLimitError tells a polling client when it may retry.
type RateLimitError struct {
	RetryAfterSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many requests; retry after %ds", e.RetryAfterSeconds)
}

// PersistenceError wraps a downstream storage failure. The mark it
// interrupted leaves no in-memory trace, so retrying is always safe.
func PersistenceError(err error) *Error {
	return WrapError(ErrCodeUnavailable, "attendance record could not be persisted", err)
}

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	var gErr *GeofenceError
	if errors.As(err, &gErr) {
		return gErr.Code() == code
	}
	return false
}
