package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrUnauthorized          = New("UNAUTHORIZED", http.StatusUnauthorized, "missing bearer token")
	ErrInvalidToken          = New("INVALID_TOKEN", http.StatusUnauthorized, "invalid token")
	ErrMissingIdentityClaim  = New("MISSING_IDENTITY_CLAIM", http.StatusUnauthorized, "token carries no preferred_username claim")
	ErrInvalidStatus         = New("INVALID_STATUS", http.StatusBadRequest, "status must be one of Present, Absent, Late")
	ErrValidation            = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrSubmissionFailed      = New("SUBMISSION_FAILED", http.StatusInternalServerError, "could not record attendance")
	ErrRetrievalFailed       = New("RETRIEVAL_FAILED", http.StatusInternalServerError, "could not load attendance history")
	ErrConnectionUnavailable = New("CONNECTION_UNAVAILABLE", http.StatusServiceUnavailable, "database unavailable")
	ErrConflict              = New("CONFLICT", http.StatusConflict, "conflict")
	ErrInternal              = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// ErrCacheMiss signals that a cache lookup produced no value.
var ErrCacheMiss = errors.New("cache miss")

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
