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
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeLocked       ErrorCode = "LOCKED"
	ErrCodeStale        ErrorCode = "STALE_SESSION"
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

// Common domain errors.
var (
	ErrUserNotFound    = NewError(ErrCodeNotFound, "user not found")
	ErrProductNotFound = NewError(ErrCodeNotFound, "product not found")
	ErrSessionNotFound = NewError(ErrCodeNotFound, "session not found")
	ErrUnauthorized    = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrForbidden       = NewError(ErrCodeForbidden, "forbidden")
	ErrInvalidPayload  = NewError(ErrCodeInvalid, "invalid payload")
	ErrConflict        = NewError(ErrCodeConflict, "resource already exists")

	// ErrInvalidCredentials covers both unknown logins and wrong secrets.
	ErrInvalidCredentials = NewError(ErrCodeUnauthorized, "invalid credentials")

	// ErrLocked and ErrAccountSuspended render identically to clients.
	// Only errors.Is tells the attempt-rate lockout from the account-level one.
	ErrLocked           = NewError(ErrCodeLocked, "account temporarily locked")
	ErrAccountSuspended = NewError(ErrCodeLocked, "account temporarily locked")

	// ErrStaleSession is returned when a write targets a session key that has expired.
	ErrStaleSession = NewError(ErrCodeStale, "session expired")

	// ErrStoreUnavailable is returned on timeouts or connectivity failures of the TTL store.
	ErrStoreUnavailable = NewError(ErrCodeUnavailable, "session store unavailable")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
