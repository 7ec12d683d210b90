package movie

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-discriminable error kind. Entry points surface
// it alongside the free-form message so clients can branch on failure class.
type Code string

const (
	CodeSessionNotFound  Code = "SESSION_NOT_FOUND"
	CodeNotInitialized   Code = "NOT_INITIALIZED"
	CodeInitFailed       Code = "INIT_FAILED"
	CodeNavigationFailed Code = "NAVIGATION_FAILED"
	CodeAnalysisFailed   Code = "ANALYSIS_FAILED"
	CodeSessionLimit     Code = "SESSION_LIMIT"
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeInternal         Code = "INTERNAL"
)

var (
	ErrSessionNotFound = &Error{Code: CodeSessionNotFound, Message: "session not found"}
	ErrNotInitialized  = &Error{Code: CodeNotInitialized, Message: "browser not initialized"}
	ErrTooManySessions = &Error{Code: CodeSessionLimit, Message: "concurrent session limit reached"}
)

// Error is a coded error. Sentinels above compare by code through errors.Is.
type Error struct {
	Code       Code
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches any *Error carrying the same code, so wrapped errors still
// satisfy errors.Is(err, ErrSessionNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a coded error.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an underlying error with a code and message. Returns nil
// for a nil underlying error.
func WrapError(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Underlying: err}
}

// CodeOf extracts the code from an error chain, defaulting to INTERNAL.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var me *Error
	if errors.As(err, &me) {
		return me.Code
	}
	return CodeInternal
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
